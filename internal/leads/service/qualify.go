package service

import (
	"context"
	"errors"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
)

// Qualification outcomes reported to the automation caller.
const (
	QualifyStatusQueued         = "queued"
	QualifyStatusAlreadyHandled = "already_handled"
)

// QualifyResult is the outcome of processing one qualification event.
// EventID echoes the event that owns the qualification, which is the stored
// one when the submission was a duplicate.
type QualifyResult struct {
	Status  string
	EventID string
	JobID   uuid.UUID
}

// QualifyLead processes a lead-qualification event exactly once. Duplicate
// submissions of the same event id, and racing submissions of different event
// ids for the same lead, all collapse to a single queued automation job:
// the lead row pins the winning event id with a compare-and-swap, and the
// job table enforces uniqueness on (lead_id, event_id).
func (s *Service) QualifyLead(ctx context.Context, ownerID, leadID uuid.UUID, eventID string) (QualifyResult, error) {
	lead, err := s.repo.GetLeadByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return QualifyResult{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		s.log.DatabaseError("qualify_load_lead", err)
		return QualifyResult{}, apperr.Wrap(apperr.KindInternal, "could not load lead", err)
	}

	if lead.OwnerID != ownerID {
		return QualifyResult{}, apperr.Forbidden("lead belongs to another user")
	}

	// A lead keeps its first qualification event id for life; any later event
	// id is reported as already handled without touching the job table.
	if lead.QualifiedEventID != nil && *lead.QualifiedEventID != eventID {
		return QualifyResult{Status: QualifyStatusAlreadyHandled, EventID: *lead.QualifiedEventID}, nil
	}

	claimed, err := s.repo.ClaimQualification(ctx, leadID, eventID)
	if err != nil {
		s.log.DatabaseError("qualify_claim", err)
		return QualifyResult{}, apperr.Wrap(apperr.KindInternal, "could not qualify lead", err)
	}
	if !claimed {
		// A concurrent request with a different event id won the claim between
		// our read and the update. Report the winner's event id.
		winner, err := s.repo.GetLeadByID(ctx, leadID)
		if err != nil || winner.QualifiedEventID == nil {
			return QualifyResult{Status: QualifyStatusAlreadyHandled, EventID: eventID}, nil
		}
		return QualifyResult{Status: QualifyStatusAlreadyHandled, EventID: *winner.QualifiedEventID}, nil
	}

	jobID, created, err := s.repo.InsertAutomationJob(ctx, ownerID, leadID, eventID, repository.JobTypeLeadQualified)
	if err != nil {
		s.log.DatabaseError("qualify_insert_job", err)
		return QualifyResult{}, apperr.Wrap(apperr.KindInternal, "could not queue automation job", err)
	}
	if !created {
		return QualifyResult{Status: QualifyStatusAlreadyHandled, EventID: eventID, JobID: jobID}, nil
	}

	// Audit trail is best-effort: the qualification already succeeded.
	auditErr := s.repo.InsertAutomationEvent(ctx, ownerID, leadID, repository.EventTypeLeadQualified, map[string]string{
		"eventId": eventID,
		"jobId":   jobID.String(),
	})
	if auditErr != nil {
		s.log.Warn("automation event insert failed",
			"lead_id", leadID.String(),
			"event_id", eventID,
			"error", auditErr.Error(),
		)
	}

	// The job row is the source of truth; if the dispatch is lost the sweep
	// re-dispatches pending rows.
	if s.dispatcher != nil {
		if err := s.dispatcher.DispatchLeadQualified(ctx, jobID, leadID, eventID); err != nil {
			s.log.Warn("automation job dispatch failed",
				"job_id", jobID.String(),
				"lead_id", leadID.String(),
				"error", err.Error(),
			)
		}
	}

	s.bus.Publish(ctx, events.LeadQualified{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		OwnerID:   ownerID,
		EventID:   eventID,
		JobID:     jobID,
	})

	return QualifyResult{Status: QualifyStatusQueued, EventID: eventID, JobID: jobID}, nil
}
