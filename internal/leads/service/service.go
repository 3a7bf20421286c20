// Package service implements the leads business logic: pipeline CRUD and the
// idempotent qualification flow that feeds the automation worker.
package service

import (
	"context"
	"errors"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"

	"github.com/google/uuid"
)

// JobDispatcher hands a queued automation job to the background worker.
// Dispatch failure is tolerated: the job row stays pending and the periodic
// sweep re-dispatches it.
type JobDispatcher interface {
	DispatchLeadQualified(ctx context.Context, jobID, leadID uuid.UUID, eventID string) error
}

type Service struct {
	repo       repository.LeadsRepository
	bus        events.Bus
	dispatcher JobDispatcher
	log        *logger.Logger
}

func New(repo repository.LeadsRepository, bus events.Bus, dispatcher JobDispatcher, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, dispatcher: dispatcher, log: log}
}

// CreateLeadInput carries validated handler input. Optional fields are nil
// when the client omitted them.
type CreateLeadInput struct {
	Company     string
	ContactName *string
	Email       *string
	Phone       *string
	Source      *string
	Notes       *string
	Stage       *string
}

type UpdateLeadInput struct {
	Company     *string
	ContactName *string
	Email       *string
	Phone       *string
	Source      *string
	Notes       *string
}

func (s *Service) CreateLead(ctx context.Context, ownerID uuid.UUID, input CreateLeadInput) (repository.Lead, error) {
	stage := domain.StageNew
	if input.Stage != nil {
		parsed, ok := domain.ParseStage(*input.Stage)
		if !ok {
			return repository.Lead{}, apperr.Validation("unknown stage").WithDetails(map[string]string{"stage": *input.Stage})
		}
		stage = parsed
	}

	params := repository.CreateLeadParams{
		OwnerID:     ownerID,
		Company:     input.Company,
		ContactName: input.ContactName,
		Email:       input.Email,
		Phone:       normalizePhone(input.Phone),
		Source:      input.Source,
		Notes:       input.Notes,
		Stage:       stage,
	}

	lead, err := s.repo.CreateLead(ctx, params)
	if err != nil {
		s.log.DatabaseError("create_lead", err)
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "could not create lead", err)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		OwnerID:   lead.OwnerID,
		Company:   lead.Company,
		Source:    stringOrEmpty(lead.Source),
	})

	return lead, nil
}

func (s *Service) ListLeads(ctx context.Context, ownerID uuid.UUID) ([]repository.Lead, error) {
	leads, err := s.repo.ListLeads(ctx, ownerID)
	if err != nil {
		s.log.DatabaseError("list_leads", err)
		return nil, apperr.Wrap(apperr.KindInternal, "could not list leads", err)
	}
	return leads, nil
}

func (s *Service) GetLead(ctx context.Context, ownerID, leadID uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetLead(ctx, ownerID, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		s.log.DatabaseError("get_lead", err)
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "could not load lead", err)
	}
	return lead, nil
}

func (s *Service) UpdateLead(ctx context.Context, ownerID, leadID uuid.UUID, input UpdateLeadInput) (repository.Lead, error) {
	if input.Company != nil && *input.Company == "" {
		return repository.Lead{}, apperr.Validation("company cannot be empty")
	}

	lead, err := s.repo.UpdateLead(ctx, ownerID, leadID, repository.UpdateLeadParams{
		Company:     input.Company,
		ContactName: input.ContactName,
		Email:       input.Email,
		Phone:       normalizePhone(input.Phone),
		Source:      input.Source,
		Notes:       input.Notes,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		s.log.DatabaseError("update_lead", err)
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "could not update lead", err)
	}
	return lead, nil
}

func (s *Service) UpdateStage(ctx context.Context, ownerID, leadID uuid.UUID, rawStage string) (repository.Lead, error) {
	stage, ok := domain.ParseStage(rawStage)
	if !ok {
		return repository.Lead{}, apperr.Validation("unknown stage").WithDetails(map[string]string{"stage": rawStage})
	}

	current, err := s.GetLead(ctx, ownerID, leadID)
	if err != nil {
		return repository.Lead{}, err
	}

	lead, err := s.repo.UpdateStage(ctx, ownerID, leadID, stage)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		s.log.DatabaseError("update_stage", err)
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "could not update stage", err)
	}

	if current.Stage != lead.Stage {
		s.bus.Publish(ctx, events.LeadStageChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			OwnerID:   lead.OwnerID,
			FromStage: current.Stage.String(),
			ToStage:   lead.Stage.String(),
		})
	}

	return lead, nil
}

func (s *Service) DeleteLead(ctx context.Context, ownerID, leadID uuid.UUID) error {
	err := s.repo.DeleteLead(ctx, ownerID, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found")
	}
	if err != nil {
		s.log.DatabaseError("delete_lead", err)
		return apperr.Wrap(apperr.KindInternal, "could not delete lead", err)
	}
	return nil
}

func normalizePhone(raw *string) *string {
	if raw == nil {
		return nil
	}
	normalized := phone.NormalizeE164(*raw)
	return &normalized
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
