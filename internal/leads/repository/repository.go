package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// Automation job lifecycle. The worker moves a row pending → processing →
// done/failed; the sweep re-dispatches rows stuck in pending.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusFailed     = "failed"
)

// JobTypeLeadQualified is the job enqueued by the qualification handler.
const JobTypeLeadQualified = "lead_qualified_followup"

// EventTypeLeadQualified is the audit event recorded alongside the job.
const EventTypeLeadQualified = "lead.qualified"

type Lead struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	Company          string
	ContactName      *string
	Email            *string
	Phone            *string
	Source           *string
	Notes            *string
	Stage            domain.Stage
	QualifiedAt      *time.Time
	QualifiedEventID *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type AutomationJob struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	LeadID    uuid.UUID
	EventID   string
	JobType   string
	Status    string
	Result    []byte
	LastError *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateLeadParams carries the insertable lead fields. Optional fields are
// nil when absent so the columns stay NULL rather than empty strings.
type CreateLeadParams struct {
	OwnerID     uuid.UUID
	Company     string
	ContactName *string
	Email       *string
	Phone       *string
	Source      *string
	Notes       *string
	Stage       domain.Stage
}

// UpdateLeadParams updates contact fields only; stage moves through
// UpdateStage so pipeline transitions stay observable.
type UpdateLeadParams struct {
	Company     *string
	ContactName *string
	Email       *string
	Phone       *string
	Source      *string
	Notes       *string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, owner_id, company, contact_name, email, phone, source, notes,
	stage, qualified_at, qualified_event_id, created_at, updated_at
`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.OwnerID, &lead.Company, &lead.ContactName, &lead.Email,
		&lead.Phone, &lead.Source, &lead.Notes, &lead.Stage, &lead.QualifiedAt,
		&lead.QualifiedEventID, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func (r *Repository) CreateLead(ctx context.Context, params CreateLeadParams) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (owner_id, company, contact_name, email, phone, source, notes, stage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+leadColumns,
		params.OwnerID, params.Company, params.ContactName, params.Email,
		params.Phone, params.Source, params.Notes, params.Stage,
	))
}

// ListLeads returns the owner's leads, newest first.
func (r *Repository) ListLeads(ctx context.Context, ownerID uuid.UUID) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// GetLead is owner-scoped: a lead belonging to someone else comes back as
// ErrNotFound, indistinguishable from a missing row.
func (r *Repository) GetLead(ctx context.Context, ownerID, leadID uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1 AND owner_id = $2
	`, leadID, ownerID))
}

// GetLeadByID loads a lead regardless of owner. The qualification handler
// needs the unscoped read to tell "missing" (404) from "not yours" (403).
func (r *Repository) GetLeadByID(ctx context.Context, leadID uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1
	`, leadID))
}

func (r *Repository) UpdateLead(ctx context.Context, ownerID, leadID uuid.UUID, params UpdateLeadParams) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			company      = COALESCE($3, company),
			contact_name = COALESCE($4, contact_name),
			email        = COALESCE($5, email),
			phone        = COALESCE($6, phone),
			source       = COALESCE($7, source),
			notes        = COALESCE($8, notes),
			updated_at   = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+leadColumns,
		leadID, ownerID, params.Company, params.ContactName, params.Email,
		params.Phone, params.Source, params.Notes,
	))
}

func (r *Repository) UpdateStage(ctx context.Context, ownerID, leadID uuid.UUID, stage domain.Stage) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET stage = $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+leadColumns,
		leadID, ownerID, stage,
	))
}

func (r *Repository) DeleteLead(ctx context.Context, ownerID, leadID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM leads WHERE id = $1 AND owner_id = $2
	`, leadID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimQualification marks the lead Qualified and pins the qualification
// event id with a compare-and-swap. The WHERE clause only matches when the
// lead is unclaimed or already claimed by this same event, so two racing
// requests with different event ids cannot both win.
func (r *Repository) ClaimQualification(ctx context.Context, leadID uuid.UUID, eventID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET stage = $3,
		    qualified_at = COALESCE(qualified_at, now()),
		    qualified_event_id = COALESCE(qualified_event_id, $2),
		    updated_at = now()
		WHERE id = $1
		  AND (qualified_event_id IS NULL OR qualified_event_id = $2)
	`, leadID, eventID, domain.StageQualified)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// InsertAutomationJob enqueues the follow-up job row. The unique index on
// (lead_id, event_id) plus ON CONFLICT DO NOTHING makes the insert
// exactly-once per qualification event; the returned flag reports whether
// this call created the row.
func (r *Repository) InsertAutomationJob(ctx context.Context, ownerID, leadID uuid.UUID, eventID, jobType string) (uuid.UUID, bool, error) {
	var jobID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO automation_jobs (owner_id, lead_id, event_id, job_type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lead_id, event_id) DO NOTHING
		RETURNING id
	`, ownerID, leadID, eventID, jobType).Scan(&jobID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict: the row already exists from an earlier submission.
		err = r.pool.QueryRow(ctx, `
			SELECT id FROM automation_jobs WHERE lead_id = $1 AND event_id = $2
		`, leadID, eventID).Scan(&jobID)
		if err != nil {
			return uuid.Nil, false, err
		}
		return jobID, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return jobID, true, nil
}

// InsertAutomationEvent records the audit trail entry. Callers treat failure
// as non-fatal.
func (r *Repository) InsertAutomationEvent(ctx context.Context, ownerID, leadID uuid.UUID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO automation_events (owner_id, lead_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`, ownerID, leadID, eventType, body)
	return err
}

func (r *Repository) GetAutomationJob(ctx context.Context, jobID uuid.UUID) (AutomationJob, error) {
	var job AutomationJob
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, lead_id, event_id, job_type, status, result, last_error, created_at, updated_at
		FROM automation_jobs
		WHERE id = $1
	`, jobID).Scan(
		&job.ID, &job.OwnerID, &job.LeadID, &job.EventID, &job.JobType,
		&job.Status, &job.Result, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return AutomationJob{}, ErrNotFound
	}
	if err != nil {
		return AutomationJob{}, err
	}
	return job, nil
}

// MarkJobProcessing transitions a pending job to processing. Returns false
// when the row is in any other status, which lets the worker drop redelivered
// tasks for jobs already handled.
func (r *Repository) MarkJobProcessing(ctx context.Context, jobID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE automation_jobs
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`, jobID, JobStatusProcessing, JobStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) MarkJobDone(ctx context.Context, jobID uuid.UUID, result any) error {
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE automation_jobs
		SET status = $2, result = $3, last_error = NULL, updated_at = now()
		WHERE id = $1
	`, jobID, JobStatusDone, body)
	return err
}

func (r *Repository) MarkJobFailed(ctx context.Context, jobID uuid.UUID, cause string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE automation_jobs
		SET status = $2, last_error = $3, updated_at = now()
		WHERE id = $1
	`, jobID, JobStatusFailed, cause)
	return err
}

// ListStalePendingJobs finds pending jobs older than the cutoff so the sweep
// can re-dispatch work whose original enqueue never reached Redis.
func (r *Repository) ListStalePendingJobs(ctx context.Context, olderThan time.Time, limit int) ([]AutomationJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, lead_id, event_id, job_type, status, result, last_error, created_at, updated_at
		FROM automation_jobs
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`, JobStatusPending, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]AutomationJob, 0)
	for rows.Next() {
		var job AutomationJob
		if err := rows.Scan(
			&job.ID, &job.OwnerID, &job.LeadID, &job.EventID, &job.JobType,
			&job.Status, &job.Result, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
