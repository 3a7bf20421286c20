package repository

import (
	"context"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// LeadsRepository is the persistence contract consumed by the leads service
// and the automation worker. Tests substitute an in-memory fake.
type LeadsRepository interface {
	CreateLead(ctx context.Context, params CreateLeadParams) (Lead, error)
	ListLeads(ctx context.Context, ownerID uuid.UUID) ([]Lead, error)
	GetLead(ctx context.Context, ownerID, leadID uuid.UUID) (Lead, error)
	GetLeadByID(ctx context.Context, leadID uuid.UUID) (Lead, error)
	UpdateLead(ctx context.Context, ownerID, leadID uuid.UUID, params UpdateLeadParams) (Lead, error)
	UpdateStage(ctx context.Context, ownerID, leadID uuid.UUID, stage domain.Stage) (Lead, error)
	DeleteLead(ctx context.Context, ownerID, leadID uuid.UUID) error

	ClaimQualification(ctx context.Context, leadID uuid.UUID, eventID string) (bool, error)
	InsertAutomationJob(ctx context.Context, ownerID, leadID uuid.UUID, eventID, jobType string) (uuid.UUID, bool, error)
	InsertAutomationEvent(ctx context.Context, ownerID, leadID uuid.UUID, eventType string, payload any) error

	GetAutomationJob(ctx context.Context, jobID uuid.UUID) (AutomationJob, error)
	MarkJobProcessing(ctx context.Context, jobID uuid.UUID) (bool, error)
	MarkJobDone(ctx context.Context, jobID uuid.UUID, result any) error
	MarkJobFailed(ctx context.Context, jobID uuid.UUID, cause string) error
	ListStalePendingJobs(ctx context.Context, olderThan time.Time, limit int) ([]AutomationJob, error)
}

var _ LeadsRepository = (*Repository)(nil)
