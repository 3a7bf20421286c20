package service

import (
	"context"
	"testing"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

func strptr(s string) *string { return &s }

func TestCreateLeadNormalizesPhone(t *testing.T) {
	repo := newFakeLeadsRepo()
	svc := New(repo, noopBus{}, nil, logger.New("development"))

	lead, err := svc.CreateLead(context.Background(), uuid.New(), CreateLeadInput{
		Company: "Initech",
		Phone:   strptr("(415) 555-2671"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if lead.Phone == nil || *lead.Phone != "+14155552671" {
		t.Fatalf("expected E.164 phone, got %v", lead.Phone)
	}
	if lead.Stage != domain.StageNew {
		t.Fatalf("expected default stage New, got %q", lead.Stage)
	}
}

func TestCreateLeadRejectsUnknownStage(t *testing.T) {
	repo := newFakeLeadsRepo()
	svc := New(repo, noopBus{}, nil, logger.New("development"))

	_, err := svc.CreateLead(context.Background(), uuid.New(), CreateLeadInput{
		Company: "Initech",
		Stage:   strptr("Archived"),
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStageRejectsUnknownStage(t *testing.T) {
	repo := newFakeLeadsRepo()
	svc := New(repo, noopBus{}, nil, logger.New("development"))
	ownerID := uuid.New()
	lead := repo.addLead(ownerID)

	_, err := svc.UpdateStage(context.Background(), ownerID, lead.ID, "Closed")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStageMovesPipeline(t *testing.T) {
	repo := newFakeLeadsRepo()
	svc := New(repo, noopBus{}, nil, logger.New("development"))
	ownerID := uuid.New()
	lead := repo.addLead(ownerID)

	updated, err := svc.UpdateStage(context.Background(), ownerID, lead.ID, "Contacted")
	if err != nil {
		t.Fatalf("update stage: %v", err)
	}
	if updated.Stage != domain.StageContacted {
		t.Fatalf("expected Contacted, got %q", updated.Stage)
	}
}

func TestGetLeadIsOwnerScoped(t *testing.T) {
	repo := newFakeLeadsRepo()
	svc := New(repo, noopBus{}, nil, logger.New("development"))
	lead := repo.addLead(uuid.New())

	_, err := svc.GetLead(context.Background(), uuid.New(), lead.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for foreign lead, got %v", err)
	}
}
