package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

type jobKey struct {
	leadID  uuid.UUID
	eventID string
}

// fakeLeadsRepo mirrors the Postgres semantics the qualification flow relies
// on: the CAS claim on the lead row and the unique (lead_id, event_id) job
// constraint.
type fakeLeadsRepo struct {
	mu    sync.Mutex
	leads map[uuid.UUID]repository.Lead
	jobs  map[jobKey]repository.AutomationJob

	auditEvents []string
	auditErr    error
	jobErr      error
}

func newFakeLeadsRepo() *fakeLeadsRepo {
	return &fakeLeadsRepo{
		leads: make(map[uuid.UUID]repository.Lead),
		jobs:  make(map[jobKey]repository.AutomationJob),
	}
}

func (f *fakeLeadsRepo) addLead(ownerID uuid.UUID) repository.Lead {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead := repository.Lead{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Company: "Initech",
		Stage:   domain.StageNew,
	}
	f.leads[lead.ID] = lead
	return lead
}

func (f *fakeLeadsRepo) jobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func (f *fakeLeadsRepo) CreateLead(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead := repository.Lead{
		ID:      uuid.New(),
		OwnerID: params.OwnerID,
		Company: params.Company,
		Stage:   params.Stage,
		Phone:   params.Phone,
		Source:  params.Source,
	}
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeLeadsRepo) ListLeads(ctx context.Context, ownerID uuid.UUID) ([]repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Lead, 0)
	for _, lead := range f.leads {
		if lead.OwnerID == ownerID {
			out = append(out, lead)
		}
	}
	return out, nil
}

func (f *fakeLeadsRepo) GetLead(ctx context.Context, ownerID, leadID uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadID]
	if !ok || lead.OwnerID != ownerID {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeLeadsRepo) GetLeadByID(ctx context.Context, leadID uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadID]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeLeadsRepo) UpdateLead(ctx context.Context, ownerID, leadID uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadID]
	if !ok || lead.OwnerID != ownerID {
		return repository.Lead{}, repository.ErrNotFound
	}
	if params.Company != nil {
		lead.Company = *params.Company
	}
	if params.Phone != nil {
		lead.Phone = params.Phone
	}
	f.leads[leadID] = lead
	return lead, nil
}

func (f *fakeLeadsRepo) UpdateStage(ctx context.Context, ownerID, leadID uuid.UUID, stage domain.Stage) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadID]
	if !ok || lead.OwnerID != ownerID {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.Stage = stage
	f.leads[leadID] = lead
	return lead, nil
}

func (f *fakeLeadsRepo) DeleteLead(ctx context.Context, ownerID, leadID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadID]
	if !ok || lead.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(f.leads, leadID)
	return nil
}

func (f *fakeLeadsRepo) ClaimQualification(ctx context.Context, leadID uuid.UUID, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadID]
	if !ok {
		return false, nil
	}
	if lead.QualifiedEventID != nil && *lead.QualifiedEventID != eventID {
		return false, nil
	}
	now := time.Now()
	lead.Stage = domain.StageQualified
	if lead.QualifiedAt == nil {
		lead.QualifiedAt = &now
	}
	if lead.QualifiedEventID == nil {
		pinned := eventID
		lead.QualifiedEventID = &pinned
	}
	f.leads[leadID] = lead
	return true, nil
}

func (f *fakeLeadsRepo) InsertAutomationJob(ctx context.Context, ownerID, leadID uuid.UUID, eventID, jobType string) (uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.jobErr != nil {
		return uuid.Nil, false, f.jobErr
	}
	key := jobKey{leadID: leadID, eventID: eventID}
	if existing, ok := f.jobs[key]; ok {
		return existing.ID, false, nil
	}
	job := repository.AutomationJob{
		ID:      uuid.New(),
		OwnerID: ownerID,
		LeadID:  leadID,
		EventID: eventID,
		JobType: jobType,
		Status:  repository.JobStatusPending,
	}
	f.jobs[key] = job
	return job.ID, true, nil
}

func (f *fakeLeadsRepo) InsertAutomationEvent(ctx context.Context, ownerID, leadID uuid.UUID, eventType string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.auditErr != nil {
		return f.auditErr
	}
	f.auditEvents = append(f.auditEvents, eventType)
	return nil
}

func (f *fakeLeadsRepo) GetAutomationJob(ctx context.Context, jobID uuid.UUID) (repository.AutomationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.jobs {
		if job.ID == jobID {
			return job, nil
		}
	}
	return repository.AutomationJob{}, repository.ErrNotFound
}

func (f *fakeLeadsRepo) MarkJobProcessing(ctx context.Context, jobID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, job := range f.jobs {
		if job.ID == jobID && job.Status == repository.JobStatusPending {
			job.Status = repository.JobStatusProcessing
			f.jobs[key] = job
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLeadsRepo) MarkJobDone(ctx context.Context, jobID uuid.UUID, result any) error {
	return f.setStatus(jobID, repository.JobStatusDone)
}

func (f *fakeLeadsRepo) MarkJobFailed(ctx context.Context, jobID uuid.UUID, cause string) error {
	return f.setStatus(jobID, repository.JobStatusFailed)
}

func (f *fakeLeadsRepo) setStatus(jobID uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, job := range f.jobs {
		if job.ID == jobID {
			job.Status = status
			f.jobs[key] = job
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeLeadsRepo) ListStalePendingJobs(ctx context.Context, olderThan time.Time, limit int) ([]repository.AutomationJob, error) {
	return nil, nil
}

var _ repository.LeadsRepository = (*fakeLeadsRepo)(nil)

type noopBus struct{}

func (noopBus) Publish(ctx context.Context, event events.Event)           {}
func (noopBus) PublishSync(ctx context.Context, event events.Event) error { return nil }
func (noopBus) Subscribe(eventName string, handler events.Handler)        {}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (d *fakeDispatcher) DispatchLeadQualified(ctx context.Context, jobID, leadID uuid.UUID, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.err
}

func newQualifyService(repo *fakeLeadsRepo, dispatcher *fakeDispatcher) *Service {
	return New(repo, noopBus{}, dispatcher, logger.New("development"))
}

func TestQualifyLeadQueuesExactlyOneJob(t *testing.T) {
	repo := newFakeLeadsRepo()
	dispatcher := &fakeDispatcher{}
	svc := newQualifyService(repo, dispatcher)
	ownerID := uuid.New()
	lead := repo.addLead(ownerID)

	result, err := svc.QualifyLead(context.Background(), ownerID, lead.ID, "evt-1")
	if err != nil {
		t.Fatalf("qualify: %v", err)
	}
	if result.Status != QualifyStatusQueued {
		t.Fatalf("expected %q, got %q", QualifyStatusQueued, result.Status)
	}
	if result.EventID != "evt-1" || result.JobID == uuid.Nil {
		t.Fatalf("unexpected result %+v", result)
	}
	if repo.jobCount() != 1 {
		t.Fatalf("expected exactly one job, got %d", repo.jobCount())
	}
	if dispatcher.calls != 1 {
		t.Fatalf("expected one dispatch, got %d", dispatcher.calls)
	}

	updated, _ := repo.GetLeadByID(context.Background(), lead.ID)
	if updated.Stage != domain.StageQualified || updated.QualifiedEventID == nil || *updated.QualifiedEventID != "evt-1" {
		t.Fatalf("lead not claimed as expected: %+v", updated)
	}
}

func TestQualifyLeadDuplicateEventIsAlreadyHandled(t *testing.T) {
	repo := newFakeLeadsRepo()
	svc := newQualifyService(repo, &fakeDispatcher{})
	ownerID := uuid.New()
	lead := repo.addLead(ownerID)
	ctx := context.Background()

	if _, err := svc.QualifyLead(ctx, ownerID, lead.ID, "evt-1"); err != nil {
		t.Fatalf("first qualify: %v", err)
	}

	result, err := svc.QualifyLead(ctx, ownerID, lead.ID, "evt-1")
	if err != nil {
		t.Fatalf("duplicate qualify: %v", err)
	}
	if result.Status != QualifyStatusAlreadyHandled {
		t.Fatalf("expected already_handled, got %q", result.Status)
	}
	if result.EventID != "evt-1" {
		t.Fatalf("expected original event id, got %q", result.EventID)
	}
	if repo.jobCount() != 1 {
		t.Fatalf("duplicate submission must not add a job, got %d", repo.jobCount())
	}
}

func TestQualifyLeadNewEventAfterQualificationReportsOriginal(t *testing.T) {
	repo := newFakeLeadsRepo()
	svc := newQualifyService(repo, &fakeDispatcher{})
	ownerID := uuid.New()
	lead := repo.addLead(ownerID)
	ctx := context.Background()

	if _, err := svc.QualifyLead(ctx, ownerID, lead.ID, "evt-1"); err != nil {
		t.Fatalf("first qualify: %v", err)
	}

	result, err := svc.QualifyLead(ctx, ownerID, lead.ID, "evt-2")
	if err != nil {
		t.Fatalf("second qualify: %v", err)
	}
	if result.Status != QualifyStatusAlreadyHandled {
		t.Fatalf("expected already_handled, got %q", result.Status)
	}
	if result.EventID != "evt-1" {
		t.Fatalf("expected the stored event id evt-1, got %q", result.EventID)
	}
	if repo.jobCount() != 1 {
		t.Fatalf("a later event id must not add a job, got %d", repo.jobCount())
	}
}

func TestQualifyLeadOwnerMismatchIsForbidden(t *testing.T) {
	repo := newFakeLeadsRepo()
	svc := newQualifyService(repo, &fakeDispatcher{})
	lead := repo.addLead(uuid.New())

	_, err := svc.QualifyLead(context.Background(), uuid.New(), lead.ID, "evt-1")
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if repo.jobCount() != 0 {
		t.Fatal("forbidden request must not enqueue a job")
	}

	untouched, _ := repo.GetLeadByID(context.Background(), lead.ID)
	if untouched.QualifiedEventID != nil || untouched.Stage == domain.StageQualified {
		t.Fatalf("forbidden request must not mutate the lead: %+v", untouched)
	}
}

func TestQualifyLeadMissingLeadIsNotFound(t *testing.T) {
	repo := newFakeLeadsRepo()
	svc := newQualifyService(repo, &fakeDispatcher{})

	_, err := svc.QualifyLead(context.Background(), uuid.New(), uuid.New(), "evt-1")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if repo.jobCount() != 0 {
		t.Fatal("missing lead must not enqueue a job")
	}
}

func TestQualifyLeadJobInsertFailureIsInternal(t *testing.T) {
	repo := newFakeLeadsRepo()
	repo.jobErr = errors.New("connection reset")
	svc := newQualifyService(repo, &fakeDispatcher{})
	ownerID := uuid.New()
	lead := repo.addLead(ownerID)

	_, err := svc.QualifyLead(context.Background(), ownerID, lead.ID, "evt-1")
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestQualifyLeadAuditFailureStillQueues(t *testing.T) {
	repo := newFakeLeadsRepo()
	repo.auditErr = errors.New("audit table unavailable")
	svc := newQualifyService(repo, &fakeDispatcher{})
	ownerID := uuid.New()
	lead := repo.addLead(ownerID)

	result, err := svc.QualifyLead(context.Background(), ownerID, lead.ID, "evt-1")
	if err != nil {
		t.Fatalf("qualify: %v", err)
	}
	if result.Status != QualifyStatusQueued {
		t.Fatalf("audit failure must not fail the request, got %q", result.Status)
	}
	if repo.jobCount() != 1 {
		t.Fatalf("expected the job despite audit failure, got %d", repo.jobCount())
	}
}

func TestQualifyLeadDispatchFailureStillQueues(t *testing.T) {
	repo := newFakeLeadsRepo()
	dispatcher := &fakeDispatcher{err: errors.New("redis down")}
	svc := newQualifyService(repo, dispatcher)
	ownerID := uuid.New()
	lead := repo.addLead(ownerID)

	result, err := svc.QualifyLead(context.Background(), ownerID, lead.ID, "evt-1")
	if err != nil {
		t.Fatalf("qualify: %v", err)
	}
	if result.Status != QualifyStatusQueued {
		t.Fatalf("dispatch failure must not fail the request, got %q", result.Status)
	}

	// The row stays pending for the sweep.
	job, err := repo.GetAutomationJob(context.Background(), result.JobID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job.Status != repository.JobStatusPending {
		t.Fatalf("expected pending job, got %q", job.Status)
	}
}
