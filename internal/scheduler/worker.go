package scheduler

import (
	"context"
	"fmt"

	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/outreach/agent"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InsightsGenerator produces the briefing stored on a finished job.
type InsightsGenerator interface {
	GenerateLeadInsights(ctx context.Context, lead agent.LeadContext) (string, error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	repo      repository.LeadsRepository
	generator InsightsGenerator
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, generator InsightsGenerator, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		repo:      repository.New(pool),
		generator: generator,
		log:       log,
	}

	mux.HandleFunc(TaskLeadQualifiedInsights, w.handleLeadQualifiedInsights)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleLeadQualifiedInsights processes one queued automation job. Only a
// pending row is claimed; redeliveries of a job already processing, done, or
// failed are dropped without side effects.
func (w *Worker) handleLeadQualifiedInsights(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadQualifiedInsightsPayload(task)
	if err != nil {
		return err
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return err
	}

	claimed, err := w.repo.MarkJobProcessing(ctx, jobID)
	if err != nil {
		return err
	}
	if !claimed {
		w.log.Info("skipping automation job not in pending state", "job_id", payload.JobID)
		return nil
	}

	job, err := w.repo.GetAutomationJob(ctx, jobID)
	if err != nil {
		return err
	}

	lead, err := w.repo.GetLeadByID(ctx, job.LeadID)
	if err != nil {
		if markErr := w.repo.MarkJobFailed(ctx, jobID, err.Error()); markErr != nil {
			w.log.DatabaseError("mark_job_failed", markErr)
		}
		return err
	}

	insights, err := w.generator.GenerateLeadInsights(ctx, leadContext(lead))
	if err != nil {
		if markErr := w.repo.MarkJobFailed(ctx, jobID, err.Error()); markErr != nil {
			w.log.DatabaseError("mark_job_failed", markErr)
		}
		return err
	}

	if err := w.repo.MarkJobDone(ctx, jobID, map[string]string{"insights": insights}); err != nil {
		w.log.DatabaseError("mark_job_done", err)
		return err
	}

	w.log.Info("automation job completed",
		"job_id", payload.JobID,
		"lead_id", payload.LeadID,
		"event_id", payload.EventID,
	)
	return nil
}

func leadContext(lead repository.Lead) agent.LeadContext {
	return agent.LeadContext{
		Name:    derefString(lead.ContactName),
		Email:   derefString(lead.Email),
		Company: lead.Company,
		Source:  derefString(lead.Source),
		Stage:   lead.Stage.String(),
		Notes:   derefString(lead.Notes),
	}
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
