package scheduler

import (
	"context"
	"time"

	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultSweepInterval = 5 * time.Minute
	defaultStaleAfter    = 10 * time.Minute
	sweepBatchSize       = 100
)

// JobSweep periodically re-dispatches automation jobs stuck in pending.
// A job lands there when the enqueue after the qualification commit was lost,
// for example during a Redis outage.
type JobSweep struct {
	repo       repository.LeadsRepository
	client     *Client
	log        *logger.Logger
	interval   time.Duration
	staleAfter time.Duration
}

func NewJobSweep(pool *pgxpool.Pool, client *Client, log *logger.Logger, interval, staleAfter time.Duration) *JobSweep {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &JobSweep{
		repo:       repository.New(pool),
		client:     client,
		log:        log,
		interval:   interval,
		staleAfter: staleAfter,
	}
}

func (s *JobSweep) Run(ctx context.Context) {
	if s == nil || s.repo == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *JobSweep) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.staleAfter)

	jobs, err := s.repo.ListStalePendingJobs(ctx, cutoff, sweepBatchSize)
	if err != nil {
		s.log.Warn("automation job sweep failed", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	redispatched := 0
	for _, job := range jobs {
		if err := s.dispatch(ctx, job); err != nil {
			s.log.Warn("automation job re-dispatch failed", "job_id", job.ID.String(), "error", err)
			continue
		}
		redispatched++
	}

	s.log.Info("automation job sweep re-dispatched pending jobs",
		"found", len(jobs),
		"redispatched", redispatched,
	)
}

func (s *JobSweep) dispatch(ctx context.Context, job repository.AutomationJob) error {
	return s.client.DispatchLeadQualified(ctx, job.ID, job.LeadID, job.EventID)
}
