// Package scheduler runs the periodic background jobs: market sync, draft
// backfill, and bounty expiration.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/predictedpress/backend/internal/content"
	"github.com/predictedpress/backend/internal/storage"
	syncer "github.com/predictedpress/backend/internal/sync"
	"github.com/rs/zerolog/log"
)

// jobTimeout bounds one execution of any job.
const jobTimeout = 5 * time.Minute

// Job is a periodically executed task.
type Job struct {
	Name     string
	Interval time.Duration
	Handler  func(ctx context.Context) error
	LastRun  time.Time
	NextRun  time.Time
}

// Scheduler manages the background jobs.
type Scheduler struct {
	jobs    []*Job
	jobsMux sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options wires the collaborators the default jobs need.
type Options struct {
	Reconciler     *syncer.Reconciler
	Generator      *content.Generator
	Store          *storage.Store
	SyncInterval   time.Duration
	DraftInterval  time.Duration
	DraftBatchSize int
}

// NewScheduler creates a scheduler with the default job set.
func NewScheduler(opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		jobs:   make([]*Job, 0),
		ctx:    ctx,
		cancel: cancel,
	}

	s.AddJob(&Job{
		Name:     "market-sync",
		Interval: opts.SyncInterval,
		Handler: func(ctx context.Context) error {
			_, err := opts.Reconciler.Run(ctx)
			if errors.Is(err, syncer.ErrRunInProgress) {
				return nil
			}
			return err
		},
	})

	s.AddJob(&Job{
		Name:     "draft-backfill",
		Interval: opts.DraftInterval,
		Handler: func(ctx context.Context) error {
			_, err := opts.Generator.BackfillDrafts(ctx, opts.DraftBatchSize)
			return err
		},
	})

	s.AddJob(&Job{
		Name:     "bounty-expiry",
		Interval: time.Hour,
		Handler: func(ctx context.Context) error {
			expired, err := opts.Store.ExpireOverdueBounties(ctx, time.Now())
			if err != nil {
				return err
			}
			if expired > 0 {
				log.Info().Int64("expired", expired).Msg("Overdue bounties expired")
			}
			return nil
		},
	})

	return s
}

// AddJob registers a job.
func (s *Scheduler) AddJob(job *Job) {
	s.jobsMux.Lock()
	defer s.jobsMux.Unlock()

	job.NextRun = time.Now().Add(job.Interval)
	s.jobs = append(s.jobs, job)

	log.Info().
		Str("job", job.Name).
		Dur("interval", job.Interval).
		Msg("Job registered")
}

// Start begins the scheduler loop.
func (s *Scheduler) Start() {
	log.Info().Int("jobs", len(s.jobs)).Msg("Starting scheduler")

	s.wg.Add(1)
	go s.jobLoop()
}

// Stop stops the scheduler and waits for the loop to exit.
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler")
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) jobLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.checkAndRunJobs()
		}
	}
}

func (s *Scheduler) checkAndRunJobs() {
	now := time.Now()

	s.jobsMux.Lock()
	defer s.jobsMux.Unlock()

	for _, job := range s.jobs {
		if !now.Before(job.NextRun) {
			go s.runJob(job)
			job.LastRun = now
			job.NextRun = now.Add(job.Interval)
		}
	}
}

func (s *Scheduler) runJob(job *Job) {
	log.Info().Str("job", job.Name).Msg("Running job")

	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	if err := job.Handler(ctx); err != nil {
		log.Error().Err(err).Str("job", job.Name).Msg("Job failed")
		return
	}
	log.Info().Str("job", job.Name).Msg("Job completed")
}

// RunJobNow triggers a job by name.
func (s *Scheduler) RunJobNow(name string) error {
	s.jobsMux.RLock()
	defer s.jobsMux.RUnlock()

	for _, job := range s.jobs {
		if job.Name == name {
			go s.runJob(job)
			return nil
		}
	}
	return fmt.Errorf("unknown job: %s", name)
}

// GetJobStatus returns the status of all jobs.
func (s *Scheduler) GetJobStatus() []map[string]interface{} {
	s.jobsMux.RLock()
	defer s.jobsMux.RUnlock()

	status := make([]map[string]interface{}, len(s.jobs))
	for i, job := range s.jobs {
		status[i] = map[string]interface{}{
			"name":     job.Name,
			"interval": job.Interval.String(),
			"last_run": job.LastRun,
			"next_run": job.NextRun,
		}
	}
	return status
}
