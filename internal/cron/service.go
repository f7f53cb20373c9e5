// Package cron runs the worker's periodic jobs. Each Service owns a set of
// jobs and a distributed lock so only one worker instance runs a cycle.
package cron

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wallcraft/storefront-backend/pkg/logger"
	"github.com/wallcraft/storefront-backend/pkg/metrics"
)

const defaultInterval = time.Minute

// Job is a unit of work the scheduler runs every cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	// Name labels the scheduler in logs, metrics and its lock key.
	Name     string
	Logger   *logger.Logger
	Jobs     []Job
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
	// JobTimeout bounds a single job run; zero means the cycle interval.
	JobTimeout time.Duration
}

// Service runs its jobs in order once per interval while holding Lock. A
// failing job does not stop the ones after it.
type Service struct {
	name       string
	logg       *logger.Logger
	jobs       []Job
	lock       Lock
	metrics    *metrics.JobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}

	s := &Service{
		name:       params.Name,
		logg:       params.Logger,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	for _, job := range params.Jobs {
		if job != nil {
			s.jobs = append(s.jobs, job)
		}
	}
	if s.name == "" {
		s.name = "scheduler"
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = s.interval
	}
	return s, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "scheduler", s.name)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if ran, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logg.Error(ctx, "scheduled run failed", err)
		} else if !ran && err == nil {
			s.metrics.LockSkipped(s.name)
			s.logg.Debug(ctx, "scheduler lock held elsewhere, skipping cycle")
		}

		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single locked cycle and reports whether the lock was held.
func (s *Service) RunOnce(ctx context.Context) (bool, error) {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return false, err
	}
	if !acquired {
		return false, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "failed to release scheduler lock", err)
		}
	}()

	for _, job := range s.jobs {
		if err := ctx.Err(); err != nil {
			return true, err
		}
		s.runJob(ctx, job)
	}
	return true, nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Run(jobCtx)
	took := time.Since(start)
	s.metrics.JobFinished(job.Name(), took, err)

	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "job failed", err)
		return
	}
	s.logg.Debug(ctx, "job finished")
}
