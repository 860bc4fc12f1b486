package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/monitor"
)

// Scheduler runs the periodic selection loop and owns job submission. Both
// the timer and the on-demand trigger funnel through Submit, so per-target
// locking applies uniformly.
type Scheduler struct {
	targets monitor.TargetStore
	queue   monitor.Queue
	locks   monitor.TargetLocker
	clock   monitor.Clock
	logger  *zap.Logger
	period  time.Duration
}

// New builds a Scheduler.
func New(targets monitor.TargetStore, queue monitor.Queue, locks monitor.TargetLocker, clock monitor.Clock, logger *zap.Logger, period time.Duration) *Scheduler {
	if period <= 0 {
		period = time.Minute
	}
	return &Scheduler{
		targets: targets,
		queue:   queue,
		locks:   locks,
		clock:   clock,
		logger:  logger,
		period:  period,
	}
}

// Run executes cycles on a fixed period until the context ends. The first
// cycle runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle lists active targets and submits the due ones. Submission
// failures leave last_checked untouched, so a skipped target stays eligible
// next cycle.
func (s *Scheduler) runCycle(ctx context.Context) {
	targets, err := s.targets.ListActive(ctx)
	if err != nil {
		s.logger.Error("list active targets failed", zap.Error(err))
		return
	}

	now := s.clock.Now()
	submitted := 0
	for _, target := range targets {
		if !target.Due(now) {
			continue
		}
		if _, err := s.Submit(ctx, target, false); err != nil {
			if errors.Is(err, monitor.ErrTargetBusy) {
				continue
			}
			s.logger.Warn("check submission failed",
				zap.String("target_id", target.ID),
				zap.Error(err),
			)
			continue
		}
		submitted++
	}

	s.logger.Debug("scheduler cycle complete",
		zap.Int("active", len(targets)),
		zap.Int("submitted", submitted),
	)
}

// Submit enqueues a check for the target after taking its lock. The returned
// CheckItem is the job handle. The lock is released by the worker at cycle
// completion, or here when enqueueing fails.
func (s *Scheduler) Submit(ctx context.Context, target monitor.Target, forced bool) (monitor.CheckItem, error) {
	if !s.locks.TryAcquire(target.ID) {
		return monitor.CheckItem{}, fmt.Errorf("target %s: %w", target.ID, monitor.ErrTargetBusy)
	}

	item := monitor.CheckItem{
		TargetID:  target.ID,
		Forced:    forced,
		Submitted: s.clock.Now(),
	}
	if err := s.queue.Enqueue(ctx, item); err != nil {
		s.locks.Release(target.ID)
		return monitor.CheckItem{}, &monitor.SubmissionError{TargetID: target.ID, Err: err}
	}
	return item, nil
}

// TriggerNow submits an on-demand check, bypassing the interval but not the
// per-target lock or the active flag.
func (s *Scheduler) TriggerNow(ctx context.Context, targetID string) (monitor.CheckItem, error) {
	target, err := s.targets.Get(ctx, targetID)
	if err != nil {
		return monitor.CheckItem{}, fmt.Errorf("load target: %w", err)
	}
	if !target.Active {
		return monitor.CheckItem{}, fmt.Errorf("target %s: %w", targetID, monitor.ErrTargetInactive)
	}
	return s.Submit(ctx, target, true)
}
