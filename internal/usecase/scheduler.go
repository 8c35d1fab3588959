package usecase

import (
	"context"
	"log/slog"
	"time"

	"MutationScanner/internal/ports"
)

// ScheduledBatchName keys the lock shared by every scheduled run.
const ScheduledBatchName = "scheduled"

// Scheduler wires the ticker driver with the batch use case.
type Scheduler struct {
	driver    ports.Scheduler
	processor *BatchProcessor
	work      ports.WorkList
	limit     int
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring batches over pending articles.
func NewScheduler(driver ports.Scheduler, processor *BatchProcessor, work ports.WorkList, limit int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		driver:    driver,
		processor: processor,
		work:      work,
		limit:     limit,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start registers the pending-articles job with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.processor == nil || s.work == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.RunOnce(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// RunOnce processes one page of pending articles.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) {
	ids, err := PendingIDs(ctx, s.work, s.limit)
	if err != nil {
		s.logger.Error("load pending articles", "error", err)
		return
	}
	if len(ids) == 0 {
		s.logger.Debug("no pending articles", "trigger", trigger)
		return
	}

	if _, err := s.processor.RunNamedBatch(ctx, ScheduledBatchName, ids); err != nil {
		s.logger.Warn("scheduled batch not run", "trigger", trigger, "error", err)
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
