package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cloudbill/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// BillingTaskRunner is the slice of the billing application the scheduler
// drives. Each entrypoint is idempotent, so overlapping runs are harmless.
type BillingTaskRunner interface {
	CreateMonthlyInvoices(ctx context.Context, now time.Time) error
	SweepOverdueCredits(ctx context.Context, now time.Time) error
	NotifyNewInvoices(ctx context.Context, now time.Time) error
}

// BillingScheduler drives the periodic billing entrypoints: the monthly
// invoice rollover, the overdue credit sweep and invoice notifications.
type BillingScheduler struct {
	tasks     BillingTaskRunner
	logger    *zap.Logger
	config    config.SchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewBillingScheduler creates a new billing scheduler
func NewBillingScheduler(tasks BillingTaskRunner, cfg config.SchedulerConfig, logger *zap.Logger) *BillingScheduler {
	return &BillingScheduler{
		tasks:  tasks,
		logger: logger.Named("scheduler"),
		config: cfg,
	}
}

// Start starts the scheduler loops
func (s *BillingScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("billing scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(3)
	go s.runLoop(ctx, "invoice_run", s.config.InvoiceRunInterval, s.tasks.CreateMonthlyInvoices)
	go s.runLoop(ctx, "credit_sweep", s.config.CreditSweep, s.tasks.SweepOverdueCredits)
	go s.runLoop(ctx, "invoice_notify", s.config.NotifyInterval, s.tasks.NotifyNewInvoices)

	s.logger.Info("billing scheduler started",
		zap.Duration("invoice_run_interval", s.config.InvoiceRunInterval),
		zap.Duration("credit_sweep_interval", s.config.CreditSweep),
		zap.Duration("notify_interval", s.config.NotifyInterval),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *BillingScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("billing scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("billing scheduler stop timed out")
		return ctx.Err()
	}
}

// runLoop executes one task immediately and then on every tick
func (s *BillingScheduler) runLoop(ctx context.Context, name string, interval time.Duration, task func(context.Context, time.Time) error) {
	defer s.wg.Done()

	s.execute(ctx, name, task)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("scheduler loop stopping", zap.String("task", name))
			return
		case <-ticker.C:
			s.execute(ctx, name, task)
		}
	}
}

func (s *BillingScheduler) execute(ctx context.Context, name string, task func(context.Context, time.Time) error) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	started := time.Now()
	if err := task(runCtx, started); err != nil {
		s.logger.Error("scheduled task failed",
			zap.String("task", name),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("scheduled task completed",
		zap.String("task", name),
		zap.Duration("elapsed", time.Since(started)),
	)
}
