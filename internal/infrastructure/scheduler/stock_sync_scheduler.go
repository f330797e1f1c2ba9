package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	syncdomain "github.com/shopopti/backend/internal/domain/sync"
)

var (
	ErrInvalidConfig       = errors.New("invalid scheduler configuration")
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
)

// BatchSyncer runs one reconciliation pass over the stale product backlog.
type BatchSyncer interface {
	SyncBatch(ctx context.Context) (*syncdomain.Summary, error)
}

// StockSyncSchedulerConfig configures the periodic reconciliation trigger.
type StockSyncSchedulerConfig struct {
	// Interval between automatic batch runs
	Interval time.Duration
	// RunTimeout bounds a single batch run
	RunTimeout time.Duration
}

// DefaultStockSyncSchedulerConfig returns the default scheduler configuration
func DefaultStockSyncSchedulerConfig() StockSyncSchedulerConfig {
	return StockSyncSchedulerConfig{
		Interval:   1 * time.Hour,
		RunTimeout: 30 * time.Minute,
	}
}

// Validate validates the scheduler configuration
func (c *StockSyncSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	if c.RunTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// StockSyncScheduler drives the reconciliation service on a fixed interval.
// Runs never overlap: a tick that fires while a run is still in flight is
// skipped, and TriggerNow reports busy instead of queueing.
type StockSyncScheduler struct {
	config StockSyncSchedulerConfig
	syncer BatchSyncer
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inFlight  bool

	// Last run outcome for monitoring (in-memory)
	lastMu      sync.RWMutex
	lastRunAt   time.Time
	lastSummary *syncdomain.Summary
}

// NewStockSyncScheduler creates a new stock sync scheduler
func NewStockSyncScheduler(config StockSyncSchedulerConfig, syncer BatchSyncer, logger *zap.Logger) (*StockSyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &StockSyncScheduler{
		config: config,
		syncer: syncer,
		logger: logger,
	}, nil
}

// Start starts the scheduler
func (s *StockSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Stock sync scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("run_timeout", s.config.RunTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *StockSyncScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("Stock sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Stock sync scheduler stop timed out")
		return ctx.Err()
	}
}

// TriggerNow runs one batch immediately, outside the ticker cadence.
func (s *StockSyncScheduler) TriggerNow(ctx context.Context) (*syncdomain.Summary, error) {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil, ErrSchedulerNotRunning
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil, errors.New("a reconciliation run is already in flight")
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	return s.runOnce(ctx)
}

// LastRun returns the time and summary of the most recent completed run.
func (s *StockSyncScheduler) LastRun() (time.Time, *syncdomain.Summary) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.lastRunAt, s.lastSummary
}

func (s *StockSyncScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.inFlight {
				s.mu.Unlock()
				s.logger.Warn("Skipping scheduled run, previous run still in flight")
				continue
			}
			s.inFlight = true
			s.mu.Unlock()

			if _, err := s.runOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Scheduled stock sync run failed", zap.Error(err))
			}

			s.mu.Lock()
			s.inFlight = false
			s.mu.Unlock()
		}
	}
}

func (s *StockSyncScheduler) runOnce(ctx context.Context) (*syncdomain.Summary, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	started := time.Now()
	summary, err := s.syncer.SyncBatch(runCtx)
	if err != nil {
		return nil, err
	}

	s.lastMu.Lock()
	s.lastRunAt = started
	s.lastSummary = summary
	s.lastMu.Unlock()

	s.logger.Info("Stock sync run completed",
		zap.Int("synced", summary.Synced),
		zap.Int("failed", summary.Failed),
		zap.Int("out_of_stock", summary.OutOfStock),
		zap.Int("price_changed", summary.PriceChanged),
		zap.Duration("duration", time.Since(started)),
	)
	return summary, nil
}
