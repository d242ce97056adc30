package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper removes stored files that no media row references;
// *journal.Service implements it
type Sweeper interface {
	SweepOrphans(ctx context.Context, grace time.Duration) (int, error)
}

type OrphanSweeper struct {
	sweeper Sweeper
	logger  *zap.SugaredLogger
	config  OrphanSweeperConfig

	mu        sync.Mutex
	cancelCtx context.CancelFunc
	lastRun   time.Time
	removed   int
}

type OrphanSweeperConfig struct {
	Interval time.Duration // Time between sweeps
	Grace    time.Duration // Files younger than this are kept
	Timeout  time.Duration // Upper bound for one sweep
}

// MinGrace keeps files whose media row may still be on its way
const MinGrace = time.Minute

func DefaultOrphanSweeperConfig() OrphanSweeperConfig {
	return OrphanSweeperConfig{
		Interval: time.Hour,
		Grace:    time.Hour,
		Timeout:  5 * time.Minute,
	}
}

func NewOrphanSweeper(sweeper Sweeper, logger *zap.SugaredLogger, config OrphanSweeperConfig) *OrphanSweeper {
	defaults := DefaultOrphanSweeperConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Grace < MinGrace {
		config.Grace = MinGrace
	}

	return &OrphanSweeper{
		sweeper: sweeper,
		logger:  logger,
		config:  config,
	}
}

// Start sweeps once, then on every interval until ctx is done or Stop is
// called. It blocks.
func (s *OrphanSweeper) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelCtx = cancel
	s.mu.Unlock()

	s.logger.Infow("Starting orphan sweeper",
		"interval", s.config.Interval,
		"grace", s.config.Grace,
	)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("Orphan sweeper stopping due to context cancellation")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *OrphanSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelCtx != nil {
		s.cancelCtx()
	}
}

// RunOnce performs a single sweep. Failures are logged and retried on the
// next tick.
func (s *OrphanSweeper) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	removed, err := s.sweeper.SweepOrphans(ctx, s.config.Grace)
	if err != nil {
		s.logger.Warnw("Orphan sweep failed", "error", err)
		return
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.removed += removed
	s.mu.Unlock()

	s.logger.Debugw("Orphan sweep finished", "removed", removed)
}

// Stats returns the time of the last successful sweep and the total number
// of files removed
func (s *OrphanSweeper) Stats() (time.Time, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.removed
}
