package session

import (
	"context"
	"errors"
	"time"

	"github.com/KirkDiggler/tabletop/internal/common/clock"
	"github.com/KirkDiggler/tabletop/internal/common/logging"
	"go.uber.org/zap"
)

// SweeperConfig holds configuration for the cleanup sweeper
type SweeperConfig struct {
	Service Service
	Clock   clock.Clock

	// Interval between sweeps
	Interval time.Duration

	// MaxAge is how long an empty waiting session may live
	MaxAge time.Duration

	Logger *zap.Logger
}

// Sweeper periodically removes abandoned sessions
type Sweeper struct {
	service  Service
	clock    clock.Clock
	interval time.Duration
	maxAge   time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a cleanup sweeper
func NewSweeper(cfg *SweeperConfig) (*Sweeper, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.Service == nil {
		return nil, ErrNilService
	}

	if cfg.Clock == nil {
		return nil, ErrNilClock
	}

	if cfg.Interval <= 0 || cfg.MaxAge <= 0 {
		return nil, errors.New("sweep interval and max age must be positive")
	}

	return &Sweeper{
		service:  cfg.Service,
		clock:    cfg.Clock,
		interval: cfg.Interval,
		maxAge:   cfg.MaxAge,
		logger:   logging.OrNop(cfg.Logger),
	}, nil
}

// Run sweeps every interval until ctx is cancelled
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("session sweeper started",
		zap.Duration("interval", w.interval),
		zap.Duration("max_age", w.maxAge),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass and returns how many sessions were removed
func (w *Sweeper) Sweep(ctx context.Context) int {
	cutoff := w.clock.Now().Add(-w.maxAge)

	output, err := w.service.CleanupSessions(ctx, &CleanupSessionsInput{
		Cutoff: cutoff,
	})
	if err != nil {
		w.logger.Error("session cleanup failed", zap.Error(err))
	}
	if output == nil {
		return 0
	}

	if output.Deleted > 0 {
		w.logger.Info("cleaned up stale sessions",
			zap.Int("deleted", output.Deleted),
			zap.Time("cutoff", cutoff),
		)
	}

	return output.Deleted
}
