package application

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is the cadence of the background expiry sweep.
const DefaultSweepInterval = 30 * time.Second

// ExpirySweeper runs the admission service's expiry sweep on a fixed
// interval. Reads already sweep lazily; the periodic pass bounds how long an
// expired entry can linger when nobody is reading.
type ExpirySweeper struct {
	admission *AdmissionService
	interval  time.Duration
	logger    *slog.Logger
}

// NewExpirySweeper constructs a sweeper for the admission service.
func NewExpirySweeper(admission *AdmissionService, interval time.Duration, logger *slog.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &ExpirySweeper{
		admission: admission,
		interval:  interval,
		logger:    defaultLogger(logger),
	}
}

// Run sweeps on the configured cadence until the context is cancelled.
// Failures are logged and the loop continues.
func (s *ExpirySweeper) Run(ctx context.Context) {
	if s == nil || s.admission == nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.admission.SweepExpired(ctx); err != nil {
				s.logger.ErrorContext(ctx, "expiry sweep failed", "error", err, "error_kind", ErrorKind(err))
			}
		}
	}
}
