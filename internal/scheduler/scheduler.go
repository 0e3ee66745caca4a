// Package scheduler re-runs the feed sync on a fixed interval so the
// reference data tracks the published archives without operator action.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"belfiore/internal"
	"belfiore/internal/config"
	"belfiore/internal/pipeline"
)

type Syncer interface {
	Run(ctx context.Context, opts pipeline.Options) (*internal.SyncReport, error)
}

type Service struct {
	sync Syncer
	cfg  config.Config
}

func NewService(sync Syncer, cfg config.Config) *Service {
	return &Service{sync: sync, cfg: cfg}
}

// Run refreshes once immediately, then once per interval until the context
// is cancelled. A failed cycle is logged and retried at the next tick.
func (s *Service) Run(ctx context.Context) error {
	types, err := internal.ParseItemTypes(s.cfg.RefreshTypes)
	if err != nil {
		return err
	}

	interval := time.Duration(s.cfg.RefreshIntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	if !s.cfg.RefreshOnStart {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}

	for {
		s.runCycle(ctx, types)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) runCycle(ctx context.Context, types []internal.ItemType) {
	report, err := s.sync.Run(ctx, pipeline.Options{Types: types})
	if err != nil {
		slog.Error("refresh cycle failed", "error", err)
		return
	}
	slog.Info("refresh cycle done", "run", report.RunID, "upserted", report.TotalUpserted(), "duration_ms", report.DurationMS)
}
