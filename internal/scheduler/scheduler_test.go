package scheduler

import (
	"context"
	"errors"
	"testing"

	"belfiore/internal"
	"belfiore/internal/config"
	"belfiore/internal/pipeline"
)

type fakeSyncer struct {
	calls []pipeline.Options
	err   error
}

func (f *fakeSyncer) Run(_ context.Context, opts pipeline.Options) (*internal.SyncReport, error) {
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return nil, f.err
	}
	return &internal.SyncReport{RunID: "run-1"}, nil
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	syncer := &fakeSyncer{}
	svc := NewService(syncer, config.Config{RefreshTypes: "both", RefreshIntervalHours: 24, RefreshOnStart: true})

	if err := svc.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(syncer.calls) != 1 {
		t.Fatalf("expected one cycle before stopping, got %d", len(syncer.calls))
	}
	got := syncer.calls[0].Types
	if len(got) != 2 || got[0] != internal.TypeComune || got[1] != internal.TypeStato {
		t.Fatalf("types: %v", got)
	}
}

func TestRunWaitsWhenStartRefreshDisabled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	syncer := &fakeSyncer{}
	svc := NewService(syncer, config.Config{RefreshIntervalHours: 24})

	if err := svc.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(syncer.calls) != 0 {
		t.Fatalf("expected no cycle before the first tick, got %d", len(syncer.calls))
	}
}

func TestRunRejectsUnknownType(t *testing.T) {
	svc := NewService(&fakeSyncer{}, config.Config{RefreshTypes: "comnue"})

	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected an error for a misspelled type")
	}
}

func TestRunCycleFailureIsNotFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	syncer := &fakeSyncer{err: errors.New("fetch failed")}
	svc := NewService(syncer, config.Config{RefreshIntervalHours: 24, RefreshOnStart: true})

	if err := svc.Run(ctx); err != nil {
		t.Fatalf("cycle errors must not stop the daemon: %v", err)
	}
	if len(syncer.calls) != 1 {
		t.Fatalf("calls: %d", len(syncer.calls))
	}
}
