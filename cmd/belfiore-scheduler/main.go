package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"belfiore/internal/config"
	"belfiore/internal/logging"
	"belfiore/internal/pipeline"
	"belfiore/internal/scheduler"
	"belfiore/internal/source"
	"belfiore/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()
	if cfg.UpsertBatchSize > 0 {
		db.BatchSize = cfg.UpsertBatchSize
	}

	registry := pipeline.BuiltinRegistry()
	if cfg.ProfilesFile != "" {
		must(registry.LoadFile(cfg.ProfilesFile))
	}

	sync := pipeline.NewSyncService(db, source.NewFetcher(cfg), registry, cfg)
	svc := scheduler.NewService(sync, cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
