package main

import (
	"context"
	"io"
	"log"
	"path/filepath"

	"olistdw/internal/analytics"
	"olistdw/internal/config"
	"olistdw/internal/storage"
)

var newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	return storage.New(ctx, cfg)
}

// run returns the process exit code.
func run(ctx context.Context, cfg *config.Config, out io.Writer) int {
	issues := config.Validate(*cfg)
	for _, iss := range issues {
		log.Printf("config: %s: %s: %s", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return 1
	}

	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:   cfg.DB.Driver,
		DSN:    cfg.DB.ConnString(),
		Schema: cfg.DB.Schema,
	})
	if err != nil {
		log.Printf("warehouse: connect: %v", err)
		return 1
	}
	defer repo.Close()

	rows, err := analytics.ReadDeliveryRows(ctx, repo)
	if err != nil {
		log.Printf("analytics: %v", err)
		return 1
	}
	if err := analytics.Summarize(rows).Print(out); err != nil {
		log.Printf("analytics: print summary: %v", err)
		return 1
	}

	path := filepath.Join(cfg.Analytics.OutputDir, analytics.ExportFile)
	if err := analytics.WriteParquet(path, rows); err != nil {
		log.Printf("analytics: %v", err)
		return 1
	}
	if cfg.Analytics.ExportURL != "" {
		if err := analytics.Publish(ctx, cfg.Analytics.ExportURL, path); err != nil {
			log.Printf("analytics: %v", err)
			return 1
		}
	}
	return 0
}
