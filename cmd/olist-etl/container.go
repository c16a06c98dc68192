// Package main wires the olist-etl binary: configuration, metrics backend and
// warehouse repository around etl.Run. It depends only on storage-agnostic
// interfaces; backends are linked in through internal/storage/all.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"olistdw/internal/config"
	"olistdw/internal/etl"
	"olistdw/internal/extract"
	"olistdw/internal/metrics"
	"olistdw/internal/metrics/datadog"
	"olistdw/internal/metrics/prompush"
	"olistdw/internal/storage"
)

// Function variables used to introduce test seams.
var (
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return storage.New(ctx, cfg)
	}

	runPipelineFn = etl.Run
)

// run executes one load and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, validateOnly bool, out io.Writer) int {
	issues := config.Validate(*cfg)
	for _, iss := range issues {
		log.Printf("config: %s: %s: %s", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("config: invalid configuration file=%q", cfg.ConfigFile)
		return 1
	}
	if validateOnly {
		log.Printf("config: valid file=%q", cfg.ConfigFile)
		return 0
	}

	runID := uuid.NewString()
	flush := setupMetrics(cfg.Metrics, runID, cfg.Verbose)
	defer flush()

	log.Printf("warehouse: driver=%s target=%s schema=%q", cfg.DB.Driver, cfg.DB.Redacted(), cfg.DB.Schema)
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

	rep, err := runPipelineFn(ctx, repo, etl.Options{
		Job:       cfg.Metrics.Job,
		RunID:     runID,
		BatchSize: cfg.BatchSize,
		Extract: extract.Options{
			Base:    cfg.Datasets,
			Files:   cfg.Files,
			Workers: cfg.ReadWorkers,
			Job:     cfg.Metrics.Job,
		},
		InitSchema: cfg.InitSchema,
		Kind:       cfg.DB.Driver,
		Verbose:    cfg.Verbose,
	})
	if err != nil {
		log.Printf("etl: %v", err)
		return 1
	}

	fmt.Fprintf(out, "run %s finished in %s\n", rep.RunID, rep.Duration.Round(time.Millisecond))
	fmt.Fprint(out, etl.FormatCounts(rep.Counts))
	return 0
}

// setupMetrics installs the configured metrics backend and returns the flush
// to run at exit. Backend failures downgrade to no metrics.
func setupMetrics(cfg config.MetricsConfig, runID string, verbose bool) func() {
	nop := func() {}
	switch cfg.Backend {
	case "pushgateway":
		b, err := prompush.NewBackend(cfg.Job, cfg.PushgatewayURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return nop
		}
		b.WithGrouping("run_id", runID)
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", cfg.PushgatewayURL, cfg.Backend, cfg.Job)
		metrics.SetBackend(b)

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.DatadogAddr,
			Namespace:  "olist.",
			GlobalTags: []string{"job:" + cfg.Job, "run_id:" + runID},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return nop
		}
		log.Printf("metrics: addr=%v, backend=%v, job_name=%v", cfg.DatadogAddr, cfg.Backend, cfg.Job)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", cfg.Backend)
		}
		return nop

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", cfg.Backend)
		return nop
	}

	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}
