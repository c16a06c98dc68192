package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"olistdw/internal/config"
	"olistdw/internal/etl"
	"olistdw/internal/metrics"
	"olistdw/internal/storage"
)

func sqliteConfig() *config.Config {
	cfg := config.Defaults()
	cfg.DB = config.DBConfig{Driver: "sqlite", DSN: ":memory:"}
	return &cfg
}

// withSeams swaps the repository and pipeline seams for the duration of a test.
func withSeams(t *testing.T, repoFn func(context.Context, storage.Config) (storage.Repository, error),
	runFn func(context.Context, storage.Repository, etl.Options) (*etl.Report, error)) {
	t.Helper()
	origRepo, origRun := newRepositoryFn, runPipelineFn
	t.Cleanup(func() { newRepositoryFn, runPipelineFn = origRepo, origRun })
	if repoFn != nil {
		newRepositoryFn = repoFn
	}
	if runFn != nil {
		runPipelineFn = runFn
	}
}

func TestRun_InvalidConfigExitsOne(t *testing.T) {
	var opened atomic.Bool
	withSeams(t, func(context.Context, storage.Config) (storage.Repository, error) {
		opened.Store(true)
		return nil, errors.New("unexpected")
	}, nil)

	cfg := sqliteConfig()
	cfg.BatchSize = 0
	if code := run(context.Background(), cfg, false, &bytes.Buffer{}); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if opened.Load() {
		t.Fatal("repository opened despite invalid config")
	}
}

func TestRun_ValidateOnly(t *testing.T) {
	var opened atomic.Bool
	withSeams(t, func(context.Context, storage.Config) (storage.Repository, error) {
		opened.Store(true)
		return nil, errors.New("unexpected")
	}, nil)

	if code := run(context.Background(), sqliteConfig(), true, &bytes.Buffer{}); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if opened.Load() {
		t.Fatal("repository opened in validate-only mode")
	}
}

func TestRun_PassesConfigThrough(t *testing.T) {
	var gotStorage storage.Config
	var gotOpts etl.Options
	withSeams(t,
		func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
			gotStorage = cfg
			return storage.New(ctx, cfg)
		},
		func(_ context.Context, _ storage.Repository, opt etl.Options) (*etl.Report, error) {
			gotOpts = opt
			return &etl.Report{
				RunID:    opt.RunID,
				Duration: 1500 * time.Millisecond,
				Counts:   []etl.TableCount{{Table: "dim_customer", Rows: 99441}},
			}, nil
		})

	cfg := sqliteConfig()
	cfg.Datasets = "/data/olist"
	cfg.BatchSize = 250
	cfg.InitSchema = true

	var out bytes.Buffer
	if code := run(context.Background(), cfg, false, &out); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}

	if gotStorage.Kind != "sqlite" || gotStorage.DSN != ":memory:" {
		t.Fatalf("storage config = %+v", gotStorage)
	}
	if gotOpts.RunID == "" || gotOpts.BatchSize != 250 || !gotOpts.InitSchema || gotOpts.Kind != "sqlite" {
		t.Fatalf("etl options = %+v", gotOpts)
	}
	if gotOpts.Extract.Base != "/data/olist" || gotOpts.Extract.Workers != cfg.ReadWorkers {
		t.Fatalf("extract options = %+v", gotOpts.Extract)
	}
	if s := out.String(); !strings.Contains(s, "99,441") || !strings.Contains(s, gotOpts.RunID) {
		t.Fatalf("output = %q", s)
	}
}

func TestRun_FailuresExitOne(t *testing.T) {
	t.Run("connect", func(t *testing.T) {
		withSeams(t, func(context.Context, storage.Config) (storage.Repository, error) {
			return nil, errors.New("connection refused")
		}, nil)
		if code := run(context.Background(), sqliteConfig(), false, &bytes.Buffer{}); code != 1 {
			t.Fatalf("exit code = %d, want 1", code)
		}
	})

	t.Run("pipeline", func(t *testing.T) {
		withSeams(t, nil, func(context.Context, storage.Repository, etl.Options) (*etl.Report, error) {
			return &etl.Report{}, errors.New("load_facts: constraint violation")
		})
		if code := run(context.Background(), sqliteConfig(), false, &bytes.Buffer{}); code != 1 {
			t.Fatalf("exit code = %d, want 1", code)
		}
	})
}

func TestSetupMetrics_PushgatewayFlushesWithRunID(t *testing.T) {
	var path atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	flush := setupMetrics(config.MetricsConfig{
		Backend:        "pushgateway",
		Job:            "olist_etl",
		PushgatewayURL: server.URL,
	}, "run-123", false)
	metrics.RecordStep("olist_etl", etl.StageExtract, nil, time.Second)
	flush()

	got, _ := path.Load().(string)
	if !strings.Contains(got, "/job/olist_etl") || !strings.Contains(got, "/run_id/run-123") {
		t.Fatalf("push path = %q", got)
	}
}

func TestSetupMetrics_DisabledAndUnknown(t *testing.T) {
	for _, backend := range []string{"", "none", "graphite"} {
		flush := setupMetrics(config.MetricsConfig{Backend: backend}, "r", true)
		flush()
	}
}
