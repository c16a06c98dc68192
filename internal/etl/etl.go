// Package etl runs the warehouse load as a linear sequence of stages:
//
//	Extract → Clean → Normalize → LoadDimensions → ResolveKeys →
//	BuildFacts → LoadFacts → Verify
//
// There are no retries and no checkpoints. The first failing stage aborts the
// run; batches committed before the failure stay committed, and a re-run
// converges because dimensions are fully refreshed and fact inserts ignore
// rows whose key already exists.
package etl

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"olistdw/internal/extract"
	"olistdw/internal/metrics"
	"olistdw/internal/records"
	"olistdw/internal/schema"
	"olistdw/internal/storage"
	"olistdw/internal/warehouse"
)

// Stage names, as reported in logs and metrics.
const (
	StageExtract        = "extract"
	StageClean          = "clean"
	StageNormalize      = "normalize"
	StageLoadDimensions = "load_dimensions"
	StageResolveKeys    = "resolve_keys"
	StageBuildFacts     = "build_facts"
	StageLoadFacts      = "load_facts"
	StageVerify         = "verify"
)

// Options configures one run.
type Options struct {
	Job       string
	RunID     string // generated when empty
	BatchSize int    // storage.DefaultBatchSize when < 1

	Extract extract.Options

	// InitSchema creates the warehouse tables through the backend registered
	// as Kind before loading.
	InitSchema bool
	Kind       string

	Verbose bool
}

// Report describes a finished (or aborted) run.
type Report struct {
	RunID     string
	Extracted map[string]int
	Clean     CleanStats
	Loads     []storage.LoadResult
	// Dropped counts fact rows removed by the referential gate, per fact
	// table and column.
	Dropped  map[string]map[string]int
	Counts   []TableCount
	Duration time.Duration
}

// extractFn is a test seam.
var extractFn = extract.Extract

type run struct {
	repo   storage.Repository
	opt    Options
	report *Report

	tables *extract.Tables
	keys   warehouse.DateKeys
	facts  map[string][]records.Record
}

// Run executes the pipeline against repo and returns the run report. On error
// the report holds whatever the completed stages produced.
func Run(ctx context.Context, repo storage.Repository, opt Options) (rep *Report, err error) {
	if opt.RunID == "" {
		opt.RunID = uuid.NewString()
	}
	if opt.BatchSize < 1 {
		opt.BatchSize = storage.DefaultBatchSize
	}
	if opt.Extract.Job == "" {
		opt.Extract.Job = opt.Job
	}

	start := time.Now()
	r := &run{
		repo: repo,
		opt:  opt,
		report: &Report{
			RunID:     opt.RunID,
			Extracted: make(map[string]int),
			Dropped:   make(map[string]map[string]int),
		},
	}
	log.Printf("etl: run_id=%s start dialect=%s namespace=%q batch_size=%d",
		opt.RunID, repo.Dialect().Name, repo.Namespace(), opt.BatchSize)

	defer func() {
		r.report.Duration = time.Since(start)
		metrics.RecordRun(opt.Job, opt.RunID, err, r.report.Duration)
		if err != nil {
			log.Printf("summary: run_id=%s status=failure elapsed=%s err=%v",
				opt.RunID, r.report.Duration.Truncate(time.Millisecond), err)
			return
		}
		log.Printf("summary: run_id=%s status=success inserted=%d dropped=%d elapsed=%s",
			opt.RunID, r.inserted(), r.dropped(), r.report.Duration.Truncate(time.Millisecond))
	}()

	if opt.InitSchema {
		if err := storage.EnsureSchema(ctx, opt.Kind, repo); err != nil {
			return r.report, fmt.Errorf("init schema: %w", err)
		}
	}

	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StageExtract, r.extract},
		{StageClean, r.clean},
		{StageNormalize, r.normalize},
		{StageLoadDimensions, r.loadDimensions},
		{StageResolveKeys, r.resolveKeys},
		{StageBuildFacts, r.buildFacts},
		{StageLoadFacts, r.loadFacts},
		{StageVerify, r.verify},
	}
	for _, s := range stages {
		if err := r.step(ctx, s.name, s.fn); err != nil {
			return r.report, err
		}
	}
	return r.report, nil
}

func (r *run) step(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)
	metrics.RecordStep(r.opt.Job, name, err, d)
	if err != nil {
		log.Printf("etl: run_id=%s step=%s failed elapsed=%s err=%v", r.opt.RunID, name, d.Truncate(time.Millisecond), err)
		return fmt.Errorf("%s: %w", name, err)
	}
	if r.opt.Verbose {
		log.Printf("etl: run_id=%s step=%s done elapsed=%s", r.opt.RunID, name, d.Truncate(time.Millisecond))
	}
	return nil
}

func (r *run) extract(ctx context.Context) error {
	tables, err := extractFn(ctx, r.opt.Extract)
	if err != nil {
		return err
	}
	r.tables = tables
	for _, d := range extract.Datasets {
		r.report.Extracted[d.Name] = tables.Get(d.Name).Len()
	}
	return nil
}

func (r *run) clean(context.Context) error {
	r.report.Clean = Clean(r.tables, r.opt.Job)
	if r.opt.Verbose {
		st := r.report.Clean
		log.Printf("clean: deduplicated=%d unkeyed=%d invalid_numbers=%d", st.Deduplicated, st.Unkeyed, st.InvalidNumbers)
	}
	return nil
}

func (r *run) normalize(context.Context) error {
	Normalize(r.tables, r.opt.Job, &r.report.Clean)
	if r.opt.Verbose {
		log.Printf("normalize: orders=%d unparsed_timestamps=%d", r.tables.Orders.Len(), r.report.Clean.UnparsedTimestamps)
	}
	return nil
}

// dimensionRows returns the source rows of every dimension, in load order.
func (r *run) dimensionRows() map[string][]records.Record {
	rows := func(t *records.Table) []records.Record {
		if t == nil {
			return nil
		}
		return t.Rows
	}
	return map[string][]records.Record{
		schema.DimDate:        warehouse.BuildDimDate(r.tables.Orders),
		schema.DimCustomer:    rows(r.tables.Customers),
		schema.DimProduct:     rows(r.tables.Products),
		schema.DimSeller:      rows(r.tables.Sellers),
		schema.DimGeolocation: rows(r.tables.Geolocation),
		schema.DimOrder:       rows(r.tables.Orders),
	}
}

func (r *run) loadDimensions(ctx context.Context) error {
	src := r.dimensionRows()
	for _, t := range schema.Dimensions {
		res, err := storage.LoadDimension(ctx, r.repo, t, src[t.Name], r.opt.BatchSize)
		r.record(res, "loaded")
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *run) resolveKeys(ctx context.Context) error {
	rows, err := storage.SelectColumns(ctx, r.repo, schema.DimDate, "date_key", "full_date")
	if err != nil {
		return fmt.Errorf("read %s: %w", schema.DimDate, err)
	}
	keys, err := warehouse.ResolveDateKeys(rows)
	if err != nil {
		return err
	}
	r.keys = keys
	if r.opt.Verbose {
		log.Printf("keys: dates=%d", len(keys))
	}
	return nil
}

// persistedKeys reads the natural keys of a dimension back from the warehouse.
func (r *run) persistedKeys(ctx context.Context, table, column string) (warehouse.KeySet, error) {
	rows, err := storage.SelectColumns(ctx, r.repo, table, column)
	if err != nil {
		return nil, fmt.Errorf("read %s.%s: %w", table, column, err)
	}
	return warehouse.NewKeySet(rows), nil
}

// gateFor checks every required reference of fact table against the keys
// persisted in the referenced dimension, in foreign-key order. Date keys come
// from the resolver and nullable references are never gated. Key sets are
// shared between facts through seen.
func (r *run) gateFor(ctx context.Context, table string, seen map[string]warehouse.KeySet) (warehouse.Gate, error) {
	t := schema.MustLookup(table)
	var g warehouse.Gate
	for _, fk := range t.ForeignKeys {
		if fk.RefTable == schema.DimDate || nullable(t, fk.Column) {
			continue
		}
		keys, ok := seen[fk.RefTable]
		if !ok {
			var err error
			if keys, err = r.persistedKeys(ctx, fk.RefTable, fk.RefColumn); err != nil {
				return nil, err
			}
			seen[fk.RefTable] = keys
		}
		g = append(g, warehouse.Reference{Column: fk.Column, Keys: keys})
	}
	return g, nil
}

func nullable(t schema.Table, col string) bool {
	for _, c := range t.Columns {
		if c.Name == col {
			return c.Nullable
		}
	}
	return false
}

func (r *run) buildFacts(ctx context.Context) error {
	seen := make(map[string]warehouse.KeySet, 4)
	itemGate, err := r.gateFor(ctx, schema.FactOrderItems, seen)
	if err != nil {
		return err
	}
	deliveryGate, err := r.gateFor(ctx, schema.FactOrderDelivery, seen)
	if err != nil {
		return err
	}

	items := warehouse.BuildOrderItemFacts(r.tables.OrderItems, r.tables.Orders, r.tables.Reviews, r.keys)
	delivery := warehouse.BuildOrderDeliveryFacts(r.tables.Orders, r.tables.OrderItems, r.keys)

	r.facts = make(map[string][]records.Record, 2)
	for _, f := range []struct {
		table string
		rows  []records.Record
		gate  warehouse.Gate
	}{
		{schema.FactOrderItems, items, itemGate},
		{schema.FactOrderDelivery, delivery, deliveryGate},
	} {
		kept, dropped := f.gate.Filter(f.rows)
		r.facts[f.table] = kept
		r.report.Dropped[f.table] = dropped
		n := warehouse.Total(dropped)
		metrics.RecordRow(r.opt.Job, "referential_dropped", int64(n))
		log.Printf("facts: table=%s built=%d kept=%d dropped=%d", f.table, len(f.rows), len(kept), n)
	}
	return nil
}

func (r *run) loadFacts(ctx context.Context) error {
	for _, t := range schema.Facts {
		res, err := storage.LoadFact(ctx, r.repo, t, r.facts[t.Name], r.opt.BatchSize)
		r.record(res, "inserted")
		if err != nil {
			return err
		}
		metrics.RecordRow(r.opt.Job, "conflict_skipped", res.Skipped)
	}
	return nil
}

func (r *run) verify(ctx context.Context) error {
	counts, err := Verify(ctx, r.repo)
	if err != nil {
		return err
	}
	r.report.Counts = counts
	for _, c := range counts {
		metrics.RecordTableRows(r.opt.Job, c.Table, "verified", c.Rows)
	}
	log.Print("verify:\n" + FormatCounts(counts))
	return nil
}

func (r *run) record(res storage.LoadResult, kind string) {
	r.report.Loads = append(r.report.Loads, res)
	metrics.RecordTableRows(r.opt.Job, res.Table, kind, res.Written)
	metrics.RecordRow(r.opt.Job, kind, res.Written)
	metrics.RecordBatches(r.opt.Job, int64(res.Batches))
}

func (r *run) inserted() int64 {
	var n int64
	for _, l := range r.report.Loads {
		n += l.Written
	}
	return n
}

func (r *run) dropped() int {
	n := 0
	for _, d := range r.report.Dropped {
		n += warehouse.Total(d)
	}
	return n
}
