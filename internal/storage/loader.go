package storage

// This file implements the batched loader that drains rows from a channel and
// invokes a bulk-insert function (CopyFn) per batch, plus the dimension and
// fact loaders built on it. Each batch is one backend transaction, so batches
// that committed before a failure stay committed.
//
// Logging: on every successful flush, a concise progress line is emitted with
// running totals and instantaneous rows/sec since the previous flush.

import (
	"context"
	"fmt"
	"log"
	"time"

	"olistdw/internal/records"
	"olistdw/internal/schema"
)

// DefaultBatchSize is the number of rows per insert transaction.
const DefaultBatchSize = 5000

// CopyFn abstracts a backend's bulk insert capability. Implementations should
// insert the provided rows (aligned to 'columns' order) and return the number
// of rows reported as inserted. The function should be safe for repeated calls
// and cancel promptly when ctx is done.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains typed rows from 'in', groups them into batches of size
// 'batchSize', and calls 'copyFn' for each non-empty batch. It returns the total
// number of rows reported by copyFn and the first error encountered.
//
// Cancellation: returns (total, ctx.Err()) when canceled. Progress is logged on
// each successful flush.
func LoadBatches(
	ctx context.Context,
	table string,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		total       int64
		batches     int64
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n

		// Reuse allocated slice; keep capacity to avoid churn.
		batch = batch[:0]

		if err != nil {
			log.Printf("loader: table=%s batch failed after=%d total=%d err=%v", table, n, total, err)

			return err
		}

		// Progress log per successful batch.
		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		insertedSinceLast := total - lastTotal
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(insertedSinceLast) / sinceLast.Seconds()
		}
		log.Printf(
			"batch #%d: table=%s rps=%.0f inserted=%d total_inserted=%d elapsed=%s since_last=%s",
			batches,
			table,
			rps,
			n,
			total,
			now.Sub(start).Truncate(time.Millisecond),
			sinceLast.Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total

		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				// Channel closed: flush remaining rows.
				if err := flush(); err != nil {
					return total, err
				}
				log.Printf("loader: table=%s input closed, batches=%d total_inserted=%d", table, batches, total)

				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}

// LoadResult summarizes one table load.
type LoadResult struct {
	Table    string
	Rows     int   // rows offered
	Written  int64 // rows the database reported as inserted
	Skipped  int64 // rows ignored because their key already existed
	Batches  int
	Duration time.Duration
}

// LoadDimension replaces the content of dimension t with rows: it truncates
// the table (resetting identity numbering) and then inserts in batches of
// batchSize. The truncate commits before the first batch starts.
func LoadDimension(ctx context.Context, repo Repository, t schema.Table, rows []records.Record, batchSize int) (LoadResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	start := time.Now()
	res := LoadResult{Table: t.Name, Rows: len(rows)}
	if err := repo.Truncate(ctx, t); err != nil {
		return res, fmt.Errorf("truncate %s: %w", t.Name, err)
	}
	cols := t.InsertColumns()
	n, err := LoadBatches(ctx, t.Name, cols, feed(ctx, rows, cols), batchSize,
		func(ctx context.Context, columns []string, batch [][]any) (int64, error) {
			return repo.CopyFrom(ctx, t, columns, batch)
		})
	res.Written = n
	res.Batches = batchCount(len(rows), batchSize)
	res.Duration = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("load %s: %w", t.Name, err)
	}
	return res, nil
}

// LoadFact appends rows to fact t in batches of batchSize. Rows whose key
// already exists are skipped, which makes re-running a load idempotent.
func LoadFact(ctx context.Context, repo Repository, t schema.Table, rows []records.Record, batchSize int) (LoadResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	start := time.Now()
	res := LoadResult{Table: t.Name, Rows: len(rows)}
	cols := t.InsertColumns()
	var offered int64
	n, err := LoadBatches(ctx, t.Name, cols, feed(ctx, rows, cols), batchSize,
		func(ctx context.Context, columns []string, batch [][]any) (int64, error) {
			n, err := repo.InsertIgnore(ctx, t, columns, batch)
			if err == nil {
				offered += int64(len(batch))
			}
			return n, err
		})
	res.Written = n
	res.Skipped = offered - n
	res.Batches = batchCount(len(rows), batchSize)
	res.Duration = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("load %s: %w", t.Name, err)
	}
	return res, nil
}

// feed streams rows projected onto cols until rows are exhausted or ctx ends.
func feed(ctx context.Context, rows []records.Record, cols []string) <-chan []any {
	out := make(chan []any, 256)
	go func() {
		defer close(out)
		for _, r := range rows {
			select {
			case <-ctx.Done():
				return
			case out <- r.Values(cols):
			}
		}
	}()
	return out
}

func batchCount(rows, size int) int {
	if size <= 0 || rows == 0 {
		return 0
	}
	return (rows + size - 1) / size
}
