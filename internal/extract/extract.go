package extract

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"olistdw/internal/datasource"
	"olistdw/internal/datasource/blob"
	"olistdw/internal/datasource/file"
	"olistdw/internal/metrics"
	"olistdw/internal/parser"
	csvparser "olistdw/internal/parser/csv"
	"olistdw/internal/records"
)

// Options controls where and how datasets are read.
type Options struct {
	// Base is a local directory or a gocloud bucket URL (s3://, gs://, file://, mem://).
	Base string

	// Files overrides the file name of individual datasets, keyed by dataset name.
	Files map[string]string

	// Workers bounds how many files are read at once. Values < 1 mean 1.
	Workers int

	// Job labels emitted metrics.
	Job string
}

// Opener resolves a file name under the configured base to a Source.
type Opener interface {
	Source(name string) datasource.Source
	Close() error
}

type localOpener struct{ dir string }

func (l localOpener) Source(name string) datasource.Source {
	return file.NewLocal(filepath.Join(l.dir, name))
}

func (localOpener) Close() error { return nil }

// newParserFn is a test seam for the CSV parser.
var newParserFn = func() parser.Parser { return csvparser.NewParser() }

// NewOpener returns an Opener for base: a blob bucket when base carries a URL
// scheme, the local filesystem otherwise.
func NewOpener(ctx context.Context, base string) (Opener, error) {
	if strings.Contains(base, "://") {
		b, err := blob.Open(ctx, base)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return localOpener{dir: base}, nil
}

// FileFor returns the file name used for dataset d under opt.
func (opt Options) FileFor(d Dataset) string {
	if f, ok := opt.Files[d.Name]; ok && f != "" {
		return f
	}
	return d.File
}

// Extract reads every dataset. The first failure cancels the remaining reads
// and no partial result is returned.
func Extract(ctx context.Context, opt Options) (*Tables, error) {
	op, err := NewOpener(ctx, opt.Base)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	defer op.Close()
	return ExtractFrom(ctx, op, opt)
}

// ExtractFrom is Extract over an already opened Opener.
func ExtractFrom(ctx context.Context, op Opener, opt Options) (*Tables, error) {
	workers := opt.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu  sync.Mutex
		out Tables
	)
	// Files are independent, so reading them in parallel changes nothing
	// downstream: results land in fixed slots and Extract returns only after
	// every read has finished.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, d := range Datasets {
		d := d
		g.Go(func() error {
			name := opt.FileFor(d)
			start := time.Now()
			t, padded, err := readDataset(gctx, op.Source(name), d, name)
			if err != nil {
				return err
			}
			metrics.RecordRow(opt.Job, "extracted", int64(t.Len()))
			metrics.RecordRow(opt.Job, "short_rows_padded", int64(padded))
			log.Printf("extract: dataset=%s file=%s rows=%d columns=%d elapsed=%s",
				d.Name, name, t.Len(), len(t.Columns), time.Since(start).Truncate(time.Millisecond))

			mu.Lock()
			*out.slot(d.Name) = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return &out, nil
}

func readDataset(ctx context.Context, src datasource.Source, d Dataset, name string) (_ *records.Table, _ int, err error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", name, cerr)
		}
	}()

	t, padded, err := newParserFn().Parse(d.Name, cancelReader{ctx: ctx, r: rc})
	if err != nil {
		return nil, 0, err
	}
	if err := checkColumns(d, name, t); err != nil {
		return nil, 0, err
	}
	return t, padded, nil
}

// cancelReader stops a long parse once ctx is done.
type cancelReader struct {
	ctx context.Context
	r   io.Reader
}

func (c cancelReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
