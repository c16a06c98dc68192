package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"olistdw/internal/schema"
)

// fakeRepo is an in-memory Repository that honours key conflicts for
// InsertIgnore. Tables are keyed by name.
type fakeRepo struct {
	mu        sync.Mutex
	ns        string
	tables    map[string][][]any
	keys      map[string]map[string]bool
	truncated []string
	calls     int
	failOn    int // fail the n-th write call (1-based); 0 disables
	queryRows [][]any
	lastQuery string
	closed    bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tables: map[string][][]any{}, keys: map[string]map[string]bool{}}
}

var errInjected = errors.New("injected failure")

func (f *fakeRepo) Dialect() schema.Dialect {
	return schema.Dialect{Name: "fake", Quote: schema.DoubleQuote}
}

func (f *fakeRepo) Namespace() string { return f.ns }

func (f *fakeRepo) Truncate(_ context.Context, t schema.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.truncated = append(f.truncated, t.Name)
	delete(f.tables, t.Name)
	delete(f.keys, t.Name)
	return nil
}

func (f *fakeRepo) write(t schema.Table, columns []string, rows [][]any, ignore bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn > 0 && f.calls == f.failOn {
		return 0, errInjected
	}
	if f.keys[t.Name] == nil {
		f.keys[t.Name] = map[string]bool{}
	}
	idx := map[string]int{}
	for i, c := range columns {
		idx[c] = i
	}
	var n int64
	for _, r := range rows {
		parts := make([]string, len(t.Key))
		for i, k := range t.Key {
			parts[i] = fmt.Sprint(r[idx[k]])
		}
		key := strings.Join(parts, "|")
		if f.keys[t.Name][key] {
			if ignore {
				continue
			}
			return n, fmt.Errorf("duplicate key %s in %s", key, t.Name)
		}
		f.keys[t.Name][key] = true
		f.tables[t.Name] = append(f.tables[t.Name], append([]any(nil), r...))
		n++
	}
	return n, nil
}

func (f *fakeRepo) CopyFrom(_ context.Context, t schema.Table, columns []string, rows [][]any) (int64, error) {
	return f.write(t, columns, rows, false)
}

func (f *fakeRepo) InsertIgnore(_ context.Context, t schema.Table, columns []string, rows [][]any) (int64, error) {
	return f.write(t, columns, rows, true)
}

func (f *fakeRepo) Query(_ context.Context, q string) ([][]any, error) {
	f.lastQuery = q
	return f.queryRows, nil
}

func (f *fakeRepo) Exec(context.Context, string) error { return nil }

func (f *fakeRepo) Close() { f.closed = true }
