// Package transformer defines in-memory table transformations and the Chain
// that runs them in order.
package transformer

import "olistdw/internal/records"

// Transformer rewrites a table. Implementations may mutate rows in place and
// return the same table, or return a new one.
type Transformer interface {
	Apply(t *records.Table) *records.Table
}

// Func adapts a plain function to Transformer.
type Func func(t *records.Table) *records.Table

// Apply implements Transformer.
func (f Func) Apply(t *records.Table) *records.Table { return f(t) }

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every transformer in order. A nil table passes through untouched.
func (c Chain) Apply(t *records.Table) *records.Table {
	if t == nil {
		return nil
	}
	out := t
	for _, tr := range c {
		out = tr.Apply(out)
	}
	return out
}
