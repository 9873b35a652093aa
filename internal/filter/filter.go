// Package filter selects transactions matching multi-criteria filters.
package filter

import (
	"sort"

	"github.com/shopspring/decimal"

	"finflow/internal/analytics"
	"finflow/internal/core"
)

// Set is a selection of values. The nil Set is unrestricted and matches
// everything; a non-nil Set matches only its members, so an explicitly empty
// Set matches nothing.
type Set[T comparable] map[T]struct{}

// Only builds an explicit selection. Only() with no values is the empty
// selection, not the unrestricted one.
func Only[T comparable](values ...T) Set[T] {
	s := make(Set[T], len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s Set[T]) Unrestricted() bool {
	return s == nil
}

func (s Set[T]) Contains(v T) bool {
	if s == nil {
		return true
	}
	_, ok := s[v]
	return ok
}

// Criteria are combined with AND. Zero dates and nil amounts leave that bound
// open; every bound is inclusive.
type Criteria struct {
	From       core.Date
	To         core.Date
	Categories Set[string]
	Types      Set[core.TxType]
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
}

// DefaultCriteria spans the full date range of r with every type selected.
func DefaultCriteria(r analytics.Range) Criteria {
	c := Criteria{Types: Only(core.TxTypes()...)}
	if !r.Empty {
		c.From, c.To = r.MinDate, r.MaxDate
	}
	return c
}

// DateOnly keeps just the date range. Metric cards and charts follow the
// period selector alone.
func (c Criteria) DateOnly() Criteria {
	return Criteria{From: c.From, To: c.To}
}

// Match reports whether tx satisfies every criterion.
func (c Criteria) Match(tx core.Transaction) bool {
	if !c.From.IsZero() && tx.Date.Before(c.From) {
		return false
	}
	if !c.To.IsZero() && tx.Date.After(c.To) {
		return false
	}
	if !c.Types.Contains(tx.Type) {
		return false
	}
	if !c.Categories.Contains(tx.Category) {
		return false
	}
	if c.MinAmount != nil && tx.Amount.LessThan(*c.MinAmount) {
		return false
	}
	if c.MaxAmount != nil && tx.Amount.GreaterThan(*c.MaxAmount) {
		return false
	}
	return true
}

// Open reports whether c places no restriction at all.
func (c Criteria) Open() bool {
	return c.From.IsZero() && c.To.IsZero() &&
		c.Types.Unrestricted() && c.Categories.Unrestricted() &&
		c.MinAmount == nil && c.MaxAmount == nil
}

// Apply returns the matching transactions in input order. The input slice is
// not modified.
func Apply(txs []core.Transaction, c Criteria) []core.Transaction {
	if c.Open() {
		out := make([]core.Transaction, len(txs))
		copy(out, txs)
		return out
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if c.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// SortByDateDesc returns a newest-first copy; equal dates keep source order.
func SortByDateDesc(txs []core.Transaction) []core.Transaction {
	out := append([]core.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}
