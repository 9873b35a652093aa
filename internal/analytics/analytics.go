// Package analytics derives aggregate views from normalized transactions.
// Every function is pure: inputs are never mutated and empty input yields an
// empty result.
package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finflow/internal/core"
)

var hundred = decimal.NewFromInt(100)

type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"` // positive magnitude
	Balance decimal.Decimal `json:"balance"`
	Count   int             `json:"count"`
	// Margin is Balance as a percentage of Income, set only when the balance
	// is positive and income is non-zero.
	Margin *decimal.Decimal `json:"margin,omitempty"`
}

// Summarize totals income and expense. Balance equals the sum of all signed
// amounts.
func Summarize(txs []core.Transaction) Summary {
	s := Summary{Income: decimal.Zero, Expense: decimal.Zero, Balance: decimal.Zero}
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			s.Income = s.Income.Add(tx.Amount)
		case core.Expense:
			s.Expense = s.Expense.Add(tx.Abs())
		}
		s.Count++
	}
	s.Balance = s.Income.Sub(s.Expense)
	if s.Balance.IsPositive() && !s.Income.IsZero() {
		m := s.Balance.Div(s.Income).Mul(hundred)
		s.Margin = &m
	}
	return s
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// ByCategory sums signed amounts per category, ordered by total descending
// then by name. topN <= 0 returns every category.
func ByCategory(txs []core.Transaction, topN int) []CategoryTotal {
	idx := make(map[string]int)
	var out []CategoryTotal
	for _, tx := range txs {
		i, ok := idx[tx.Category]
		if !ok {
			i = len(out)
			idx[tx.Category] = i
			out = append(out, CategoryTotal{Category: tx.Category, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(tx.Amount)
		out[i].Count++
	}
	sort.SliceStable(out, func(a, b int) bool {
		if c := out[a].Total.Cmp(out[b].Total); c != 0 {
			return c > 0
		}
		return out[a].Category < out[b].Category
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// Granularity is a period bucket size.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

func Granularities() []Granularity {
	return []Granularity{Day, Week, Month}
}

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Day, Week, Month:
		return g, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Label returns the Portuguese caption for the period selector.
func (g Granularity) Label() string {
	switch g {
	case Day:
		return "Diário"
	case Week:
		return "Semanal"
	case Month:
		return "Mensal"
	}
	return string(g)
}

// Start returns the bucket key d falls into: the day itself, the Monday of
// its ISO week, or the first of its month.
func (g Granularity) Start(d core.Date) core.Date {
	switch g {
	case Week:
		offset := (int(d.Weekday()) + 6) % 7
		return core.DateOf(d.AddDate(0, 0, -offset))
	case Month:
		return core.NewDate(d.Year(), int(d.Month()), 1)
	}
	return d
}

func (g Granularity) next(d core.Date) core.Date {
	switch g {
	case Week:
		return core.DateOf(d.AddDate(0, 0, 7))
	case Month:
		return core.DateOf(d.AddDate(0, 1, 0))
	}
	return core.DateOf(d.AddDate(0, 0, 1))
}

type PeriodTotal struct {
	Start   core.Date       `json:"start"`
	Total   decimal.Decimal `json:"total"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"` // positive magnitude
}

// MaxFilledBuckets bounds the contiguous series ByPeriod builds. A span
// wider than this returns only the populated buckets.
const MaxFilledBuckets = 3660

// ByPeriod buckets signed amounts by calendar period. The result is
// chronological and contiguous from the first to the last populated bucket;
// empty buckets in between are zero. When the span exceeds MaxFilledBuckets
// only populated buckets are returned, still in order.
func ByPeriod(txs []core.Transaction, g Granularity) []PeriodTotal {
	if len(txs) == 0 {
		return nil
	}
	buckets := make(map[time.Time]*PeriodTotal)
	var first, last core.Date
	for i, tx := range txs {
		key := g.Start(tx.Date)
		if i == 0 || key.Before(first) {
			first = key
		}
		if i == 0 || key.After(last) {
			last = key
		}
		b, ok := buckets[key.Time]
		if !ok {
			b = &PeriodTotal{Start: key, Total: decimal.Zero, Income: decimal.Zero, Expense: decimal.Zero}
			buckets[key.Time] = b
		}
		b.Total = b.Total.Add(tx.Amount)
		if tx.Type == core.Expense {
			b.Expense = b.Expense.Add(tx.Abs())
		} else {
			b.Income = b.Income.Add(tx.Amount)
		}
	}

	var out []PeriodTotal
	for d := first; !d.After(last); d = g.next(d) {
		if len(out) == MaxFilledBuckets {
			return populated(buckets)
		}
		if b, ok := buckets[d.Time]; ok {
			out = append(out, *b)
			continue
		}
		out = append(out, PeriodTotal{Start: d, Total: decimal.Zero, Income: decimal.Zero, Expense: decimal.Zero})
	}
	return out
}

func populated(buckets map[time.Time]*PeriodTotal) []PeriodTotal {
	out := make([]PeriodTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

type PeriodChange struct {
	Current  decimal.Decimal `json:"current"`
	Previous decimal.Decimal `json:"previous"`
	Percent  decimal.Decimal `json:"percent"`
	Defined  bool            `json:"defined"`
}

// Change compares the last bucket with the one before it. The percentage is
// relative to the magnitude of the previous bucket and undefined when there
// is no previous bucket or it sums to zero.
func Change(periods []PeriodTotal) PeriodChange {
	c := PeriodChange{Current: decimal.Zero, Previous: decimal.Zero, Percent: decimal.Zero}
	n := len(periods)
	if n == 0 {
		return c
	}
	c.Current = periods[n-1].Total
	if n < 2 {
		return c
	}
	c.Previous = periods[n-2].Total
	if c.Previous.IsZero() {
		return c
	}
	c.Percent = c.Current.Sub(c.Previous).Div(c.Previous.Abs()).Mul(hundred)
	c.Defined = true
	return c
}

type TypeBranch struct {
	Type       core.TxType     `json:"type"`
	Total      decimal.Decimal `json:"total"`
	Categories []CategoryTotal `json:"categories"`
}

// Composition groups absolute amounts by type then category, for the
// hierarchical chart. Types come in TxTypes order, categories by total
// descending. Types with no rows are omitted.
func Composition(txs []core.Transaction) []TypeBranch {
	var out []TypeBranch
	for _, typ := range core.TxTypes() {
		var sub []core.Transaction
		for _, tx := range txs {
			if tx.Type == typ {
				sub = append(sub, core.Transaction{Category: tx.Category, Amount: tx.Abs()})
			}
		}
		if len(sub) == 0 {
			continue
		}
		cats := ByCategory(sub, 0)
		total := decimal.Zero
		for _, c := range cats {
			total = total.Add(c.Total)
		}
		out = append(out, TypeBranch{Type: typ, Total: total, Categories: cats})
	}
	return out
}

type TimelinePoint struct {
	Date    core.Date       `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"` // positive magnitude
}

// CategoryTimeline sums one category per date, split by type, in date order.
func CategoryTimeline(txs []core.Transaction, category string) []TimelinePoint {
	byDate := make(map[time.Time]*TimelinePoint)
	var out []*TimelinePoint
	for _, tx := range txs {
		if tx.Category != category {
			continue
		}
		p, ok := byDate[tx.Date.Time]
		if !ok {
			p = &TimelinePoint{Date: tx.Date, Income: decimal.Zero, Expense: decimal.Zero}
			byDate[tx.Date.Time] = p
			out = append(out, p)
		}
		if tx.Type == core.Expense {
			p.Expense = p.Expense.Add(tx.Abs())
		} else {
			p.Income = p.Income.Add(tx.Amount)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Date.Before(out[b].Date) })

	points := make([]TimelinePoint, len(out))
	for i, p := range out {
		points[i] = *p
	}
	return points
}

// Categories lists distinct categories in order of first appearance.
func Categories(txs []core.Transaction) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tx := range txs {
		if !seen[tx.Category] {
			seen[tx.Category] = true
			out = append(out, tx.Category)
		}
	}
	return out
}

// Range holds the extremes of a transaction set, used as filter defaults.
type Range struct {
	MinDate   core.Date       `json:"min_date"`
	MaxDate   core.Date       `json:"max_date"`
	MinAmount decimal.Decimal `json:"min_amount"`
	MaxAmount decimal.Decimal `json:"max_amount"`
	Empty     bool            `json:"empty"`
}

func Bounds(txs []core.Transaction) Range {
	if len(txs) == 0 {
		return Range{Empty: true, MinAmount: decimal.Zero, MaxAmount: decimal.Zero}
	}
	r := Range{
		MinDate: txs[0].Date, MaxDate: txs[0].Date,
		MinAmount: txs[0].Amount, MaxAmount: txs[0].Amount,
	}
	for _, tx := range txs[1:] {
		if tx.Date.Before(r.MinDate) {
			r.MinDate = tx.Date
		}
		if tx.Date.After(r.MaxDate) {
			r.MaxDate = tx.Date
		}
		r.MinAmount = decimal.Min(r.MinAmount, tx.Amount)
		r.MaxAmount = decimal.Max(r.MaxAmount, tx.Amount)
	}
	return r
}
