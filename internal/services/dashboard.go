package services

import (
	"finflow/internal/analytics"
	"finflow/internal/columns"
	"finflow/internal/core"
	"finflow/internal/filter"
	"finflow/internal/ingest"
	"finflow/internal/normalize"
)

// DefaultTopCategories bounds the category ranking when Request.TopN is unset.
const DefaultTopCategories = 10

// Request selects what the dashboard shows.
type Request struct {
	Criteria filter.Criteria
	Period   analytics.Granularity
	TopN     int
	// Focus names the category for the detail timeline; empty picks the top
	// category of the period view.
	Focus string
}

// Dashboard is every view of one request. Metric cards and charts use the
// date range only; Detail applies the full criteria.
type Dashboard struct {
	Request       Request
	Summary       analytics.Summary
	Periods       []analytics.PeriodTotal
	Change        analytics.PeriodChange
	TopCategories []analytics.CategoryTotal
	Composition   []analytics.TypeBranch
	Focus         string
	Timeline      []analytics.TimelinePoint
	Detail        []core.Transaction
	Bounds        analytics.Range
	Categories    []string
	Total         int // rows before any filter

	// Empty is set when the date range holds no rows, DetailEmpty when the
	// full criteria match nothing. Both are states, not errors.
	Empty       bool
	DetailEmpty bool
}

// BuildDashboard runs the whole pipeline from a raw table. It is pure: the
// same inputs always give the same Dashboard.
func BuildDashboard(t ingest.Table, m columns.Mapping, req Request, opts normalize.Options) (Dashboard, error) {
	txs, err := normalize.Normalize(t, m, opts)
	if err != nil {
		return Dashboard{}, err
	}
	return Analyze(txs, req), nil
}

// Analyze computes the dashboard for already normalized transactions.
func Analyze(txs []core.Transaction, req Request) Dashboard {
	if req.Period == "" {
		req.Period = analytics.Month
	}
	if req.TopN == 0 {
		req.TopN = DefaultTopCategories
	}

	view := filter.Apply(txs, req.Criteria.DateOnly())
	detail := filter.SortByDateDesc(filter.Apply(txs, req.Criteria))

	d := Dashboard{
		Request:       req,
		Summary:       analytics.Summarize(view),
		Periods:       analytics.ByPeriod(view, req.Period),
		TopCategories: analytics.ByCategory(view, req.TopN),
		Composition:   analytics.Composition(view),
		Detail:        detail,
		Bounds:        analytics.Bounds(txs),
		Categories:    analytics.Categories(txs),
		Total:         len(txs),
		Empty:         len(view) == 0,
		DetailEmpty:   len(detail) == 0,
	}
	d.Change = analytics.Change(d.Periods)
	d.Focus = focusCategory(req.Focus, view, d.TopCategories)
	if d.Focus != "" {
		d.Timeline = analytics.CategoryTimeline(view, d.Focus)
	}
	return d
}

func focusCategory(want string, view []core.Transaction, top []analytics.CategoryTotal) string {
	if want != "" {
		for _, c := range analytics.Categories(view) {
			if c == want {
				return want
			}
		}
	}
	if len(top) > 0 {
		return top[0].Category
	}
	return ""
}
