package http

import (
	"github.com/shopspring/decimal"

	"finflow/internal/analytics"
	"finflow/internal/columns"
	"finflow/internal/core"
	"finflow/internal/services"
	"finflow/internal/session"
)

const previewRows = 5

type indexView struct {
	Title         string
	Error         string
	ImportEnabled bool
	MaxUploadMB   int64
	Extensions    []string
	TemplateFile  string
	SheetsRange   string
}

type fieldChoice struct {
	Field    string
	Label    string
	Required bool
	Selected string
}

type mappingView struct {
	Title    string
	Error    string
	FileName string
	Headers  []string
	Preview  [][]string
	Fields   []fieldChoice
	Missing  []string
}

// newMappingView describes the mapping form. submitted, when non-nil, takes
// precedence over the session's mapping so a rejected form keeps its values.
func newMappingView(sess *session.Session, submitted map[columns.Field]string, msg string) mappingView {
	required := make(map[columns.Field]bool)
	for _, f := range columns.Required() {
		required[f] = true
	}
	v := mappingView{
		Title:    "Mapeamento de colunas",
		Error:    msg,
		FileName: sess.Table.Name,
		Headers:  sess.Mapping.Headers(),
		Preview:  sess.Table.Preview(previewRows),
	}
	if len(v.Headers) == 0 {
		v.Headers = sess.Table.Headers
	}
	selections := sess.Mapping.Selections()
	for _, f := range columns.Fields() {
		selected := selections[f]
		if col, ok := submitted[f]; ok {
			selected = col
		}
		v.Fields = append(v.Fields, fieldChoice{
			Field:    string(f),
			Label:    f.Label(),
			Required: required[f],
			Selected: selected,
		})
	}
	for _, f := range sess.Mapping.Missing(columns.Required()) {
		v.Missing = append(v.Missing, f.Label())
	}
	return v
}

type periodOption struct {
	Value    string
	Label    string
	Selected bool
}

type dashboardView struct {
	Title      string
	FileName   string
	D          services.Dashboard
	Query      DashboardQuery
	Periods    []periodOption
	Types      []core.TxType
	ExportURL  string
	DetailRows []core.Transaction
	Truncated  int
	Charts     chartData
}

// detailLimit bounds the rows rendered in the HTML table; the export carries
// all of them.
const detailLimit = 500

func newDashboardView(sess *session.Session, d services.Dashboard, q DashboardQuery) dashboardView {
	v := dashboardView{
		Title:     "Painel financeiro",
		FileName:  sess.Table.Name,
		D:         d,
		Query:     q,
		Types:     core.TxTypes(),
		ExportURL: "/export.xlsx?" + q.Values().Encode(),
		Charts:    newChartData(d),
	}
	for _, g := range analytics.Granularities() {
		v.Periods = append(v.Periods, periodOption{Value: string(g), Label: g.Label(), Selected: g == d.Request.Period})
	}
	v.DetailRows = d.Detail
	if len(v.DetailRows) > detailLimit {
		v.Truncated = len(v.DetailRows) - detailLimit
		v.DetailRows = v.DetailRows[:detailLimit]
	}
	return v
}

// chartData is embedded in the dashboard page as JSON and drawn client side.
type chartData struct {
	Series     seriesChart `json:"series"`
	Types      []slice     `json:"types"`
	Categories []slice     `json:"categories"`
	Top        []slice     `json:"top"`
	Focus      string      `json:"focus"`
	Timeline   seriesChart `json:"timeline"`
}

type seriesChart struct {
	Labels  []string  `json:"labels"`
	Income  []float64 `json:"income"`
	Expense []float64 `json:"expense"`
	Balance []float64 `json:"balance,omitempty"`
}

type slice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Group string  `json:"group,omitempty"`
}

func newChartData(d services.Dashboard) chartData {
	c := chartData{Focus: d.Focus}
	for _, p := range d.Periods {
		c.Series.Labels = append(c.Series.Labels, periodLabel(p.Start, d.Request.Period))
		c.Series.Income = append(c.Series.Income, p.Income.InexactFloat64())
		c.Series.Expense = append(c.Series.Expense, p.Expense.InexactFloat64())
		c.Series.Balance = append(c.Series.Balance, p.Total.InexactFloat64())
	}
	for _, b := range d.Composition {
		c.Types = append(c.Types, slice{Label: b.Type.Label(), Value: b.Total.InexactFloat64()})
		for _, cat := range b.Categories {
			c.Categories = append(c.Categories, slice{Label: cat.Category, Value: cat.Total.Abs().InexactFloat64(), Group: b.Type.Label()})
		}
	}
	for _, t := range d.TopCategories {
		c.Top = append(c.Top, slice{Label: t.Category, Value: t.Total.InexactFloat64()})
	}
	for _, p := range d.Timeline {
		c.Timeline.Labels = append(c.Timeline.Labels, p.Date.Format("02/01/2006"))
		c.Timeline.Income = append(c.Timeline.Income, p.Income.InexactFloat64())
		c.Timeline.Expense = append(c.Timeline.Expense, p.Expense.InexactFloat64())
	}
	return c
}

func periodLabel(d core.Date, g analytics.Granularity) string {
	if g == analytics.Month {
		return d.Format("01/2006")
	}
	return d.Format("02/01/2006")
}

// apiDashboard is the JSON shape of /api/dashboard.
type apiDashboard struct {
	Summary       analytics.Summary         `json:"summary"`
	Period        analytics.Granularity     `json:"period"`
	Periods       []analytics.PeriodTotal   `json:"periods"`
	Change        analytics.PeriodChange    `json:"change"`
	TopCategories []analytics.CategoryTotal `json:"top_categories"`
	Composition   []analytics.TypeBranch    `json:"composition"`
	Focus         string                    `json:"focus"`
	Timeline      []analytics.TimelinePoint `json:"timeline"`
	Detail        []apiTransaction          `json:"detail"`
	Bounds        analytics.Range           `json:"bounds"`
	Categories    []string                  `json:"categories"`
	Total         int                       `json:"total"`
	Empty         bool                      `json:"empty"`
	DetailEmpty   bool                      `json:"detail_empty"`
}

type apiTransaction struct {
	Date        core.Date       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Type        core.TxType     `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Row         int             `json:"row"`
}

func newAPIDashboard(d services.Dashboard) apiDashboard {
	out := apiDashboard{
		Summary:       d.Summary,
		Period:        d.Request.Period,
		Periods:       nonNil(d.Periods),
		Change:        d.Change,
		TopCategories: nonNil(d.TopCategories),
		Composition:   nonNil(d.Composition),
		Focus:         d.Focus,
		Timeline:      nonNil(d.Timeline),
		Detail:        make([]apiTransaction, 0, len(d.Detail)),
		Bounds:        d.Bounds,
		Categories:    nonNil(d.Categories),
		Total:         d.Total,
		Empty:         d.Empty,
		DetailEmpty:   d.DetailEmpty,
	}
	for _, tx := range d.Detail {
		out.Detail = append(out.Detail, apiTransaction{
			Date: tx.Date, Amount: tx.Amount, Type: tx.Type,
			Category: tx.Category, Description: tx.Description, Row: tx.Row,
		})
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
