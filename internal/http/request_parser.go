// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of dashboard filter parameters and mapping
// form submissions.

package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finflow/internal/analytics"
	"finflow/internal/columns"
	"finflow/internal/core"
	"finflow/internal/filter"
	"finflow/internal/services"
)

// ErrInvalidFilter is returned for filter parameters that cannot be parsed.
var ErrInvalidFilter = errors.New("invalid filter")

var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// DashboardQuery holds the raw filter parameters of a dashboard request. It
// is echoed back into the filter form and the export link.
type DashboardQuery struct {
	From       string
	To         string
	Period     string
	Categories []string
	Types      []string
	// TypesSet marks that the type checkboxes were submitted, so an empty
	// Types means "no type" rather than "any type".
	TypesSet bool
	Min      string
	Max      string
	Focus    string
}

// ParseDashboardQuery reads filter parameters from a query string.
func ParseDashboardQuery(q url.Values) DashboardQuery {
	return DashboardQuery{
		From:       strings.TrimSpace(q.Get("from")),
		To:         strings.TrimSpace(q.Get("to")),
		Period:     strings.TrimSpace(q.Get("period")),
		Categories: cleanValues(q["category"]),
		Types:      cleanValues(q["type"]),
		TypesSet:   q.Has("types_set"),
		Min:        strings.TrimSpace(q.Get("min")),
		Max:        strings.TrimSpace(q.Get("max")),
		Focus:      sanitizeInput(q.Get("focus")),
	}
}

// Request converts the parameters into a pipeline request. An empty category
// selection is unrestricted; the type selection is explicit once TypesSet.
func (q DashboardQuery) Request(defaultPeriod analytics.Granularity, topN int) (services.Request, error) {
	req := services.Request{Period: defaultPeriod, TopN: topN, Focus: q.Focus}

	if q.Period != "" {
		g, err := analytics.ParseGranularity(q.Period)
		if err != nil {
			return services.Request{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		req.Period = g
	}

	var err error
	if req.Criteria.From, err = parseDateParam("from", q.From); err != nil {
		return services.Request{}, err
	}
	if req.Criteria.To, err = parseDateParam("to", q.To); err != nil {
		return services.Request{}, err
	}
	if req.Criteria.MinAmount, err = parseAmountParam("min", q.Min); err != nil {
		return services.Request{}, err
	}
	if req.Criteria.MaxAmount, err = parseAmountParam("max", q.Max); err != nil {
		return services.Request{}, err
	}

	if len(q.Categories) > 0 {
		req.Criteria.Categories = filter.Only(q.Categories...)
	}
	if q.TypesSet || len(q.Types) > 0 {
		types := make([]core.TxType, 0, len(q.Types))
		for _, v := range q.Types {
			t, err := core.ParseTxType(v)
			if err != nil || t == "" {
				return services.Request{}, fmt.Errorf("%w: type %q", ErrInvalidFilter, v)
			}
			types = append(types, t)
		}
		req.Criteria.Types = filter.Only(types...)
	}
	return req, nil
}

// Values encodes the query back into URL parameters.
func (q DashboardQuery) Values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("from", q.From)
	set("to", q.To)
	set("period", q.Period)
	set("min", q.Min)
	set("max", q.Max)
	set("focus", q.Focus)
	for _, c := range q.Categories {
		v.Add("category", c)
	}
	for _, t := range q.Types {
		v.Add("type", t)
	}
	if q.TypesSet {
		v.Set("types_set", "1")
	}
	return v
}

// HasCategory reports whether c was selected, for the filter form.
func (q DashboardQuery) HasCategory(c string) bool {
	for _, v := range q.Categories {
		if v == c {
			return true
		}
	}
	return false
}

// HasType reports whether t is checked in the filter form. Without an
// explicit selection every type is checked.
func (q DashboardQuery) HasType(t core.TxType) bool {
	if !q.TypesSet && len(q.Types) == 0 {
		return true
	}
	for _, v := range q.Types {
		if parsed, err := core.ParseTxType(v); err == nil && parsed == t {
			return true
		}
	}
	return false
}

func parseDateParam(name, value string) (core.Date, error) {
	if value == "" {
		return core.Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return core.DateOf(t), nil
		}
	}
	return core.Date{}, fmt.Errorf("%w: %s date %q", ErrInvalidFilter, name, value)
}

func parseAmountParam(name, value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, err := core.ParseAmount(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s amount %q", ErrInvalidFilter, name, value)
	}
	return &d, nil
}

// ParseSelections reads the manual mapping form. Every canonical field present
// in the form is returned, blank values included: a blank selection clears the
// field.
func ParseSelections(form url.Values) map[columns.Field]string {
	out := make(map[columns.Field]string)
	for _, f := range columns.Fields() {
		if vals, ok := form[string(f)]; ok && len(vals) > 0 {
			out[f] = sanitizeInput(vals[0])
		}
	}
	return out
}

func cleanValues(in []string) []string {
	var out []string
	for _, v := range in {
		if v = sanitizeInput(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *ResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *ResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}
