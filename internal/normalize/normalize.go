// Package normalize coerces a raw table into typed transactions according to
// a column mapping.
package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"finflow/internal/columns"
	"finflow/internal/core"
	"finflow/internal/ingest"
)

const DefaultMaxErrors = 20

type Options struct {
	// MonthFirst reads ambiguous slash dates as 01/02/2006 instead of 02/01/2006.
	MonthFirst bool
	// MaxErrors caps how many row errors are collected before giving up.
	MaxErrors int
}

// Error aggregates the row errors of a failed normalization.
type Error struct {
	Rows      []error
	Truncated bool
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Rows))
	for i, err := range e.Rows {
		msgs[i] = err.Error()
	}
	s := fmt.Sprintf("%d invalid row(s): %s", len(e.Rows), strings.Join(msgs, "; "))
	if e.Truncated {
		s += "; further errors omitted"
	}
	return s
}

func (e *Error) Unwrap() []error {
	return e.Rows
}

// Normalize converts every non-blank row of t to a Transaction. Any row error
// fails the whole table.
func Normalize(t ingest.Table, m columns.Mapping, opts Options) ([]core.Transaction, error) {
	if missing := m.Missing(columns.Required()); len(missing) > 0 {
		return nil, columns.MissingError(missing)
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = DefaultMaxErrors
	}
	p := parser{table: t, mapping: m, opts: opts}

	txs := make([]core.Transaction, 0, len(t.Rows))
	agg := &Error{}
	for i, row := range t.Rows {
		if blankRow(row) {
			continue
		}
		tx, err := p.row(ingest.SheetRow(i), row)
		if err != nil {
			if len(agg.Rows) == opts.MaxErrors {
				agg.Truncated = true
				break
			}
			agg.Rows = append(agg.Rows, err)
			continue
		}
		txs = append(txs, tx)
	}
	if len(agg.Rows) > 0 {
		return nil, agg
	}
	return txs, nil
}

type parser struct {
	table   ingest.Table
	mapping columns.Mapping
	opts    Options
}

func (p parser) cell(row []string, f columns.Field) string {
	i := p.mapping.Index(f)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (p parser) fail(rowNum int, f columns.Field, value string, err error) error {
	return &core.RowError{Row: rowNum, Column: p.mapping.Column(f), Value: value, Err: err}
}

func (p parser) row(rowNum int, row []string) (core.Transaction, error) {
	rawDate := p.cell(row, columns.Date)
	date, err := ParseDate(rawDate, p.table.Date1904, p.opts.MonthFirst)
	if err != nil {
		return core.Transaction{}, p.fail(rowNum, columns.Date, rawDate, err)
	}

	rawAmount := p.cell(row, columns.Amount)
	parseAmount := core.ParseAmount
	if p.table.Raw {
		parseAmount = core.ParseRawAmount
	}
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return core.Transaction{}, p.fail(rowNum, columns.Amount, rawAmount, core.ErrMalformedAmount)
	}

	rawType := p.cell(row, columns.Type)
	typ, err := core.ParseTxType(rawType)
	if err != nil {
		return core.Transaction{}, p.fail(rowNum, columns.Type, rawType, core.ErrInvalidType)
	}
	switch typ {
	case core.Income:
		amount = amount.Abs()
	case core.Expense:
		amount = amount.Abs().Neg()
	default:
		typ = core.Income
		if amount.IsNegative() {
			typ = core.Expense
		}
	}

	category := p.cell(row, columns.Category)
	if category == "" {
		category = core.Uncategorized
	}

	tx := core.Transaction{
		Date:        date,
		Amount:      amount,
		Type:        typ,
		Category:    category,
		Description: p.cell(row, columns.Description),
		Row:         rowNum,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, p.fail(rowNum, columns.Amount, rawAmount, err)
	}
	return tx, nil
}

var dayFirstLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02/01/2006 15:04:05",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
	"20060102",
	"02/01/06",
}

var monthFirstLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"01/02/2006 15:04:05",
	"1/2/2006",
	"01-02-2006",
	"01.02.2006",
	"2006/01/02",
	"20060102",
	"01/02/06",
}

// ParseDate reads a date cell: an Excel serial number in the 1900 or 1904
// system, or one of the common textual layouts. The time of day is dropped.
func ParseDate(s string, date1904, monthFirst bool) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, fmt.Errorf("%w: empty", core.ErrMalformedDate)
	}

	// 20060102 is all digits too; serials stay well below that range
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 2958466 {
		tm, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return core.Date{}, fmt.Errorf("%w: %v", core.ErrMalformedDate, err)
		}
		return checked(core.DateOf(tm))
	}

	layouts := dayFirstLayouts
	if monthFirst {
		layouts = monthFirstLayouts
	}
	for _, layout := range layouts {
		if tm, err := time.Parse(layout, s); err == nil {
			return checked(core.DateOf(tm))
		}
	}
	return core.Date{}, core.ErrMalformedDate
}

func checked(d core.Date) (core.Date, error) {
	if err := d.Validate(); err != nil {
		return core.Date{}, errors.Join(core.ErrMalformedDate, err)
	}
	return d, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
