package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TxType = "Income"
	Expense TxType = "Expense"
)

// Uncategorized labels transactions whose category cell is blank.
const Uncategorized = "Sem categoria"

type (
	// TxType is the direction of a transaction.
	TxType string

	Date struct {
		time.Time
	}

	Transaction struct {
		Date        Date
		Amount      decimal.Decimal // signed: Income > 0, Expense < 0
		Type        TxType
		Category    string
		Description string
		Row         int // 1-based row in the source sheet, header is row 1
	}
)

var (
	ErrFileRead         = errors.New("file read error")
	ErrMalformedDate    = errors.New("malformed date")
	ErrMalformedAmount  = errors.New("malformed amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrUnresolvedColumn = errors.New("unresolved column")
	ErrUnknownColumn    = errors.New("unknown column")
	ErrInvalidDay       = errors.New("invalid day")
)

// TxTypes lists the transaction types in display order.
func TxTypes() []TxType {
	return []TxType{Income, Expense}
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// Label returns the Portuguese label used on the dashboard.
func (t TxType) Label() string {
	switch t {
	case Income:
		return "Receita"
	case Expense:
		return "Despesa"
	}
	return string(t)
}

var (
	incomeWords  = []string{"receita", "receitas", "income", "entrada", "entradas", "credito", "credit", "revenue", "ganho", "in"}
	expenseWords = []string{"despesa", "despesas", "expense", "expenses", "saida", "saidas", "debito", "debit", "gasto", "custo", "out"}
)

// ParseTxType matches a type cell against the known vocabulary, ignoring
// case and accents. Blank input returns ("", nil) so callers can fall back
// to the amount sign.
func ParseTxType(s string) (TxType, error) {
	f := Fold(s)
	if f == "" {
		return "", nil
	}
	for _, w := range incomeWords {
		if f == w {
			return Income, nil
		}
	}
	for _, w := range expenseWords {
		if f == w {
			return Expense, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, strings.TrimSpace(s))
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	if d.Year() < 1900 || d.Year() > 9999 {
		return ErrInvalidDay
	}
	return nil
}

// Key returns the ISO form used in query strings and JSON.
func (d Date) Key() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// Before/After compare calendar days.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.Key()), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Key() + `"`), nil
}

func (tx Transaction) Validate() error {
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	switch {
	case tx.Type == Income && tx.Amount.IsNegative():
		return fmt.Errorf("%w: income with negative amount", ErrMalformedAmount)
	case tx.Type == Expense && tx.Amount.IsPositive():
		return fmt.Errorf("%w: expense with positive amount", ErrMalformedAmount)
	}
	if strings.TrimSpace(tx.Category) == "" {
		return errors.New("empty category")
	}
	return nil
}

// Abs returns the unsigned amount.
func (tx Transaction) Abs() decimal.Decimal {
	return tx.Amount.Abs()
}

// RowError pins a normalization failure to a cell.
type RowError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %q, value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
