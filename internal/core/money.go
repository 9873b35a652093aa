// Package core provides the transaction domain model plus money parsing and
// formatting utilities.
package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyMarks = []string{"R$", "US$", "BRL", "USD", "EUR", "GBP", "$", "€", "£"}

// dotGrouped matches integers grouped with dots, e.g. 1.000 or -12.345.678.
var dotGrouped = regexp.MustCompile(`^[+-]?[1-9][0-9]{0,2}(\.[0-9]{3})+$`)

// ParseAmount converts a spreadsheet amount cell to a signed decimal.
//
// It accepts dot (1234.56) and comma (1234,56) decimal separators, thousands
// grouping in either convention (1.234,56 and 1,234.56), a leading or
// trailing minus sign, accounting parentheses and common currency marks.
//
// Text is read the pt-BR way: "1.000" is one thousand, as "1,000" is. Use
// ParseRawAmount for machine-formatted numbers such as raw workbook cells.
//
// Examples:
//
//	ParseAmount("1000")        -> 1000
//	ParseAmount("R$ 1.234,56") -> 1234.56
//	ParseAmount("(200)")       -> -200
//	ParseAmount("1.000")       -> 1000
//	ParseAmount("1.5E+3")      -> 1500
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrMalformedAmount)
	}
	if dotGrouped.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d, nil
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	for _, mark := range currencyMarks {
		s = strings.ReplaceAll(s, mark, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	switch {
	case strings.HasPrefix(s, "-"):
		neg = !neg
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasSuffix(s, "-"):
		neg = !neg
		s = s[:len(s)-1]
	}
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}

	s = normalizeSeparators(s)
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// ParseRawAmount reads a machine-formatted number ("1.125", "-3E+2") as is and
// falls back to ParseAmount for anything else.
func ParseRawAmount(s string) (decimal.Decimal, error) {
	if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
		return d, nil
	}
	return ParseAmount(s)
}

// normalizeSeparators rewrites grouping and decimal marks so that the result
// uses a single '.' as decimal separator and no grouping.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")

	switch {
	case commas > 0 && dots > 0:
		if lastComma > lastDot {
			// 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		// 1,234.56
		return strings.ReplaceAll(s, ",", "")
	case commas == 1:
		// "1,5" is a decimal, "1,234" is grouping
		if len(s)-lastComma-1 == 3 {
			return strings.Replace(s, ",", "", 1)
		}
		return strings.Replace(s, ",", ".", 1)
	case commas > 1:
		return strings.ReplaceAll(s, ",", "")
	case dots > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// FormatMoney renders d with two decimals, '.' grouping and ',' decimal mark,
// e.g. "R$ 1.234,56" or "-R$ 200,00".
func FormatMoney(d decimal.Decimal, symbol string) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String() + "," + frac
	if symbol != "" {
		out = symbol + " " + out
	}
	if neg {
		return "-" + out
	}
	return out
}

// FormatPercent renders p with one decimal, e.g. "12,5%".
func FormatPercent(p decimal.Decimal) string {
	return strings.Replace(p.StringFixed(1), ".", ",", 1) + "%"
}
