package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1000", "1000", true},
		{"-200", "-200", true},
		{"+15.5", "15.5", true},
		{"1,23", "1.23", true},
		{"1.234,56", "1234.56", true},
		{"1,234.56", "1234.56", true},
		{"1.234.567", "1234567", true},
		{"1,234", "1234", true},
		{"R$ 1.000,00", "1000", true},
		{"-R$ 50,10", "-50.1", true},
		{"(200)", "-200", true},
		{"200-", "-200", true},
		{"1.5E+3", "1500", true},
		{"1.000", "1000", true},
		{"-12.345", "-12345", true},
		{"0.125", "0.125", true},
		{"1.5", "1.5", true},
		{" 2.50 ", "2.5", true},
		{" 3,00", "3", true},
		{"", "", false},
		{"abc", "", false},
		{"1.2,3,4", "", false},
		{"R$", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			if err == nil {
				t.Fatalf("%q expected error, got %s", tc.in, got)
			}
			if !errors.Is(err, ErrMalformedAmount) {
				t.Fatalf("%q expected ErrMalformedAmount, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q unexpected error: %v", tc.in, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("%q expected %s, got %s", tc.in, tc.out, got)
		}
	}
}

func TestParseRawAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"1.125", "1.125"},
		{"1.000", "1"},
		{"-3E+2", "-300"},
		{"R$ 1.234,56", "1234.56"},
	}
	for _, tc := range cases {
		got, err := ParseRawAmount(tc.in)
		if err != nil {
			t.Fatalf("%q unexpected error: %v", tc.in, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("%q expected %s, got %s", tc.in, tc.out, got)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in     string
		symbol string
		out    string
	}{
		{"0", "R$", "R$ 0,00"},
		{"1234.5", "R$", "R$ 1.234,50"},
		{"-200", "R$", "-R$ 200,00"},
		{"1234567.891", "", "1.234.567,89"},
		{"999.999", "€", "€ 1.000,00"},
	}
	for _, tc := range cases {
		if got := FormatMoney(decimal.RequireFromString(tc.in), tc.symbol); got != tc.out {
			t.Fatalf("FormatMoney(%s) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(decimal.RequireFromString("12.345")); got != "12,3%" {
		t.Fatalf("got %q", got)
	}
	if got := FormatPercent(decimal.RequireFromString("-50")); got != "-50,0%" {
		t.Fatalf("got %q", got)
	}
}
