package normalize

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finflow/internal/columns"
	"finflow/internal/core"
	"finflow/internal/ingest"
)

func table(headers []string, rows ...[]string) ingest.Table {
	return ingest.Table{Name: "test.csv", Headers: headers, Rows: rows}
}

func normalize(t *testing.T, tbl ingest.Table) ([]core.Transaction, error) {
	t.Helper()
	return Normalize(tbl, columns.Resolve(tbl.Headers, columns.DefaultRules()), Options{})
}

func TestNormalize_ExampleScenario(t *testing.T) {
	tbl := table([]string{"Date", "Amount", "Type", "Category"},
		[]string{"2023-01-01", "1000", "Income", "Sales"},
		[]string{"2023-01-02", "-200", "Expense", "Marketing"},
	)
	txs, err := normalize(t, tbl)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, core.NewDate(2023, 1, 1), txs[0].Date)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, core.Income, txs[0].Type)
	assert.Equal(t, "Sales", txs[0].Category)
	assert.Equal(t, 2, txs[0].Row)

	assert.True(t, txs[1].Amount.Equal(decimal.NewFromInt(-200)))
	assert.Equal(t, core.Expense, txs[1].Type)
	assert.Equal(t, 3, txs[1].Row)

	for _, tx := range txs {
		assert.NoError(t, tx.Validate())
	}
}

func TestNormalize_TypeColumnIsAuthoritative(t *testing.T) {
	tbl := table([]string{"Data", "Valor", "Tipo"},
		[]string{"01/02/2023", "150", "Despesa"},
		[]string{"02/02/2023", "-80", "Receita"},
		[]string{"03/02/2023", "-30", ""},
		[]string{"04/02/2023", "30", " "},
	)
	txs, err := normalize(t, tbl)
	require.NoError(t, err)
	require.Len(t, txs, 4)

	assert.Equal(t, core.Expense, txs[0].Type)
	assert.Equal(t, "-150", txs[0].Amount.String())
	assert.Equal(t, core.Income, txs[1].Type)
	assert.Equal(t, "80", txs[1].Amount.String())
	// blank type cell falls back to the sign
	assert.Equal(t, core.Expense, txs[2].Type)
	assert.Equal(t, core.Income, txs[3].Type)
}

func TestNormalize_SignDecidesWithoutTypeColumn(t *testing.T) {
	tbl := table([]string{"Data", "Valor"},
		[]string{"2023-01-01", "R$ 1.234,56"},
		[]string{"2023-01-02", "(200,00)"},
		[]string{"2023-01-03", "0"},
	)
	txs, err := normalize(t, tbl)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.Equal(t, core.Income, txs[0].Type)
	assert.Equal(t, "1234.56", txs[0].Amount.String())
	assert.Equal(t, core.Expense, txs[1].Type)
	assert.Equal(t, core.Income, txs[2].Type)
	assert.Equal(t, core.Uncategorized, txs[0].Category)
	assert.Equal(t, "", txs[0].Description)
}

func TestNormalize_DotGroupingDependsOnSource(t *testing.T) {
	headers := []string{"Data", "Valor"}
	row := []string{"2023-01-01", "1.000"}

	txs, err := normalize(t, table(headers, row))
	require.NoError(t, err)
	assert.Equal(t, "1000", txs[0].Amount.String(), "typed text reads dots as grouping")

	raw := table(headers, []string{"2023-01-01", "1.125"})
	raw.Raw = true
	txs, err = normalize(t, raw)
	require.NoError(t, err)
	assert.Equal(t, "1.125", txs[0].Amount.String(), "workbook numbers keep their decimals")
}

func TestNormalize_SkipsBlankRows(t *testing.T) {
	tbl := table([]string{"Data", "Valor", "Descrição"},
		[]string{"2023-01-01", "10", "a"},
		[]string{"", " ", ""},
		[]string{"2023-01-03", "20", "b"},
	)
	txs, err := normalize(t, tbl)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, 4, txs[1].Row)
	assert.Equal(t, "b", txs[1].Description)
}

func TestNormalize_Unresolved(t *testing.T) {
	tbl := table([]string{"Quando", "Valor"}, []string{"2023-01-01", "10"})
	_, err := normalize(t, tbl)
	assert.ErrorIs(t, err, core.ErrUnresolvedColumn)
	assert.ErrorContains(t, err, "date")
}

func TestNormalize_RowErrors(t *testing.T) {
	tbl := table([]string{"Data", "Valor", "Tipo"},
		[]string{"2023-01-01", "10", "Receita"},
		[]string{"ontem", "10", "Receita"},
		[]string{"2023-01-03", "dez", "Receita"},
		[]string{"2023-01-04", "10", "Transferência"},
	)
	_, err := normalize(t, tbl)
	require.Error(t, err)

	assert.ErrorIs(t, err, core.ErrMalformedDate)
	assert.ErrorIs(t, err, core.ErrMalformedAmount)
	assert.ErrorIs(t, err, core.ErrInvalidType)

	var nerr *Error
	require.True(t, errors.As(err, &nerr))
	require.Len(t, nerr.Rows, 3)

	var rowErr *core.RowError
	require.True(t, errors.As(nerr.Rows[0], &rowErr))
	assert.Equal(t, 3, rowErr.Row)
	assert.Equal(t, "Data", rowErr.Column)
	assert.Equal(t, "ontem", rowErr.Value)
	assert.Contains(t, err.Error(), `row 3, column "Data", value "ontem"`)
}

func TestNormalize_MaxErrors(t *testing.T) {
	var rows [][]string
	for i := 0; i < 10; i++ {
		rows = append(rows, []string{"x", "1"})
	}
	tbl := table([]string{"Data", "Valor"}, rows...)
	_, err := Normalize(tbl, columns.Resolve(tbl.Headers, columns.DefaultRules()), Options{MaxErrors: 3})

	var nerr *Error
	require.True(t, errors.As(err, &nerr))
	assert.Len(t, nerr.Rows, 3)
	assert.True(t, nerr.Truncated)
	assert.Contains(t, nerr.Error(), "further errors omitted")
}

func TestNormalize_ManualOverride(t *testing.T) {
	tbl := table([]string{"Quando", "Quanto"}, []string{"15/03/2023", "-5"})
	m, err := columns.Override(columns.Resolve(tbl.Headers, columns.DefaultRules()), map[columns.Field]string{
		columns.Date:   "Quando",
		columns.Amount: "Quanto",
	})
	require.NoError(t, err)

	txs, err := Normalize(tbl, m, Options{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, core.NewDate(2023, 3, 15), txs[0].Date)
	assert.Equal(t, core.Expense, txs[0].Type)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in         string
		date1904   bool
		monthFirst bool
		want       core.Date
	}{
		{"2023-01-15", false, false, core.NewDate(2023, 1, 15)},
		{"2023-01-15 13:45:00", false, false, core.NewDate(2023, 1, 15)},
		{"2023-01-15T13:45:00Z", false, false, core.NewDate(2023, 1, 15)},
		{"05/01/2023", false, false, core.NewDate(2023, 1, 5)},
		{"05/01/2023", false, true, core.NewDate(2023, 5, 1)},
		{"5/1/2023", false, false, core.NewDate(2023, 1, 5)},
		{"05-01-2023", false, false, core.NewDate(2023, 1, 5)},
		{"05.01.2023", false, false, core.NewDate(2023, 1, 5)},
		{"2023/01/05", false, false, core.NewDate(2023, 1, 5)},
		{"20230105", false, false, core.NewDate(2023, 1, 5)},
		{"44927", false, false, core.NewDate(2023, 1, 1)},
		{"44927.75", false, false, core.NewDate(2023, 1, 1)},
		{"43465", true, false, core.NewDate(2023, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in, tt.date1904, tt.monthFirst)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_Malformed(t *testing.T) {
	for _, in := range []string{"", "ontem", "31/02/2023", "2023-13-01", "-5", "abc123"} {
		_, err := ParseDate(in, false, false)
		assert.ErrorIs(t, err, core.ErrMalformedDate, "input %q", in)
	}
}
