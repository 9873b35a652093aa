package ingest

import (
	"bytes"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"finflow/internal/core"
)

func serialToDate(t *testing.T, cell string, date1904 bool) time.Time {
	t.Helper()
	f, err := strconv.ParseFloat(cell, 64)
	require.NoError(t, err, "cell %q is not a serial", cell)
	tm, err := excelize.ExcelDateToTime(f, date1904)
	require.NoError(t, err)
	return tm
}

func TestRead_CSVSemicolon(t *testing.T) {
	data := "\xef\xbb\xbfData;Valor;Categoria\n01/01/2023;1.000,00;Vendas\n02/01/2023;-200,00;Aluguel\n;;\n"
	tbl, err := Read("extrato.csv", strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, "extrato.csv", tbl.Name)
	assert.Equal(t, []string{"Data", "Valor", "Categoria"}, tbl.Headers)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"01/01/2023", "1.000,00", "Vendas"}, tbl.Rows[0])
	assert.Equal(t, []string{"02/01/2023", "-200,00", "Aluguel"}, tbl.Rows[1])
	assert.False(t, tbl.Raw, "csv cells are text")
}

func TestRead_CSVCommaQuoted(t *testing.T) {
	data := "Date,Amount,Description\n2023-01-01,\"1,234.50\",\"Venda, lote 2\"\n"
	tbl, err := Read("x.CSV", strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "1,234.50", tbl.Rows[0][1])
	assert.Equal(t, "Venda, lote 2", tbl.Rows[0][2])
}

func TestRead_CSVTabAndPadding(t *testing.T) {
	data := "Data\tValor\tTipo\n2023-01-01\t10\n"
	tbl, err := Read("x.csv", strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-01-01", "10", ""}, tbl.Rows[0])
}

func TestRead_CSVLatin1(t *testing.T) {
	// "Descrição" in Windows-1252
	data := []byte("Data;Valor;Descri\xe7\xe3o\n2023-01-01;10;Caf\xe9\n")
	tbl, err := Read("x.csv", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "Descrição", tbl.Headers[2])
	assert.Equal(t, "Café", tbl.Rows[0][2])
}

func TestRead_HeaderCleanup(t *testing.T) {
	data := "\n Data ,,Valor,Valor\n2023-01-01,a,1,2\n"
	tbl, err := Read("x.csv", strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"Data", "Column 2", "Valor", "Valor (2)"}, tbl.Headers)
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"empty", "a.csv", ""},
		{"header only", "a.csv", "Data,Valor\n"},
		{"blank", "a.csv", "\n\n"},
		{"unsupported", "a.txt", "Data,Valor\n1,2\n"},
		{"corrupt xls", "a.xls", "garbage"},
		{"corrupt xlsx", "a.xlsx", "not a zip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(tt.file, strings.NewReader(tt.data))
			assert.ErrorIs(t, err, core.ErrFileRead)
		})
	}
}

func TestRead_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Data", "Valor", "Tipo"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), 1234.5, "Receita"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"16/03/2023", -20, "Despesa"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	tbl, err := Read("book.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Data", "Valor", "Tipo"}, tbl.Headers)
	require.Equal(t, 2, tbl.Len())
	assert.False(t, tbl.Date1904)
	assert.True(t, tbl.Raw)

	assert.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), serialToDate(t, tbl.Rows[0][0], false))
	assert.Equal(t, "1234.5", tbl.Rows[0][1])
	assert.Equal(t, "16/03/2023", tbl.Rows[1][0])
	assert.Equal(t, "-20", tbl.Rows[1][1])
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	tbl, err := Read(TemplateFileName, &buf)
	require.NoError(t, err)
	assert.Equal(t, TemplateHeaders(), tbl.Headers)
	require.Equal(t, 1, tbl.Len())

	row := tbl.Rows[0]
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), serialToDate(t, row[0], false))
	assert.Equal(t, "1000", row[1])
	assert.Equal(t, "Receita", row[2])
	assert.Equal(t, "Vendas", row[3])
}

func TestWriteTransactions(t *testing.T) {
	txs := []core.Transaction{
		{Date: core.NewDate(2023, 1, 2), Amount: decimal.RequireFromString("-200"), Type: core.Expense, Category: "Aluguel"},
		{Date: core.NewDate(2023, 1, 1), Amount: decimal.RequireFromString("1000.25"), Type: core.Income, Category: "Vendas", Description: "lote"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, txs))

	tbl, err := Read("export.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Amount", "Type", "Category", "Description"}, tbl.Headers)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "-200", tbl.Rows[0][1])
	assert.Equal(t, "Despesa", tbl.Rows[0][2])
	assert.Equal(t, "1000.25", tbl.Rows[1][1])
	assert.Equal(t, "lote", tbl.Rows[1][4])
}

func TestGenerateSample(t *testing.T) {
	var buf bytes.Buffer
	opts := SampleOptions{Rows: 30, Rand: rand.New(rand.NewPCG(1, 2))}
	require.NoError(t, GenerateSample(&buf, opts))

	tbl, err := Read("sample.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Data", "Valor", "Tipo", "Categoria", "Descrição"}, tbl.Headers)
	require.Equal(t, 30, tbl.Len())

	first := serialToDate(t, tbl.Rows[0][0], false)
	last := serialToDate(t, tbl.Rows[29][0], false)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), first)
	assert.Equal(t, first.AddDate(0, 0, 29), last)

	for _, row := range tbl.Rows {
		v, err := decimal.NewFromString(row[1])
		require.NoError(t, err)
		assert.True(t, v.GreaterThanOrEqual(decimal.NewFromInt(-1000)) && v.LessThanOrEqual(decimal.NewFromInt(2000)), "value %s", v)
		assert.Contains(t, []string{"Receita", "Despesa"}, row[2])
		assert.Contains(t, sampleCategories, row[3])
	}
	assert.Equal(t, "Transação 1", tbl.Rows[0][4])
}

func TestTableClone(t *testing.T) {
	tbl := Table{Headers: []string{"a"}, Rows: [][]string{{"1"}}}
	c := tbl.Clone()
	c.Rows[0][0] = "2"
	c.Headers[0] = "b"
	assert.Equal(t, "1", tbl.Rows[0][0])
	assert.Equal(t, "a", tbl.Headers[0])
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', sniffDelimiter([]byte("a;b;c\n1,2;3;4")))
	assert.Equal(t, ',', sniffDelimiter([]byte("a,b")))
	assert.Equal(t, '\t', sniffDelimiter([]byte("a\tb\tc")))
	assert.Equal(t, ',', sniffDelimiter([]byte("single")))
}
