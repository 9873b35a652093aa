package ingest

import (
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"finflow/internal/core"
)

const (
	TemplateFileName = "modelo_finflow_pro.xlsx"
	ContentTypeXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetName    = "Transações"
	moneyNumFmt  = `#,##0.00`
	dateNumFmt   = 14
	defaultWidth = 18
)

// TemplateHeaders are the canonical column headers of the downloadable model.
func TemplateHeaders() []string {
	return []string{"Date", "Amount", "Type", "Category", "Description", "Account", "Payment Method"}
}

// WriteTemplate writes a workbook with the canonical headers and one example
// row showing the expected cell formats.
func WriteTemplate(w io.Writer) error {
	wb, err := newWorkbook(TemplateHeaders())
	if err != nil {
		return err
	}
	defer wb.f.Close()

	example := []interface{}{
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		1000.00,
		core.Income.Label(),
		"Vendas",
		"Venda de produto",
		"Conta Corrente",
		"Pix",
	}
	if err := wb.row(2, example); err != nil {
		return err
	}
	return wb.write(w)
}

// WriteTransactions exports normalized transactions with canonical headers.
func WriteTransactions(w io.Writer, txs []core.Transaction) error {
	wb, err := newWorkbook([]string{"Date", "Amount", "Type", "Category", "Description"})
	if err != nil {
		return err
	}
	defer wb.f.Close()

	for i, tx := range txs {
		row := []interface{}{
			tx.Date.Time,
			tx.Amount.InexactFloat64(),
			tx.Type.Label(),
			tx.Category,
			tx.Description,
		}
		if err := wb.row(i+2, row); err != nil {
			return err
		}
	}
	return wb.write(w)
}

// SampleOptions tunes GenerateSample.
type SampleOptions struct {
	Rows  int
	Start time.Time
	Rand  *rand.Rand
}

var sampleCategories = []string{"Vendas", "Serviços", "Aluguel", "Salários", "Marketing", "Outros"}

// GenerateSample writes a workbook of random transactions with Portuguese
// headers, one row per day starting at opts.Start. Amounts are uniform in
// [-1000, 2000).
func GenerateSample(w io.Writer, opts SampleOptions) error {
	if opts.Rows <= 0 {
		opts.Rows = 100
	}
	if opts.Start.IsZero() {
		opts.Start = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}

	wb, err := newWorkbook([]string{"Data", "Valor", "Tipo", "Categoria", "Descrição"})
	if err != nil {
		return err
	}
	defer wb.f.Close()

	for i := 0; i < opts.Rows; i++ {
		value := decimal.NewFromFloat(opts.Rand.Float64()*3000 - 1000).Round(2)
		kind := core.Income
		if opts.Rand.IntN(2) == 1 {
			kind = core.Expense
		}
		row := []interface{}{
			opts.Start.AddDate(0, 0, i),
			value.InexactFloat64(),
			kind.Label(),
			sampleCategories[opts.Rand.IntN(len(sampleCategories))],
			fmt.Sprintf("Transação %d", i+1),
		}
		if err := wb.row(i+2, row); err != nil {
			return err
		}
	}
	return wb.write(w)
}

type workbook struct {
	f         *excelize.File
	dateStyle int
	numStyle  int
}

func newWorkbook(headers []string) (*workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	hdr := make([]interface{}, len(headers))
	for i, h := range headers {
		hdr[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &hdr); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(sheetName, "A", lastCol, defaultWidth); err != nil {
		f.Close()
		return nil, fmt.Errorf("column width: %w", err)
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: dateNumFmt})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("date style: %w", err)
	}
	numFmt := moneyNumFmt
	numStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("amount style: %w", err)
	}
	return &workbook{f: f, dateStyle: dateStyle, numStyle: numStyle}, nil
}

// row writes values at the given 1-based row; column A is styled as a date
// and column B as an amount.
func (wb *workbook) row(n int, values []interface{}) error {
	cell, _ := excelize.CoordinatesToCellName(1, n)
	if err := wb.f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", n, err)
	}
	if err := wb.f.SetCellStyle(sheetName, cell, cell, wb.dateStyle); err != nil {
		return fmt.Errorf("style row %d: %w", n, err)
	}
	amount, _ := excelize.CoordinatesToCellName(2, n)
	if err := wb.f.SetCellStyle(sheetName, amount, amount, wb.numStyle); err != nil {
		return fmt.Errorf("style row %d: %w", n, err)
	}
	return nil
}

func (wb *workbook) write(w io.Writer) error {
	if err := wb.f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
