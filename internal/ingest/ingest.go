// Package ingest reads uploaded spreadsheets into an in-memory table of
// string cells and writes the workbooks the app hands back to users.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"finflow/internal/core"
)

// Table is a header row plus data rows, every row padded to len(Headers).
type Table struct {
	Name     string
	Headers  []string
	Rows     [][]string
	Date1904 bool // workbook uses the 1904 date system
	// Raw marks cells holding machine-formatted numbers (workbooks), as
	// opposed to text typed by a person (CSV, Sheets formatted values).
	Raw bool
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// SheetRow converts a data row index to the 1-based spreadsheet row number.
func SheetRow(i int) int {
	return i + 2
}

// Clone returns a deep copy so sessions never share cell storage.
func (t Table) Clone() Table {
	out := Table{Name: t.Name, Date1904: t.Date1904, Raw: t.Raw, Headers: append([]string(nil), t.Headers...)}
	out.Rows = make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}

// Preview returns at most n data rows.
func (t Table) Preview(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

var ErrUnsupportedFormat = errors.New("unsupported file format")

// Extensions lists the upload formats Read understands.
func Extensions() []string {
	return []string{".xlsx", ".xls", ".csv"}
}

// Read parses an uploaded file, dispatching on the extension of name. Every
// failure wraps core.ErrFileRead.
func Read(name string, r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("%w: read %s: %v", core.ErrFileRead, name, err)
	}
	if len(data) == 0 {
		return Table{}, fmt.Errorf("%w: %s is empty", core.ErrFileRead, name)
	}

	var rows [][]string
	var date1904 bool
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".xlsx":
		rows, date1904, err = parseXLSX(data)
	case ".xls":
		rows, err = parseXLS(data)
	case ".csv":
		rows, err = parseCSV(data)
	default:
		err = fmt.Errorf("%w %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return Table{}, fmt.Errorf("%w: %s: %v", core.ErrFileRead, name, err)
	}

	t, err := fromRows(rows)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %s: %v", core.ErrFileRead, name, err)
	}
	t.Name = name
	t.Date1904 = date1904
	t.Raw = ext == ".xlsx" || ext == ".xls"
	return t, nil
}

// FromValues builds a table from an already split matrix whose first row is
// the header, e.g. values fetched from a remote spreadsheet.
func FromValues(name string, rows [][]string) (Table, error) {
	t, err := fromRows(rows)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %s: %v", core.ErrFileRead, name, err)
	}
	t.Name = name
	return t, nil
}

// parseXLSX reads the first sheet with raw cell values, so dates arrive as
// serial numbers and amounts without display formatting.
func parseXLSX(data []byte) ([][]string, bool, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, false, err
	}
	defer xl.Close()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, false, errors.New("workbook has no sheets")
	}
	rows, err := xl.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, false, err
	}

	date1904 := false
	if props, err := xl.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	return rows, date1904, nil
}

func parseCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode csv: %w", err)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

// sniffDelimiter picks the most frequent of ',', ';' and tab on the first
// non-blank line.
func sniffDelimiter(data []byte) rune {
	var line []byte
	for _, l := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(l)) > 0 {
			line = l
			break
		}
	}
	best, bestCount := ',', 0
	for _, c := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func fromRows(rows [][]string) (Table, error) {
	start := -1
	for i, r := range rows {
		if !blank(r) {
			start = i
			break
		}
	}
	if start < 0 {
		return Table{}, errors.New("no header row")
	}

	headers := uniqueHeaders(rows[start])
	t := Table{Headers: headers}
	for _, r := range rows[start+1:] {
		row := make([]string, len(headers))
		for j := 0; j < len(headers) && j < len(r); j++ {
			row[j] = strings.TrimSpace(r[j])
		}
		t.Rows = append(t.Rows, row)
	}
	// drop trailing blank rows
	for len(t.Rows) > 0 && blank(t.Rows[len(t.Rows)-1]) {
		t.Rows = t.Rows[:len(t.Rows)-1]
	}
	if len(t.Rows) == 0 {
		return Table{}, errors.New("file must have at least one data row")
	}
	return t, nil
}

func uniqueHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Column " + strconv.Itoa(i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = h + " (" + strconv.Itoa(n) + ")"
		}
		out[i] = h
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
