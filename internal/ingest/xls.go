package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/extrame/xls"
)

// parseXLS reads the first sheet of a legacy BIFF workbook. Date cells come
// back from the decoder as RFC 3339 timestamps and are cut to the day.
func parseXLS(data []byte) (rows [][]string, err error) {
	// The decoder panics on some malformed files.
	defer recoverDecode(&err)

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb.NumSheets() == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("workbook has no sheets")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			v := row.Col(j)
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				v = t.Format("2006-01-02")
			}
			cells[j] = v
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// recoverDecode turns a panic in the deferring function into an error.
func recoverDecode(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("corrupt xls: %v", r)
	}
}
