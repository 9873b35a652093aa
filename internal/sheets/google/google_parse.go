package google

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	spreadsheetURL = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	spreadsheetKey = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,}$`)
)

// SpreadsheetID accepts either a bare spreadsheet id or a docs.google.com
// URL and returns the id.
func SpreadsheetID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("missing spreadsheet id")
	}
	if m := spreadsheetURL.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	if spreadsheetKey.MatchString(s) {
		return s, nil
	}
	return "", fmt.Errorf("invalid spreadsheet id %q", s)
}

// valuesToRows converts the API's value matrix to strings.
func valuesToRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = toStrings(row)
	}
	return rows
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[i] = strconv.FormatBool(x)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}
