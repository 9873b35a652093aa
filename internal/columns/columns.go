// Package columns maps spreadsheet headers to the canonical transaction
// fields using a keyword rule table, with an optional manual override.
package columns

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"finflow/internal/core"
)

// Field is a canonical transaction attribute.
type Field string

const (
	Date        Field = "date"
	Amount      Field = "amount"
	Type        Field = "type"
	Category    Field = "category"
	Description Field = "description"
)

// Fields returns the canonical fields in resolution order.
func Fields() []Field {
	return []Field{Date, Amount, Type, Category, Description}
}

// Required returns the fields without which a table cannot be normalized.
func Required() []Field {
	return []Field{Date, Amount}
}

// Label returns the Portuguese caption shown on the mapping form.
func (f Field) Label() string {
	switch f {
	case Date:
		return "Data"
	case Amount:
		return "Valor Monetário"
	case Type:
		return "Tipo de Transação"
	case Category:
		return "Categoria"
	case Description:
		return "Descrição"
	}
	return string(f)
}

func ParseField(s string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Fields() {
		if f == known {
			return f, true
		}
	}
	return "", false
}

// Rules holds the substrings that identify each field. Keywords are compared
// against folded header names (lower case, no accents).
type Rules map[Field][]string

// DefaultRules is the built-in keyword table.
func DefaultRules() Rules {
	return Rules{
		Date:        {"data", "date", "fecha"},
		Amount:      {"valor", "total", "amount", "value", "montante", "quantia", "importe"},
		Type:        {"tipo", "type", "natureza", "kind"},
		Category:    {"categoria", "category", "classe", "grupo", "group"},
		Description: {"descri", "historico", "memo", "detalhe", "detail", "observa", "nome"},
	}
}

// LoadRules reads a YAML keyword file and merges it over the defaults.
// The file maps field names to keyword lists:
//
//	date: [competencia]
//	amount: [preco, "r$"]
//
// Extra keywords are tried after the built-in ones.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if strings.TrimSpace(path) == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read column rules: %w", err)
	}
	var extra map[string][]string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("parse column rules %s: %w", path, err)
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f, ok := ParseField(k)
		if !ok {
			return nil, fmt.Errorf("parse column rules %s: unknown field %q", path, k)
		}
		for _, kw := range extra[k] {
			if kw = core.Fold(kw); kw != "" {
				rules[f] = append(rules[f], kw)
			}
		}
	}
	return rules, nil
}

// Mapping is the resolved correspondence between canonical fields and source
// columns for one uploaded table. Treat it as immutable: Override returns a
// new value.
type Mapping struct {
	cols map[Field]int
	hdrs []string
}

// Has reports whether f resolved to a source column.
func (m Mapping) Has(f Field) bool {
	_, ok := m.cols[f]
	return ok
}

// Index returns the source column index for f, or -1.
func (m Mapping) Index(f Field) int {
	if i, ok := m.cols[f]; ok {
		return i
	}
	return -1
}

// Column returns the source header for f, or "".
func (m Mapping) Column(f Field) string {
	if i, ok := m.cols[f]; ok {
		return m.hdrs[i]
	}
	return ""
}

// Missing lists the fields of want that did not resolve.
func (m Mapping) Missing(want []Field) []Field {
	var out []Field
	for _, f := range want {
		if !m.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Complete reports whether every required field resolved.
func (m Mapping) Complete() bool {
	return len(m.Missing(Required())) == 0
}

// Headers returns a copy of the header row the mapping was built from.
func (m Mapping) Headers() []string {
	return append([]string(nil), m.hdrs...)
}

// Selections returns field -> column name for every resolved field.
func (m Mapping) Selections() map[Field]string {
	out := make(map[Field]string, len(m.cols))
	for f, i := range m.cols {
		out[f] = m.hdrs[i]
	}
	return out
}

func (m Mapping) String() string {
	parts := make([]string, 0, len(Fields()))
	for _, f := range Fields() {
		col := m.Column(f)
		if col == "" {
			col = "-"
		}
		parts = append(parts, string(f)+"="+col)
	}
	return strings.Join(parts, " ")
}

// Resolve picks, for each field in Fields() order, the first header (in column
// order) whose folded name contains one of the field's keywords. A column
// claimed by an earlier field is skipped; later matches for a field are
// ignored.
func Resolve(headers []string, rules Rules) Mapping {
	m := Mapping{cols: make(map[Field]int), hdrs: append([]string(nil), headers...)}
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = core.Fold(h)
	}
	claimed := make(map[int]bool)
	for _, f := range Fields() {
		for i, name := range folded {
			if claimed[i] || name == "" {
				continue
			}
			if containsAny(name, rules[f]) {
				m.cols[f] = i
				claimed[i] = true
				break
			}
		}
	}
	return m
}

func containsAny(name string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// Override applies explicit user selections over base. A selection naming a
// column absent from the header row fails with core.ErrUnknownColumn; an
// empty selection clears the field. Fields not mentioned keep base's column.
func Override(base Mapping, selections map[Field]string) (Mapping, error) {
	m := Mapping{cols: make(map[Field]int, len(base.cols)), hdrs: base.hdrs}
	for f, i := range base.cols {
		m.cols[f] = i
	}
	for _, f := range Fields() {
		col, ok := selections[f]
		if !ok {
			continue
		}
		col = strings.TrimSpace(col)
		if col == "" {
			delete(m.cols, f)
			continue
		}
		idx := indexOf(base.hdrs, col)
		if idx < 0 {
			return Mapping{}, fmt.Errorf("%w: %q for %s", core.ErrUnknownColumn, col, f)
		}
		m.cols[f] = idx
	}
	return m, nil
}

func indexOf(headers []string, col string) int {
	for i, h := range headers {
		if h == col {
			return i
		}
	}
	return -1
}

// MissingError builds the error returned when required fields are unresolved.
func MissingError(missing []Field) error {
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = string(f)
	}
	return fmt.Errorf("%w: %s", core.ErrUnresolvedColumn, strings.Join(names, ", "))
}
