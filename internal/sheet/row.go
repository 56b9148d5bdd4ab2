package sheet

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Row is one spreadsheet record keyed by field name.
type Row struct {
	// Index is the 0-based position of the record in the workbook.
	Index int

	columns []string
	values  map[string]string
}

// NewRow builds a row from a field map. Column order follows the sorted
// field names.
func NewRow(index int, values map[string]string) Row {
	r := Row{Index: index, values: make(map[string]string, len(values))}
	for k, v := range values {
		r.values[k] = v
		r.columns = append(r.columns, k)
	}
	sort.Strings(r.columns)
	return r
}

// Value returns the cell for column. Blank cells report absent.
func (r Row) Value(column string) (string, bool) {
	v, ok := r.values[column]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Has reports whether the workbook defines the column at all.
func (r Row) Has(column string) bool {
	_, ok := r.values[column]
	return ok
}

// Columns returns the field names in workbook order.
func (r Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Number is the 1-based row number shown to operators.
func (r Row) Number() int {
	return r.Index + 1
}

// Hash identifies the row's content independent of its position.
func (r Row) Hash() string {
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		v, ok := r.Value(k)
		if !ok {
			continue
		}
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(v))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (r Row) blank() bool {
	for k := range r.values {
		if _, ok := r.Value(k); ok {
			return false
		}
	}
	return true
}
