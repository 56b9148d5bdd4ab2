// Package sheet loads form submissions from an xlsx workbook. The workbook
// is laid out transposed: the first column holds field names and every
// further column is one record.
package sheet

import (
	"fmt"
	"strings"

	"formfill/internal/logging"

	"github.com/xuri/excelize/v2"
)

// Options selects what to read.
type Options struct {
	// Sheet names the worksheet; empty selects the first one.
	Sheet string
}

// Load reads every non-blank record from the workbook at path.
func Load(path string, opts Options) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	name := opts.Sheet
	if name == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, &LoadError{Path: path, Err: ErrNoData}
		}
		name = list[0]
	}

	cols, err := f.GetCols(name)
	if err != nil {
		return nil, &LoadError{Path: path, Sheet: name, Err: err}
	}

	rows, err := transpose(cols)
	if err != nil {
		return nil, &LoadError{Path: path, Sheet: name, Err: err}
	}

	logging.Sheet("Loaded %d records from %s (sheet %q)", len(rows), path, name)
	return rows, nil
}

// transpose turns column-major cells into records. Column 0 holds field
// names; fully blank records are dropped but keep their index.
func transpose(cols [][]string) ([]Row, error) {
	if len(cols) == 0 {
		return nil, ErrNoData
	}

	names := cols[0]
	type slot struct {
		row  int
		name string
	}
	var fields []slot
	seen := make(map[string]bool)
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if seen[n] {
			logging.SheetWarn("Duplicate field %q at row %d ignored", n, i+1)
			continue
		}
		seen[n] = true
		fields = append(fields, slot{row: i, name: n})
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("first column has no field names: %w", ErrNoData)
	}

	var rows []Row
	for c := 1; c < len(cols); c++ {
		r := Row{Index: c - 1, values: make(map[string]string, len(fields))}
		for _, f := range fields {
			v := ""
			if f.row < len(cols[c]) {
				v = strings.TrimSpace(cols[c][f.row])
			}
			r.values[f.name] = v
			r.columns = append(r.columns, f.name)
		}
		if r.blank() {
			logging.Get(logging.CategorySheet).Debug("Skipping blank record %d", r.Number())
			continue
		}
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no records: %w", ErrNoData)
	}
	return rows, nil
}
