package sheet

import (
	"errors"
	"fmt"
)

// ErrNoData indicates the sheet holds no field names or no records.
var ErrNoData = errors.New("no data")

// LoadError represents a failure reading a workbook.
type LoadError struct {
	Path  string
	Sheet string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("load %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("load %s (sheet %q): %v", e.Path, e.Sheet, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
