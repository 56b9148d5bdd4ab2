package locator

import (
	"errors"
	"fmt"
)

var (
	// ErrAnchorMissing indicates the anchor image file does not exist.
	ErrAnchorMissing = errors.New("anchor image missing")
	// ErrNotFound indicates the anchor was not on screen before the timeout.
	ErrNotFound = errors.New("not found on screen")
)

// LocateError reports why an anchor could not be located or clicked.
type LocateError struct {
	Anchor   string
	Attempts int
	Err      error
}

func (e *LocateError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("locate %s (%d attempts): %v", e.Anchor, e.Attempts, e.Err)
	}
	return fmt.Sprintf("locate %s: %v", e.Anchor, e.Err)
}

func (e *LocateError) Unwrap() error {
	return e.Err
}
