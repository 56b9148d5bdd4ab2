package download

import (
	"errors"
	"fmt"
)

// ErrNoURL indicates the row has no image URL.
var ErrNoURL = errors.New("no image URL")

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("image download %s: HTTP status %d", e.URL, e.StatusCode)
}
