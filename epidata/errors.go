package epidata

import (
	"fmt"
	"strings"
)

// HTTPError reports a non-success status code from a remote endpoint.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d for %s", e.StatusCode, e.URL)
}

// NotFoundError reports a resource that could not be opened at all,
// after any fallback attempts.
type NotFoundError struct {
	URL string
	Err error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("URL %s could not be opened: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("URL %s could not be opened", e.URL)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// UnsupportedFormatError reports an output format outside the closed set
// understood by WriteTable.
type UnsupportedFormatError struct {
	Format  string
	Allowed []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("the file format %q does not exist, use one of: %s",
		e.Format, strings.Join(e.Allowed, ", "))
}

// DataError reports incomplete or unexpected data, such as a missing
// column or ragged rows.
type DataError struct {
	Msg string
}

func (e *DataError) Error() string { return e.Msg }
