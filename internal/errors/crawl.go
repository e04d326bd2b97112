package errors

import (
	stdErrors "errors"
	"fmt"
)

// PageError reports a catalog page that could not be fetched or parsed.
// It always terminates the crawl.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("catalog page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// NewPageError wraps err with the page number it happened on.
func NewPageError(page int, err error) *PageError {
	return &PageError{Page: page, Err: err}
}

// IsPageError reports whether err is a PageError (even when wrapped).
func IsPageError(err error) bool {
	var pageErr *PageError
	return stdErrors.As(err, &pageErr)
}

// PersistError reports a failure to write the parts document.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// NewPersistError wraps err with the document path.
func NewPersistError(path string, err error) *PersistError {
	return &PersistError{Path: path, Err: err}
}

// IsPersistError reports whether err is a PersistError (even when wrapped).
func IsPersistError(err error) bool {
	var persistErr *PersistError
	return stdErrors.As(err, &persistErr)
}
