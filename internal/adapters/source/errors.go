package source

import (
	"errors"
	"fmt"
)

// Sentinel kinds. FetchError matches ErrFetch and ParseError matches ErrParse
// through errors.Is.
var (
	ErrFetch             = errors.New("fetch dataset failed")
	ErrParse             = errors.New("parse dataset failed")
	ErrEmptyResource     = errors.New("dataset is empty")
	ErrTooLarge          = errors.New("dataset exceeds size limit")
	ErrUnsupportedSource = errors.New("unsupported dataset source")
)

// FetchError reports that the resource could not be retrieved: unreachable,
// missing, or answered with a non-success status.
type FetchError struct {
	Source string
	Status int // HTTP status when the source answered, 0 otherwise
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s: unexpected status %d", ErrFetch, e.Source, e.Status)
	}
	return fmt.Sprintf("%s: %s: %v", ErrFetch, e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches ErrFetch.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// ParseError reports a structural problem in the tabular text.
type ParseError struct {
	Source string
	Line   int // 1-based line in the source, 0 when unknown
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s: line %d: %v", ErrParse, e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrParse, e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Kind returns "fetch", "parse" or "unknown" for metrics and logs.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrParse):
		return "parse"
	default:
		return "unknown"
	}
}
