package helper

import (
	"errors"
	"fmt"
	"strings"
)

// Error wraps an original error with the trace of operations it passed through.
type Error struct {
	Original error
	Trace    []string
}

// NewError wraps err with the given trace step.
// If err already is an Error the trace step is appended instead of nesting.
func NewError(trace string, err error) error {
	var e Error
	if errors.As(err, &e) {
		traces := make([]string, len(e.Trace), len(e.Trace)+1)
		copy(traces, e.Trace)
		return Error{Original: e.Original, Trace: append(traces, trace)}
	}
	return Error{Original: err, Trace: []string{trace}}
}

func (e Error) Error() string {
	return fmt.Sprintf("%v | Trace: %s", e.Original, strings.Join(e.Trace, ", "))
}

func (e Error) Unwrap() error {
	return e.Original
}
