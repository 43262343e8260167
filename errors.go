package hostbench

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrConnection         = errors.New("connection error")
	ErrQuery              = errors.New("query error")
	ErrResultShape        = errors.New("result shape error")
	ErrEmptyInput         = errors.New("no samples to aggregate")
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")
)

var kindLabels = map[error]string{
	ErrConnection:  "connect",
	ErrQuery:       "query",
	ErrResultShape: "result shape",
}

// TaskError is a failure of one unit or of one of its windows. Window is nil
// when the unit failed before any window was attempted.
type TaskError struct {
	Kind   error
	Unit   WorkUnit
	Window *TimeWindow
	Err    error
}

func newTaskError(kind error, unit WorkUnit, window *TimeWindow, err error) *TaskError {
	return &TaskError{Kind: kind, Unit: unit, Window: window, Err: err}
}

// classify picks the kind of a failed query.
func classify(err error) error {
	if errors.Is(err, ErrResultShape) {
		return ErrResultShape
	}

	return ErrQuery
}

// Label is the short name of the failure kind.
func (e *TaskError) Label() string {
	if l, ok := kindLabels[e.Kind]; ok {
		return l
	}

	return "unknown"
}

func (e *TaskError) Error() string {
	if e.Window == nil {
		return fmt.Sprintf("%s failed for host %s: %v", e.Label(), e.Unit.Host, e.Err)
	}

	return fmt.Sprintf("%s failed for host %s window %s: %v", e.Label(), e.Unit.Host, e.Window, e.Err)
}

// Unwrap exposes both the kind and the underlying error to errors.Is.
func (e *TaskError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Cause returns the underlying store error.
func (e *TaskError) Cause() error {
	return e.Err
}
