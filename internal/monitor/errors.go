package monitor

import (
	"errors"
	"fmt"
)

// ErrResourceUnavailable is returned when the browser session could not be
// created after the bounded retry budget. It surfaces to callers wrapped in a
// FetchError.
var ErrResourceUnavailable = errors.New("browser session unavailable")

// ErrTargetBusy is returned when a check is submitted while a prior run for
// the same target still holds its lock.
var ErrTargetBusy = errors.New("target check already in flight")

// ErrTargetInactive is returned when a check is submitted for a deactivated
// target.
var ErrTargetInactive = errors.New("target is not active")

// FetchError wraps network/parse/session failures. The target's last_checked
// still advances when one is recorded; hash and snapshot state do not.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError wraps err for the given URL.
func NewFetchError(url string, err error) *FetchError {
	return &FetchError{URL: url, Err: err}
}

// AnalyzerError wraps semantic analyzer failures. These degrade to a
// no-change-equivalent analysis and never abort the pipeline.
type AnalyzerError struct {
	Err error
}

func (e *AnalyzerError) Error() string {
	return fmt.Sprintf("analyzer: %v", e.Err)
}

func (e *AnalyzerError) Unwrap() error { return e.Err }

// SubmissionError wraps queue failures at submission time. The job never
// started, so the target's last_checked is untouched and it stays eligible
// next cycle.
type SubmissionError struct {
	TargetID string
	Err      error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit check for target %s: %v", e.TargetID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
