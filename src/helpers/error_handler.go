package helpers

import (
	"errors"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type PETrackerError struct {
	Message string
	Cause   error
}

func (e *PETrackerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PETrackerError) Unwrap() error {
	return e.Cause
}

// Distinct error types for type assertions at the call sites.
// DataSourceError covers every provider-side failure: transport, parse,
// unknown ticker. DatabaseError covers the stores. NotFoundError is an
// operation against a ticker absent from the cache. ValidationError is
// malformed boundary input and never reaches the core.
type ConfigurationError struct{ PETrackerError }
type DataSourceError struct{ PETrackerError }
type DatabaseError struct{ PETrackerError }
type NotFoundError struct{ PETrackerError }
type ValidationError struct{ PETrackerError }

// -----------------------------------------------------------------------------

// ErrNotAvailable signals that a ticker has no cached entry and the fetch
// that would have created one failed. Callers render "no data yet" rather
// than an error page.
var ErrNotAvailable = errors.New("no data available for ticker")

// -----------------------------------------------------------------------------

func NewDataSourceError(message string, cause error) *DataSourceError {
	return &DataSourceError{PETrackerError{Message: message, Cause: cause}}
}

func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{PETrackerError{Message: message, Cause: cause}}
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{PETrackerError{Message: message}}
}

// -----------------------------------------------------------------------------

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		fmt.Printf("Warning: Attempt %d/%d failed for %s: %v. Retrying in %v\n", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return nil, lastErr
}
