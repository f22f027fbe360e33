package boqmatch

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is() to check.
var (
	ErrValidation       = errors.New("validation failed")
	ErrJobNotFound      = errors.New("job not found")
	ErrBatchNotFound    = errors.New("batch not found")
	ErrQueueFull        = errors.New("job queue is full")
	ErrProviderFailure  = errors.New("embedding provider error")
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// APIError is the decoded error payload from a non-2xx response. It
// unwraps to the matching sentinel when the server code is recognized.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "validation_failed", "bad_request":
		return ErrValidation
	case "job_not_found":
		return ErrJobNotFound
	case "batch_not_found":
		return ErrBatchNotFound
	case "queue_full":
		return ErrQueueFull
	case "embedding_provider_error":
		return ErrProviderFailure
	default:
		return ErrUnexpectedStatus
	}
}
