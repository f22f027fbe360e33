package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals invalid input rejected before any remote call.
	ErrValidation = errors.New("validation failed")
	// ErrEmptyCatalog signals a matching run against an empty catalog.
	ErrEmptyCatalog = errors.New("catalog is empty")
	// ErrEmptyQuerySet signals a matching run with no query items.
	ErrEmptyQuerySet = errors.New("query set is empty")
	// ErrMissingCredentials signals a required provider API key is not configured.
	ErrMissingCredentials = errors.New("missing provider credentials")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrJobNotFound signals a missing job record.
	ErrJobNotFound = errors.New("job not found")
	// ErrBatchNotFound signals a missing batch job record.
	ErrBatchNotFound = errors.New("batch job not found")
	// ErrQueueFull signals the job queue backlog is saturated.
	ErrQueueFull = errors.New("job queue is full")
)

// ProviderError wraps ErrEmbeddingProvider with the provider identity,
// the HTTP status, and the provider-reported message.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: provider %s returned %d: %s",
			ErrEmbeddingProvider.Error(), e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: provider %s: %s",
		ErrEmbeddingProvider.Error(), e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return ErrEmbeddingProvider }

// NewProviderError creates a provider error carrying HTTP status and message.
func NewProviderError(provider string, status int, message string) error {
	return &ProviderError{Provider: provider, Status: status, Message: message}
}
