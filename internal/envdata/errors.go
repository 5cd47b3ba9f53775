package envdata

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoProviders is returned when an aggregator is built without a forecast chain.
	ErrNoProviders = errors.New("no forecast providers configured")
	// ErrInvalidDays is returned when a history window other than 7 or 30 days is requested.
	ErrInvalidDays = errors.New("history days must be 7 or 30")
	// ErrMalformedPayload marks an upstream response missing expected fields.
	ErrMalformedPayload = errors.New("malformed payload")
)

// FetchError reports an upstream HTTP or decoding failure for one provider.
// StatusCode is 0 when no response was received.
type FetchError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewMalformedError builds the FetchError used when a payload lacks required fields.
func NewMalformedError(provider, detail string) *FetchError {
	return &FetchError{
		Provider:   provider,
		StatusCode: 200,
		Message:    "malformed payload: " + detail,
		Err:        ErrMalformedPayload,
	}
}

// ConfigurationError reports a missing credential for a provider.
type ConfigurationError struct {
	MissingKey string
}

func (e *ConfigurationError) Error() string {
	return "missing configuration: " + e.MissingKey
}

// AggregationError is returned when every forecast provider failed.
type AggregationError struct {
	AttemptedProviders []string
	Message            string
	Errs               []error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("%s (attempted: %s)", e.Message, strings.Join(e.AttemptedProviders, ", "))
}

func (e *AggregationError) Unwrap() []error { return e.Errs }
