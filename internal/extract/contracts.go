package extract

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider is one extraction backend in the fallback chain.
type Provider interface {
	Name() string
	// Configured reports whether the provider has usable credentials or binaries.
	// Unconfigured providers are skipped without being attempted.
	Configured() bool
	Attempt(ctx context.Context, img Image) (Result, error)
}

// Result is the recognized text of one image.
type Result struct {
	Text       string
	Confidence float32 // 0..1, as reported by the provider
	Provider   string
	Synthetic  bool
	Attempts   []Attempt
	Duration   time.Duration
}

// Attempt records one provider call made while producing a Result.
type Attempt struct {
	Provider string
	Err      string // empty on success
	Kind     ErrorKind
	Elapsed  time.Duration
}

// ErrorKind classifies provider failures for logs and metrics.
type ErrorKind string

const (
	KindUnconfigured ErrorKind = "unconfigured"
	KindNetwork      ErrorKind = "network"
	KindStatus       ErrorKind = "status"
	KindMalformed    ErrorKind = "malformed"
	KindEmpty        ErrorKind = "empty"
	KindRefusal      ErrorKind = "refusal"
	KindTimeout      ErrorKind = "timeout"
	KindImage        ErrorKind = "image"
)

// ProviderError is returned by Provider.Attempt. The pipeline recovers every
// ProviderError by moving on to the next provider.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError is a small constructor used by provider packages.
func NewProviderError(provider string, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// StatusError reports a non-2xx response.
func StatusError(provider string, code int, body []byte) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Kind:       KindStatus,
		StatusCode: code,
		Err:        fmt.Errorf("response body: %s", truncate(string(body), 512)),
	}
}

// KindOf extracts the failure kind from any error returned by a provider.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return pe.Kind
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindNetwork
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
