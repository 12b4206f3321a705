package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSession is returned when a stored session breaks its invariants.
	ErrInvalidSession = errors.New("invalid session state")
	// ErrRateLimited marks a provider response that asked us to slow down.
	ErrRateLimited = errors.New("provider rate limit reached")
	// ErrTransport marks a network, DNS or timeout failure talking to the provider.
	ErrTransport = errors.New("provider unreachable")
	// ErrMalformedResponse indicates the provider body could not be decoded.
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrEmptyBatch indicates the provider returned no usable questions.
	ErrEmptyBatch = errors.New("provider returned no usable questions")
	// ErrProviderFailure covers any other non-success provider answer.
	ErrProviderFailure = errors.New("provider request failed")
)

// FailureReason classifies a terminal question fetch failure.
type FailureReason string

const (
	ReasonRateLimitExhausted FailureReason = "rate-limit-exhausted"
	ReasonConnectionFailed   FailureReason = "connection-failed"
	ReasonMalformedResponse  FailureReason = "malformed-response"
	ReasonEmptyBatch         FailureReason = "empty-batch"
	ReasonProviderError      FailureReason = "provider-error"
)

// FetchError is the terminal failure surfaced by a question source.
type FetchError struct {
	Reason   FailureReason
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch questions: %s after %d attempt(s): %v", e.Reason, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ReasonFor maps a fetch error onto its failure reason.
func ReasonFor(err error) FailureReason {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	switch {
	case errors.Is(err, ErrRateLimited):
		return ReasonRateLimitExhausted
	case errors.Is(err, ErrTransport):
		return ReasonConnectionFailed
	case errors.Is(err, ErrMalformedResponse):
		return ReasonMalformedResponse
	case errors.Is(err, ErrEmptyBatch):
		return ReasonEmptyBatch
	}
	return ReasonProviderError
}
