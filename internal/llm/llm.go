// Package llm defines the text-generation capability consumed by the outreach
// pipeline. Components depend on the Generator interface only, so tests can
// substitute stub implementations with zero live network calls.
package llm

import (
	"context"
	"errors"
	"net"
)

// Request is one text-generation call.
type Request struct {
	Prompt          string
	MaxOutputTokens int32
	Temperature     float32

	// EnableWebSearch declares the web-search tool for this call. Used by
	// contact research; drafting and critique never search.
	EnableWebSearch bool
}

// Response is the free-text completion plus usage metadata.
type Response struct {
	Text             string
	WebSearchQueries []string
}

// Generator produces a text completion for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, req Request) (Response, error)
}

// GenerateFunc adapts a function to the Generator interface.
type GenerateFunc func(ctx context.Context, req Request) (Response, error)

func (f GenerateFunc) GenerateText(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// TransientError marks a capability failure as retryable (rate limits,
// timeouts, 5xx responses).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
