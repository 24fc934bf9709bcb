package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/ppiankov/cardaudit/internal/repair"
)

var (
	// ErrCallExhausted means every attempt failed; it wraps the last attempt's error
	ErrCallExhausted = errors.New("llm call exhausted retries")

	// ErrEmptyResponse is returned when the model answers with no content
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrUnknownProvider is returned for a model identifier with an unsupported provider prefix
	ErrUnknownProvider = errors.New("unknown LLM provider")

	// ErrMissingAPIKey is returned when a hosted provider has no credentials
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModel is returned for an empty or malformed model identifier
	ErrInvalidModel = errors.New("invalid model identifier")
)

// ErrorType is a coarse classification used for logging and retry decisions
type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorContext   ErrorType = "context"
	ErrorParse     ErrorType = "parse"
	ErrorConfig    ErrorType = "config"
	ErrorCanceled  ErrorType = "canceled"
	ErrorPermanent ErrorType = "permanent"
)

// ClassifyError maps an upstream error to an ErrorType
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, repair.ErrEmptyOrNoJSON):
		return ErrorParse
	case errors.Is(err, ErrUnknownProvider), errors.Is(err, ErrMissingAPIKey), errors.Is(err, ErrInvalidModel):
		return ErrorConfig
	case errors.Is(err, context.Canceled):
		return ErrorCanceled
	case errors.Is(err, ErrEmptyResponse):
		return ErrorTransient
	}

	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "insufficient_quota"), strings.Contains(e, "quota"), strings.Contains(e, "credit"):
		return ErrorQuota
	case strings.Contains(e, "429"), strings.Contains(e, "rate limit"), strings.Contains(e, "rate_limit"):
		return ErrorRate
	case strings.Contains(e, "context length"), strings.Contains(e, "too long"):
		return ErrorContext
	case strings.Contains(e, "timeout"), strings.Contains(e, "deadline"), strings.Contains(e, "temporarily"),
		strings.Contains(e, "unavailable"), strings.Contains(e, "overloaded"), strings.Contains(e, "connection"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

// Retryable reports whether another attempt could succeed. Everything is
// retried except structural parse failures, configuration errors and
// cancellation.
func Retryable(err error) bool {
	switch ClassifyError(err) {
	case "", ErrorParse, ErrorConfig, ErrorCanceled:
		return false
	default:
		return true
	}
}
