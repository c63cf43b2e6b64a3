package mt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies a provider failure.
type ErrorType string

const (
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeEndpoint    ErrorType = "endpoint"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeUnsupported ErrorType = "unsupported"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a structured provider error with classification.
type Error struct {
	Type       ErrorType
	Provider   string
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))
	if e.Provider != "" {
		parts = append(parts, fmt.Sprintf("provider=%s", e.Provider))
	}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a structured provider error.
func NewError(errType ErrorType, provider, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Provider:  provider,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// ClassifyError categorizes a raw provider failure into a structured Error.
func ClassifyError(provider string, err error) *Error {
	if err == nil {
		return nil
	}

	var mtErr *Error
	if errors.As(err, &mtErr) {
		return mtErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	statusCode := 0
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	classified := func(t ErrorType, msg string, retryable bool) *Error {
		e := NewError(t, provider, msg, retryable, err)
		e.StatusCode = statusCode
		return e
	}

	// Authentication errors (not retryable)
	if strings.Contains(errStr, "401") || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key") {
		return classified(ErrorTypeAuth, "authentication failed", false)
	}

	// Unsupported language pair or model (not retryable without config change)
	if strings.Contains(lower, "unsupported") ||
		(strings.Contains(lower, "model") && strings.Contains(lower, "not found")) {
		return classified(ErrorTypeUnsupported, "unsupported request", false)
	}

	// Timeouts and cancellation (retryable on another provider)
	if strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "deadline exceeded") ||
		strings.Contains(lower, "context canceled") {
		return classified(ErrorTypeTimeout, "request timeout", true)
	}

	// Rate limiting (retryable after backoff)
	if strings.Contains(errStr, "429") || strings.Contains(lower, "rate limit") {
		return classified(ErrorTypeRateLimit, "rate limited", true)
	}

	// Connection failures and 5xx server errors (retryable)
	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") ||
		strings.Contains(errStr, "500") || strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") || strings.Contains(errStr, "504") {
		return classified(ErrorTypeEndpoint, "provider unreachable", true)
	}

	return classified(ErrorTypeUnknown, "translation failed", false)
}

// IsRetryable returns true if the error is retryable on another provider.
func IsRetryable(err error) bool {
	var mtErr *Error
	if errors.As(err, &mtErr) {
		return mtErr.Retryable
	}
	return false
}
