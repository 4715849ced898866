package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrTooManyRedirects is returned when a request exceeds the redirect limit
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrInvalidTarget is returned when the URL cannot be normalized
	ErrInvalidTarget = errors.New("invalid fetch target")
	// ErrEmptyBody is returned when the response body is blank
	ErrEmptyBody = errors.New("empty response body")
)

// Kind classifies a fetch failure
type Kind string

const (
	// KindTimeout is an attempt that exceeded its deadline
	KindTimeout Kind = "timeout"
	// KindHTTPError is a non-success status other than the ones below
	KindHTTPError Kind = "http-error"
	// KindBlocked is a 401 or 403 that persisted across retries
	KindBlocked Kind = "blocked"
	// KindNotFound is a 404
	KindNotFound Kind = "not-found"
	// KindEmptyBody is a success response without content
	KindEmptyBody Kind = "empty-body"
	// KindNetwork is a transport failure
	KindNetwork Kind = "network-error"
)

// Error is the terminal failure for a fetch
type Error struct {
	// Kind is the failure class
	Kind Kind
	// URL is the normalized URL that was requested
	URL string
	// StatusCode is the last HTTP status, zero for transport failures
	StatusCode int
	// Attempts is the number of attempts made
	Attempts int
	// RetryAfter is the server-suggested delay from a 429 response
	RetryAfter time.Duration
	// Provider is the WAF or CDN fronting the host when a block was attributed
	Provider string
	// Err is the underlying cause
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := string(e.Kind)

	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s(%d %s)", msg, e.StatusCode, http.StatusText(e.StatusCode))
	}

	if e.Provider != "" {
		msg = fmt.Sprintf("%s via %s", msg, e.Provider)
	}

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s after %d attempts", msg, e.Attempts)
	}

	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindBlocked:
		return true
	case KindNetwork:
		return !errors.Is(e.Err, ErrTooManyRedirects) && !errors.Is(e.Err, context.Canceled)
	case KindHTTPError:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

// Transient reports whether retrying the whole analysis later may help. A block that survived
// every attempt is treated as permanent
func (e *Error) Transient() bool {
	return e.Kind != KindBlocked && e.Retryable()
}

// IsTransient reports whether err is a fetch failure worth retrying at a higher layer
func IsTransient(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Transient()
	}

	return false
}
