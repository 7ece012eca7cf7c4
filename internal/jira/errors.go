package jira

import (
	"errors"
	"fmt"
)

// Sentinel errors for remote API conditions.
var (
	// ErrNotFound indicates the requested record or document does not exist
	// (HTTP 404). Traversal treats it as a per-node condition, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrAuth indicates the credentials were rejected (HTTP 401/403).
	// Never retried; aborts the whole analysis.
	ErrAuth = errors.New("authentication rejected")
)

// TransientError is a 429/5xx response that persisted past the retry cap.
type TransientError struct {
	StatusCode int
	Body       string
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient API error: status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuth reports whether err is or wraps ErrAuth.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsTransient reports whether err is or wraps a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
