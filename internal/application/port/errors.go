package port

import (
	"errors"
	"fmt"

	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
)

var (
	// ErrNotConfigured is returned when no backend endpoint is configured
	ErrNotConfigured = errors.New("backend endpoint is not configured")

	// ErrUnauthorized is returned when the backend answers 401
	ErrUnauthorized = errors.New("backend requires authentication")

	// ErrCacheMiss is returned by Cache.Get when the key is absent
	ErrCacheMiss = errors.New("cache miss")
)

// TransportError describes a non-2xx response (StatusCode set)
// or a network failure (StatusCode == 0).
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("backend unreachable: %v", e.Err)
	}
	return fmt.Sprintf("backend returned status %d: %v", e.StatusCode, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ClassifyError maps an error returned by a port into a FailureReason.
func ClassifyError(err error) valueobject.FailureReason {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured):
		return valueobject.FailureNotConfigured
	case errors.Is(err, ErrUnauthorized):
		return valueobject.FailureUnauthorized
	default:
		return valueobject.FailureTransport
	}
}
