package port

import (
	"context"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
)

// CustomerSource loads the raw customer list the dashboard is computed from.
// Implementations return ErrNotConfigured, ErrUnauthorized or *TransportError
// so callers can tell the failure modes apart.
type CustomerSource interface {
	// FetchCustomers returns all customer records visible to the token.
	// An empty token means the source falls back to its own credentials.
	FetchCustomers(ctx context.Context, token string) ([]dto.CustomerRecord, error)
}
