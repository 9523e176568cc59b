package port

import (
	"context"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
)

// HealthProbe performs one health check against the backend.
// Every failure is reported through the outcome, never as an error.
type HealthProbe interface {
	// Probe returns the decoded payload (nil unless the outcome is OK) and the outcome.
	Probe(ctx context.Context) (*dto.RawHealthPayload, valueobject.ProbeOutcome)
}
