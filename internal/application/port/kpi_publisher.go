package port

import (
	"context"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
)

// KPIPublisher exports dashboard and health KPIs to observability platforms.
type KPIPublisher interface {
	// PublishDashboard records the headline numbers of a computed dashboard.
	PublishDashboard(ctx context.Context, dashboard *dto.CustomerDashboardViewModel) error

	// PublishHealth records the current health level.
	PublishHealth(ctx context.Context, health *dto.HealthViewModel) error

	// Flush forces immediate publication of any buffered data points.
	// Should be called during graceful shutdown to prevent data loss.
	Flush(ctx context.Context) error
}
