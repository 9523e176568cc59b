package observability

import (
	"context"
	"errors"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/application/port"
)

// KPIFanout forwards KPIs to several publishers (Prometheus gauges, CloudWatch).
// A failing publisher does not stop the others.
type KPIFanout struct {
	publishers []port.KPIPublisher
}

// NewKPIFanout skips nil publishers
func NewKPIFanout(publishers ...port.KPIPublisher) *KPIFanout {
	f := &KPIFanout{}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

func (f *KPIFanout) PublishDashboard(ctx context.Context, vm *dto.CustomerDashboardViewModel) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.PublishDashboard(ctx, vm); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *KPIFanout) PublishHealth(ctx context.Context, health *dto.HealthViewModel) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.PublishHealth(ctx, health); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *KPIFanout) Flush(ctx context.Context) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
