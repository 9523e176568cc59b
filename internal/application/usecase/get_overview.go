package usecase

import (
	"context"

	"github.com/sourcegraph/conc"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
)

// GetOverviewUseCase параллельно загружает дашборд клиентов и состояние здоровья
type GetOverviewUseCase struct {
	dashboard *GetCustomerDashboardUseCase
	health    *GetHealthStatusUseCase
}

// NewGetOverviewUseCase создает новый use case
func NewGetOverviewUseCase(dashboard *GetCustomerDashboardUseCase, health *GetHealthStatusUseCase) *GetOverviewUseCase {
	return &GetOverviewUseCase{
		dashboard: dashboard,
		health:    health,
	}
}

// Execute запускает обе загрузки одновременно и ждет их завершения.
// Сбой одной части не влияет на другую.
func (uc *GetOverviewUseCase) Execute(ctx context.Context, token string) *dto.OverviewDTO {
	overview := &dto.OverviewDTO{}

	var wg conc.WaitGroup
	wg.Go(func() {
		overview.Customers = uc.dashboard.Execute(ctx, token)
	})
	wg.Go(func() {
		overview.Health = uc.health.Execute(ctx)
	})
	wg.Wait()

	return overview
}
