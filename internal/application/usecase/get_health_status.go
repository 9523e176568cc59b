package usecase

import (
	"context"
	"time"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/application/port"
	"github.com/dreschagin/crm-dashboard/internal/domain/service"
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

// GetHealthStatusUseCase выполняет проверку backend и сводит ее в HealthViewModel
type GetHealthStatusUseCase struct {
	probe   port.HealthProbe
	reducer *service.HealthReducer
	logger  *logger.Logger
	now     func() time.Time
}

// NewGetHealthStatusUseCase создает новый use case; nil probe означает "backend не настроен"
func NewGetHealthStatusUseCase(
	probe port.HealthProbe,
	reducer *service.HealthReducer,
	logger *logger.Logger,
) *GetHealthStatusUseCase {
	return &GetHealthStatusUseCase{
		probe:   probe,
		reducer: reducer,
		logger:  logger,
		now:     time.Now,
	}
}

// Execute всегда возвращает модель здоровья: любой сбой отражается в статусах
func (uc *GetHealthStatusUseCase) Execute(ctx context.Context) *dto.HealthViewModel {
	var (
		payload *dto.RawHealthPayload
		outcome = valueobject.OutcomeMissingEndpoint()
	)
	if uc.probe != nil {
		payload, outcome = uc.probe.Probe(ctx)
	}

	switch outcome.Kind {
	case valueobject.OutcomeOK:
		uc.logger.Debug("Health probe succeeded")
	case valueobject.OutcomeNotConfigured:
		uc.logger.Debug("Health probe skipped: backend not configured")
	default:
		uc.logger.Warn("Health probe failed",
			"outcome", outcome.Kind.String(),
			"status_code", outcome.StatusCode,
			"error", errString(outcome.Err))
	}

	vm := dto.NewHealthViewModel(uc.reducer.Reduce(payload.ToDomain(), outcome))
	vm.CheckedAt = uc.now().UTC()

	return vm
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
