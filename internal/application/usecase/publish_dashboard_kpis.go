package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/application/port"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

// PublishDashboardKPIsUseCase рассылает результат агрегации: KPI, событие в брокер и WebSocket
type PublishDashboardKPIsUseCase struct {
	kpis     port.KPIPublisher
	events   port.EventPublisher
	notifier port.NotificationService
	logger   *logger.Logger
}

// NewPublishDashboardKPIsUseCase создает новый use case; любой из получателей может быть nil
func NewPublishDashboardKPIsUseCase(
	kpis port.KPIPublisher,
	events port.EventPublisher,
	notifier port.NotificationService,
	logger *logger.Logger,
) *PublishDashboardKPIsUseCase {
	return &PublishDashboardKPIsUseCase{
		kpis:     kpis,
		events:   events,
		notifier: notifier,
		logger:   logger,
	}
}

// Execute публикует модель дашборда во все настроенные получатели.
// Ошибки получателей собираются, один сбой не мешает остальным.
func (uc *PublishDashboardKPIsUseCase) Execute(ctx context.Context, vm *dto.CustomerDashboardViewModel) error {
	if vm == nil {
		return nil
	}

	var errs []error

	if uc.kpis != nil {
		if err := uc.kpis.PublishDashboard(ctx, vm); err != nil {
			errs = append(errs, fmt.Errorf("kpi publish: %w", err))
		}
	}

	if uc.events != nil {
		event := dto.NewDashboardComputedEvent(vm)
		if err := uc.events.PublishEvent(ctx, dto.SubjectDashboardComputed, event); err != nil {
			errs = append(errs, fmt.Errorf("event publish: %w", err))
		}
	}

	if uc.notifier != nil {
		uc.notifier.BroadcastDashboard(vm)
		uc.logger.Debug("Dashboard broadcasted to clients", "client_count", uc.notifier.ClientCount())
	}

	return errors.Join(errs...)
}
