package service

import (
	"github.com/dreschagin/crm-dashboard/internal/domain/entity"
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
)

// Статусы, которые выставляет сам редьюсер (помимо статусов из ответа backend)
const (
	StatusHealthy       = "healthy"
	StatusDegraded      = "degraded"
	StatusUnhealthy     = "unhealthy"
	StatusUnknown       = "unknown"
	StatusError         = "error"
	StatusUnreachable   = "unreachable"
	StatusNotConfigured = "not configured"
	StatusUnauthorized  = "unauthorized"
)

// HealthReducer сводит сигналы подсистем в один статус (Domain Service)
// Каждый вызов независим; состояние не хранится
type HealthReducer struct{}

// NewHealthReducer создает новый HealthReducer
func NewHealthReducer() *HealthReducer {
	return &HealthReducer{}
}

// Reduce строит отчет о здоровье по исходу проверки и (опционально) статусам из ответа.
// Статус, переданный backend, всегда имеет приоритет над значением по умолчанию.
func (r *HealthReducer) Reduce(payload *entity.HealthPayload, outcome valueobject.ProbeOutcome) *entity.HealthReport {
	switch {
	case outcome.Kind == valueobject.OutcomeOK:
		if payload == nil {
			payload = &entity.HealthPayload{}
		}
		report := r.build(
			orDefault(payload.Status, StatusHealthy),
			StatusHealthy,
			orDefault(payload.Database, StatusHealthy),
			orDefault(payload.Cache, StatusHealthy),
		)
		report.Timestamp = payload.Timestamp
		report.Modules = payload.Modules
		return report

	case outcome.IsUnauthorized():
		// Отдельное состояние: UI должен предложить вход, а не показывать деградацию
		report := r.build(StatusUnauthorized, StatusUnauthorized, StatusUnknown, StatusUnknown)
		report.AuthRequired = true
		report.Reason = valueobject.FailureUnauthorized
		return report

	case outcome.Kind == valueobject.OutcomeHTTPError:
		report := r.build(StatusDegraded, StatusError, StatusUnknown, StatusUnknown)
		report.Reason = valueobject.FailureTransport
		return report

	case outcome.Kind == valueobject.OutcomeNetworkFailure:
		report := r.build(StatusUnhealthy, StatusUnreachable, StatusUnknown, StatusUnknown)
		report.Reason = valueobject.FailureTransport
		return report

	default:
		report := r.build(StatusUnknown, StatusNotConfigured, StatusUnknown, StatusUnknown)
		report.Reason = valueobject.FailureNotConfigured
		return report
	}
}

func (r *HealthReducer) build(overall, api, database, cache string) *entity.HealthReport {
	return &entity.HealthReport{
		Overall:  overall,
		Level:    valueobject.ParseHealthStatus(overall),
		API:      entity.NewSubsystemHealth(api),
		Database: entity.NewSubsystemHealth(database),
		Cache:    entity.NewSubsystemHealth(cache),
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
