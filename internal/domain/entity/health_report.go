package entity

import (
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
)

// HealthPayload - статусы, которые backend сообщил о себе. Все поля опциональны:
// пустая строка означает, что статус не передан.
type HealthPayload struct {
	Status    string
	Database  string
	Cache     string
	Timestamp any
	Modules   any
}

// SubsystemHealth - сырой статус подсистемы и его уровень
type SubsystemHealth struct {
	Status string
	Level  valueobject.HealthStatus
}

// NewSubsystemHealth разбирает уровень из сырого статуса
func NewSubsystemHealth(status string) SubsystemHealth {
	return SubsystemHealth{Status: status, Level: valueobject.ParseHealthStatus(status)}
}

// HealthReport - итог одной проверки здоровья backend
type HealthReport struct {
	Overall  string
	Level    valueobject.HealthStatus
	API      SubsystemHealth
	Database SubsystemHealth
	Cache    SubsystemHealth

	AuthRequired bool
	Reason       valueobject.FailureReason

	Timestamp any
	Modules   any
}

// IsHealthy проверяет, что общий статус healthy (или ok)
func (r *HealthReport) IsHealthy() bool {
	return r.Level == valueobject.HealthHealthy
}

// IsDegraded проверяет, что общий статус degraded
func (r *HealthReport) IsDegraded() bool {
	return r.Level == valueobject.HealthDegraded
}

// IsUnhealthy проверяет, что общий статус unhealthy (или error)
func (r *HealthReport) IsUnhealthy() bool {
	return r.Level == valueobject.HealthUnhealthy
}
