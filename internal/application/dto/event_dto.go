package dto

import (
	"time"

	"github.com/google/uuid"
)

// Темы событий для брокера сообщений
const (
	SubjectHealthChanged     = "crm.health.changed"
	SubjectDashboardComputed = "crm.dashboard.computed"
)

// HealthChangedEvent публикуется, когда меняется итоговый статус здоровья
type HealthChangedEvent struct {
	ID         string           `json:"id"`
	OccurredAt time.Time        `json:"occurred_at"`
	Previous   string           `json:"previous,omitempty"`
	Current    string           `json:"current"`
	Health     *HealthViewModel `json:"health"`
}

// NewHealthChangedEvent создает событие смены статуса
func NewHealthChangedEvent(previous, current *HealthViewModel) *HealthChangedEvent {
	event := &HealthChangedEvent{
		ID:         uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Current:    current.Overall,
		Health:     current,
	}
	if previous != nil {
		event.Previous = previous.Overall
	}
	return event
}

// DashboardComputedEvent публикуется после успешной агрегации дашборда
type DashboardComputedEvent struct {
	ID             string    `json:"id"`
	OccurredAt     time.Time `json:"occurred_at"`
	TotalCustomers int       `json:"total_customers"`
	ActivePercent  float64   `json:"active_percent"`
	AverageLTV     float64   `json:"average_ltv"`
	AtRiskCount    int       `json:"at_risk_count"`
}

// NewDashboardComputedEvent создает событие из модели дашборда
func NewDashboardComputedEvent(vm *CustomerDashboardViewModel) *DashboardComputedEvent {
	return &DashboardComputedEvent{
		ID:             uuid.NewString(),
		OccurredAt:     time.Now().UTC(),
		TotalCustomers: vm.Summary.TotalCustomers,
		ActivePercent:  vm.Summary.ActivePercent,
		AverageLTV:     vm.LifetimeValue.Average,
		AtRiskCount:    len(vm.AtRisk),
	}
}

// HealthAlertDTO представляет alert для отправки клиентам через WebSocket
type HealthAlertDTO struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "warning", "critical", "auth"
	Overall   string    `json:"overall"`
	Message   string    `json:"message"`
}

// NewHealthAlertDTO создает alert по модели здоровья
func NewHealthAlertDTO(health *HealthViewModel, message string) *HealthAlertDTO {
	level := "warning"
	switch {
	case health.AuthRequired:
		level = "auth"
	case health.IsUnhealthy:
		level = "critical"
	}

	return &HealthAlertDTO{
		Timestamp: time.Now(),
		Level:     level,
		Overall:   health.Overall,
		Message:   message,
	}
}
