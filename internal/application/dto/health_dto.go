package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/dreschagin/crm-dashboard/internal/domain/entity"
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
)

// RawHealthPayload - тело ответа GET /api/health от backend
// Все поля опциональны. Поля неожиданного типа дают пустой статус и не отменяют остальные.
type RawHealthPayload struct {
	Status    RawValue         `json:"status,omitempty"`
	Database  *ComponentStatus `json:"database,omitempty"`
	Cache     *ComponentStatus `json:"cache,omitempty"`
	Timestamp any              `json:"timestamp,omitempty"`
	Modules   any              `json:"modules,omitempty"`
}

// ComponentStatus - статус одной подсистемы backend.
// Принимает объект {"status": "..."} или просто строку.
type ComponentStatus struct {
	Status string `json:"status,omitempty"`
}

// UnmarshalJSON принимает строку, объект со status или любое другое значение (пустой статус)
func (c *ComponentStatus) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	c.Status = ""
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '"':
		var status RawValue
		if err := json.Unmarshal(trimmed, &status); err != nil {
			return err
		}
		c.Status = status.String()
	case '{':
		var object struct {
			Status RawValue `json:"status"`
		}
		if err := json.Unmarshal(trimmed, &object); err != nil {
			return err
		}
		c.Status = object.Status.String()
	}

	return nil
}

// DatabaseStatus возвращает статус БД или пустую строку
func (p *RawHealthPayload) DatabaseStatus() string {
	if p == nil || p.Database == nil {
		return ""
	}
	return p.Database.Status
}

// CacheStatus возвращает статус кеша или пустую строку
func (p *RawHealthPayload) CacheStatus() string {
	if p == nil || p.Cache == nil {
		return ""
	}
	return p.Cache.Status
}

// ToDomain конвертирует тело ответа в доменную модель; nil дает nil
func (p *RawHealthPayload) ToDomain() *entity.HealthPayload {
	if p == nil {
		return nil
	}
	return &entity.HealthPayload{
		Status:    p.Status.String(),
		Database:  p.DatabaseStatus(),
		Cache:     p.CacheStatus(),
		Timestamp: p.Timestamp,
		Modules:   p.Modules,
	}
}

// SubsystemHealthDTO - статус одной подсистемы для UI
type SubsystemHealthDTO struct {
	Status string                   `json:"status"`
	Level  valueobject.HealthStatus `json:"level"`
	Glyph  string                   `json:"glyph"`
}

// NewSubsystemHealthDTO строит статус подсистемы из сырой строки
func NewSubsystemHealthDTO(status string) SubsystemHealthDTO {
	return newSubsystemHealthDTO(entity.NewSubsystemHealth(status))
}

func newSubsystemHealthDTO(h entity.SubsystemHealth) SubsystemHealthDTO {
	return SubsystemHealthDTO{
		Status: h.Status,
		Level:  h.Level,
		Glyph:  h.Level.Glyph(),
	}
}

// HealthViewModel - итоговое состояние здоровья системы для UI
type HealthViewModel struct {
	Overall      string                   `json:"overall"`
	OverallLevel valueobject.HealthStatus `json:"overallLevel"`
	Glyph        string                   `json:"glyph"`

	API      SubsystemHealthDTO `json:"api"`
	Database SubsystemHealthDTO `json:"database"`
	Cache    SubsystemHealthDTO `json:"cache"`

	IsHealthy   bool `json:"isHealthy"`
	IsDegraded  bool `json:"isDegraded"`
	IsUnhealthy bool `json:"isUnhealthy"`

	// AuthRequired означает, что UI должен предложить повторный вход, а не красный индикатор
	AuthRequired bool `json:"authRequired"`

	// Reason заполняется, если проверка не дошла до успешного ответа
	Reason valueobject.FailureReason `json:"reason,omitempty"`

	Timestamp any       `json:"timestamp,omitempty"`
	Modules   any       `json:"modules,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// NewHealthViewModel конвертирует доменный отчет в модель для UI
func NewHealthViewModel(report *entity.HealthReport) *HealthViewModel {
	return &HealthViewModel{
		Overall:      report.Overall,
		OverallLevel: report.Level,
		Glyph:        report.Level.Glyph(),
		API:          newSubsystemHealthDTO(report.API),
		Database:     newSubsystemHealthDTO(report.Database),
		Cache:        newSubsystemHealthDTO(report.Cache),
		IsHealthy:    report.IsHealthy(),
		IsDegraded:   report.IsDegraded(),
		IsUnhealthy:  report.IsUnhealthy(),
		AuthRequired: report.AuthRequired,
		Reason:       report.Reason,
		Timestamp:    report.Timestamp,
		Modules:      report.Modules,
	}
}

// Equivalent сравнивает статусы двух моделей без учета времени проверки
func (h *HealthViewModel) Equivalent(other *HealthViewModel) bool {
	if h == nil || other == nil {
		return h == other
	}
	return h.Overall == other.Overall &&
		h.API.Status == other.API.Status &&
		h.Database.Status == other.Database.Status &&
		h.Cache.Status == other.Cache.Status &&
		h.AuthRequired == other.AuthRequired
}
