package valueobject

import "strings"

// HealthStatus представляет нормализованный уровень здоровья подсистемы (Value Object)
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthUnknown   HealthStatus = "unknown"
)

// Глифы статусов для UI
const (
	GlyphHealthy   = "✓"
	GlyphDegraded  = "⚠"
	GlyphUnhealthy = "✗"
	GlyphUnknown   = "?"
)

// ParseHealthStatus отображает сырую строку статуса в HealthStatus.
// "ok"/"healthy" -> healthy, "degraded" -> degraded, "error"/"unhealthy" -> unhealthy,
// все остальное (включая пустую строку) -> unknown.
func ParseHealthStatus(raw string) HealthStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ok", "healthy":
		return HealthHealthy
	case "degraded":
		return HealthDegraded
	case "error", "unhealthy":
		return HealthUnhealthy
	default:
		return HealthUnknown
	}
}

// String возвращает строковое представление статуса
func (h HealthStatus) String() string {
	return string(h)
}

// Glyph возвращает символ статуса
func (h HealthStatus) Glyph() string {
	switch h {
	case HealthHealthy:
		return GlyphHealthy
	case HealthDegraded:
		return GlyphDegraded
	case HealthUnhealthy:
		return GlyphUnhealthy
	default:
		return GlyphUnknown
	}
}

// Severity возвращает числовой уровень для метрик: 0 healthy .. 3 unknown
func (h HealthStatus) Severity() int {
	switch h {
	case HealthHealthy:
		return 0
	case HealthDegraded:
		return 1
	case HealthUnhealthy:
		return 2
	default:
		return 3
	}
}

// GlyphFor возвращает символ для сырой строки статуса
func GlyphFor(raw string) string {
	return ParseHealthStatus(raw).Glyph()
}
