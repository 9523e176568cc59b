package handler

import (
	"context"
	"net/http"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/crm-dashboard/internal/interfaces/http/middleware"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

const backendRealm = `Bearer realm="crm-backend"`

// CustomerDashboard строит дашборд клиентов для токена вызывающего
type CustomerDashboard interface {
	Execute(ctx context.Context, token string) dto.Result[dto.CustomerDashboardViewModel]
	Invalidate(ctx context.Context, token string) error
}

// HealthStatus возвращает текущее состояние backend
type HealthStatus interface {
	Execute(ctx context.Context) *dto.HealthViewModel
}

// Overview возвращает дашборд и здоровье одним ответом
type Overview interface {
	Execute(ctx context.Context, token string) *dto.OverviewDTO
}

// DashboardAPIHandler обрабатывает JSON API дашборда
type DashboardAPIHandler struct {
	dashboard  CustomerDashboard
	health     HealthStatus
	overview   Overview
	authConfig middleware.AuthConfig
	logger     *logger.Logger
}

// NewDashboardAPIHandler создает новый handler
func NewDashboardAPIHandler(
	dashboard CustomerDashboard,
	health HealthStatus,
	overview Overview,
	authConfig middleware.AuthConfig,
	logger *logger.Logger,
) *DashboardAPIHandler {
	return &DashboardAPIHandler{
		dashboard:  dashboard,
		health:     health,
		overview:   overview,
		authConfig: authConfig,
		logger:     logger,
	}
}

// GetCustomers - GET /api/v1/dashboard/customers
func (h *DashboardAPIHandler) GetCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result := h.dashboard.Execute(r.Context(), middleware.BackendToken(r, h.authConfig))
	h.writeResult(w, r, result)
}

// RefreshCustomers - POST /api/v1/dashboard/customers/refresh: сбрасывает кеш вызывающего и пересчитывает
func (h *DashboardAPIHandler) RefreshCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := middleware.BackendToken(r, h.authConfig)
	if err := h.dashboard.Invalidate(r.Context(), token); err != nil {
		h.logger.Warn("Failed to invalidate dashboard cache", "error", err.Error())
	}

	result := h.dashboard.Execute(r.Context(), token)
	h.writeResult(w, r, result)
}

// GetHealth - GET /api/v1/dashboard/health. Всегда 200: недоступность backend - это тоже статус.
func (h *DashboardAPIHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, h.health.Execute(r.Context()))
}

// GetOverview - GET /api/v1/dashboard/overview
func (h *DashboardAPIHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	overview := h.overview.Execute(r.Context(), middleware.BackendToken(r, h.authConfig))
	middleware.WriteJSON(w, http.StatusOK, overview)
}

func (h *DashboardAPIHandler) writeResult(w http.ResponseWriter, r *http.Request, result dto.Result[dto.CustomerDashboardViewModel]) {
	status := statusForResult(result)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", backendRealm)
	}
	if status >= http.StatusInternalServerError {
		h.logger.Warn("Customer dashboard unavailable",
			"reason", result.Reason.String(),
			"status", status,
			"request_id", middleware.RequestIDFromContext(r.Context()),
		)
	}

	middleware.WriteJSON(w, status, result)
}

// statusForResult сопоставляет состояние Result с HTTP статусом
func statusForResult(result dto.Result[dto.CustomerDashboardViewModel]) int {
	if !result.IsFailed() {
		return http.StatusOK
	}

	switch result.Reason {
	case valueobject.FailureUnauthorized:
		return http.StatusUnauthorized
	case valueobject.FailureNotConfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
