package http

import (
	"net/http"

	"github.com/dreschagin/crm-dashboard/internal/healthwatch"
	"github.com/dreschagin/crm-dashboard/internal/infrastructure/observability/prometheus"
	"github.com/dreschagin/crm-dashboard/internal/interfaces/http/handler"
	"github.com/dreschagin/crm-dashboard/internal/interfaces/http/middleware"
	"github.com/dreschagin/crm-dashboard/pkg/config"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

// Handlers - набор обработчиков для Router. Status и Healthwatch опциональны.
type Handlers struct {
	Dashboard   *handler.DashboardAPIHandler
	WebSocket   *handler.WebSocketHandler
	Auth        *handler.AuthAPIHandler
	Healthwatch *handler.HealthwatchAPIHandler
	Status      *healthwatch.Handler
}

// Router настраивает маршруты приложения
type Router struct {
	mux      *http.ServeMux
	handlers Handlers
	metrics  *prometheus.Metrics
	security config.SecurityConfig
	logger   *logger.Logger
}

// NewRouter создает новый router; metrics может быть nil
func NewRouter(
	handlers Handlers,
	metrics *prometheus.Metrics,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:      http.NewServeMux(),
		handlers: handlers,
		metrics:  metrics,
		security: security,
		logger:   logger,
	}
}

// AuthConfig возвращает настройки аутентификации дашборда
func (rt *Router) AuthConfig() middleware.AuthConfig {
	return middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Probe endpoints открыты без аутентификации
	if rt.handlers.Status != nil {
		rt.mux.HandleFunc("/healthz", rt.handlers.Status.Healthz)
		rt.mux.HandleFunc("/readyz", rt.handlers.Status.Readyz)
	} else {
		rt.mux.HandleFunc("/healthz", plainOK("ok"))
		rt.mux.HandleFunc("/readyz", plainOK("ready"))
	}
	if rt.metrics != nil {
		rt.mux.Handle("/metrics", rt.metrics.Handler())
	}

	authMiddleware := middleware.Auth(rt.AuthConfig(), rt.logger)
	rateLimit := middleware.RateLimit(middleware.NewIPRateLimiter(rt.security.RateLimitPerMinute))

	api := func(h http.HandlerFunc) http.Handler {
		return rateLimit(authMiddleware(middleware.Compression(h)))
	}

	// WebSocket
	rt.mux.Handle("/ws", authMiddleware(http.HandlerFunc(rt.handlers.WebSocket.HandleConnection)))

	// Auth API
	rt.mux.Handle("/api/v1/auth/login", rateLimit(http.HandlerFunc(rt.handlers.Auth.Login)))
	rt.mux.HandleFunc("/api/v1/auth/logout", rt.handlers.Auth.Logout)
	rt.mux.HandleFunc("/api/v1/auth/status", rt.handlers.Auth.Status)

	// Dashboard API
	rt.mux.Handle("/api/v1/dashboard/customers", api(rt.handlers.Dashboard.GetCustomers))
	rt.mux.Handle("/api/v1/dashboard/customers/refresh", api(rt.handlers.Dashboard.RefreshCustomers))
	rt.mux.Handle("/api/v1/dashboard/health", api(rt.handlers.Dashboard.GetHealth))
	rt.mux.Handle("/api/v1/dashboard/overview", api(rt.handlers.Dashboard.GetOverview))

	if rt.handlers.Healthwatch != nil {
		rt.mux.Handle("/api/v1/healthwatch/summary", api(rt.handlers.Healthwatch.GetSummary))
		rt.mux.Handle("/api/v1/healthwatch/run", api(rt.handlers.Healthwatch.RunNow))
	}

	// Применяем middleware: первый в списке - внешний
	var handler http.Handler = rt.mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = middleware.Recovery(rt.logger)(handler)
	handler = middleware.Logger(rt.logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}

func plainOK(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}
