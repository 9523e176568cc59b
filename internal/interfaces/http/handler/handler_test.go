package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/crm-dashboard/internal/interfaces/http/middleware"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

type stubDashboard struct {
	result      dto.Result[dto.CustomerDashboardViewModel]
	tokens      []string
	invalidated []string
}

func (s *stubDashboard) Execute(_ context.Context, token string) dto.Result[dto.CustomerDashboardViewModel] {
	s.tokens = append(s.tokens, token)
	return s.result
}

func (s *stubDashboard) Invalidate(_ context.Context, token string) error {
	s.invalidated = append(s.invalidated, token)
	return nil
}

type stubHealth struct {
	vm *dto.HealthViewModel
}

func (s *stubHealth) Execute(context.Context) *dto.HealthViewModel {
	return s.vm
}

type stubOverview struct {
	token string
}

func (s *stubOverview) Execute(_ context.Context, token string) *dto.OverviewDTO {
	s.token = token
	return &dto.OverviewDTO{
		Customers: dto.Failed[dto.CustomerDashboardViewModel](valueobject.FailureNotConfigured, "backend not configured"),
		Health:    &dto.HealthViewModel{Overall: "not configured"},
	}
}

func newDashboardHandler(dashboard *stubDashboard, health *stubHealth, overview *stubOverview) *DashboardAPIHandler {
	return NewDashboardAPIHandler(dashboard, health, overview, middleware.AuthConfig{}, logger.NewNop())
}

func TestDashboardAPIHandler_GetCustomers(t *testing.T) {
	tests := []struct {
		name       string
		result     dto.Result[dto.CustomerDashboardViewModel]
		wantStatus int
		wantReason string
	}{
		{
			name:       "ready",
			result:     dto.Ready(&dto.CustomerDashboardViewModel{Summary: dto.CustomerSummaryDTO{TotalCustomers: 2}}),
			wantStatus: http.StatusOK,
		},
		{
			name:       "unauthorized",
			result:     dto.Failed[dto.CustomerDashboardViewModel](valueobject.FailureUnauthorized, "session expired"),
			wantStatus: http.StatusUnauthorized,
			wantReason: "unauthorized",
		},
		{
			name:       "not configured",
			result:     dto.Failed[dto.CustomerDashboardViewModel](valueobject.FailureNotConfigured, "backend not configured"),
			wantStatus: http.StatusServiceUnavailable,
			wantReason: "not_configured",
		},
		{
			name:       "transport",
			result:     dto.Failed[dto.CustomerDashboardViewModel](valueobject.FailureTransport, "backend unreachable"),
			wantStatus: http.StatusBadGateway,
			wantReason: "transport",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dashboard := &stubDashboard{result: tt.result}
			h := newDashboardHandler(dashboard, &stubHealth{}, &stubOverview{})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/customers", nil)
			req.Header.Set("Authorization", "Bearer user-token")
			rec := httptest.NewRecorder()
			h.GetCustomers(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, []string{"user-token"}, dashboard.tokens)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.wantReason == "" {
				assert.Equal(t, "ready", body["state"])
				return
			}
			assert.Equal(t, "failed", body["state"])
			assert.Equal(t, tt.wantReason, body["reason"])
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, backendRealm, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestDashboardAPIHandler_RefreshInvalidatesCache(t *testing.T) {
	dashboard := &stubDashboard{result: dto.Ready(&dto.CustomerDashboardViewModel{})}
	h := newDashboardHandler(dashboard, &stubHealth{}, &stubOverview{})

	rec := httptest.NewRecorder()
	h.RefreshCustomers(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/customers/refresh", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dashboard/customers/refresh", nil)
	req.Header.Set(middleware.BackendHeaderName, "crm-user-token")
	rec = httptest.NewRecorder()
	h.RefreshCustomers(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"crm-user-token"}, dashboard.invalidated)
	assert.Equal(t, []string{"crm-user-token"}, dashboard.tokens)
}

func TestDashboardAPIHandler_HealthAlwaysOK(t *testing.T) {
	health := &stubHealth{vm: &dto.HealthViewModel{
		Overall:      "unauthorized",
		OverallLevel: valueobject.HealthUnknown,
		AuthRequired: true,
	}}
	h := newDashboardHandler(&stubDashboard{}, health, &stubOverview{})

	rec := httptest.NewRecorder()
	h.GetHealth(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["authRequired"])
	assert.Equal(t, "unauthorized", body["overall"])
}

func TestDashboardAPIHandler_Overview(t *testing.T) {
	overview := &stubOverview{}
	h := newDashboardHandler(&stubDashboard{}, &stubHealth{}, overview)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/overview", nil)
	req.Header.Set(middleware.BackendHeaderName, "crm-token")
	rec := httptest.NewRecorder()
	h.GetOverview(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "crm-token", overview.token)
	assert.Contains(t, rec.Body.String(), `"reason":"not_configured"`)
}

func TestAuthAPIHandler_LoginSetsCookies(t *testing.T) {
	h := NewAuthAPIHandler(middleware.AuthConfig{Enabled: true, BearerToken: "dash"}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"token":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"token":"dash","backendToken":"crm"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c.Value
	}
	assert.Equal(t, "dash", cookies[middleware.AuthCookieName])
	assert.Equal(t, "crm", cookies[middleware.BackendCookieName])
}

func TestAuthAPIHandler_Status(t *testing.T) {
	h := NewAuthAPIHandler(middleware.AuthConfig{Enabled: true, BearerToken: "dash"}, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AuthCookieName, Value: "dash"})
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, false, body["backend_session"])
}

func TestWebSocketHandler_CheckOrigin(t *testing.T) {
	h := NewWebSocketHandler(nil, []string{"https://crm.example.com/", " "}, logger.NewNop())

	tests := []struct {
		origin string
		want   bool
	}{
		{origin: "", want: true},
		{origin: "https://crm.example.com", want: true},
		{origin: "https://evil.example.com", want: false},
		{origin: "::bad", want: false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, h.checkOrigin(req), "origin %q", tt.origin)
	}
}

func TestHealthwatchAPIHandler_Proxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/summary" && r.Method == http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"cycles":3}`))
		case r.URL.Path == "/run" && r.Method == http.MethodPost:
			_, _ = w.Write([]byte(`{"overall":"healthy"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	h := NewHealthwatchAPIHandler(upstream.URL+"/", 0, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/v1/healthwatch/summary", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cycles":3}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.RunNow(rec, httptest.NewRequest(http.MethodPost, "/api/v1/healthwatch/run", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHealthwatchAPIHandler_NotConfigured(t *testing.T) {
	h := NewHealthwatchAPIHandler("", 0, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/v1/healthwatch/summary", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
