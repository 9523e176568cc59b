package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	promclient "github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/application/usecase"
	"github.com/dreschagin/crm-dashboard/internal/domain/service"
	"github.com/dreschagin/crm-dashboard/internal/healthwatch"
	"github.com/dreschagin/crm-dashboard/internal/infrastructure/backend"
	"github.com/dreschagin/crm-dashboard/internal/infrastructure/cache/memory"
	wsInfra "github.com/dreschagin/crm-dashboard/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/crm-dashboard/internal/infrastructure/observability/prometheus"
	"github.com/dreschagin/crm-dashboard/internal/interfaces/http/handler"
	"github.com/dreschagin/crm-dashboard/internal/interfaces/http/middleware"
	"github.com/dreschagin/crm-dashboard/pkg/config"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

const (
	testToken    = "test-token"
	backendToken = "crm-session"
)

// fakeCRM имитирует CRM backend: /api/customers требует backendToken, /api/health отвечает healthStatus
type fakeCRM struct {
	mu            sync.Mutex
	customerCalls int
	healthStatus  int
}

func (f *fakeCRM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/api/customers":
		f.customerCalls++
		if r.Header.Get("Authorization") != "Bearer "+backendToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[
			{"id":1,"name":"Ann","email":"ann@example.com","totalSpent":"1500","orderCount":12,"segment":"vip"},
			{"id":2,"name":"Bob","email":"bob@example.com","totalSpent":300,"orderCount":"3","segment":"active"},
			{"id":3,"name":"Cat","email":"cat@example.com","totalSpent":"abc","segment":"inactive"},
			{"id":4,"name":"Dan","segment":"unknown"}
		]}`))
	case "/api/health":
		if f.healthStatus != 0 && f.healthStatus != http.StatusOK {
			w.WriteHeader(f.healthStatus)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","database":{"status":"healthy"},"cache":{"status":"degraded"}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeCRM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.customerCalls
}

func (f *fakeCRM) setHealthStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthStatus = status
}

type testEnv struct {
	server  *httptest.Server
	crm     *fakeCRM
	monitor *usecase.MonitorHealthUseCase
	hub     *wsInfra.Hub
}

func newTestServer(t *testing.T, authEnabled bool) *testEnv {
	t.Helper()

	log := logger.NewNop()
	crm := &fakeCRM{}
	crmServer := httptest.NewServer(crm)
	t.Cleanup(crmServer.Close)

	metrics := prometheus.New(promclient.NewRegistry())
	client := backend.NewClient(backend.Config{
		BaseURL:      crmServer.URL,
		RetryMax:     1,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond,
	}, log).WithProbeObserver(metrics.ObserveProbe)

	hub := wsInfra.NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	publisher := usecase.NewPublishDashboardKPIsUseCase(metrics, nil, hub, log)
	dashboardUC := usecase.NewGetCustomerDashboardUseCase(client, service.NewCustomerAggregator(), memory.NewMemoryCache(time.Minute), publisher, log)
	healthUC := usecase.NewGetHealthStatusUseCase(client, service.NewHealthReducer(), log)
	overviewUC := usecase.NewGetOverviewUseCase(dashboardUC, healthUC)
	monitor := usecase.NewMonitorHealthUseCase(healthUC, hub, nil, metrics, log, time.Minute)

	security := config.SecurityConfig{
		AllowedOrigins:     []string{"http://localhost:8080"},
		AuthEnabled:        authEnabled,
		AuthToken:          testToken,
		RateLimitPerMinute: 6000,
	}
	authConfig := middleware.AuthConfig{Enabled: authEnabled, BearerToken: testToken}

	router := NewRouter(Handlers{
		Dashboard: handler.NewDashboardAPIHandler(dashboardUC, healthUC, overviewUC, authConfig, log),
		WebSocket: handler.NewWebSocketHandler(hub, security.AllowedOrigins, log),
		Auth:      handler.NewAuthAPIHandler(authConfig, log),
		Status:    healthwatch.NewHandler(monitor),
	}, metrics, security, log)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)

	return &testEnv{server: server, crm: crm, monitor: monitor, hub: hub}
}

func TestE2EHealthEndpoints(t *testing.T) {
	env := newTestServer(t, true)

	resp := doRequest(t, env.server.Client(), http.MethodGet, env.server.URL+"/healthz", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for healthz, got %d", resp.StatusCode)
	}

	resp = doRequest(t, env.server.Client(), http.MethodGet, env.server.URL+"/readyz", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before the first monitor cycle, got %d", resp.StatusCode)
	}

	env.monitor.RunOnce(t.Context())

	resp = doRequest(t, env.server.Client(), http.MethodGet, env.server.URL+"/readyz", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after the first monitor cycle, got %d", resp.StatusCode)
	}
	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestE2EAuthAndCustomerDashboard(t *testing.T) {
	env := newTestServer(t, true)
	client := env.server.Client()
	url := env.server.URL + "/api/v1/dashboard/customers"

	resp := doRequest(t, client, http.MethodGet, url, nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected dashboard auth to reject, got %d", resp.StatusCode)
	}

	// токен дашборда принят, но CRM сессии нет - backend отвечает 401
	resp = doRequest(t, client, http.MethodGet, url, nil, map[string]string{
		"Authorization": "Bearer " + testToken,
	})
	var failed dto.Result[dto.CustomerDashboardViewModel]
	decodeBody(t, resp, &failed)
	if resp.StatusCode != http.StatusUnauthorized || failed.Reason != "unauthorized" {
		t.Fatalf("expected backend unauthorized, got %d %+v", resp.StatusCode, failed)
	}

	headers := map[string]string{
		"Authorization":              "Bearer " + testToken,
		middleware.BackendHeaderName: backendToken,
	}
	resp = doRequest(t, client, http.MethodGet, url, nil, headers)
	var ready dto.Result[dto.CustomerDashboardViewModel]
	decodeBody(t, resp, &ready)
	if resp.StatusCode != http.StatusOK || !ready.IsReady() {
		t.Fatalf("expected ready dashboard, got %d %+v", resp.StatusCode, ready)
	}

	summary := ready.Data.Summary
	if summary.TotalCustomers != 4 || summary.ActiveCustomers != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	// второй запрос обслуживается из кеша
	resp = doRequest(t, client, http.MethodGet, url, nil, headers)
	resp.Body.Close()
	if calls := env.crm.calls(); calls != 2 {
		t.Fatalf("expected cached dashboard, backend called %d times", calls)
	}

	resp = doRequest(t, client, http.MethodPost, url+"/refresh", nil, headers)
	resp.Body.Close()
	if calls := env.crm.calls(); calls != 3 {
		t.Fatalf("expected refresh to bypass cache, backend called %d times", calls)
	}
}

func TestE2ELoginCookieFlow(t *testing.T) {
	env := newTestServer(t, true)
	client := env.server.Client()

	body := bytes.NewBufferString(`{"token":"` + testToken + `","backendToken":"` + backendToken + `"}`)
	resp := doRequest(t, client, http.MethodPost, env.server.URL+"/api/v1/auth/login", body, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/v1/dashboard/customers", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for _, c := range resp.Cookies() {
		req.AddCookie(c)
	}

	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected cookie session to reach dashboard, got %d", resp.StatusCode)
	}
}

func TestE2EHealthReportsAuthRequired(t *testing.T) {
	env := newTestServer(t, false)
	env.crm.setHealthStatus(http.StatusUnauthorized)

	resp := doRequest(t, env.server.Client(), http.MethodGet, env.server.URL+"/api/v1/dashboard/health", nil, nil)
	var health dto.HealthViewModel
	decodeBody(t, resp, &health)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health endpoint must always answer 200, got %d", resp.StatusCode)
	}
	if !health.AuthRequired || health.Overall != "unauthorized" {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestE2EOverview(t *testing.T) {
	env := newTestServer(t, false)

	resp := doRequest(t, env.server.Client(), http.MethodGet, env.server.URL+"/api/v1/dashboard/overview", nil, map[string]string{
		"Authorization": "Bearer " + backendToken,
	})
	var overview dto.OverviewDTO
	decodeBody(t, resp, &overview)

	if !overview.Customers.IsReady() {
		t.Fatalf("expected ready customers, got %+v", overview.Customers)
	}
	if overview.Health == nil || !overview.Health.IsHealthy {
		t.Fatalf("unexpected health: %+v", overview.Health)
	}
	if overview.Health.Cache.Level != "degraded" {
		t.Fatalf("expected degraded cache subsystem, got %+v", overview.Health.Cache)
	}
}

func TestE2EMetricsEndpoint(t *testing.T) {
	env := newTestServer(t, false)
	env.monitor.RunOnce(t.Context())

	resp := doRequest(t, env.server.Client(), http.MethodGet, env.server.URL+"/metrics", nil, nil)
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, name := range []string{"crm_dashboard_backend_probes_total", "crm_dashboard_backend_health_severity"} {
		if !strings.Contains(buf.String(), name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}

func TestE2EWebSocketReceivesHealth(t *testing.T) {
	env := newTestServer(t, true)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?token=" + testToken
	header := http.Header{"Origin": []string{"http://localhost:8080"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	env.monitor.RunOnce(t.Context())

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	var msg struct {
		Type string              `json:"type"`
		Data dto.HealthViewModel `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	if msg.Type != wsInfra.MessageHealth || !msg.Data.IsHealthy {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestE2EWebSocketRejectsForeignOrigin(t *testing.T) {
	env := newTestServer(t, false)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		t.Fatalf("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}
}

func doRequest(t *testing.T, client *http.Client, method, url string, body *bytes.Buffer, headers map[string]string) *http.Response {
	t.Helper()

	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequest(method, url, nil)
	} else {
		req, err = http.NewRequest(method, url, body)
	}
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
