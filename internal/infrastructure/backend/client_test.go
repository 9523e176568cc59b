package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreschagin/crm-dashboard/internal/application/port"
	"github.com/dreschagin/crm-dashboard/internal/domain/service"
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:      baseURL,
		APIToken:     "service-token",
		RetryMax:     2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 2 * time.Millisecond,
		Timeout:      2 * time.Second,
	}, logger.NewNop())
}

func TestClient_FetchCustomers(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, DefaultCustomersPath, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "Ann", "totalSpent": "100", "segment": "vip"},
			{"id": "2", "name": "Bob", "totalSpent": 50.5, "orderCount": 2},
			42
		]`))
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchCustomers(context.Background(), "user-token")

	require.NoError(t, err)
	assert.Equal(t, "Bearer user-token", gotAuth)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].ID.String())
	assert.Equal(t, "50.5", records[1].TotalSpent.String())
}

func TestClient_FetchCustomersEnvelopeAndFallbackToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data": [{"id": "7", "name": "Zed"}]}`))
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchCustomers(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, "Bearer service-token", gotAuth)
	require.Len(t, records, 1)
	assert.Equal(t, "Zed", records[0].Name)
}

func TestClient_FetchCustomersNotConfigured(t *testing.T) {
	_, err := newTestClient("").FetchCustomers(context.Background(), "t")
	assert.ErrorIs(t, err, port.ErrNotConfigured)
}

func TestClient_FetchCustomersUnauthorizedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchCustomers(context.Background(), "expired")

	assert.ErrorIs(t, err, port.ErrUnauthorized)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_FetchCustomersServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchCustomers(context.Background(), "")

	var te *port.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, valueobject.FailureTransport, port.ClassifyError(err))
}

func TestClient_FetchCustomersMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchCustomers(context.Background(), "")

	var te *port.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusOK, te.StatusCode)
}

func TestClient_FetchCustomersNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(url)
	client.http.RetryMax = 0
	_, err := client.FetchCustomers(context.Background(), "")

	var te *port.TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
}

func TestClient_Probe(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantKind     valueobject.OutcomeKind
		wantStatus   string
		wantDatabase string
		wantNil      bool
	}{
		{name: "ok", status: http.StatusOK, body: `{"status":"ok","database":{"status":"healthy"}}`, wantKind: valueobject.OutcomeOK, wantStatus: "ok", wantDatabase: "healthy"},
		{name: "plain string subsystem", status: http.StatusOK, body: `{"status":"unhealthy","database":"down"}`, wantKind: valueobject.OutcomeOK, wantStatus: "unhealthy", wantDatabase: "down"},
		{name: "numeric fields", status: http.StatusOK, body: `{"status":503,"cache":{"status":false}}`, wantKind: valueobject.OutcomeOK, wantStatus: "503"},
		{name: "empty body", status: http.StatusOK, body: ``, wantKind: valueobject.OutcomeOK},
		{name: "not json", status: http.StatusOK, body: `fine`, wantKind: valueobject.OutcomeOK, wantNil: true},
		{name: "unauthorized", status: http.StatusUnauthorized, wantKind: valueobject.OutcomeHTTPError, wantNil: true},
		{name: "not found", status: http.StatusNotFound, wantKind: valueobject.OutcomeHTTPError, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, DefaultHealthPath, r.URL.Path)
				assert.Equal(t, "Bearer service-token", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			var observed []valueobject.ProbeOutcome
			client := newTestClient(server.URL).WithProbeObserver(func(o valueobject.ProbeOutcome) {
				observed = append(observed, o)
			})

			payload, outcome := client.Probe(context.Background())

			assert.Equal(t, tt.wantKind, outcome.Kind)
			if tt.wantKind == valueobject.OutcomeHTTPError {
				assert.Equal(t, tt.status, outcome.StatusCode)
			}
			if tt.wantNil {
				assert.Nil(t, payload)
			} else {
				require.NotNil(t, payload)
				assert.Equal(t, tt.wantStatus, payload.Status.String())
				assert.Equal(t, tt.wantDatabase, payload.DatabaseStatus())
			}
			assert.Len(t, observed, 1)
		})
	}
}

func TestClient_ProbeBackendStatusSurvivesOddFieldTypes(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantOverall string
		wantDB      string
	}{
		{name: "string subsystem", body: `{"status":"unhealthy","database":"down"}`, wantOverall: "unhealthy", wantDB: "down"},
		{name: "array modules", body: `{"status":"degraded","modules":[1,2],"cache":[]}`, wantOverall: "degraded", wantDB: service.StatusHealthy},
		{name: "top-level array", body: `["unhealthy"]`, wantOverall: service.StatusHealthy, wantDB: service.StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			payload, outcome := newTestClient(server.URL).Probe(context.Background())
			require.NotNil(t, payload)

			report := service.NewHealthReducer().Reduce(payload.ToDomain(), outcome)

			assert.Equal(t, tt.wantOverall, report.Overall)
			assert.Equal(t, tt.wantDB, report.Database.Status)
		})
	}
}

func TestClient_ProbeNotConfiguredMakesNoCall(t *testing.T) {
	payload, outcome := newTestClient("  ").Probe(context.Background())

	assert.Nil(t, payload)
	assert.Equal(t, valueobject.OutcomeNotConfigured, outcome.Kind)
}

func TestClient_ProbeUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(url)
	client.http.RetryMax = 0
	_, outcome := client.Probe(context.Background())

	assert.Equal(t, valueobject.OutcomeNetworkFailure, outcome.Kind)
	assert.Error(t, outcome.Err)
}
