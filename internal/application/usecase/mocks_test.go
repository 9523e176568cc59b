package usecase

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/application/port"
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
)

type mockCustomerSource struct {
	records   []dto.CustomerRecord
	err       error
	calls     int
	lastToken string
}

func (m *mockCustomerSource) FetchCustomers(_ context.Context, token string) ([]dto.CustomerRecord, error) {
	m.calls++
	m.lastToken = token
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

type mockHealthProbe struct {
	mu       sync.Mutex
	payload  *dto.RawHealthPayload
	outcomes []valueobject.ProbeOutcome
	calls    int
}

func (m *mockHealthProbe) Probe(_ context.Context) (*dto.RawHealthPayload, valueobject.ProbeOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	outcome := m.outcomes[min(m.calls, len(m.outcomes)-1)]
	m.calls++
	if outcome.Kind != valueobject.OutcomeOK {
		return nil, outcome
	}
	return m.payload, outcome
}

// mockCache хранит значения в JSON, как настоящие реализации
type mockCache struct {
	items  map[string][]byte
	sets   int
	setErr error
}

func newMockCache() *mockCache {
	return &mockCache{items: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key string, dest interface{}) error {
	data, ok := m.items[key]
	if !ok {
		return port.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *mockCache) Set(_ context.Context, key string, value interface{}) error {
	if m.setErr != nil {
		return m.setErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.sets++
	m.items[key] = data
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	delete(m.items, key)
	return nil
}

func (m *mockCache) DeletePattern(_ context.Context, _ string) error {
	m.items = make(map[string][]byte)
	return nil
}

func (m *mockCache) Close() error { return nil }

type publishedEvent struct {
	subject string
	event   interface{}
}

type mockEventPublisher struct {
	events []publishedEvent
	err    error
}

func (m *mockEventPublisher) PublishEvent(_ context.Context, subject string, event interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, publishedEvent{subject: subject, event: event})
	return nil
}

func (m *mockEventPublisher) Close() error { return nil }

type mockNotifier struct {
	health     []*dto.HealthViewModel
	dashboards []*dto.CustomerDashboardViewModel
	alerts     []*dto.HealthAlertDTO
}

func (m *mockNotifier) BroadcastHealth(health *dto.HealthViewModel) {
	m.health = append(m.health, health)
}

func (m *mockNotifier) BroadcastDashboard(dashboard *dto.CustomerDashboardViewModel) {
	m.dashboards = append(m.dashboards, dashboard)
}

func (m *mockNotifier) BroadcastAlert(alert *dto.HealthAlertDTO) {
	m.alerts = append(m.alerts, alert)
}

func (m *mockNotifier) ClientCount() int { return 1 }

type mockKPIPublisher struct {
	dashboards []*dto.CustomerDashboardViewModel
	health     []*dto.HealthViewModel
	err        error
}

func (m *mockKPIPublisher) PublishDashboard(_ context.Context, dashboard *dto.CustomerDashboardViewModel) error {
	m.dashboards = append(m.dashboards, dashboard)
	return m.err
}

func (m *mockKPIPublisher) PublishHealth(_ context.Context, health *dto.HealthViewModel) error {
	m.health = append(m.health, health)
	return m.err
}

func (m *mockKPIPublisher) Flush(_ context.Context) error { return nil }

func sampleRecords() []dto.CustomerRecord {
	return []dto.CustomerRecord{
		{ID: "1", Name: "Ann", Email: "ann@example.com", TotalSpent: "100", Segment: "vip"},
		{ID: "2", Name: "Bob", Email: "bob@example.com", TotalSpent: "50", Segment: "new"},
		{ID: "3", Name: "Eve", Email: "eve@example.com", TotalSpent: "bad", Segment: "inactive"},
	}
}
