package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/application/port"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

// MonitorSnapshot - состояние фонового монитора здоровья
type MonitorSnapshot struct {
	StartedAt   time.Time            `json:"started_at"`
	Interval    time.Duration        `json:"interval"`
	LastRunAt   time.Time            `json:"last_run_at"`
	Cycles      int                  `json:"cycles"`
	Transitions int                  `json:"transitions"`
	LastHealth  *dto.HealthViewModel `json:"last_health,omitempty"`
}

// Ready возвращает true после первого завершенного цикла
func (s MonitorSnapshot) Ready() bool {
	return s.Cycles > 0
}

// MonitorHealthUseCase периодически проверяет backend и рассылает смену статуса
type MonitorHealthUseCase struct {
	health   *GetHealthStatusUseCase
	notifier port.NotificationService
	events   port.EventPublisher
	kpis     port.KPIPublisher
	log      *logger.Logger
	interval time.Duration

	runMu sync.Mutex

	mu          sync.RWMutex
	startedAt   time.Time
	lastRunAt   time.Time
	cycles      int
	transitions int
	last        *dto.HealthViewModel
}

// NewMonitorHealthUseCase создает монитор; notifier, events и kpis опциональны
func NewMonitorHealthUseCase(
	health *GetHealthStatusUseCase,
	notifier port.NotificationService,
	events port.EventPublisher,
	kpis port.KPIPublisher,
	log *logger.Logger,
	interval time.Duration,
) *MonitorHealthUseCase {
	return &MonitorHealthUseCase{
		health:    health,
		notifier:  notifier,
		events:    events,
		kpis:      kpis,
		log:       log,
		interval:  interval,
		startedAt: time.Now(),
	}
}

// Start запускает цикл проверок до отмены контекста
func (m *MonitorHealthUseCase) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce выполняет один цикл и возвращает полученную модель здоровья
func (m *MonitorHealthUseCase) RunOnce(ctx context.Context) *dto.HealthViewModel {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout())
	defer cancel()

	current := m.health.Execute(probeCtx)
	previous, changed := m.record(current)

	if m.kpis != nil {
		if err := m.kpis.PublishHealth(ctx, current); err != nil {
			m.log.Warn("Failed to publish health KPI", "error", err.Error())
		}
	}

	if !changed {
		m.log.Debug("Health unchanged", "overall", current.Overall)
		return current
	}

	m.log.Info("Health status changed",
		"previous", overallOf(previous),
		"current", current.Overall,
		"auth_required", current.AuthRequired)

	if m.notifier != nil {
		m.notifier.BroadcastHealth(current)
		if !current.IsHealthy {
			m.notifier.BroadcastAlert(dto.NewHealthAlertDTO(current, alertMessage(current)))
		}
	}

	if m.events != nil {
		event := dto.NewHealthChangedEvent(previous, current)
		if err := m.events.PublishEvent(ctx, dto.SubjectHealthChanged, event); err != nil {
			m.log.Warn("Failed to publish health change event", "error", err.Error())
		}
	}

	return current
}

// Snapshot возвращает копию текущего состояния монитора
func (m *MonitorHealthUseCase) Snapshot() MonitorSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := MonitorSnapshot{
		StartedAt:   m.startedAt,
		Interval:    m.interval,
		LastRunAt:   m.lastRunAt,
		Cycles:      m.cycles,
		Transitions: m.transitions,
	}

	if m.last != nil {
		copied := *m.last
		snapshot.LastHealth = &copied
	}

	return snapshot
}

// record сохраняет результат цикла и сообщает, изменился ли статус
func (m *MonitorHealthUseCase) record(current *dto.HealthViewModel) (*dto.HealthViewModel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.last
	changed := !previous.Equivalent(current)

	m.last = current
	m.lastRunAt = current.CheckedAt
	m.cycles++
	if changed {
		m.transitions++
	}

	return previous, changed
}

func (m *MonitorHealthUseCase) probeTimeout() time.Duration {
	if m.interval > 0 && m.interval < 10*time.Second {
		return m.interval
	}
	return 10 * time.Second
}

func overallOf(vm *dto.HealthViewModel) string {
	if vm == nil {
		return ""
	}
	return vm.Overall
}

func alertMessage(vm *dto.HealthViewModel) string {
	switch {
	case vm.AuthRequired:
		return "Backend requires authentication"
	case vm.IsUnhealthy:
		return "Backend is unreachable or reports an error"
	case vm.IsDegraded:
		return "Backend is degraded"
	default:
		return "Backend health is unknown"
	}
}
