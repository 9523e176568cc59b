package healthwatch

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/application/usecase"
)

const runTimeout = 12 * time.Second

// Monitor is the part of usecase.MonitorHealthUseCase the handler needs
type Monitor interface {
	Snapshot() usecase.MonitorSnapshot
	RunOnce(ctx context.Context) *dto.HealthViewModel
}

type Handler struct {
	monitor Monitor
	now     func() time.Time
}

func NewHandler(monitor Monitor) *Handler {
	return &Handler{monitor: monitor, now: time.Now}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/readyz", h.Readyz)
	mux.HandleFunc("/summary", h.Summary)
	mux.HandleFunc("/run", h.RunNow)

	return mux
}

// Healthz reports liveness of the process itself, never the backend
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := h.monitor.Snapshot()

	response := map[string]any{
		"status": "ok",
		"uptime": h.now().Sub(snapshot.StartedAt).Round(time.Second).String(),
		"cycles": snapshot.Cycles,
	}
	if !snapshot.LastRunAt.IsZero() {
		response["last_run"] = snapshot.LastRunAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, response)
}

// Readyz is ready after the first cycle while cycles keep coming
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := h.monitor.Snapshot()
	if !snapshot.Ready() {
		http.Error(w, "not ready: no health cycle yet", http.StatusServiceUnavailable)
		return
	}
	if snapshot.Interval > 0 && h.now().Sub(snapshot.LastRunAt) > snapshot.Interval*3 {
		http.Error(w, "not ready: stale health cycle", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, newSummary(h.monitor.Snapshot()))
}

func (h *Handler) RunNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), runTimeout)
	defer cancel()

	writeJSON(w, http.StatusOK, h.monitor.RunOnce(ctx))
}

// Summary is the JSON shape of /summary
type Summary struct {
	StartedAt   time.Time            `json:"started_at"`
	Interval    string               `json:"interval"`
	LastRunAt   *time.Time           `json:"last_run_at,omitempty"`
	Cycles      int                  `json:"cycles"`
	Transitions int                  `json:"transitions"`
	Overall     string               `json:"overall,omitempty"`
	Health      *dto.HealthViewModel `json:"health,omitempty"`
}

func newSummary(snapshot usecase.MonitorSnapshot) Summary {
	summary := Summary{
		StartedAt:   snapshot.StartedAt.UTC(),
		Interval:    snapshot.Interval.String(),
		Cycles:      snapshot.Cycles,
		Transitions: snapshot.Transitions,
		Health:      snapshot.LastHealth,
	}
	if !snapshot.LastRunAt.IsZero() {
		lastRun := snapshot.LastRunAt.UTC()
		summary.LastRunAt = &lastRun
	}
	if snapshot.LastHealth != nil {
		summary.Overall = snapshot.LastHealth.Overall
	}
	return summary
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
