package handler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dreschagin/crm-dashboard/internal/interfaces/http/middleware"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

const maxHealthwatchResponseBytes = 1 << 20

// HealthwatchAPIHandler проксирует запросы к отдельному сервису healthwatch
type HealthwatchAPIHandler struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

func NewHealthwatchAPIHandler(baseURL string, timeout time.Duration, log *logger.Logger) *HealthwatchAPIHandler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &HealthwatchAPIHandler{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

func (h *HealthwatchAPIHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.proxy(r.Context(), w, http.MethodGet, "/summary")
}

func (h *HealthwatchAPIHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.proxy(r.Context(), w, http.MethodPost, "/run")
}

func (h *HealthwatchAPIHandler) proxy(ctx context.Context, w http.ResponseWriter, method string, path string) {
	if h.baseURL == "" {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "healthwatch URL is not configured",
		})
		return
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, nil)
	if err != nil {
		h.logger.Error("Failed to build healthwatch request", err, "path", path)
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to build healthwatch request",
		})
		return
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Error("Healthwatch request failed", err, "path", path)
		middleware.WriteJSON(w, http.StatusBadGateway, map[string]string{
			"error": "healthwatch is unavailable",
		})
		return
	}
	defer resp.Body.Close()

	body, err := readLimited(resp.Body, maxHealthwatchResponseBytes)
	if err != nil {
		h.logger.Error("Failed to read healthwatch response body", err, "path", path)
		middleware.WriteJSON(w, http.StatusBadGateway, map[string]string{
			"error": "failed to read healthwatch response",
		})
		return
	}

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = "application/json"
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("Failed to write healthwatch response to client", "path", path, "error", err.Error())
	}
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	lr := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}
