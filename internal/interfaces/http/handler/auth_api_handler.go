package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dreschagin/crm-dashboard/internal/interfaces/http/middleware"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

const sessionMaxAge = 12 * 60 * 60

type AuthAPIHandler struct {
	authConfig middleware.AuthConfig
	logger     *logger.Logger
}

// authLoginRequest: token - доступ к дашборду, backendToken - сессия CRM backend
type authLoginRequest struct {
	Token        string `json:"token"`
	BackendToken string `json:"backendToken"`
}

func NewAuthAPIHandler(authConfig middleware.AuthConfig, log *logger.Logger) *AuthAPIHandler {
	return &AuthAPIHandler{
		authConfig: authConfig,
		logger:     log,
	}
}

// Login проверяет токен дашборда и сохраняет токены в HttpOnly cookie
func (h *AuthAPIHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	var req authLoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	secureCookie := r.TLS != nil

	if h.authConfig.Enabled {
		token := strings.TrimSpace(req.Token)
		if token == "" || token != h.authConfig.BearerToken {
			h.logger.Warn("Auth login failed", "remote_addr", r.RemoteAddr)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		middleware.WriteAuthCookie(w, middleware.AuthCookieName, token, secureCookie, sessionMaxAge)
	}

	backendToken := strings.TrimSpace(req.BackendToken)
	if backendToken != "" {
		middleware.WriteAuthCookie(w, middleware.BackendCookieName, backendToken, secureCookie, sessionMaxAge)
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"auth_enabled":    h.authConfig.Enabled,
		"backend_session": backendToken != "",
	})
}

// Logout удаляет обе cookie
func (h *AuthAPIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	secureCookie := r.TLS != nil
	middleware.ClearAuthCookie(w, middleware.AuthCookieName, secureCookie)
	middleware.ClearAuthCookie(w, middleware.BackendCookieName, secureCookie)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

func (h *AuthAPIHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := middleware.ValidateRequestAuth(r, h.authConfig)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"auth_enabled":    h.authConfig.Enabled,
		"authenticated":   err == nil,
		"backend_session": middleware.BackendToken(r, h.authConfig) != "",
	})
}
