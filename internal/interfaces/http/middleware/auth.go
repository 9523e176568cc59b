package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

var ErrUnauthorized = errors.New("unauthorized")

type AuthConfig struct {
	Enabled     bool
	BearerToken string
}

const (
	AuthCookieName    = "crm_dashboard_auth_token"
	BackendCookieName = "crm_backend_token"
	BackendHeaderName = "X-CRM-Token"
	authRealm         = `Bearer realm="crm-dashboard"`
)

// Auth защищает endpoint простым Bearer token механизмом
func Auth(cfg AuthConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ValidateRequestAuth(r, cfg); err != nil {
				log.Warn("Unauthorized request",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"request_id", RequestIDFromContext(r.Context()),
				)
				w.Header().Set("WWW-Authenticate", authRealm)
				WriteJSON(w, http.StatusUnauthorized, map[string]string{
					"error": "unauthorized",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func ValidateRequestAuth(r *http.Request, cfg AuthConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.BearerToken) == "" {
		return ErrUnauthorized
	}

	token := ExtractToken(r)
	if token == "" || token != cfg.BearerToken {
		return ErrUnauthorized
	}

	return nil
}

// ExtractToken возвращает токен доступа к дашборду: Authorization, cookie или ?token=
func ExtractToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}

	if value := cookieValue(r, AuthCookieName); value != "" {
		return value
	}

	// Для WebSocket браузер не может отправить кастомный Authorization header через new WebSocket().
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// BackendToken возвращает токен, который пробрасывается в CRM backend.
// X-CRM-Token и cookie имеют приоритет; Bearer токен используется, только если
// собственная аутентификация дашборда выключена.
func BackendToken(r *http.Request, cfg AuthConfig) string {
	if token := strings.TrimSpace(r.Header.Get(BackendHeaderName)); token != "" {
		return token
	}
	if value := cookieValue(r, BackendCookieName); value != "" {
		return value
	}
	if cfg.Enabled {
		return ""
	}
	return bearerToken(r)
}

func bearerToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return ""
	}
	scheme, value, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

func WriteAuthCookie(w http.ResponseWriter, name, token string, secure bool, maxAgeSeconds int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAgeSeconds,
	})
}

func ClearAuthCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// WriteJSON сериализует payload до отправки заголовков: при ошибке клиент получает 500, а не пустой ответ
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
