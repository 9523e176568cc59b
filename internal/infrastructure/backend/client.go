package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/application/port"
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

const (
	DefaultCustomersPath = "/api/customers"
	DefaultHealthPath    = "/api/health"

	maxCustomersResponseBytes = 8 << 20
	maxHealthResponseBytes    = 64 << 10
)

// Config describes how to reach the CRM backend.
// An empty BaseURL means the backend is not configured.
type Config struct {
	BaseURL       string
	APIToken      string
	CustomersPath string
	HealthPath    string
	Timeout       time.Duration
	RetryMax      int
	RetryWaitMin  time.Duration
	RetryWaitMax  time.Duration
}

// ProbeObserver receives every health probe outcome (used for metrics)
type ProbeObserver func(outcome valueobject.ProbeOutcome)

// Client talks to the CRM backend over HTTP.
// It implements port.CustomerSource and port.HealthProbe.
type Client struct {
	baseURL       string
	token         string
	customersPath string
	healthPath    string
	http          *retryablehttp.Client
	logger        *logger.Logger
	observer      ProbeObserver
}

// NewClient creates a backend client. Transient failures (network errors, 429, 5xx)
// are retried; 401 and other 4xx responses are returned immediately.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.CustomersPath == "" {
		cfg.CustomersPath = DefaultCustomersPath
	}
	if cfg.HealthPath == "" {
		cfg.HealthPath = DefaultHealthPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = max(cfg.RetryMax, 0)
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.CheckRetry = retryablehttp.DefaultRetryPolicy
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{log: log}

	return &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:         cfg.APIToken,
		customersPath: cfg.CustomersPath,
		healthPath:    cfg.HealthPath,
		http:          rc,
		logger:        log,
	}
}

// WithProbeObserver registers a callback invoked after every Probe
func (c *Client) WithProbeObserver(observer ProbeObserver) *Client {
	c.observer = observer
	return c
}

// Configured reports whether a backend endpoint is available
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// FetchCustomers loads GET {base}/api/customers with the caller's bearer token,
// falling back to the configured service token.
func (c *Client) FetchCustomers(ctx context.Context, token string) ([]dto.CustomerRecord, error) {
	if !c.Configured() {
		return nil, port.ErrNotConfigured
	}

	resp, err := c.get(ctx, c.customersPath, c.tokenFor(token))
	if err != nil {
		return nil, &port.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, err
	}

	body, err := readLimited(resp.Body, maxCustomersResponseBytes)
	if err != nil {
		return nil, &port.TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read customers: %w", err)}
	}

	records, skipped, err := dto.DecodeCustomerList(body)
	if err != nil {
		return nil, &port.TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode customers: %w", err)}
	}
	if skipped > 0 {
		c.logger.Warn("Skipped malformed customer entries", "skipped", skipped, "kept", len(records))
	}

	return records, nil
}

// Probe calls GET {base}/api/health. It never returns an error: every failure is an outcome.
func (c *Client) Probe(ctx context.Context) (*dto.RawHealthPayload, valueobject.ProbeOutcome) {
	payload, outcome := c.probe(ctx)
	if c.observer != nil {
		c.observer(outcome)
	}
	return payload, outcome
}

func (c *Client) probe(ctx context.Context) (*dto.RawHealthPayload, valueobject.ProbeOutcome) {
	if !c.Configured() {
		return nil, valueobject.OutcomeMissingEndpoint()
	}

	resp, err := c.get(ctx, c.healthPath, c.token)
	if err != nil {
		return nil, valueobject.OutcomeUnreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxHealthResponseBytes))
		return nil, valueobject.OutcomeHTTPStatus(resp.StatusCode)
	}

	body, err := readLimited(resp.Body, maxHealthResponseBytes)
	if err != nil {
		return nil, valueobject.OutcomeUnreachable(fmt.Errorf("read health: %w", err))
	}

	// тело без JSON трактуется как пустой ответ: статусы подсистем получат значения по умолчанию.
	// Поля с неожиданным типом не отбрасывают остальные статусы из ответа.
	var payload dto.RawHealthPayload
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				c.logger.Warn("Health payload has unexpected field types, keeping decoded fields", "error", err.Error())
				return &payload, valueobject.OutcomeSuccess()
			}
			c.logger.Warn("Health payload is not valid JSON, treating as empty", "error", err.Error())
			return nil, valueobject.OutcomeSuccess()
		}
	}

	return &payload, valueobject.OutcomeSuccess()
}

func (c *Client) get(ctx context.Context, path, token string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) tokenFor(callerToken string) string {
	if callerToken != "" {
		return callerToken
	}
	return c.token
}

// statusError maps non-2xx responses to port errors and drains the body
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	snippet, _ := readLimited(resp.Body, 512)
	if resp.StatusCode == http.StatusUnauthorized {
		return port.ErrUnauthorized
	}

	return &port.TransportError{
		StatusCode: resp.StatusCode,
		Err:        errors.New(strings.TrimSpace(string(snippet))),
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

// leveledLogger adapts logger.Logger to retryablehttp.LeveledLogger
type leveledLogger struct {
	log *logger.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Warn("backend http: "+msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("backend http: "+msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug("backend http: "+msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn("backend http: "+msg, keysAndValues...)
}
