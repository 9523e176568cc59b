package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Источники списка клиентов
const (
	SourceAPI      = "api"
	SourcePostgres = "postgres"
	SourceS3       = "s3"
)

// Драйверы кэша
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Backend    BackendConfig
	Customers  CustomerSourceConfig
	Database   DatabaseConfig
	S3         S3Config
	Cache      CacheConfig
	NATS       NATSConfig
	CloudWatch CloudWatchConfig
	Monitor    MonitorConfig
	Security   SecurityConfig
	Dashboard  DashboardConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// BackendConfig описывает CRM backend. Пустой BaseURL означает "не настроен".
type BackendConfig struct {
	BaseURL      string
	APIToken     string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Configured возвращает true, если адрес backend задан
func (c BackendConfig) Configured() bool {
	return strings.TrimSpace(c.BaseURL) != ""
}

type CustomerSourceConfig struct {
	Kind string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	Table           string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type S3Config struct {
	Bucket          string
	Key             string
	Format          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

type CacheConfig struct {
	Driver        string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type NATSConfig struct {
	Enabled bool
	URL     string
}

type CloudWatchConfig struct {
	Enabled       bool
	Namespace     string
	Region        string
	FlushInterval time.Duration
}

type MonitorConfig struct {
	Enabled  bool
	Interval time.Duration
	Port     string
	// WatchURL - адрес отдельного healthwatch сервиса для проксирования /api/v1/healthwatch/*
	WatchURL string
}

type SecurityConfig struct {
	AllowedOrigins     []string
	AuthEnabled        bool
	AuthToken          string
	RateLimitPerMinute int
}

type DashboardConfig struct {
	TopCustomersLimit int
	AtRiskLimit       int
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	backendTimeout, err := parseDuration(getEnv("BACKEND_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BACKEND_TIMEOUT: %w", err)
	}

	retryMax, err := strconv.Atoi(getEnv("BACKEND_RETRY_MAX", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid BACKEND_RETRY_MAX: %w", err)
	}

	retryWaitMin, err := parseDuration(getEnv("BACKEND_RETRY_WAIT_MIN", "200ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid BACKEND_RETRY_WAIT_MIN: %w", err)
	}

	retryWaitMax, err := parseDuration(getEnv("BACKEND_RETRY_WAIT_MAX", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BACKEND_RETRY_WAIT_MAX: %w", err)
	}

	cacheTTL, err := parseDuration(getEnv("CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	flushInterval, err := parseDuration(getEnv("CLOUDWATCH_FLUSH_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_FLUSH_INTERVAL: %w", err)
	}

	monitorInterval, err := parseDuration(getEnv("HEALTH_MONITOR_INTERVAL", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HEALTH_MONITOR_INTERVAL: %w", err)
	}

	rateLimitPerMinute, err := strconv.Atoi(getEnv("API_RATE_LIMIT_PER_MINUTE", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_RATE_LIMIT_PER_MINUTE: %w", err)
	}

	topLimit, err := strconv.Atoi(getEnv("DASHBOARD_TOP_CUSTOMERS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DASHBOARD_TOP_CUSTOMERS: %w", err)
	}

	atRiskLimit, err := strconv.Atoi(getEnv("DASHBOARD_AT_RISK", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid DASHBOARD_AT_RISK: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Backend: BackendConfig{
			BaseURL:      strings.TrimRight(getEnv("BACKEND_BASE_URL", ""), "/"),
			APIToken:     getEnv("BACKEND_API_TOKEN", ""),
			Timeout:      backendTimeout,
			RetryMax:     retryMax,
			RetryWaitMin: retryWaitMin,
			RetryWaitMax: retryWaitMax,
		},
		Customers: CustomerSourceConfig{
			Kind: strings.ToLower(getEnv("CUSTOMER_SOURCE", SourceAPI)),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "crm"),
			Table:           getEnv("DB_CUSTOMERS_TABLE", "customers"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		S3: S3Config{
			Bucket:          getEnv("S3_BUCKET", ""),
			Key:             getEnv("S3_CUSTOMERS_KEY", "exports/customers.json"),
			Format:          strings.ToLower(getEnv("S3_CUSTOMERS_FORMAT", "json")),
			Region:          getEnv("S3_REGION", "ru-central1"),
			Endpoint:        getEnv("S3_ENDPOINT", "https://storage.yandexcloud.net"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
		},
		Cache: CacheConfig{
			Driver:        strings.ToLower(getEnv("CACHE_DRIVER", CacheMemory)),
			TTL:           cacheTTL,
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		CloudWatch: CloudWatchConfig{
			Enabled:       getEnvBool("CLOUDWATCH_ENABLED", false),
			Namespace:     getEnv("CLOUDWATCH_NAMESPACE", "CRMDashboard"),
			Region:        getEnv("AWS_REGION", "us-east-1"),
			FlushInterval: flushInterval,
		},
		Monitor: MonitorConfig{
			Enabled:  getEnvBool("HEALTH_MONITOR_ENABLED", true),
			Interval: monitorInterval,
			Port:     getEnv("HEALTHWATCH_PORT", "8090"),
			WatchURL: strings.TrimRight(getEnv("HEALTHWATCH_URL", ""), "/"),
		},
		Security: SecurityConfig{
			AllowedOrigins:     splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:        getEnvBool("AUTH_ENABLED", false),
			AuthToken:          getEnv("AUTH_BEARER_TOKEN", ""),
			RateLimitPerMinute: rateLimitPerMinute,
		},
		Dashboard: DashboardConfig{
			TopCustomersLimit: topLimit,
			AtRiskLimit:       atRiskLimit,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Security.AuthEnabled && c.Security.AuthToken == "" {
		return fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}

	switch c.Customers.Kind {
	case SourceAPI, SourcePostgres:
	case SourceS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when CUSTOMER_SOURCE=s3")
		}
		if c.S3.Format != "json" && c.S3.Format != "csv" {
			return fmt.Errorf("S3_CUSTOMERS_FORMAT must be json or csv, got %q", c.S3.Format)
		}
	default:
		return fmt.Errorf("CUSTOMER_SOURCE must be one of api, postgres, s3, got %q", c.Customers.Kind)
	}

	switch c.Cache.Driver {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("CACHE_DRIVER must be one of none, memory, redis, got %q", c.Cache.Driver)
	}

	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("HEALTH_MONITOR_INTERVAL must be positive")
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
