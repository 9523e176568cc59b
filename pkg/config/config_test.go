package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "")
	t.Setenv("CUSTOMER_SOURCE", "")
	t.Setenv("CACHE_DRIVER", "")
	t.Setenv("AUTH_ENABLED", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Backend.Configured() {
		t.Fatalf("expected backend to be not configured by default")
	}
	if cfg.Customers.Kind != SourceAPI {
		t.Fatalf("expected api source, got %q", cfg.Customers.Kind)
	}
	if cfg.Cache.Driver != CacheMemory {
		t.Fatalf("expected memory cache, got %q", cfg.Cache.Driver)
	}
	if cfg.Monitor.Interval != 15*time.Second {
		t.Fatalf("expected 15s monitor interval, got %v", cfg.Monitor.Interval)
	}
	if cfg.Dashboard.TopCustomersLimit != 5 || cfg.Dashboard.AtRiskLimit != 4 {
		t.Fatalf("unexpected dashboard limits: %+v", cfg.Dashboard)
	}
}

func TestLoad_BackendURLTrimmed(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://crm.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Backend.BaseURL != "https://crm.example.com" {
		t.Fatalf("unexpected base url %q", cfg.Backend.BaseURL)
	}
	if !cfg.Backend.Configured() {
		t.Fatalf("expected backend to be configured")
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "auth without token", env: map[string]string{"AUTH_ENABLED": "true", "AUTH_BEARER_TOKEN": ""}},
		{name: "unknown source", env: map[string]string{"CUSTOMER_SOURCE": "mongo"}},
		{name: "s3 without bucket", env: map[string]string{"CUSTOMER_SOURCE": "s3", "S3_BUCKET": ""}},
		{name: "s3 bad format", env: map[string]string{"CUSTOMER_SOURCE": "s3", "S3_BUCKET": "b", "S3_CUSTOMERS_FORMAT": "xml"}},
		{name: "unknown cache", env: map[string]string{"CACHE_DRIVER": "memcached"}},
		{name: "bad duration", env: map[string]string{"CACHE_TTL": "soon"}},
		{name: "zero monitor interval", env: map[string]string{"HEALTH_MONITOR_INTERVAL": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" a, b ,,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected split result: %v", got)
	}
}
