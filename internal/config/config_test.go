package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Fatalf("addr=%q", cfg.Addr)
	}
	if cfg.CacheTTL != 60*time.Second {
		t.Fatalf("cache ttl=%v", cfg.CacheTTL)
	}
	if cfg.CatalogPath != "catalog.json" {
		t.Fatalf("catalog path=%q", cfg.CatalogPath)
	}
	if cfg.OrderLimitPerMin != 30 || cfg.AssistLimitPerMin != 10 {
		t.Fatalf("limits=%d,%d", cfg.OrderLimitPerMin, cfg.AssistLimitPerMin)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PHARMACY_ADDR", ":9090")
	t.Setenv("PHARMACY_CACHE_TTL", "5s")
	t.Setenv("PHARMACY_METRICS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Fatalf("addr=%q", cfg.Addr)
	}
	if cfg.CacheTTL != 5*time.Second {
		t.Fatalf("cache ttl=%v", cfg.CacheTTL)
	}
	if !cfg.MetricsEnabled {
		t.Fatalf("metrics should be enabled")
	}
}
