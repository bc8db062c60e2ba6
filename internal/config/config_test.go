package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Addr)
	}
	if cfg.FlushInterval != 5*time.Minute {
		t.Fatalf("unexpected flush interval %v", cfg.FlushInterval)
	}
	if !cfg.FactionPointsEnabled || cfg.MaxBalanceEnabled {
		t.Fatalf("unexpected feature flags: %+v", cfg)
	}
	if cfg.HistoryPageSize != 200 || cfg.DecimalPlaces != 2 {
		t.Fatalf("unexpected paging/formatting defaults: %+v", cfg)
	}
	if cfg.MaxBalanceLimit().IsNeg() {
		t.Fatal("max balance must not parse negative")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("MAX_BALANCE_ENABLED", "true")
	t.Setenv("MAX_BALANCE", "5000")
	t.Setenv("FLUSH_INTERVAL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || !cfg.MaxBalanceEnabled || cfg.FlushInterval != 30*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.MaxBalanceLimit().String() != "5000" {
		t.Fatalf("unexpected max balance %s", cfg.MaxBalanceLimit())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"MAX_BALANCE":       "lots",
		"HISTORY_PAGE_SIZE": "0",
		"DECIMAL_PLACES":    "-1",
		"FLUSH_INTERVAL":    "0s",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}
