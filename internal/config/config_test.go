package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func baseConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("default load failed: %v", err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := baseConfig(t)

	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("http_addr=%s want=:8080", cfg.Server.HTTPAddr)
	}
	if cfg.Poll.Interval != 30*time.Second {
		t.Fatalf("poll interval=%s want=30s", cfg.Poll.Interval)
	}
	if cfg.Poll.SlowThreshold != 2*time.Second {
		t.Fatalf("slow threshold=%s want=2s", cfg.Poll.SlowThreshold)
	}
	if len(cfg.Endpoints) != 3 {
		t.Fatalf("endpoints=%d want=3", len(cfg.Endpoints))
	}
	if cfg.Endpoints[0].Name != "autonomous" || !cfg.Endpoints[0].Critical {
		t.Fatalf("first endpoint=%+v, want critical autonomous", cfg.Endpoints[0])
	}
	if cfg.Endpoints[2].Critical {
		t.Fatalf("marketdata must not default to critical")
	}
	if len(cfg.Control.Endpoints) != 2 {
		t.Fatalf("control endpoints=%d want=2", len(cfg.Control.Endpoints))
	}
	if len(cfg.Synthesis.Strategies) != 3 {
		t.Fatalf("strategies=%d want=3", len(cfg.Synthesis.Strategies))
	}
	if len(cfg.Consistency) != 4 {
		t.Fatalf("consistency rules=%d want=4", len(cfg.Consistency))
	}
	if cfg.Prefs.RecentSearchLimit != 20 {
		t.Fatalf("recent search limit=%d want=20", cfg.Prefs.RecentSearchLimit)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  http_addr: ":9090"
poll:
  interval: 5s
endpoints:
  - name: only
    url: http://localhost:7000/status
    critical: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":9090" {
		t.Fatalf("http_addr=%s want=:9090", cfg.Server.HTTPAddr)
	}
	if cfg.Poll.Interval != 5*time.Second {
		t.Fatalf("interval=%s want=5s", cfg.Poll.Interval)
	}
	if len(cfg.Endpoints) != 1 || cfg.Endpoints[0].Name != "only" {
		t.Fatalf("endpoints=%+v, want the single file-defined endpoint", cfg.Endpoints)
	}
	// Sections the file does not mention keep their defaults.
	if len(cfg.Synthesis.Strategies) != 3 {
		t.Fatalf("strategies=%d want default 3", len(cfg.Synthesis.Strategies))
	}
}

func TestInjectedBlockFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
injected:
  market_open: true
  total_trades: 1250
  daily_pnl: 340.25
  success_rate: 0.62
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Injected.Empty() {
		t.Fatalf("injected block must be populated")
	}
	if cfg.Injected.MarketOpen == nil || !*cfg.Injected.MarketOpen {
		t.Fatalf("market_open=%v want=true", cfg.Injected.MarketOpen)
	}
	if cfg.Injected.TotalTrades == nil || *cfg.Injected.TotalTrades != 1250 {
		t.Fatalf("total_trades=%v want=1250", cfg.Injected.TotalTrades)
	}
	if cfg.Injected.DailyPnl == nil || *cfg.Injected.DailyPnl != 340.25 {
		t.Fatalf("daily_pnl=%v want=340.25", cfg.Injected.DailyPnl)
	}
	if cfg.Injected.SuccessRate == nil || *cfg.Injected.SuccessRate != 0.62 {
		t.Fatalf("success_rate=%v want=0.62", cfg.Injected.SuccessRate)
	}
}

func TestInjectedBlockDefaultsEmpty(t *testing.T) {
	cfg := baseConfig(t)
	if !cfg.Injected.Empty() {
		t.Fatalf("injected=%+v, want empty without explicit config", cfg.Injected)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Poll.Interval = 0 },
			wantSub: "poll.interval",
		},
		{
			name:    "no endpoints",
			mutate:  func(c *Config) { c.Endpoints = nil },
			wantSub: "at least one upstream endpoint",
		},
		{
			name: "duplicate endpoint names",
			mutate: func(c *Config) {
				c.Endpoints = append(c.Endpoints, EndpointConfig{Name: "autonomous", URL: "http://localhost:1/x"})
			},
			wantSub: "duplicate name",
		},
		{
			name:    "endpoint without url",
			mutate:  func(c *Config) { c.Endpoints[0].URL = " " },
			wantSub: "url is required",
		},
		{
			name: "weights off unity",
			mutate: func(c *Config) {
				c.Synthesis.Strategies = []StrategyWeightConfig{
					{Name: "momentum", Weight: 0.4},
					{Name: "breakout", Weight: 0.4},
				}
			},
			wantSub: "sum to 1.0",
		},
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Synthesis.Strategies[0].Weight = -0.4 },
			wantSub: "weight must be > 0",
		},
		{
			name:    "action ratio out of range",
			mutate:  func(c *Config) { c.Synthesis.Actions.StopLoss = 1.5 },
			wantSub: "within [0,1]",
		},
		{
			name: "negative injected trades",
			mutate: func(c *Config) {
				trades := int64(-1)
				c.Injected.TotalTrades = &trades
			},
			wantSub: "injected.total_trades",
		},
		{
			name: "injected success rate out of range",
			mutate: func(c *Config) {
				rate := 1.5
				c.Injected.SuccessRate = &rate
			},
			wantSub: "injected.success_rate",
		},
		{
			name:    "negative tolerance",
			mutate:  func(c *Config) { c.Consistency[1].Tolerance = -0.01 },
			wantSub: "tolerance must be >= 0",
		},
		{
			name:    "rule missing field",
			mutate:  func(c *Config) { c.Consistency[0].FieldB = "" },
			wantSub: "field_a and field_b",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig(t)
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error=%q, want substring %q", err, tc.wantSub)
			}
		})
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TW_SERVER_HTTP_ADDR", ":7777")
	cfg := baseConfig(t)
	if cfg.Server.HTTPAddr != ":7777" {
		t.Fatalf("http_addr=%s want env override :7777", cfg.Server.HTTPAddr)
	}
}

func TestMissingFileIsAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false); err == nil {
		t.Fatalf("expected error for a missing config file")
	}
}
