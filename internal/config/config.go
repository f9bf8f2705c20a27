package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`

	Poll        PollConfig       `mapstructure:"poll"`
	Endpoints   []EndpointConfig `mapstructure:"endpoints"`
	Injected    InjectedConfig   `mapstructure:"injected"`
	Control     ControlConfig    `mapstructure:"control"`
	Synthesis   SynthesisConfig  `mapstructure:"synthesis"`
	Consistency []RuleConfig     `mapstructure:"consistency"`
	Prefs       PrefsConfig      `mapstructure:"prefs"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type CronConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	PrunePrefs   string `mapstructure:"prune_prefs"`
	SnapshotSave string `mapstructure:"snapshot_save"`
}

type PollConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	SubscriberBuf int           `mapstructure:"subscriber_buf"`
}

type EndpointConfig struct {
	Name     string        `mapstructure:"name"`
	URL      string        `mapstructure:"url"`
	Critical bool          `mapstructure:"critical"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// InjectedConfig is an operator-supplied view of trading state. Each field
// is optional: a nil field stays absent from the fallback chain instead of
// reading as a real zero.
type InjectedConfig struct {
	MarketOpen  *bool    `mapstructure:"market_open"`
	TotalTrades *int64   `mapstructure:"total_trades"`
	DailyPnl    *float64 `mapstructure:"daily_pnl"`
	SuccessRate *float64 `mapstructure:"success_rate"`
}

// Empty reports whether no injected field is set.
func (c InjectedConfig) Empty() bool {
	return c.MarketOpen == nil && c.TotalTrades == nil && c.DailyPnl == nil && c.SuccessRate == nil
}

type ControlConfig struct {
	Endpoints []EndpointConfig `mapstructure:"endpoints"`
	Timeout   time.Duration    `mapstructure:"timeout"`
}

type SynthesisConfig struct {
	Strategies []StrategyWeightConfig `mapstructure:"strategies"`
	Actions    ActionRatiosConfig     `mapstructure:"actions"`
}

type StrategyWeightConfig struct {
	Name   string  `mapstructure:"name"`
	Weight float64 `mapstructure:"weight"`
}

type ActionRatiosConfig struct {
	StopLoss   float64 `mapstructure:"stop_loss"`
	TakeProfit float64 `mapstructure:"take_profit"`
	Rebalance  float64 `mapstructure:"rebalance"`
}

type RuleConfig struct {
	Metric    string  `mapstructure:"metric"`
	FieldA    string  `mapstructure:"field_a"`
	FieldB    string  `mapstructure:"field_b"`
	Tolerance float64 `mapstructure:"tolerance"`
	Relative  bool    `mapstructure:"relative"`
	Exact     bool    `mapstructure:"exact"`
	Critical  bool    `mapstructure:"critical"`
}

type PrefsConfig struct {
	RecentSearchLimit int `mapstructure:"recent_search_limit"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.path", "tradewatch.db")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.prune_prefs", "@every 10m")
	v.SetDefault("cron.snapshot_save", "@every 5m")

	v.SetDefault("poll.interval", "30s")
	v.SetDefault("poll.probe_timeout", "10s")
	v.SetDefault("poll.slow_threshold", "2s")
	v.SetDefault("poll.subscriber_buf", 8)

	v.SetDefault("endpoints", []map[string]any{
		{"name": "autonomous", "url": "http://localhost:9001/api/autonomous/status", "critical": true, "timeout": "10s"},
		{"name": "summary", "url": "http://localhost:9002/api/dashboard/summary", "critical": true, "timeout": "10s"},
		{"name": "marketdata", "url": "http://localhost:9003/api/market/clock", "critical": false, "timeout": "10s"},
	})

	v.SetDefault("control.timeout", "10s")
	v.SetDefault("control.endpoints", []map[string]any{
		{"name": "autonomous-control", "url": "http://localhost:9001/api/autonomous/control"},
		{"name": "legacy-control", "url": "http://localhost:9002/api/trading/control"},
	})

	v.SetDefault("synthesis.strategies", []map[string]any{
		{"name": "momentum", "weight": 0.4},
		{"name": "mean_reversion", "weight": 0.3},
		{"name": "breakout", "weight": 0.3},
	})
	v.SetDefault("synthesis.actions.stop_loss", 0.15)
	v.SetDefault("synthesis.actions.take_profit", 0.25)
	v.SetDefault("synthesis.actions.rebalance", 0.05)

	v.SetDefault("consistency", []map[string]any{
		{"metric": "totalTrades", "field_a": "autonomous.totalTrades", "field_b": "summary.totalTrades", "exact": true, "critical": true},
		{"metric": "dailyPnl", "field_a": "autonomous.dailyPnl", "field_b": "summary.dailyPnl", "tolerance": 0.01, "critical": true},
		{"metric": "successRate", "field_a": "autonomous.successRate", "field_b": "summary.successRate", "tolerance": 0.05, "relative": true},
		{"metric": "isMarketOpen", "field_a": "autonomous.isMarketOpen", "field_b": "summary.isMarketOpen", "exact": true},
	})

	v.SetDefault("prefs.recent_search_limit", 20)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
