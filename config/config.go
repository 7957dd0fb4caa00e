package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spektr-org/opsboard/engine"
)

// ─── Profile ────────────────────────────────────────────────────────────

// Config is the top-level structure of an opsboard profile (opsboard.yaml).
// Every field is optional: a missing file or key keeps the built-in
// default, which reproduces the stock operational dashboard.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

type ServerConfig struct {
	Addr           string `yaml:"addr"`
	UploadLimitMB  int    `yaml:"upload_limit_mb"`
	AllowedOrigins string `yaml:"allowed_origins"` // comma-separated, "*" for any
	SessionTTLMin  int    `yaml:"session_ttl_minutes"`
}

type RedisConfig struct {
	URL        string `yaml:"url"` // empty disables the snapshot cache
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type DashboardConfig struct {
	Cards         []engine.CardSpec   `yaml:"cards"`
	Charts        []engine.ChartSpec  `yaml:"charts"`
	Alert         engine.AlertOptions `yaml:"alert"`
	HistogramBins int                 `yaml:"histogram_bins"`
	PreviewRows   int                 `yaml:"preview_rows"`
}

// Default returns the built-in profile.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			UploadLimitMB:  32,
			AllowedOrigins: "*",
			SessionTTLMin:  120,
		},
		Redis: RedisConfig{
			TTLSeconds: int(15 * time.Minute / time.Second),
		},
		Dashboard: DashboardConfig{
			Cards:         engine.DefaultCards(),
			Charts:        engine.DefaultCharts(),
			Alert:         engine.DefaultAlertOptions(),
			HistogramBins: 30,
			PreviewRows:   50,
		},
	}
}

// ─── Loaders ────────────────────────────────────────────────────────────

// Load reads a profile over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read opsboard config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse opsboard config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides the profile from OPSBOARD_* environment variables.
func (c *Config) ApplyEnv() error {
	c.Server.Addr = getEnv("OPSBOARD_ADDR", c.Server.Addr)
	c.Server.AllowedOrigins = getEnv("OPSBOARD_CORS_ORIGINS", c.Server.AllowedOrigins)
	c.Redis.URL = getEnv("OPSBOARD_REDIS_URL", c.Redis.URL)

	limit, err := getIntEnv("OPSBOARD_UPLOAD_LIMIT_MB", c.Server.UploadLimitMB)
	if err != nil {
		return fmt.Errorf("invalid OPSBOARD_UPLOAD_LIMIT_MB: %w", err)
	}
	c.Server.UploadLimitMB = limit
	return nil
}

// Validate rejects profiles the engine cannot run.
func (c *Config) Validate() error {
	if c.Server.UploadLimitMB <= 0 {
		return fmt.Errorf("upload_limit_mb must be positive, got %d", c.Server.UploadLimitMB)
	}
	if _, err := c.Dashboard.Alert.Validate(); err != nil {
		return fmt.Errorf("dashboard.alert: %w", err)
	}
	for i, ch := range c.Dashboard.Charts {
		if ch.GroupKeyword == "" || ch.ValueKeyword == "" {
			return fmt.Errorf("dashboard.charts[%d]: group_keyword and value_keyword are required", i)
		}
		switch ch.Aggregation {
		case "", "sum", "mean", "avg", "count":
		default:
			return fmt.Errorf("dashboard.charts[%d]: unknown aggregation %q", i, ch.Aggregation)
		}
	}
	for i, card := range c.Dashboard.Cards {
		if card.Column == "" {
			return fmt.Errorf("dashboard.cards[%d]: column is required", i)
		}
	}
	return nil
}

// EngineOptions turns the dashboard section into engine options.
func (c *Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithCards(c.Dashboard.Cards),
		engine.WithCharts(c.Dashboard.Charts),
		engine.WithAlert(c.Dashboard.Alert),
		engine.WithHistogram("", c.Dashboard.HistogramBins),
		engine.WithPreview(c.Dashboard.PreviewRows),
	}
}

// UploadLimit is the maximum accepted upload size in bytes.
func (c *Config) UploadLimit() int64 {
	return int64(c.Server.UploadLimitMB) << 20
}

// CacheTTL is the snapshot cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

// SessionTTL is how long an idle session is kept.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Server.SessionTTLMin) * time.Minute
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}
