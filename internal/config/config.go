// Package config handles application configuration loading and validation.
//
// A Config is an immutable snapshot: it is loaded once per run and passed
// into components at construction. Reloading produces a new snapshot, never
// an in-place mutation visible mid-run.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/sunnmoony/aistock-assistant-sun/internal/errors"
)

// Config holds the full application configuration.
type Config struct {
	DataSources  []ProviderConfig   `mapstructure:"data_sources"`
	Agents       AgentsConfig       `mapstructure:"agents"`
	Backtest     BacktestConfig     `mapstructure:"backtest"`
	Notification NotificationConfig `mapstructure:"notification"`
	Run          RunConfig          `mapstructure:"run"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ProviderConfig describes one upstream data source. Priority is ascending
// (lower tried first); ties keep configuration list order.
type ProviderConfig struct {
	Name       string        `mapstructure:"name"`
	Enabled    bool          `mapstructure:"enabled"`
	Priority   int           `mapstructure:"priority"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// AgentsConfig configures the analysis agents and their LLM backend.
type AgentsConfig struct {
	APIKey  string             `mapstructure:"api_key"`
	BaseURL string             `mapstructure:"base_url"`
	Model   string             `mapstructure:"model"`
	Timeout time.Duration      `mapstructure:"timeout"`
	Weights map[string]float64 `mapstructure:"weights"`
}

// BacktestConfig configures recommendation scoring.
type BacktestConfig struct {
	Enabled        bool         `mapstructure:"enabled"`
	EvalWindowDays int          `mapstructure:"eval_window_days"`
	MinAgeDays     int          `mapstructure:"min_age_days"`
	Limit          int          `mapstructure:"limit"`
	ScoreWeights   ScoreWeights `mapstructure:"score_weights"`
}

// ScoreWeights are the composite score weights. They should sum to 1.
type ScoreWeights struct {
	Direction float64 `mapstructure:"direction"`
	Target    float64 `mapstructure:"target"`
	Stop      float64 `mapstructure:"stop"`
}

// NotificationConfig configures the dispatcher and its channels.
type NotificationConfig struct {
	Enabled    bool                     `mapstructure:"enabled"`
	Mode       string                   `mapstructure:"mode"` // single | batched
	MaxRetries int                      `mapstructure:"max_retries"`
	RetryDelay time.Duration            `mapstructure:"retry_delay"`
	Channels   map[string]ChannelConfig `mapstructure:"channels"`
}

// ChannelConfig holds per-channel transport parameters. Unused fields are
// ignored by channels that do not need them.
type ChannelConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	WebhookURL string   `mapstructure:"webhook_url"`
	MsgType    string   `mapstructure:"msg_type"` // wechat: markdown | text
	BotToken   string   `mapstructure:"bot_token"`
	ChatID     string   `mapstructure:"chat_id"`
	SMTPHost   string   `mapstructure:"smtp_host"`
	SMTPPort   int      `mapstructure:"smtp_port"`
	Sender     string   `mapstructure:"sender"`
	Password   string   `mapstructure:"password"`
	Receivers  []string `mapstructure:"receivers"`
}

// RunConfig configures pipeline execution.
type RunConfig struct {
	Concurrency      int           `mapstructure:"concurrency"`
	AgentTimeout     time.Duration `mapstructure:"agent_timeout"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	Schedule         string        `mapstructure:"schedule"`
	BacktestSchedule string        `mapstructure:"backtest_schedule"`
}

// StorageConfig configures the persistence layer.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aistock-assistant"
	}
	return filepath.Join(home, ".config", "aistock-assistant")
}

// Load reads configuration from the given path (or the default directory when
// empty) and returns a validated snapshot.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine, defaults plus env still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperrors.Wrap(err, "failed to read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse config")
	}

	applyEnvOverrides(&cfg)
	normalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("agents.base_url", "https://api.siliconflow.cn/v1")
	v.SetDefault("agents.model", "deepseek-ai/DeepSeek-V3")
	v.SetDefault("agents.timeout", "60s")
	v.SetDefault("agents.weights", map[string]float64{
		"market":      0.20,
		"technical":   0.35,
		"fundamental": 0.25,
		"news":        0.20,
	})

	v.SetDefault("backtest.enabled", true)
	v.SetDefault("backtest.eval_window_days", 10)
	v.SetDefault("backtest.min_age_days", 14)
	v.SetDefault("backtest.limit", 50)
	v.SetDefault("backtest.score_weights.direction", 0.5)
	v.SetDefault("backtest.score_weights.target", 0.3)
	v.SetDefault("backtest.score_weights.stop", 0.2)

	v.SetDefault("notification.enabled", true)
	v.SetDefault("notification.mode", "single")
	v.SetDefault("notification.max_retries", 3)
	v.SetDefault("notification.retry_delay", "2s")

	v.SetDefault("run.concurrency", 4)
	v.SetDefault("run.agent_timeout", "60s")
	v.SetDefault("run.cache_ttl", "30s")
	v.SetDefault("run.schedule", "0 30 9 * * 1-5")
	v.SetDefault("run.backtest_schedule", "0 0 16 * * 1-5")

	v.SetDefault("storage.db_path", filepath.Join(DefaultConfigDir(), "assistant.db"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", filepath.Join(DefaultConfigDir(), "logs", "assistant.log"))
}

// applyEnvOverrides lets secrets come from the environment instead of the
// config file.
func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("SILICONFLOW_API_KEY"); key != "" {
		cfg.Agents.APIKey = key
	}
	if key := os.Getenv("AISTOCK_API_KEY"); key != "" {
		cfg.Agents.APIKey = key
	}
	if token := os.Getenv("AISTOCK_TELEGRAM_TOKEN"); token != "" {
		if ch, ok := cfg.Notification.Channels["telegram"]; ok {
			ch.BotToken = token
			cfg.Notification.Channels["telegram"] = ch
		}
	}
	if pw := os.Getenv("AISTOCK_SMTP_PASSWORD"); pw != "" {
		if ch, ok := cfg.Notification.Channels["email"]; ok {
			ch.Password = pw
			cfg.Notification.Channels["email"] = ch
		}
	}
}

// normalize fills per-provider fallbacks and fixes the provider ordering.
// Sorting is stable so equal priorities keep configuration list order.
func normalize(cfg *Config) {
	for i := range cfg.DataSources {
		p := &cfg.DataSources[i]
		if p.Timeout == 0 {
			p.Timeout = 10 * time.Second
		}
		if p.MaxRetries == 0 {
			p.MaxRetries = 3
		}
		if p.RetryDelay == 0 {
			p.RetryDelay = 2 * time.Second
		}
	}
	sort.SliceStable(cfg.DataSources, func(i, j int) bool {
		return cfg.DataSources[i].Priority < cfg.DataSources[j].Priority
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.DataSources))
	for _, p := range c.DataSources {
		if p.Name == "" {
			return apperrors.NewValidationError("data_sources.name", p.Name, "provider name is required")
		}
		if seen[p.Name] {
			return apperrors.NewValidationError("data_sources.name", p.Name, "duplicate provider name")
		}
		seen[p.Name] = true
		if p.MaxRetries < 1 {
			return apperrors.NewValidationError("data_sources.max_retries", p.MaxRetries, "must be at least 1")
		}
	}

	for role, w := range c.Agents.Weights {
		if w < 0 {
			return apperrors.NewValidationError("agents.weights."+role, w, "weight must be non-negative")
		}
	}

	if c.Backtest.EvalWindowDays < 1 {
		return apperrors.NewValidationError("backtest.eval_window_days", c.Backtest.EvalWindowDays, "must be at least 1")
	}
	if c.Backtest.MinAgeDays < 0 {
		return apperrors.NewValidationError("backtest.min_age_days", c.Backtest.MinAgeDays, "must be non-negative")
	}
	if c.Backtest.Limit < 1 {
		return apperrors.NewValidationError("backtest.limit", c.Backtest.Limit, "must be at least 1")
	}
	sw := c.Backtest.ScoreWeights
	if sw.Direction < 0 || sw.Target < 0 || sw.Stop < 0 {
		return apperrors.NewValidationError("backtest.score_weights", sw, "weights must be non-negative")
	}

	switch c.Notification.Mode {
	case "single", "batched":
	default:
		return apperrors.NewValidationError("notification.mode", c.Notification.Mode, "must be single or batched")
	}
	if c.Notification.MaxRetries < 1 {
		return apperrors.NewValidationError("notification.max_retries", c.Notification.MaxRetries, "must be at least 1")
	}

	if c.Run.Concurrency < 1 {
		return apperrors.NewValidationError("run.concurrency", c.Run.Concurrency, "must be at least 1")
	}
	if c.Run.AgentTimeout <= 0 {
		return apperrors.NewValidationError("run.agent_timeout", c.Run.AgentTimeout, "must be positive")
	}
	return nil
}

// EnabledProviders returns enabled provider configs in effective priority
// order.
func (c *Config) EnabledProviders() []ProviderConfig {
	out := make([]ProviderConfig, 0, len(c.DataSources))
	for _, p := range c.DataSources {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// EnabledChannels returns the names of enabled notification channels sorted
// for deterministic iteration.
func (c *Config) EnabledChannels() []string {
	var names []string
	for name, ch := range c.Notification.Channels {
		if ch.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// AgentWeight returns the merge weight for a role, defaulting to 1 when the
// role is not configured so unconfigured agents still count.
func (c *Config) AgentWeight(role string) float64 {
	if w, ok := c.Agents.Weights[role]; ok {
		return w
	}
	return 1.0
}
