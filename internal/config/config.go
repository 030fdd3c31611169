// Package config loads engine settings from flags, GRIDENGINE_* environment
// variables and an optional gridengine.yaml, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go-grid-engine/pkg/utils"
)

const (
	LogFormatKey      = "log.format"
	LogLevelKey       = "log.level"
	QueueSizeKey      = "engine.queue-size"
	RequestTimeoutKey = "engine.request-timeout"
	PageSizeKey       = "engine.page-size"
	StageMetricsKey   = "engine.stage-metrics"
	JournalEnabledKey = "journal.enabled"
	JournalDSNKey     = "journal.dsn"
	MetricsEnabledKey = "metrics.enabled"

	defaultRequestTimeout = 30 * time.Second
)

type LogConfig struct {
	Format string
	Level  string
}

type EngineConfig struct {
	QueueSize      int
	RequestTimeout time.Duration
	PageSize       int
	StageMetrics   bool
}

type JournalConfig struct {
	Enabled bool
	DSN     string
}

type Config struct {
	Log            LogConfig
	Engine         EngineConfig
	Journal        JournalConfig
	MetricsEnabled bool
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Engine: EngineConfig{
			QueueSize:      64,
			RequestTimeout: defaultRequestTimeout,
		},
		Journal: JournalConfig{
			DSN: ":memory:",
		},
		MetricsEnabled: true,
	}
}

// New returns a viper instance with defaults, env binding and config paths set.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName("gridengine")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("GRIDENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, path := range []string{"/etc/gridengine", "$HOME/.gridengine", "."} {
		v.AddConfigPath(path)
	}

	d := DefaultConfig()
	v.SetDefault(LogFormatKey, d.Log.Format)
	v.SetDefault(LogLevelKey, d.Log.Level)
	v.SetDefault(QueueSizeKey, d.Engine.QueueSize)
	v.SetDefault(RequestTimeoutKey, d.Engine.RequestTimeout.String())
	v.SetDefault(PageSizeKey, d.Engine.PageSize)
	v.SetDefault(StageMetricsKey, d.Engine.StageMetrics)
	v.SetDefault(JournalEnabledKey, d.Journal.Enabled)
	v.SetDefault(JournalDSNKey, d.Journal.DSN)
	v.SetDefault(MetricsEnabledKey, d.MetricsEnabled)
	return v
}

// ReadFile reads the config file if one is present. A missing file is not an error.
func ReadFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// BindFlags binds every flag in flags whose name matches a config key with the
// dots replaced by dashes, e.g. --log-level for log.level.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, key := range []string{
		LogFormatKey, LogLevelKey, QueueSizeKey, RequestTimeoutKey, PageSizeKey,
		StageMetricsKey, JournalEnabledKey, JournalDSNKey, MetricsEnabledKey,
	} {
		f := flags.Lookup(FlagName(key))
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
		}
	}
	return nil
}

// FlagName is the CLI flag that overrides key.
func FlagName(key string) string {
	return strings.ReplaceAll(key, ".", "-")
}

// Load resolves a Config from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Log: LogConfig{
			Format: v.GetString(LogFormatKey),
			Level:  v.GetString(LogLevelKey),
		},
		Engine: EngineConfig{
			QueueSize:      v.GetInt(QueueSizeKey),
			RequestTimeout: utils.ParseDuration(v.GetString(RequestTimeoutKey), defaultRequestTimeout),
			PageSize:       v.GetInt(PageSizeKey),
			StageMetrics:   v.GetBool(StageMetricsKey),
		},
		Journal: JournalConfig{
			Enabled: v.GetBool(JournalEnabledKey),
			DSN:     v.GetString(JournalDSNKey),
		},
		MetricsEnabled: v.GetBool(MetricsEnabledKey),
	}
	return cfg, cfg.Verify()
}

// Verify checks values that would otherwise fail later and less clearly.
func (c *Config) Verify() error {
	if c.Engine.QueueSize < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", QueueSizeKey, c.Engine.QueueSize)
	}
	if c.Engine.PageSize < 0 {
		return fmt.Errorf("%s must not be negative, got %d", PageSizeKey, c.Engine.PageSize)
	}
	if c.Journal.Enabled && c.Journal.DSN == "" {
		return fmt.Errorf("%s is required when the journal is enabled", JournalDSNKey)
	}
	return nil
}
