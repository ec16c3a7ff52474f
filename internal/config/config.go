// Package config provides configuration management for the calendar.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"bullion-bell/internal/logging"
	"bullion-bell/internal/models"
)

// EnvConfigDir overrides the configuration directory.
const EnvConfigDir = "BULLION_BELL_CONFIG_DIR"

// Config holds all application configuration.
type Config struct {
	Calendar      CalendarConfig     `mapstructure:"calendar"`
	Provider      ProviderConfig     `mapstructure:"provider"`
	Flags         FlagsConfig        `mapstructure:"flags"`
	Alerts        AlertsConfig       `mapstructure:"alerts"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	UI            UIConfig           `mapstructure:"ui"`
	Notifications NotificationConfig `mapstructure:"notifications"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// CalendarConfig holds record cache and sync window configuration.
type CalendarConfig struct {
	CacheFile    string        `mapstructure:"cache_file"`
	MaxRecords   int           `mapstructure:"max_records"` // 0 = unbounded
	DaysBefore   int           `mapstructure:"days_before"`
	DaysAfter    int           `mapstructure:"days_after"`
	Refresh      string        `mapstructure:"refresh"` // cron spec
	Timezone     string        `mapstructure:"timezone"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"` // 0 = none
}

// ProviderConfig holds the remote calendar provider configuration.
type ProviderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Path      string        `mapstructure:"path"`
	Timeout   time.Duration `mapstructure:"timeout"`
	APIKey    string        `mapstructure:"api_key"`
	UserAgent string        `mapstructure:"user_agent"`

	// Consecutive failures before calls are rejected; 0 disables the breaker.
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// FlagsConfig holds the flag asset cache configuration.
type FlagsConfig struct {
	Capacity          int           `mapstructure:"capacity"`
	TablePath         string        `mapstructure:"table_path"` // empty = built-in table
	EURIcon           string        `mapstructure:"eur_icon"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// AlertsConfig holds event alert configuration.
type AlertsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Database       string        `mapstructure:"database"`
	CheckInterval  time.Duration `mapstructure:"check_interval"`
	Lead           time.Duration `mapstructure:"lead"`
	AutoImportance string        `mapstructure:"auto_importance"` // "" disables auto alerts
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// UIConfig holds terminal rendering configuration.
type UIConfig struct {
	ColorEnabled bool `mapstructure:"color_enabled"`
	PageSize     int  `mapstructure:"page_size"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, alerts_only, errors_only
	Bell     bool           `mapstructure:"bell"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Email    EmailConfig    `mapstructure:"email"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// EmailConfig holds email notification configuration.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/bullion-bell"
	}
	return filepath.Join(home, ".config", "bullion-bell")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{Dir: configDir}
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// First run: write a template and continue with defaults.
		if err := createTemplateConfig(configDir, name); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("calendar.cache_file", filepath.Join(configDir, "calendar_cache.json"))
	v.SetDefault("calendar.max_records", 0)
	v.SetDefault("calendar.days_before", 1)
	v.SetDefault("calendar.days_after", 7)
	v.SetDefault("calendar.refresh", "*/15 * * * *")
	v.SetDefault("calendar.timezone", "Local")
	v.SetDefault("calendar.fetch_timeout", "0s")

	v.SetDefault("provider.base_url", "http://127.0.0.1:8085")
	v.SetDefault("provider.path", "/economic-calendar")
	v.SetDefault("provider.timeout", "30s")
	v.SetDefault("provider.user_agent", "BullionBell/1.0")
	v.SetDefault("provider.breaker_failures", 5)
	v.SetDefault("provider.breaker_cooldown", "2m")

	v.SetDefault("flags.capacity", 100)
	v.SetDefault("flags.eur_icon", filepath.Join("resources", "icons", "flags", "EU_icon.png"))
	v.SetDefault("flags.requests_per_second", 5.0)
	v.SetDefault("flags.burst", 5)
	v.SetDefault("flags.timeout", "10s")

	v.SetDefault("alerts.enabled", true)
	v.SetDefault("alerts.database", filepath.Join(configDir, "bullion-bell.db"))
	v.SetDefault("alerts.check_interval", "60s")
	v.SetDefault("alerts.lead", "5m")
	v.SetDefault("alerts.auto_importance", "high")

	logCfg := logging.DefaultLogConfig()
	v.SetDefault("logging.level", logCfg.Level)
	v.SetDefault("logging.console", logCfg.Console)
	v.SetDefault("logging.file", logCfg.File)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "bullion-bell.log"))
	v.SetDefault("logging.max_size", logCfg.MaxSize)
	v.SetDefault("logging.max_backups", logCfg.MaxBackups)
	v.SetDefault("logging.max_age", logCfg.MaxAge)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.page_size", 50)

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.level", "all")
	v.SetDefault("notifications.bell", true)
	v.SetDefault("notifications.email.smtp_port", 587)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BULLION_PROVIDER_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("BULLION_PROVIDER_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("BULLION_CACHE_FILE"); v != "" {
		cfg.Calendar.CacheFile = v
	}
	if v := os.Getenv("BULLION_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Calendar.DaysBefore < 0 || c.Calendar.DaysAfter < 0 {
		return fmt.Errorf("days_before and days_after must be non-negative")
	}
	if c.Calendar.MaxRecords < 0 {
		return fmt.Errorf("max_records must be non-negative")
	}
	if c.Calendar.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout must be non-negative")
	}
	if c.Calendar.Refresh != "" {
		if _, err := cron.ParseStandard(c.Calendar.Refresh); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", c.Calendar.Refresh, err)
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Calendar.Timezone, err)
	}

	if c.Provider.BreakerFailures < 0 || c.Provider.BreakerCooldown < 0 {
		return fmt.Errorf("provider breaker settings must be non-negative")
	}

	if c.Flags.Capacity < 1 {
		return fmt.Errorf("flags capacity must be at least 1")
	}
	if c.Flags.RequestsPerSecond < 0 {
		return fmt.Errorf("flags requests_per_second must be non-negative")
	}

	if c.Alerts.AutoImportance != "" && models.Importance(c.Alerts.AutoImportance).Rank() == 0 {
		return fmt.Errorf("auto_importance must be low, medium or high")
	}
	if c.Alerts.Enabled && c.Alerts.CheckInterval <= 0 {
		return fmt.Errorf("alerts check_interval must be positive")
	}

	switch c.Notifications.Level {
	case "", "all", "alerts_only", "errors_only":
	default:
		return fmt.Errorf("invalid notification level: %s", c.Notifications.Level)
	}

	return nil
}

// Location resolves the configured timezone. "Local" and "" mean the system zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Calendar.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Calendar.Timezone)
	}
}

// LogConfig converts the logging section for the logging package.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}

// ConfigPath returns the path of config.toml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, "config.toml")
}
