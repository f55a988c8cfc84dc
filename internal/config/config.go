// Package config loads gexscope configuration from YAML, environment
// variables and an optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Profile  ProfileConfig  `mapstructure:"profile"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ProviderConfig points at the brokerage gateway. Credentials come from the
// environment (or .env), never from the config file.
type ProviderConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	ClientSecret  string `mapstructure:"client_secret"`
	RefreshToken  string `mapstructure:"refresh_token"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
}

// ProfileConfig carries the default pipeline parameters. All of them can be
// overridden per run from the CLI or API request.
type ProfileConfig struct {
	Symbol          string  `mapstructure:"symbol"`
	MaxDTE          int     `mapstructure:"max_dte"`
	StrikeCount     int     `mapstructure:"strike_count"`
	MajorThreshold  float64 `mapstructure:"major_threshold"`
	CollectSeconds  int     `mapstructure:"collect_seconds"`
	PresetDirectory string  `mapstructure:"preset_directory"`
}

// ScanConfig drives the universe scanner and the daemon schedule.
type ScanConfig struct {
	Tickers     []string `mapstructure:"tickers"`
	IntervalSec int      `mapstructure:"interval_sec"`
	Timezone    string   `mapstructure:"timezone"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type StoreConfig struct {
	Directory string `mapstructure:"directory"`
	Compress  bool   `mapstructure:"compress"`
}

// NotifyConfig holds ntfy notification settings for the daemon.
type NotifyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Server   string `mapstructure:"server"`
	Topic    string `mapstructure:"topic"`
	Priority string `mapstructure:"priority"`
	Tags     string `mapstructure:"tags"`
	Token    string `mapstructure:"token"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

func (p ProfileConfig) CollectWindow() time.Duration {
	return time.Duration(p.CollectSeconds) * time.Second
}

func Load(configPath string) (*Config, error) {
	// Credentials commonly live in a .env next to the binary. Absence is
	// fine; the pipeline reports missing credentials itself.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("provider.base_url", "https://api.tastyworks.com")
	v.SetDefault("provider.timeout_sec", 30)
	v.SetDefault("provider.rate_per_second", 5)
	v.SetDefault("profile.symbol", "SPY")
	v.SetDefault("profile.max_dte", 30)
	v.SetDefault("profile.strike_count", 20)
	v.SetDefault("profile.major_threshold", 50.0)
	v.SetDefault("profile.collect_seconds", 5)
	v.SetDefault("profile.preset_directory", "presets")
	v.SetDefault("scan.tickers", []string{"SPY", "QQQ", "IWM"})
	v.SetDefault("scan.interval_sec", 300)
	v.SetDefault("scan.timezone", "America/New_York")
	v.SetDefault("server.port", "8080")
	v.SetDefault("store.directory", "data")
	v.SetDefault("store.compress", true)
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.server", "https://ntfy.sh")
	v.SetDefault("notify.priority", "default")
	v.SetDefault("notify.tags", "chart_with_upwards_trend")
	v.SetDefault("logging.enabled", false)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("GEXSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Credentials keep the provider's conventional variable names.
	_ = v.BindEnv("provider.client_secret", "TT_CLIENT_SECRET")
	_ = v.BindEnv("provider.refresh_token", "TT_REFRESH_TOKEN")
	_ = v.BindEnv("notify.topic", "NTFY_TOPIC")
	_ = v.BindEnv("notify.token", "NTFY_TOKEN")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Profile.MaxDTE < 0 {
		return fmt.Errorf("profile.max_dte must be >= 0")
	}
	if c.Profile.StrikeCount < 1 {
		return fmt.Errorf("profile.strike_count must be >= 1")
	}
	if c.Profile.MajorThreshold < 0 {
		return fmt.Errorf("profile.major_threshold must be >= 0")
	}
	if c.Profile.CollectSeconds < 1 {
		return fmt.Errorf("profile.collect_seconds must be >= 1")
	}
	if c.Scan.IntervalSec < 1 {
		return fmt.Errorf("scan.interval_sec must be >= 1")
	}
	if err := c.Notify.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks the notification settings when enabled.
func (n *NotifyConfig) Validate() error {
	if !n.Enabled {
		return nil
	}
	if n.Topic == "" {
		return fmt.Errorf("notify.topic is required when notifications are enabled")
	}
	switch n.Priority {
	case "min", "low", "default", "high", "urgent":
		return nil
	default:
		return fmt.Errorf("invalid notify.priority: %s (valid: min, low, default, high, urgent)", n.Priority)
	}
}
