// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all configuration knobs for a harvest run. It is built
// once at process start and treated as immutable afterwards.
type Config struct {
	Remote    RemoteConfig    `mapstructure:"remote"`
	Harvest   HarvestConfig   `mapstructure:"harvest"`
	Store     StoreConfig     `mapstructure:"store"`
	Ops       OpsConfig       `mapstructure:"ops"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RemoteConfig locates and authenticates against the hosted forum's RPC API.
type RemoteConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Email          string `mapstructure:"email"`
	Password       string `mapstructure:"password"`
	SessionID      string `mapstructure:"session_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	SanitizeLog    bool   `mapstructure:"sanitize_log"`
}

// HarvestConfig governs what gets harvested and how failures are treated.
type HarvestConfig struct {
	PresetIDs   []string `mapstructure:"preset_ids"`
	SubforumIDs []string `mapstructure:"subforum_ids"`
	KeepGoing   bool     `mapstructure:"keep_going"`
	DoImages    bool     `mapstructure:"do_images"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// OpsConfig controls the operational HTTP endpoint (health + metrics).
type OpsConfig struct {
	Addr string `mapstructure:"addr"`
}

// SchedulerConfig enables repeated scheduled runs.
type SchedulerConfig struct {
	CronSpec string `mapstructure:"cron_spec"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// RequestTimeout returns the per-RPC-call timeout as a duration.
func (c RemoteConfig) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load builds a Config from an optional config file, a .env file if one
// exists, and the environment.
func Load(path string) (Config, error) {
	// The original deployment style drives everything from a .env file, so
	// keep honoring one when present.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FORUMVAC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it even
// when no config file is present.
func setDefaults(v *viper.Viper) {
	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.email", "")
	v.SetDefault("remote.password", "")
	v.SetDefault("remote.session_id", "")
	v.SetDefault("remote.timeout_seconds", 90)
	v.SetDefault("remote.sanitize_log", false)
	v.SetDefault("harvest.preset_ids", []string{})
	v.SetDefault("harvest.subforum_ids", []string{})
	v.SetDefault("harvest.keep_going", false)
	v.SetDefault("harvest.do_images", true)
	v.SetDefault("store.provider", "postgres")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.max_conns", 8)
	v.SetDefault("ops.addr", "")
	v.SetDefault("scheduler.cron_spec", "")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required")
	}
	if c.Remote.SessionID == "" && (c.Remote.Email == "" || c.Remote.Password == "") {
		return fmt.Errorf("remote.email and remote.password are required when remote.session_id is not set")
	}
	if c.Remote.TimeoutSeconds <= 0 {
		return fmt.Errorf("remote.timeout_seconds must be > 0")
	}
	switch c.Store.Provider {
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when store.provider is 'postgres'")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("unknown store provider: %s", c.Store.Provider)
	}
	return nil
}
