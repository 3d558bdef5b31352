// Package config loads and validates the forexgate configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forexgate/forexgate/internal/logging"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to environment overrides, e.g.
// FOREXGATE_DATABASE_PATH.
const EnvPrefix = "FOREXGATE"

// Config represents the complete application configuration
type Config struct {
	Account   AccountConfig   `json:"account" yaml:"account" mapstructure:"account"`
	Database  DatabaseConfig  `json:"database" yaml:"database" mapstructure:"database"`
	Logging   logging.Config  `json:"logging" yaml:"logging" mapstructure:"logging"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler" mapstructure:"scheduler"`
	Cache     CacheConfig     `json:"cache" yaml:"cache" mapstructure:"cache"`
}

// AccountConfig holds the defaults for newly registered accounts
type AccountConfig struct {
	Currency string  `json:"currency" yaml:"currency" mapstructure:"currency"`
	Balance  float64 `json:"balance" yaml:"balance" mapstructure:"balance"`
}

type DatabaseConfig struct {
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// SchedulerConfig holds the cron specs of the maintenance jobs. Specs use
// the standard five-field syntax or descriptors such as "@every 1m".
type SchedulerConfig struct {
	DailyReset       string `json:"daily_reset" yaml:"daily_reset" mapstructure:"daily_reset"`
	WeeklyReset      string `json:"weekly_reset" yaml:"weekly_reset" mapstructure:"weekly_reset"`
	CooldownSweep    string `json:"cooldown_sweep" yaml:"cooldown_sweep" mapstructure:"cooldown_sweep"`
	PlanExpiry       string `json:"plan_expiry" yaml:"plan_expiry" mapstructure:"plan_expiry"`
	ProgressSweep    string `json:"progress_sweep" yaml:"progress_sweep" mapstructure:"progress_sweep"`
	PlanTTL          string `json:"plan_ttl" yaml:"plan_ttl" mapstructure:"plan_ttl"` // e.g. "24h"
	SweepConcurrency int    `json:"sweep_concurrency" yaml:"sweep_concurrency" mapstructure:"sweep_concurrency"`
}

// PlanTTLDuration parses PlanTTL.
func (s SchedulerConfig) PlanTTLDuration() (time.Duration, error) {
	return time.ParseDuration(s.PlanTTL)
}

type CacheConfig struct {
	ScoreTTL string `json:"score_ttl" yaml:"score_ttl" mapstructure:"score_ttl"`
}

func (c CacheConfig) ScoreTTLDuration() (time.Duration, error) {
	return time.ParseDuration(c.ScoreTTL)
}

// Default returns a configuration that validates as is.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Currency: "USD",
			Balance:  10000,
		},
		Database: DatabaseConfig{
			Path: "forexgate.db",
		},
		Logging: logging.DefaultConfig(),
		Scheduler: SchedulerConfig{
			DailyReset:       "0 0 * * *",
			WeeklyReset:      "0 0 * * 1",
			CooldownSweep:    "@every 1m",
			PlanExpiry:       "@every 15m",
			ProgressSweep:    "@every 1h",
			PlanTTL:          "24h",
			SweepConcurrency: 4,
		},
		Cache: CacheConfig{
			ScoreTTL: "5m",
		},
	}
}

// newViper returns a viper instance seeded with every default so that
// environment overrides apply to all keys.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("account.currency", d.Account.Currency)
	v.SetDefault("account.balance", d.Account.Balance)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.console", d.Logging.Console)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.file_path", d.Logging.FilePath)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("scheduler.daily_reset", d.Scheduler.DailyReset)
	v.SetDefault("scheduler.weekly_reset", d.Scheduler.WeeklyReset)
	v.SetDefault("scheduler.cooldown_sweep", d.Scheduler.CooldownSweep)
	v.SetDefault("scheduler.plan_expiry", d.Scheduler.PlanExpiry)
	v.SetDefault("scheduler.progress_sweep", d.Scheduler.ProgressSweep)
	v.SetDefault("scheduler.plan_ttl", d.Scheduler.PlanTTL)
	v.SetDefault("scheduler.sweep_concurrency", d.Scheduler.SweepConcurrency)
	v.SetDefault("cache.score_ttl", d.Cache.ScoreTTL)
	return v
}

// LoadFromFile loads configuration from a file (JSON or YAML based on
// extension) layered over the defaults and FOREXGATE_* environment
// variables. An empty path loads defaults and environment only.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil || c.Logging.Level == "" {
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	if c.Logging.File && c.Logging.FilePath == "" {
		return fmt.Errorf("logging.file_path required when logging.file is set")
	}

	specs := []struct{ key, spec string }{
		{"scheduler.daily_reset", c.Scheduler.DailyReset},
		{"scheduler.weekly_reset", c.Scheduler.WeeklyReset},
		{"scheduler.cooldown_sweep", c.Scheduler.CooldownSweep},
		{"scheduler.plan_expiry", c.Scheduler.PlanExpiry},
		{"scheduler.progress_sweep", c.Scheduler.ProgressSweep},
	}
	for _, s := range specs {
		if _, err := cron.ParseStandard(s.spec); err != nil {
			return fmt.Errorf("%s: %w", s.key, err)
		}
	}

	if ttl, err := c.Scheduler.PlanTTLDuration(); err != nil || ttl <= 0 {
		return errors.Join(fmt.Errorf("scheduler.plan_ttl must be a positive duration"), err)
	}
	if c.Scheduler.SweepConcurrency < 1 {
		return fmt.Errorf("scheduler.sweep_concurrency must be at least 1")
	}
	if ttl, err := c.Cache.ScoreTTLDuration(); err != nil || ttl <= 0 {
		return errors.Join(fmt.Errorf("cache.score_ttl must be a positive duration"), err)
	}

	return nil
}
