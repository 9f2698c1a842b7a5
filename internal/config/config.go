// Package config loads runtime settings from a YAML file and ADV_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/born-ml/adv/internal/parallel"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. ADV_PARALLEL_WORKERS.
const EnvPrefix = "ADV"

// Config holds every tunable of the drivers.
type Config struct {
	Parallel    ParallelConfig `mapstructure:"parallel" yaml:"parallel"`
	Checkpoints int            `mapstructure:"checkpoints" yaml:"checkpoints"` // <= 0: one per chain function
	LogLevel    string         `mapstructure:"log_level" yaml:"log_level"`
}

// ParallelConfig mirrors parallel.Config.
type ParallelConfig struct {
	Enabled  bool `mapstructure:"enabled" yaml:"enabled"`
	Workers  int  `mapstructure:"workers" yaml:"workers"`
	MinChunk int  `mapstructure:"min_chunk" yaml:"min_chunk"`
}

// Pool converts the settings to a parallel.Config.
func (p ParallelConfig) Pool() parallel.Config {
	return parallel.Config{
		Enabled:      p.Enabled,
		NumWorkers:   p.Workers,
		MinChunkSize: p.MinChunk,
	}
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return lvl, nil
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	def := parallel.DefaultConfig()
	v.SetDefault("parallel.enabled", def.Enabled)
	v.SetDefault("parallel.workers", def.NumWorkers)
	v.SetDefault("parallel.min_chunk", def.MinChunkSize)
	v.SetDefault("checkpoints", 0)
	v.SetDefault("log_level", "info")
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if not empty) on top of the defaults and decodes the result.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return Decode(v)
}

// Decode validates and unmarshals the settings held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Parallel.Workers < 0 {
		errs = append(errs, fmt.Errorf("parallel.workers must be >= 0, got %d", c.Parallel.Workers))
	}
	if c.Parallel.MinChunk < 0 {
		errs = append(errs, fmt.Errorf("parallel.min_chunk must be >= 0, got %d", c.Parallel.MinChunk))
	}
	if c.Checkpoints == 1 {
		errs = append(errs, errors.New("checkpoints must be 0 (automatic) or >= 2"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}
