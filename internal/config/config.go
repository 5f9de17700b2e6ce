// Package config loads the gtn command-line configuration.
//
// Values are merged with priority env > file > defaults and then validated.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gtn-go/gtn/internal/parallel"
)

// Config is the full CLI configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Parallel ParallelConfig `yaml:"parallel"`
	Draw     DrawConfig     `yaml:"draw"`
	Symbols  SymbolsConfig  `yaml:"symbols"`
}

// LogConfig selects the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=auto text json"`
}

// ParallelConfig bounds batch fan-out.
type ParallelConfig struct {
	Enabled bool `yaml:"enabled"`
	Workers int  `yaml:"workers" validate:"gte=1,lte=1024"`
}

// DrawConfig controls dot output.
type DrawConfig struct {
	RankDir  string `yaml:"rankdir" validate:"oneof=LR TB"`
	FontSize int    `yaml:"fontsize" validate:"gte=1,lte=72"`
}

// SymbolsConfig names the default symbol source for drawing.
type SymbolsConfig struct {
	Tiktoken string `yaml:"tiktoken" validate:"omitempty,oneof=cl100k_base p50k_base r50k_base o200k_base"`
}

var validate = validator.New()

// Default returns a working configuration.
func Default() Config {
	p := parallel.DefaultConfig()
	return Config{
		Log:      LogConfig{Level: "warn", Format: "auto"},
		Parallel: ParallelConfig{Enabled: p.Enabled, Workers: p.NumWorkers},
		Draw:     DrawConfig{RankDir: "LR", FontSize: 14},
	}
}

// Load reads path over the defaults, applies GTN_* environment overrides and
// validates the result. An empty path or a missing file leaves the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	loadEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	//nolint:gosec // G304: config path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("GTN_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("GTN_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("GTN_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Parallel.Workers = i
		}
	}
	if v := os.Getenv("GTN_PARALLEL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Parallel.Enabled = b
		}
	}
	if v := os.Getenv("GTN_TIKTOKEN"); v != "" {
		cfg.Symbols.Tiktoken = v
	}
}

// Validate checks field constraints.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// Batch converts the parallel settings for internal/parallel.
func (c Config) Batch() parallel.Config {
	return parallel.Config{Enabled: c.Parallel.Enabled, NumWorkers: c.Parallel.Workers}
}
