// Package config loads runtime settings from YAML, .env files and ADVISOR_*
// environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/longlife4everest/energy-ai-dashboard/internal/forecast"
	"github.com/longlife4everest/energy-ai-dashboard/internal/ingest"
	"github.com/longlife4everest/energy-ai-dashboard/internal/optimize"
	"github.com/longlife4everest/energy-ai-dashboard/internal/predictor"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ADVISOR_"

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Data      DataConfig       `yaml:"data"`
	Model     ModelConfig      `yaml:"model"`
	Log       LogConfig        `yaml:"log"`
	Scenarios []optimize.Lever `yaml:"scenarios"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DataConfig selects the series source. An empty Path means a synthetic series.
type DataConfig struct {
	Path            string `yaml:"path"`
	SyntheticMonths int    `yaml:"synthetic_months"`
	SyntheticSeed   uint64 `yaml:"synthetic_seed"`
}

type ModelConfig struct {
	Path    string            `yaml:"path"`
	Kind    predictor.Kind    `yaml:"kind"`
	Seed    uint64            `yaml:"seed"`
	Horizon int               `yaml:"horizon"`
	Options predictor.Options `yaml:",inline"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the settings used when nothing else is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Data: DataConfig{
			SyntheticMonths: ingest.DefaultSyntheticMonths,
			SyntheticSeed:   42,
		},
		Model: ModelConfig{
			Path:    "models/forecast_model.json",
			Kind:    predictor.KindRandomForest,
			Seed:    forecast.DefaultSeed,
			Horizon: forecast.DefaultHorizon,
			Options: predictor.DefaultOptions(),
		},
		Log:       LogConfig{Level: "info", Format: "text"},
		Scenarios: optimize.DefaultLevers(),
	}
}

// Load reads the optional YAML file at path, then any of envFiles that exist,
// then applies environment overrides and validates the result.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := loadDotenv(envFiles); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotenv never overrides variables already set in the process.
func loadDotenv(files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	envStr(&c.Server.Addr, "ADDR")
	envStr(&c.Data.Path, "DATA_PATH")
	envStr(&c.Model.Path, "MODEL_PATH")
	envStr((*string)(&c.Model.Kind), "MODEL_KIND")
	envStr(&c.Log.Level, "LOG_LEVEL")
	envStr(&c.Log.Format, "LOG_FORMAT")

	return errors.Join(
		envInt(&c.Data.SyntheticMonths, "SYNTHETIC_MONTHS"),
		envUint(&c.Data.SyntheticSeed, "SYNTHETIC_SEED"),
		envUint(&c.Model.Seed, "SEED"),
		envInt(&c.Model.Horizon, "HORIZON"),
		envInt(&c.Model.Options.Forest.Trees, "FOREST_TREES"),
	)
}

func envStr(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = n
	return nil
}

func envUint(dst *uint64, key string) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = n
	return nil
}

// Validate rejects settings the rest of the program cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Model.Horizon <= 0 {
		errs = append(errs, fmt.Errorf("model.horizon must be positive, got %d", c.Model.Horizon))
	}
	if _, err := predictor.New(c.Model.Kind, c.Model.Seed, c.Model.Options); err != nil {
		errs = append(errs, fmt.Errorf("model.kind: %w", err))
	}
	if c.Model.Kind == predictor.KindRandomForest && c.Model.Options.Forest.Trees <= 0 {
		errs = append(errs, fmt.Errorf("model.forest.trees must be positive, got %d", c.Model.Options.Forest.Trees))
	}
	if c.Model.Path == "" {
		errs = append(errs, errors.New("model.path must be set"))
	}
	if c.Data.Path == "" && c.Data.SyntheticMonths <= 0 {
		errs = append(errs, fmt.Errorf("data.synthetic_months must be positive, got %d", c.Data.SyntheticMonths))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Forecast converts the model section into engine settings.
func (c *Config) Forecast() forecast.Config {
	fc := forecast.DefaultConfig()
	fc.Kind = c.Model.Kind
	fc.Seed = c.Model.Seed
	fc.Options = c.Model.Options
	return fc
}
