//  Copyright (c) 2023 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config implements the user-facing configuration of the analysis: a YAML file plus
// CONFDROID_* environment overrides, loaded with viper. It also hosts the logger factory and the
// non-user-configurable constants.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete configuration of a run.
type Config struct {
	Analysis       AnalysisConfig `mapstructure:"analysis"`
	Workers        int            `mapstructure:"workers"`
	TimeoutMinutes int            `mapstructure:"timeout_minutes"`
	Log            LogConfig      `mapstructure:"log"`
	Report         ReportConfig   `mapstructure:"report"`
	Metrics        MetricsConfig  `mapstructure:"metrics"`
}

// AnalysisConfig tunes the symbolic execution of a single entry point.
type AnalysisConfig struct {
	ResourceReceiverType string   `mapstructure:"resource_receiver_type"`
	TriggerMethods       []string `mapstructure:"trigger_methods"`
	// TextualIdentity keys program values by their text instead of by their declaring method
	// and name. Distinct values with identical text then share one history.
	TextualIdentity  bool   `mapstructure:"textual_identity"`
	MaxVisits        int    `mapstructure:"max_visits"`
	MaxCallDepth     int    `mapstructure:"max_call_depth"`
	MaxClauses       int    `mapstructure:"max_clauses"`
	StackPlaceholder string `mapstructure:"stack_placeholder"`
}

// LogConfig selects the level and format (text or json) of the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ReportConfig selects where findings are written. Format is text or json; an empty Output
// means standard output. SQLite, when set, is the path of an additional database export.
type ReportConfig struct {
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	SQLite string `mapstructure:"sqlite"`
}

// MetricsConfig names the file the run metrics are written to in the Prometheus text format.
type MetricsConfig struct {
	Output string `mapstructure:"output"`
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

func setDefaults(v *viper.Viper) {
	v.SetDefault("analysis.resource_receiver_type", DefaultReceiverType)
	v.SetDefault("analysis.trigger_methods", DefaultTriggerMethods)
	v.SetDefault("analysis.textual_identity", true)
	v.SetDefault("analysis.max_visits", DefaultMaxVisits)
	v.SetDefault("analysis.max_call_depth", DefaultMaxCallDepth)
	v.SetDefault("analysis.max_clauses", DefaultMaxClauses)
	v.SetDefault("analysis.stack_placeholder", DefaultStackPlaceholder)
	v.SetDefault("workers", runtime.GOMAXPROCS(0))
	v.SetDefault("timeout_minutes", DefaultTimeoutMinutes)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "")
	v.SetDefault("report.sqlite", "")
	v.SetDefault("metrics.output", "")
}

// Default returns the configuration used when no file and no environment override is given.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		// The defaults are static; failing to decode them is a programming error.
		panic(err)
	}
	return cfg
}

// Load reads the YAML file at path (if path is not empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the ranges and enumerations of c.
func (c *Config) Validate() error {
	switch {
	case c.Analysis.ResourceReceiverType == "":
		return fmt.Errorf("%w: analysis.resource_receiver_type is empty", ErrInvalidConfig)
	case len(c.Analysis.TriggerMethods) == 0:
		return fmt.Errorf("%w: analysis.trigger_methods is empty", ErrInvalidConfig)
	case c.Analysis.MaxVisits < 0 || c.Analysis.MaxCallDepth < 0 || c.Analysis.MaxClauses < 0:
		return fmt.Errorf("%w: analysis limits must not be negative", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	case c.TimeoutMinutes < 0:
		return fmt.Errorf("%w: timeout_minutes must not be negative", ErrInvalidConfig)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	switch c.Report.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: report.format %q", ErrInvalidConfig, c.Report.Format)
	}
	return nil
}

// Timeout returns the run timeout, zero meaning none.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}
