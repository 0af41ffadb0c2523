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


package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "confdroid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, DefaultReceiverType, cfg.Analysis.ResourceReceiverType)
	require.Equal(t, DefaultTriggerMethods, cfg.Analysis.TriggerMethods)
	require.True(t, cfg.Analysis.TextualIdentity)
	require.Equal(t, DefaultMaxVisits, cfg.Analysis.MaxVisits)
	require.Equal(t, DefaultMaxCallDepth, cfg.Analysis.MaxCallDepth)
	require.Equal(t, DefaultMaxClauses, cfg.Analysis.MaxClauses)
	require.Equal(t, DefaultStackPlaceholder, cfg.Analysis.StackPlaceholder)
	require.Equal(t, runtime.GOMAXPROCS(0), cfg.Workers)
	require.Equal(t, DefaultTimeoutMinutes*time.Minute, cfg.Timeout())
	require.Equal(t, "text", cfg.Report.Format)
	require.Empty(t, cfg.Report.Output)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
analysis:
  trigger_methods: [getInt, "getDimension*"]
  textual_identity: false
  max_visits: 500
workers: 3
timeout_minutes: 0
log:
  level: debug
  format: json
report:
  format: json
  sqlite: findings.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"getInt", "getDimension*"}, cfg.Analysis.TriggerMethods)
	require.False(t, cfg.Analysis.TextualIdentity)
	require.Equal(t, 500, cfg.Analysis.MaxVisits)
	require.Equal(t, 3, cfg.Workers)
	require.Zero(t, cfg.Timeout())
	require.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	require.Equal(t, "json", cfg.Report.Format)
	require.Equal(t, "findings.db", cfg.Report.SQLite)
	// Keys absent from the file keep their defaults.
	require.Equal(t, DefaultReceiverType, cfg.Analysis.ResourceReceiverType)
	require.Equal(t, DefaultMaxCallDepth, cfg.Analysis.MaxCallDepth)
}

func TestLoadEnvironment(t *testing.T) {
	// t.Setenv is incompatible with t.Parallel.
	t.Setenv(EnvPrefix+"_ANALYSIS_MAX_VISITS", "42")
	t.Setenv(EnvPrefix+"_WORKERS", "2")
	t.Setenv(EnvPrefix+"_REPORT_FORMAT", "json")

	path := writeConfig(t, "analysis:\n  max_visits: 500\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 42, cfg.Analysis.MaxVisits)
	require.Equal(t, 2, cfg.Workers)
	require.Equal(t, "json", cfg.Report.Format)

	cfg, err = Load("")
	require.NoError(t, err)
	require.Equal(t, 42, cfg.Analysis.MaxVisits)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "absent.yaml")
	})

	t.Run("malformed file", func(t *testing.T) {
		t.Parallel()

		_, err := Load(writeConfig(t, "analysis: [unclosed\n"))
		require.Error(t, err)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Parallel()

		_, err := Load(writeConfig(t, "workers: 0\n"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc   string
		mutate func(*Config)
	}{
		{desc: "receiver", mutate: func(c *Config) { c.Analysis.ResourceReceiverType = "" }},
		{desc: "triggers", mutate: func(c *Config) { c.Analysis.TriggerMethods = nil }},
		{desc: "visits", mutate: func(c *Config) { c.Analysis.MaxVisits = -1 }},
		{desc: "clauses", mutate: func(c *Config) { c.Analysis.MaxClauses = -1 }},
		{desc: "workers", mutate: func(c *Config) { c.Workers = 0 }},
		{desc: "timeout", mutate: func(c *Config) { c.TimeoutMinutes = -5 }},
		{desc: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }},
		{desc: "report format", mutate: func(c *Config) { c.Report.Format = "csv" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	require.Equal(t, logrus.WarnLevel, log.GetLevel())

	log.Info("dropped")
	require.Zero(t, buf.Len())
	log.WithField("entry", "init").Warn("kept")
	require.Contains(t, buf.String(), `"msg":"kept"`)
	require.Contains(t, buf.String(), `"entry":"init"`)

	buf.Reset()
	log = NewLogger(LogConfig{Level: "bogus", Format: "text"}, &buf)
	require.Equal(t, logrus.InfoLevel, log.GetLevel())
	log.Info("hello")
	require.Contains(t, buf.String(), "msg=hello")

	DiscardLogger().Error("nowhere")
}
