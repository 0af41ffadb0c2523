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


package runner

import (
	"context"
	"testing"

	"github.com/huaxunhuang/confdroid-sub110/config"
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/irtest"
	"github.com/huaxunhuang/confdroid-sub110/symexec"
	"github.com/huaxunhuang/confdroid-sub110/traversal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newRunner(t *testing.T, f *irtest.Interprocedural, cfg Config) (*Runner, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	return New(f.Program, cfg, config.DiscardLogger(), metrics), metrics
}

func defaultConfig() Config {
	return Config{Options: symexec.DefaultOptions(), Workers: 2}
}

func TestRunAllEntryPoints(t *testing.T) {
	t.Parallel()

	f := irtest.NewInterprocedural(t)
	// Analyzed on its own, the helper's parameter is not tied to any receiver call.
	f.Program.AddEntryPoint(f.Helper)
	r, metrics := newRunner(t, f, defaultConfig())

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	require.NotNil(t, res.Recovery)

	visits := 0
	for _, e := range res.Entries {
		require.NoError(t, e.Err)
		require.Len(t, e.Results.Triggers, 1)
		visits += e.Visits
	}
	require.Equal(t, f.Entry, res.Entries[0].Entry)
	require.Equal(t, f.Helper, res.Entries[1].Entry)
	require.False(t, res.Entries[0].Results.Triggers[0].SystemSpecific)
	require.True(t, res.Entries[1].Results.Triggers[0].SystemSpecific)

	require.Len(t, res.Triggers(), 2)
	require.Len(t, res.Rows(), 2)
	// Both entry points reach the same trigger statement: the flags are merged.
	require.Equal(t, map[ir.StmtID]bool{f.Trigger.ID: true}, res.SystemSpecific())

	require.Equal(t, 2.0, testutil.ToFloat64(metrics.EntryPoints.WithLabelValues(OutcomeOK)))
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.Triggers))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.SystemSpecific))
	require.Equal(t, float64(visits), testutil.ToFloat64(metrics.Visits))
	require.Zero(t, testutil.ToFloat64(metrics.InProgress))
	require.Equal(t, 1, testutil.CollectAndCount(metrics.Duration))

	require.Len(t, r.Snapshot(), 2)
}

func TestRunSelectedEntryPoints(t *testing.T) {
	t.Parallel()

	f := irtest.NewInterprocedural(t)
	r, _ := newRunner(t, f, Config{Options: symexec.DefaultOptions()})

	res, err := r.Run(context.Background(), f.Helper)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	require.Equal(t, f.Helper, res.Entries[0].Entry)
}

func TestVisitBudget(t *testing.T) {
	t.Parallel()

	f := irtest.NewInterprocedural(t)
	cfg := defaultConfig()
	cfg.Options.MaxVisits = 3
	r, metrics := newRunner(t, f, cfg)

	res, err := r.Run(context.Background())
	require.NoError(t, err, "a budget overrun is reported per entry point")
	require.Len(t, res.Entries, 1)
	require.ErrorIs(t, res.Entries[0].Err, traversal.ErrVisitBudgetExceeded)
	require.Equal(t, 3, res.Entries[0].Visits)
	require.Empty(t, res.Triggers())
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.EntryPoints.WithLabelValues(OutcomeBudget)))
}

func TestInterrupted(t *testing.T) {
	t.Parallel()

	f := irtest.NewInterprocedural(t)
	r, metrics := newRunner(t, f, defaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Contains(t, err.Error(), "analysis interrupted")

	// The partial result is still returned.
	require.NotNil(t, res)
	require.Len(t, res.Entries, 1)
	require.ErrorIs(t, res.Entries[0].Err, context.Canceled)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.EntryPoints.WithLabelValues(OutcomeTimeout)))
}

func TestWithoutMetrics(t *testing.T) {
	t.Parallel()

	f := irtest.NewInterprocedural(t)
	r := New(f.Program, Config{Options: symexec.DefaultOptions()}, config.DiscardLogger(), nil)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Triggers(), 1)
}
