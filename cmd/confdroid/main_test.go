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


package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/huaxunhuang/confdroid-sub110/report"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	dump     = "testdata/widget.yaml"
	initSig  = "<com.example.Widget: void init(android.content.res.TypedArray)>"
	applySig = "<com.example.Widget: void apply(android.content.res.TypedArray)>"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestUsage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc string
		args []string
	}{
		{desc: "no dump", args: nil},
		{desc: "two dumps", args: []string{dump, dump}},
		{desc: "unknown flag", args: []string{"-nope", dump}},
		{desc: "bad format", args: []string{"-format", "csv", dump}},
		{desc: "missing config", args: []string{"-config", "testdata/absent.yaml", dump}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			code, stdout, _ := runCLI(t, tt.args...)
			require.Equal(t, exitUsage, code)
			require.Empty(t, stdout)
		})
	}
}

func TestFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc string
		args []string
		want string
	}{
		{desc: "missing dump", args: []string{"testdata/absent.yaml"}, want: "absent.yaml"},
		{desc: "unknown entry", args: []string{"-entry", "<com.example.Widget: void gone()>", dump}, want: "unknown entry point"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			code, _, stderr := runCLI(t, tt.args...)
			require.Equal(t, exitFailure, code)
			require.Contains(t, stderr, tt.want)
		})
	}
}

func TestTextReport(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCLI(t, dump)
	require.Equal(t, exitOK, code, stderr)
	require.Contains(t, stdout, "2 finding(s)")
	require.Contains(t, stdout, "SYSTEM-SPECIFIC")
	require.Contains(t, stdout, "(TypedArray.getIndex(int)) == 0")
	require.Contains(t, stderr, "program loaded")
}

func TestJSONReport(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCLI(t, "-format", "json", dump)
	require.Equal(t, exitOK, code, stderr)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	require.False(t, rep.Partial)
	// apply is reached from both branches of init; the two records are one finding.
	require.Len(t, rep.Rows, 3)
	require.Len(t, rep.Findings, 2)

	device := rep.Findings[0]
	require.True(t, device.SystemSpecific)
	require.Equal(t, applySig, device.Method)
	require.Equal(t, 22, device.Line)

	index := rep.Findings[1]
	require.False(t, index.SystemSpecific)
	require.Equal(t, initSig, index.Method)
	require.Equal(t, 13, index.Line)
	require.Len(t, index.Literals, 1)
	require.Equal(t, "(TypedArray.getIndex(int)) == 0", index.Literals[0].Rewritten)
}

func TestSelectedEntry(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCLI(t, "-format", "json", "-entry", applySig, dump)
	require.Equal(t, exitOK, code, stderr)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	require.Len(t, rep.Findings, 1)
	require.Equal(t, applySig, rep.Findings[0].Method)
}

func TestOutputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "report.json")
	db := filepath.Join(dir, "findings.db")
	metrics := filepath.Join(dir, "metrics.prom")

	cfgPath := filepath.Join(dir, "confdroid.yaml")
	cfg := fmt.Sprintf("report:\n  format: json\n  sqlite: %q\nmetrics:\n  output: %q\nlog:\n  level: warn\n", db, metrics)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	code, stdout, stderr := runCLI(t, "-config", cfgPath, "-o", out, dump)
	require.Equal(t, exitOK, code, stderr)
	require.Empty(t, stdout)
	require.NotContains(t, stderr, "program loaded")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var rep report.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	require.Len(t, rep.Findings, 2)

	n, err := report.CountRows(db, "findings")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	require.Contains(t, string(prom), `confdroid_entry_points_total{outcome="ok"} 1`)
	require.Contains(t, string(prom), "confdroid_trigger_records_total 3")
}

func TestStringList(t *testing.T) {
	t.Parallel()

	var l stringList
	require.NoError(t, l.Set(initSig))
	require.NoError(t, l.Set(" "+applySig+" "))
	require.Equal(t, stringList{initSig, applySig}, l)
	require.Equal(t, initSig+" "+applySig, l.String())
}
