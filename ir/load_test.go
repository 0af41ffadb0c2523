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

package ir_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

const (
	initSig  = "<com.example.Widget: void init(android.content.res.TypedArray)>"
	applySig = "<com.example.Widget: void apply(android.content.res.TypedArray)>"
)

func readDump(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "widget.yaml"))
	require.NoError(t, err)
	return data
}

func checkWidget(t *testing.T, p *ir.Program) {
	t.Helper()
	require.Len(t, p.Methods(), 2)
	entry := p.Method(initSig)
	require.NotNil(t, entry)
	require.Equal(t, []*ir.Method{entry}, p.EntryPoints())

	var call *ir.Stmt
	for _, s := range entry.Stmts {
		if s.Kind == ir.InvokeStmt {
			call = s
		}
	}
	require.NotNil(t, call)
	require.Equal(t, "call", call.Label)
	require.Equal(t, 15, call.Line)
	require.Equal(t, []*ir.Method{p.Method(applySig)}, p.CalleesOfCallAt(call))

	guard := entry.Stmts[2]
	require.Equal(t, ir.If, guard.Kind)
	require.Equal(t, "if $i0 != 0 goto call", guard.String())
	require.Equal(t, []*ir.Stmt{call, entry.Stmts[3]}, guard.Succs)
	require.Equal(t, ir.Int, entry.LocalByName("$i0").Type())
}

func TestLoad(t *testing.T) {
	t.Parallel()

	p, err := ir.Load(bytes.NewReader(readDump(t)))
	require.NoError(t, err)
	checkWidget(t, p)
}

func TestOpenCompressed(t *testing.T) {
	t.Parallel()

	data := readDump(t)
	compressors := map[string]func([]byte) []byte{
		".yaml": func(b []byte) []byte { return b },
		".yaml.zst": func(b []byte) []byte {
			enc, err := zstd.NewWriter(nil)
			require.NoError(t, err)
			defer enc.Close()
			return enc.EncodeAll(b, nil)
		},
		".yaml.s2": func(b []byte) []byte {
			var buf bytes.Buffer
			w := s2.NewWriter(&buf)
			_, err := w.Write(b)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			return buf.Bytes()
		},
		".yaml.gz": func(b []byte) []byte {
			var buf bytes.Buffer
			w := gzip.NewWriter(&buf)
			_, err := w.Write(b)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			return buf.Bytes()
		},
	}

	dir := t.TempDir()
	for ext, compress := range compressors {
		path := filepath.Join(dir, "widget"+ext)
		require.NoError(t, os.WriteFile(path, compress(data), 0o600))

		p, err := ir.Open(path)
		require.NoError(t, err, ext)
		checkWidget(t, p)
	}
}

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ir.Open(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown entry point",
			doc:  `entry_points: ["<a.B: void c()>"]`,
		},
		{
			name: "unknown callee",
			doc: `
methods:
  - class: a.B
    name: c
    body:
      - kind: invoke
        callees: ["<a.B: void d()>"]
        expr: {invoke: {kind: staticinvoke, class: a.B, method: d}}
      - kind: return-void
`,
		},
		{
			name: "unknown statement kind",
			doc: `
methods:
  - class: a.B
    name: c
    body:
      - kind: jump
`,
		},
		{
			name: "non comparison condition",
			doc: `
methods:
  - class: a.B
    name: c
    body:
      - kind: if
        cond: {binop: {op: "+", x: {int: 1}, y: {int: 2}, type: int}}
        target: end
      - kind: return-void
        label: end
`,
		},
		{
			name: "unknown label",
			doc: `
methods:
  - class: a.B
    name: c
    body:
      - kind: goto
        target: end
`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ir.Load(strings.NewReader(tt.doc))
			require.ErrorIs(t, err, ir.ErrMalformedProgram)
		})
	}
}

func TestLoadNotYAML(t *testing.T) {
	t.Parallel()

	_, err := ir.Load(strings.NewReader("methods: [unclosed"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ir.ErrMalformedProgram)
}
