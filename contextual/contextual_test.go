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

package contextual_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/huaxunhuang/confdroid-sub110/contextual"
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/symbolic"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeContext serves a fixed path and per-point snapshots.
type fakeContext struct {
	path      []*ir.Stmt
	snapshots map[*ir.Stmt][]symbolic.Value
}

func (c *fakeContext) Path() []*ir.Stmt { return c.path }

func (c *fakeContext) Snapshot(point *ir.Stmt, _ ir.Value) ([]symbolic.Value, bool) {
	vs, ok := c.snapshots[point]
	return vs, ok
}

func num(i int64) symbolic.Value { return symbolic.NewConstant(ir.NewIntConst(i)) }

func texts(vs []symbolic.Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}

var x = &ir.Local{Name: "x", Typ: ir.Int, Scope: "m"}

func points(n int) []*ir.Stmt {
	out := make([]*ir.Stmt, n)
	for i := range out {
		out[i] = &ir.Stmt{ID: i, Kind: ir.Nop}
	}
	return out
}

func TestHistoryIsAppendOnly(t *testing.T) {
	t.Parallel()

	p := points(3)
	c := contextual.New(x, nil)
	require.Same(t, x, c.Value())
	require.NotNil(t, c.AllValues())
	require.Empty(t, c.AllValues())

	var prev []string
	steps := []struct {
		point *ir.Stmt
		value symbolic.Value
	}{
		{p[1], num(1)},
		{p[0], num(2)},
		{p[1], num(3)},
		{p[2], nil},
		{p[2], num(4)},
	}
	for _, s := range steps {
		c.AddValue(s.point, s.value)
		all := texts(c.AllValues())
		require.Len(t, all, c.Len())
		// Earlier observations of the same point keep their relative order.
		for _, v := range prev {
			require.Contains(t, all, v)
		}
		prev = all
	}

	require.Equal(t, 4, c.Len())
	require.Equal(t, []*ir.Stmt{p[1], p[0], p[2]}, c.Points())
	if diff := cmp.Diff([]string{"1", "3", "2", "4"}, texts(c.AllValues())); diff != "" {
		t.Errorf("AllValues mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{"1", "3"}, texts(c.ValuesAt(p[1])))
	require.Empty(t, c.ValuesAt(&ir.Stmt{ID: 99}))
}

func TestLastCoherentValues(t *testing.T) {
	t.Parallel()

	p := points(4)
	tests := []struct {
		name  string
		ctx   *fakeContext
		point *ir.Stmt
		want  []string
	}{
		{
			name: "no context",
			want: []string{"10", "20", "30"},
		},
		{
			name: "nearest ancestor on the path",
			ctx:  &fakeContext{path: []*ir.Stmt{p[0], p[1], p[3]}},
			want: []string{"20"},
		},
		{
			name: "skips ancestors without observations",
			ctx:  &fakeContext{path: []*ir.Stmt{p[0], p[2], p[3]}},
			want: []string{"10"},
		},
		{
			name: "the visited point itself is ignored",
			ctx:  &fakeContext{path: []*ir.Stmt{p[1]}},
			want: []string{"10", "20", "30"},
		},
		{
			name:  "snapshot at point",
			ctx:   &fakeContext{snapshots: map[*ir.Stmt][]symbolic.Value{p[2]: {num(20)}}},
			point: p[2],
			want:  []string{"20"},
		},
		{
			name:  "no snapshot at point",
			ctx:   &fakeContext{},
			point: p[2],
			want:  []string{"10", "20", "30"},
		},
		{
			name:  "empty snapshot falls back",
			ctx:   &fakeContext{snapshots: map[*ir.Stmt][]symbolic.Value{p[2]: nil}},
			point: p[2],
			want:  []string{"10", "20", "30"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var ctx contextual.Context
			if tt.ctx != nil {
				ctx = tt.ctx
			}
			c := contextual.New(x, ctx)
			c.AddValue(p[0], num(10))
			c.AddValue(p[1], num(20))
			c.AddValue(p[3], num(30))
			require.Equal(t, tt.want, texts(c.LastCoherentValues(tt.point)))
		})
	}
}

func TestLastCoherentValuesIsTotal(t *testing.T) {
	t.Parallel()

	c := contextual.New(x, &fakeContext{path: points(2)})
	got := c.LastCoherentValues(nil)
	require.NotNil(t, got)
	require.Empty(t, got)

	got = c.LastCoherentValues(&ir.Stmt{ID: 7})
	require.NotNil(t, got)
}

func TestResultsAreCopies(t *testing.T) {
	t.Parallel()

	p := points(1)
	c := contextual.New(x, nil)
	c.AddValue(p[0], num(1))
	vs := c.ValuesAt(p[0])
	vs[0] = num(2)
	require.Equal(t, []string{"1"}, texts(c.AllValues()))
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
