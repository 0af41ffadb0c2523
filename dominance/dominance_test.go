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

package dominance_test

import (
	"testing"

	"github.com/huaxunhuang/confdroid-sub110/dominance"
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/irtest"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func ids(stmts []*ir.Stmt) []int {
	out := make([]int, len(stmts))
	for i, s := range stmts {
		out[i] = s.ID
	}
	return out
}

func TestDiamond(t *testing.T) {
	t.Parallel()

	f := irtest.NewIndexGuard(t)
	tree := dominance.New(f.Method)

	require.Equal(t, ids(f.Method.Stmts), ids(tree.ReversePostorder()))
	require.Same(t, f.Guard, tree.IDom(f.Exit))
	require.Same(t, f.Guard, tree.IDom(f.Trigger))
	require.Nil(t, tree.IDom(f.Method.Stmts[0]))
	require.ElementsMatch(t, []*ir.Stmt{f.Exit, f.Trigger}, tree.Children(f.Guard))

	require.True(t, tree.Dominates(f.Guard, f.Exit))
	require.True(t, tree.Dominates(f.Exit, f.Exit))
	require.False(t, tree.StrictlyDominates(f.Exit, f.Exit))
	require.False(t, tree.Dominates(f.Trigger, f.Exit))
	require.False(t, tree.Dominates(f.Exit, f.Guard))

	require.Equal(t, []int{f.Guard.ID, f.Trigger.ID, f.Exit.ID}, tree.DominatedBy(f.Guard).AppendTo(nil))
	require.Equal(t, []int{f.Trigger.ID}, tree.DominatedBy(f.Trigger).AppendTo(nil))
	require.Equal(t, ids(f.Method.Stmts[:3]), ids(tree.Dominators(f.Guard)))
	require.Equal(t, []int{0, 1, 2, f.Exit.ID}, ids(tree.Dominators(f.Exit)))
}

func TestLoop(t *testing.T) {
	t.Parallel()

	f := irtest.NewLoop(t)
	tree := dominance.New(f.Method)

	start := f.Method.Stmts[2]
	require.Same(t, start, tree.IDom(f.Head))
	require.True(t, tree.StrictlyDominates(f.Head, f.Trigger))
	require.False(t, tree.Dominates(f.Trigger, f.Head))
	for _, s := range f.Method.Stmts {
		require.True(t, tree.Reachable(s), s.String())
	}
}

// graph is a hand-wired ir.Graph with arbitrary heads.
type graph struct {
	heads []*ir.Stmt
	nodes []*ir.Stmt
}

func (g *graph) Heads() []*ir.Stmt           { return g.heads }
func (g *graph) Succs(s *ir.Stmt) []*ir.Stmt { return s.Succs }
func (g *graph) Preds(s *ir.Stmt) []*ir.Stmt { return s.Preds }
func (g *graph) Nodes() []*ir.Stmt           { return g.nodes }

func link(from, to *ir.Stmt) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

func TestSeveralHeads(t *testing.T) {
	t.Parallel()

	h1, h2, join, tail, orphan := &ir.Stmt{ID: 0}, &ir.Stmt{ID: 1}, &ir.Stmt{ID: 2}, &ir.Stmt{ID: 3}, &ir.Stmt{ID: 4}
	link(h1, join)
	link(h2, join)
	link(join, tail)
	tree := dominance.New(&graph{heads: []*ir.Stmt{h1, h2}, nodes: []*ir.Stmt{h1, h2, join, tail, orphan}})

	require.Nil(t, tree.IDom(join), "join is only dominated by the virtual root")
	require.False(t, tree.Dominates(h1, join))
	require.False(t, tree.Dominates(h2, join))
	require.Equal(t, []*ir.Stmt{join}, tree.Dominators(join))
	require.Same(t, join, tree.IDom(tail))
	require.True(t, tree.Dominates(join, tail))

	require.False(t, tree.Reachable(orphan))
	require.Nil(t, tree.IDom(orphan))
	require.Nil(t, tree.Dominators(orphan))
	require.True(t, tree.DominatedBy(orphan).IsEmpty())
	require.False(t, tree.Dominates(orphan, orphan))
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
