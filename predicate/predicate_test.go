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

package predicate_test

import (
	"sync"
	"testing"

	"github.com/huaxunhuang/confdroid-sub110/formula"
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/irtest"
	"github.com/huaxunhuang/confdroid-sub110/predicate"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newRecovery(p *ir.Program) *predicate.Recovery {
	return predicate.New(p, formula.NewFactory(), 0)
}

func TestIfPredicates(t *testing.T) {
	t.Parallel()

	f := irtest.NewIndexGuard(t)
	r := newRecovery(f.Program)

	require.Equal(t, formula.True, r.FullPathPredicateOf(f.Index))
	require.Equal(t, formula.True, r.FullPathPredicateOf(f.Guard))
	require.Equal(t, "~($i0 != 0)", r.FullPathPredicateOf(f.Trigger).String())
	// Both outcomes of the guard meet again at the exit.
	require.Equal(t, formula.True, r.FullPathPredicateOf(f.Exit))

	ft, ok := r.BranchLiteral(f.Guard, false)
	require.True(t, ok)
	require.Equal(t, []formula.Literal{ft}, formula.Literals(r.FullPathPredicateOf(f.Trigger)))
	require.Same(t, f.Guard, r.GuardingStatementOf(ft))
	require.Same(t, f.Guard, r.GuardingStatementOf(ft.Negate()))

	_, ok = r.BranchLiteral(f.Trigger, true)
	require.False(t, ok)
	require.Nil(t, r.GuardingStatementOf(formula.Pos(r.Factory().Fresh("other"))))
}

func TestNestedPredicates(t *testing.T) {
	t.Parallel()

	f := irtest.NewNested(t)
	r := newRecovery(f.Program)

	require.Equal(t, "~($i0 != 0)", r.FullPathPredicateOf(f.Inner).String())
	require.Equal(t, "~($i0 != 0) & ~($i1 != 1)", r.FullPathPredicateOf(f.InnerTrigger).String())
	// Reached whatever the inner guard decides.
	require.Equal(t, "~($i0 != 0)", r.FullPathPredicateOf(f.OuterTrigger).String())
}

func TestSwitchPredicates(t *testing.T) {
	t.Parallel()

	f := irtest.NewSwitchGuard(t)
	r := newRecovery(f.Program)

	require.Equal(t, "switch($i0) case 3", r.FullPathPredicateOf(f.CaseTrigger).String())
	require.Equal(t, "~switch($i0) case 3", r.FullPathPredicateOf(f.DefaultTrigger).String())

	lit, ok := r.CaseLiteral(f.Switch, 0)
	require.True(t, ok)
	require.True(t, lit.Positive)
	require.Same(t, f.Switch, r.GuardingStatementOf(lit))
	_, ok = r.CaseLiteral(f.Switch, 1)
	require.False(t, ok)
	_, ok = r.CaseLiteral(f.Switch, -1)
	require.False(t, ok)
}

func TestLoopIgnoresBackEdges(t *testing.T) {
	t.Parallel()

	f := irtest.NewLoop(t)
	r := newRecovery(f.Program)

	require.Equal(t, formula.True, r.FullPathPredicateOf(f.Head))
	require.Equal(t, "~(i1 >= i0)", r.FullPathPredicateOf(f.Trigger).String())
}

func TestClauseLimit(t *testing.T) {
	t.Parallel()

	f := irtest.NewNested(t)
	r := predicate.New(f.Program, formula.NewFactory(), 1)

	require.Equal(t, "~($i0 != 0)", r.FullPathPredicateOf(f.Inner).String())
	require.Equal(t, formula.True, r.FullPathPredicateOf(f.InnerTrigger), "oversized predicates degrade to true")
}

func TestUnreachable(t *testing.T) {
	t.Parallel()

	p := ir.NewProgram()
	b := irtest.Method(p, "dead")
	b.ReturnVoid()
	dead := b.Nop()
	irtest.Build(t, b)
	r := newRecovery(p)

	require.Nil(t, r.FullPathPredicateOf(dead))
	require.True(t, r.GuardedBlocksOf(dead).IsEmpty())
}

func TestGuardedBlocks(t *testing.T) {
	t.Parallel()

	t.Run("diamond", func(t *testing.T) {
		t.Parallel()
		f := irtest.NewIndexGuard(t)
		r := newRecovery(f.Program)
		// The exit has two predecessors, so only the fallthrough region is guarded.
		require.Equal(t, []int{f.Trigger.ID}, r.GuardedBlocksOf(f.Guard).AppendTo(nil))
	})

	t.Run("nested", func(t *testing.T) {
		t.Parallel()
		f := irtest.NewNested(t)
		r := newRecovery(f.Program)
		blocks := r.GuardedBlocksOf(f.Outer)
		require.True(t, blocks.Has(f.Inner.ID))
		require.True(t, blocks.Has(f.InnerTrigger.ID))
		require.True(t, blocks.Has(f.OuterTrigger.ID))
		require.False(t, blocks.Has(f.Outer.ID))
		require.False(t, blocks.Has(f.Method.Stmts[len(f.Method.Stmts)-1].ID))

		inner := r.GuardedBlocksOf(f.Inner)
		require.Equal(t, []int{f.InnerTrigger.ID}, inner.AppendTo(nil))
	})
}

func TestDominatorsOf(t *testing.T) {
	t.Parallel()

	f := irtest.NewNested(t)
	r := newRecovery(f.Program)
	tree := r.DominatorsOf(f.Method)
	require.NotNil(t, tree)
	require.True(t, tree.StrictlyDominates(f.Outer, f.Inner))
	require.Same(t, tree, r.DominatorsOf(f.Method), "trees are cached per method")
	require.Nil(t, r.DominatorsOf(nil))
}

func TestConcurrentQueries(t *testing.T) {
	t.Parallel()

	f := irtest.NewNested(t)
	r := newRecovery(f.Program)

	const n = 8
	got := make([]formula.Formula, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = r.FullPathPredicateOf(f.InnerTrigger)
		}(i)
	}
	wg.Wait()
	for _, g := range got[1:] {
		require.True(t, formula.Equal(got[0], g))
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
