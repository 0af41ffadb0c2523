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

// Package traversal implements the depth-first forward walk of the interprocedural control-flow
// graph. The walk keeps the current execution path explicitly (no recursion on the host stack)
// and calls hooks before and after the successors of every point are explored.
package traversal

import (
	"context"
	"errors"
	"fmt"

	"github.com/huaxunhuang/confdroid-sub110/ir"
	"golang.org/x/tools/container/intsets"
)

// ErrVisitBudgetExceeded is returned when a walk visits more points than allowed.
var ErrVisitBudgetExceeded = errors.New("visit budget exceeded")

// Hooks receives the events of a walk.
type Hooks interface {
	// BeforeNeighbors is called when s is reached, before it is pushed on the path. At that
	// moment the path holds the ancestors of s.
	BeforeNeighbors(s *ir.Stmt)
	// OnNeighbor is called for every edge followed.
	OnNeighbor(from, to *ir.Stmt)
	// AfterNeighbors is called once every successor of s has been explored and s has been
	// popped from the path.
	AfterNeighbors(s *ir.Stmt)
}

// Options bound a walk. Zero values mean unbounded.
type Options struct {
	MaxVisits    int
	MaxCallDepth int
}

// callFrame is the calling context of a point: the chain of call sites that led into its method.
type callFrame struct {
	site   *ir.Stmt
	callee *ir.Method
	parent *callFrame
	depth  int
}

func (f *callFrame) contains(m *ir.Method) bool {
	for ; f != nil; f = f.parent {
		if f.callee == m {
			return true
		}
	}
	return false
}

type node struct {
	s     *ir.Stmt
	frame *callFrame
}

type pathKey struct {
	id    ir.StmtID
	frame *callFrame
}

type stackEntry struct {
	node
	succs []node
	next  int
}

// Traversal walks the ICFG from an entry method. A point is never pushed twice in the same
// calling context onto the current path, which makes every walk terminate; the same point is
// revisited along every other path reaching it.
type Traversal struct {
	icfg  ir.ICFG
	hooks Hooks
	opts  Options

	path    []*ir.Stmt
	onPath  map[pathKey]bool
	current *callFrame
	visits  int
}

// New returns a traversal over icfg reporting to hooks.
func New(icfg ir.ICFG, hooks Hooks, opts Options) *Traversal {
	return &Traversal{icfg: icfg, hooks: hooks, opts: opts, onPath: make(map[pathKey]bool)}
}

// Path returns the current path. The last element is the point being explored. The slice is
// owned by the traversal and must not be modified.
func (t *Traversal) Path() []*ir.Stmt { return t.path }

// PathSet returns the IDs of the points on the current path.
func (t *Traversal) PathSet() *intsets.Sparse {
	var s intsets.Sparse
	for _, p := range t.path {
		s.Insert(p.ID)
	}
	return &s
}

// CallSite returns the call site through which the method of the point being reached was
// entered, or nil in the entry method.
func (t *Traversal) CallSite() *ir.Stmt {
	if t.current == nil {
		return nil
	}
	return t.current.site
}

// Visits returns the number of points reached so far.
func (t *Traversal) Visits() int { return t.visits }

// Run walks every path from the heads of entry. It stops early with ErrVisitBudgetExceeded or
// with the error of ctx; the hooks have then seen a prefix of the walk.
func (t *Traversal) Run(ctx context.Context, entry *ir.Method) error {
	defer func() {
		t.path = t.path[:0]
		clear(t.onPath)
		t.current = nil
	}()
	for _, h := range t.icfg.UnitGraph(entry).Heads() {
		if err := t.walk(ctx, node{s: h}); err != nil {
			return fmt.Errorf("walk %s: %w", entry.Signature(), err)
		}
	}
	return nil
}

func (t *Traversal) walk(ctx context.Context, start node) error {
	var stack []stackEntry
	enter := func(n node) error {
		key := pathKey{id: n.s.ID, frame: n.frame}
		if t.onPath[key] {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.opts.MaxVisits > 0 && t.visits >= t.opts.MaxVisits {
			return ErrVisitBudgetExceeded
		}
		t.visits++
		t.current = n.frame
		t.hooks.BeforeNeighbors(n.s)
		t.path = append(t.path, n.s)
		t.onPath[key] = true
		stack = append(stack, stackEntry{node: n, succs: t.successors(n)})
		return nil
	}

	if err := enter(start); err != nil {
		return err
	}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.succs) {
			n := top.succs[top.next]
			top.next++
			t.hooks.OnNeighbor(top.s, n.s)
			if err := enter(n); err != nil {
				return err
			}
			continue
		}
		done := top.node
		stack = stack[:len(stack)-1]
		t.path = t.path[:len(t.path)-1]
		delete(t.onPath, pathKey{id: done.s.ID, frame: done.frame})
		t.hooks.AfterNeighbors(done.s)
	}
	return nil
}

// successors returns where control goes after n: into the callees of a call, along the
// intraprocedural edges, or back to the caller after the last statement of a callee.
func (t *Traversal) successors(n node) []node {
	if n.s.InvokeExpr() != nil {
		if out := t.calleeHeads(n); len(out) > 0 {
			return out
		}
	}

	g := t.icfg.UnitGraph(t.icfg.MethodOf(n.s))
	succs := g.Succs(n.s)
	if len(succs) > 0 {
		out := make([]node, len(succs))
		for i, s := range succs {
			out[i] = node{s: s, frame: n.frame}
		}
		return out
	}
	if n.frame == nil || n.s.Kind == ir.Throw {
		return nil
	}
	caller := n.frame.site
	cg := t.icfg.UnitGraph(t.icfg.MethodOf(caller))
	var out []node
	for _, s := range cg.Succs(caller) {
		out = append(out, node{s: s, frame: n.frame.parent})
	}
	return out
}

func (t *Traversal) calleeHeads(n node) []node {
	depth := 0
	if n.frame != nil {
		depth = n.frame.depth
	}
	if t.opts.MaxCallDepth > 0 && depth >= t.opts.MaxCallDepth {
		return nil
	}
	var out []node
	for _, callee := range t.icfg.CalleesOfCallAt(n.s) {
		if callee == t.icfg.MethodOf(n.s) || n.frame.contains(callee) {
			continue
		}
		frame := &callFrame{site: n.s, callee: callee, parent: n.frame, depth: depth + 1}
		for _, h := range t.icfg.UnitGraph(callee).Heads() {
			out = append(out, node{s: h, frame: frame})
		}
	}
	return out
}
