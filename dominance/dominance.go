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

// Package dominance computes dominator trees of method control-flow graphs with the iterative
// algorithm of Cooper, Harvey and Kennedy ("A Simple, Fast Dominance Algorithm").
package dominance

import (
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"golang.org/x/tools/container/intsets"
)

// Tree is the dominator tree of a single graph. Statements unreachable from the graph heads
// are not part of the tree: they dominate nothing and are dominated by nothing.
type Tree struct {
	// rpo lists the reachable statements in reverse postorder.
	rpo []*ir.Stmt
	// order maps a statement ID to its index in rpo.
	order map[ir.StmtID]int
	// idom holds, per rpo index, the rpo index of the immediate dominator. Heads point to
	// themselves.
	idom     []int
	children map[ir.StmtID][]*ir.Stmt
}

// New computes the dominator tree of g. A graph with several heads is treated as if a virtual
// root preceded all of them.
func New(g ir.Graph) *Tree {
	t := &Tree{order: make(map[ir.StmtID]int), children: make(map[ir.StmtID][]*ir.Stmt)}
	t.rpo = reversePostorder(g)
	for i, s := range t.rpo {
		t.order[s.ID] = i
	}

	const undefined = -1
	const virtualRoot = -2
	t.idom = make([]int, len(t.rpo))
	for i := range t.idom {
		t.idom[i] = undefined
	}
	heads := make(map[ir.StmtID]bool)
	for _, h := range g.Heads() {
		heads[h.ID] = true
		if i, ok := t.order[h.ID]; ok {
			t.idom[i] = i
		}
	}

	intersect := func(a, b int) int {
		for a != b {
			for a > b {
				if t.idom[a] == a {
					return virtualRoot
				}
				a = t.idom[a]
			}
			for b > a {
				if t.idom[b] == b {
					return virtualRoot
				}
				b = t.idom[b]
			}
		}
		return a
	}

	for changed := true; changed; {
		changed = false
		for i, s := range t.rpo {
			if heads[s.ID] {
				continue
			}
			newIDom := undefined
			for _, p := range g.Preds(s) {
				pi, ok := t.order[p.ID]
				if !ok || t.idom[pi] == undefined {
					continue
				}
				if newIDom == undefined {
					newIDom = pi
					continue
				}
				newIDom = intersect(pi, newIDom)
				if newIDom == virtualRoot {
					break
				}
			}
			if newIDom == virtualRoot {
				// Only reachable through distinct heads: dominated by the virtual root alone.
				newIDom = i
			}
			if newIDom != undefined && t.idom[i] != newIDom {
				t.idom[i] = newIDom
				changed = true
			}
		}
	}

	for i, s := range t.rpo {
		if d := t.idom[i]; d != i && d >= 0 {
			parent := t.rpo[d]
			t.children[parent.ID] = append(t.children[parent.ID], s)
		}
	}
	return t
}

// reversePostorder numbers the statements reachable from the heads of g.
func reversePostorder(g ir.Graph) []*ir.Stmt {
	visited := make(map[ir.StmtID]bool)
	var post []*ir.Stmt

	type frame struct {
		s    *ir.Stmt
		next int
	}
	for _, h := range g.Heads() {
		if visited[h.ID] {
			continue
		}
		visited[h.ID] = true
		stack := []frame{{s: h}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succs := g.Succs(top.s)
			if top.next < len(succs) {
				n := succs[top.next]
				top.next++
				if !visited[n.ID] {
					visited[n.ID] = true
					stack = append(stack, frame{s: n})
				}
				continue
			}
			post = append(post, top.s)
			stack = stack[:len(stack)-1]
		}
	}

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// ReversePostorder returns the reachable statements in reverse postorder.
func (t *Tree) ReversePostorder() []*ir.Stmt { return t.rpo }

// Reachable returns true if s is reachable from a head of the graph.
func (t *Tree) Reachable(s *ir.Stmt) bool {
	_, ok := t.order[s.ID]
	return ok
}

// IDom returns the immediate dominator of s, or nil for heads and unreachable statements.
func (t *Tree) IDom(s *ir.Stmt) *ir.Stmt {
	i, ok := t.order[s.ID]
	if !ok || t.idom[i] == i || t.idom[i] < 0 {
		return nil
	}
	return t.rpo[t.idom[i]]
}

// Children returns the statements immediately dominated by s.
func (t *Tree) Children(s *ir.Stmt) []*ir.Stmt { return t.children[s.ID] }

// Dominates returns true if every path from a head to b passes through a. Every reachable
// statement dominates itself.
func (t *Tree) Dominates(a, b *ir.Stmt) bool {
	ai, ok := t.order[a.ID]
	if !ok {
		return false
	}
	bi, ok := t.order[b.ID]
	if !ok {
		return false
	}
	for {
		if bi == ai {
			return true
		}
		// A dominator always precedes what it dominates in reverse postorder.
		if bi < ai {
			return false
		}
		next := t.idom[bi]
		if next == bi || next < 0 {
			return false
		}
		bi = next
	}
}

// StrictlyDominates is Dominates for distinct statements.
func (t *Tree) StrictlyDominates(a, b *ir.Stmt) bool {
	return a != b && t.Dominates(a, b)
}

// DominatedBy returns the IDs of every statement dominated by s, s included.
func (t *Tree) DominatedBy(s *ir.Stmt) *intsets.Sparse {
	var out intsets.Sparse
	if !t.Reachable(s) {
		return &out
	}
	work := []*ir.Stmt{s}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		if !out.Insert(cur.ID) {
			continue
		}
		work = append(work, t.children[cur.ID]...)
	}
	return &out
}

// Dominators returns the dominators of s from the head down to s itself.
func (t *Tree) Dominators(s *ir.Stmt) []*ir.Stmt {
	i, ok := t.order[s.ID]
	if !ok {
		return nil
	}
	var out []*ir.Stmt
	for {
		out = append(out, t.rpo[i])
		next := t.idom[i]
		if next == i || next < 0 {
			break
		}
		i = next
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}
