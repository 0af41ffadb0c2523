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

// Package predicate recovers path predicates: every conditional branch of a method is mapped to
// a boolean variable, and the predicate of a statement is the disjunction, over all acyclic
// intraprocedural paths from the method entry, of the branch outcomes taken along the path.
//
// Predicates are computed lazily per method and cached, so a single Recovery can be shared by
// concurrent analyses of the same program.
package predicate

import (
	"fmt"
	"sync"

	"github.com/huaxunhuang/confdroid-sub110/dominance"
	"github.com/huaxunhuang/confdroid-sub110/formula"
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"golang.org/x/tools/container/intsets"
)

// Recovery hands out path predicates, guarding statements of branch literals and guarded
// blocks of conditionals.
type Recovery struct {
	icfg       ir.ICFG
	factory    *formula.Factory
	maxClauses int

	mu      sync.Mutex
	methods map[*ir.Method]*methodPredicates
	// guards maps a branch variable ID to the conditional statement that introduced it.
	guards map[int]*ir.Stmt
}

type methodPredicates struct {
	dom        *dominance.Tree
	predicates map[ir.StmtID]formula.Formula
	// branchVars holds the variable of every if statement, and caseVars one variable per case
	// of every switch statement.
	branchVars map[ir.StmtID]formula.Var
	caseVars   map[ir.StmtID][]formula.Var
}

// New returns a Recovery over icfg allocating its variables from factory. A positive
// maxClauses bounds the size of every predicate in conjunctive normal form; a predicate that
// would exceed it is replaced by true.
func New(icfg ir.ICFG, factory *formula.Factory, maxClauses int) *Recovery {
	return &Recovery{
		icfg:       icfg,
		factory:    factory,
		maxClauses: maxClauses,
		methods:    make(map[*ir.Method]*methodPredicates),
		guards:     make(map[int]*ir.Stmt),
	}
}

// Factory returns the variable factory shared by every predicate of r.
func (r *Recovery) Factory() *formula.Factory { return r.factory }

// FullPathPredicateOf returns the path predicate of s in conjunctive normal form, or nil if s
// is unreachable within its method.
func (r *Recovery) FullPathPredicateOf(s *ir.Stmt) formula.Formula {
	mp := r.forMethod(r.icfg.MethodOf(s))
	if mp == nil {
		return nil
	}
	return mp.predicates[s.ID]
}

// GuardingStatementOf returns the conditional statement whose outcome lit encodes, or nil if
// lit is not a branch literal.
func (r *Recovery) GuardingStatementOf(lit formula.Literal) *ir.Stmt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.guards[lit.Var.ID]
}

// BranchLiteral returns the literal stating that the if statement s takes its branch (taken)
// or falls through (!taken).
func (r *Recovery) BranchLiteral(s *ir.Stmt, taken bool) (formula.Literal, bool) {
	mp := r.forMethod(r.icfg.MethodOf(s))
	if mp == nil {
		return formula.Literal{}, false
	}
	v, ok := mp.branchVars[s.ID]
	if !ok {
		return formula.Literal{}, false
	}
	return formula.Literal{Var: v, Positive: taken}, true
}

// CaseLiteral returns the positive literal of the i-th case of the switch statement s.
func (r *Recovery) CaseLiteral(s *ir.Stmt, i int) (formula.Literal, bool) {
	mp := r.forMethod(r.icfg.MethodOf(s))
	if mp == nil {
		return formula.Literal{}, false
	}
	vars := mp.caseVars[s.ID]
	if i < 0 || i >= len(vars) {
		return formula.Literal{}, false
	}
	return formula.Pos(vars[i]), true
}

// GuardedBlocksOf returns the IDs of the statements controlled by the conditional cond: for
// every successor whose only predecessor is cond, all statements it dominates.
func (r *Recovery) GuardedBlocksOf(cond *ir.Stmt) *intsets.Sparse {
	var out intsets.Sparse
	mp := r.forMethod(r.icfg.MethodOf(cond))
	if mp == nil {
		return &out
	}
	g := r.icfg.UnitGraph(r.icfg.MethodOf(cond))
	for _, succ := range g.Succs(cond) {
		preds := g.Preds(succ)
		if len(preds) != 1 || preds[0] != cond {
			continue
		}
		out.UnionWith(mp.dom.DominatedBy(succ))
	}
	return &out
}

// DominatorsOf returns the dominator tree of m.
func (r *Recovery) DominatorsOf(m *ir.Method) *dominance.Tree {
	mp := r.forMethod(m)
	if mp == nil {
		return nil
	}
	return mp.dom
}

func (r *Recovery) forMethod(m *ir.Method) *methodPredicates {
	if m == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if mp, ok := r.methods[m]; ok {
		return mp
	}
	mp := r.compute(r.icfg.UnitGraph(m))
	r.methods[m] = mp
	return mp
}

// compute runs one forward pass over the reverse postorder of g. Retreating edges are ignored,
// so the predicate of a loop body is the one of its first iteration.
func (r *Recovery) compute(g ir.Graph) *methodPredicates {
	mp := &methodPredicates{
		dom:        dominance.New(g),
		predicates: make(map[ir.StmtID]formula.Formula),
		branchVars: make(map[ir.StmtID]formula.Var),
		caseVars:   make(map[ir.StmtID][]formula.Var),
	}
	rpo := mp.dom.ReversePostorder()
	index := make(map[ir.StmtID]int, len(rpo))
	for i, s := range rpo {
		index[s.ID] = i
	}

	for _, s := range rpo {
		switch s.Kind {
		case ir.If:
			v := r.factory.Fresh("(" + s.Cond.String() + ")")
			mp.branchVars[s.ID] = v
			r.guards[v.ID] = s
		case ir.Switch:
			vars := make([]formula.Var, len(s.Cases))
			for i, c := range s.Cases {
				vars[i] = r.factory.Fresh(fmt.Sprintf("switch(%s) case %d", s.Op, c))
				r.guards[vars[i].ID] = s
			}
			mp.caseVars[s.ID] = vars
		}
	}

	for i, s := range rpo {
		var incoming []formula.Formula
		for _, p := range g.Preds(s) {
			pi, ok := index[p.ID]
			if !ok || pi >= i {
				continue
			}
			incoming = append(incoming, formula.Conj(mp.predicates[p.ID], mp.edge(p, s)))
		}
		pred := formula.Formula(formula.True)
		if len(incoming) > 0 {
			pred = formula.Disj(incoming...)
		}
		cnf, ok := formula.CNFWithLimit(pred, r.maxClauses)
		if !ok {
			cnf = formula.True
		}
		mp.predicates[s.ID] = cnf
	}
	return mp
}

// edge returns the condition under which control flows from p to s.
func (mp *methodPredicates) edge(p, s *ir.Stmt) formula.Formula {
	switch p.Kind {
	case ir.If:
		v, ok := mp.branchVars[p.ID]
		if !ok || len(p.Succs) < 2 || p.Succs[0] == p.Succs[1] {
			return formula.True
		}
		if p.Succs[0] == s {
			return formula.Pos(v)
		}
		return formula.Neg(v)
	case ir.Switch:
		vars := mp.caseVars[p.ID]
		var alts []formula.Formula
		for i, succ := range p.Succs {
			if succ != s {
				continue
			}
			if i < len(vars) {
				alts = append(alts, formula.Pos(vars[i]))
				continue
			}
			def := make([]formula.Formula, len(vars))
			for j, v := range vars {
				def[j] = formula.Neg(v)
			}
			alts = append(alts, formula.Conj(def...))
		}
		return formula.Disj(alts...)
	}
	return formula.True
}
