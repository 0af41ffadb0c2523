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

package ir

// Graph is the intraprocedural control-flow graph of a single method body.
type Graph interface {
	Heads() []*Stmt
	Succs(s *Stmt) []*Stmt
	Preds(s *Stmt) []*Stmt
	Nodes() []*Stmt
}

// ICFG answers interprocedural control-flow queries.
type ICFG interface {
	// CalleesOfCallAt returns the methods (with bodies) that the call at s may dispatch to.
	CalleesOfCallAt(s *Stmt) []*Method
	// MethodOf returns the method enclosing s.
	MethodOf(s *Stmt) *Method
	// UnitGraph returns the control-flow graph of m.
	UnitGraph(m *Method) Graph
}

// DefUse answers def-use queries within a single method body.
type DefUse interface {
	// ReachingDefinitions returns the definitions of v that reach s, nearest first.
	ReachingDefinitions(s *Stmt, v Value) []*Stmt
}

// Program is a whole analyzed application: its method bodies, its call graph and its entry
// points. Once built it is never mutated, so it can be shared by concurrent analyses.
type Program struct {
	methods     []*Method
	bySignature map[string]*Method
	calls       map[StmtID][]*Method
	entryPoints []*Method
	nextID      StmtID
}

var (
	_ ICFG   = (*Program)(nil)
	_ DefUse = (*Program)(nil)
	_ Graph  = (*Method)(nil)
)

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{
		bySignature: make(map[string]*Method),
		calls:       make(map[StmtID][]*Method),
	}
}

// Methods returns every method of p in creation order.
func (p *Program) Methods() []*Method { return p.methods }

// Method returns the method with the given signature, or nil.
func (p *Program) Method(signature string) *Method { return p.bySignature[signature] }

// EntryPoints returns the methods from which analysis starts.
func (p *Program) EntryPoints() []*Method { return p.entryPoints }

// AddEntryPoint registers m as an analysis entry point.
func (p *Program) AddEntryPoint(m *Method) {
	p.entryPoints = append(p.entryPoints, m)
}

// AddCall records that the call at site may dispatch to callee.
func (p *Program) AddCall(site *Stmt, callee *Method) {
	p.calls[site.ID] = append(p.calls[site.ID], callee)
}

// NumStmts returns an upper bound (exclusive) of the statement IDs allocated in p.
func (p *Program) NumStmts() int { return p.nextID }

// CalleesOfCallAt implements ICFG.
func (p *Program) CalleesOfCallAt(s *Stmt) []*Method { return p.calls[s.ID] }

// MethodOf implements ICFG.
func (p *Program) MethodOf(s *Stmt) *Method { return s.Method }

// UnitGraph implements ICFG.
func (p *Program) UnitGraph(m *Method) Graph { return m }

// ReachingDefinitions implements DefUse with a demand-driven backwards search from s: every
// path is followed until it meets a definition of v, so the definitions found first are the
// nearest ones.
func (p *Program) ReachingDefinitions(s *Stmt, v Value) []*Stmt {
	if s == nil || v == nil {
		return nil
	}
	key := v.Key()
	visited := map[StmtID]bool{s.ID: true}
	queue := append([]*Stmt(nil), s.Preds...)
	var defs []*Stmt
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur.ID] {
			continue
		}
		visited[cur.ID] = true
		if cur.IsDefinition() && cur.LHS.Key() == key {
			defs = append(defs, cur)
			continue
		}
		queue = append(queue, cur.Preds...)
	}
	return defs
}
