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

// Package symexec implements the path-sensitive symbolic execution of one entry point. It is the
// hook of the ICFG traversal: at every point it binds symbolic values to the program values the
// point defines, and at every trigger-relevant call it recovers the guard formula of the current
// path, resolves its literals to the values they compare and rewrites them into canonical text.
//
// An Engine owns all of its state and analyzes a single entry point. Engines for different entry
// points of the same program can run concurrently.
package symexec

import (
	"context"
	"regexp"
	"sync"

	"github.com/huaxunhuang/confdroid-sub110/config"
	"github.com/huaxunhuang/confdroid-sub110/contextual"
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/predicate"
	"github.com/huaxunhuang/confdroid-sub110/recognition"
	"github.com/huaxunhuang/confdroid-sub110/symbolic"
	"github.com/huaxunhuang/confdroid-sub110/traversal"
	"github.com/sirupsen/logrus"
)

// Program is what the engine needs from the analyzed program.
type Program interface {
	ir.ICFG
	ir.DefUse
}

// Options configures an Engine.
type Options struct {
	// ReceiverType is the fully-qualified array-resource type whose accessors are triggers.
	ReceiverType string
	// TriggerMethods are the accessor names; a trailing "*" matches by prefix.
	TriggerMethods []string
	// TextualIdentity keys program values by their text rather than by method and name.
	TextualIdentity  bool
	StackPlaceholder string
	MaxVisits        int
	MaxCallDepth     int
}

// OptionsFromConfig returns the options described by cfg.
func OptionsFromConfig(cfg config.AnalysisConfig) Options {
	return Options{
		ReceiverType:     cfg.ResourceReceiverType,
		TriggerMethods:   cfg.TriggerMethods,
		TextualIdentity:  cfg.TextualIdentity,
		StackPlaceholder: cfg.StackPlaceholder,
		MaxVisits:        cfg.MaxVisits,
		MaxCallDepth:     cfg.MaxCallDepth,
	}
}

// DefaultOptions returns the options of config.Default.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Analysis)
}

// binding is the entry of a flow environment.
type binding struct {
	value ir.Value
	syms  []symbolic.Value
}

// env is the flow environment at a point: the values every program value may hold once the
// point has executed on the current path.
type env map[string]binding

// Engine is the symbolic execution of one entry point.
type Engine struct {
	prog      Program
	recovery  *predicate.Recovery
	chain     *recognition.Chain
	opts      Options
	log       logrus.FieldLogger
	trav      *traversal.Traversal
	triggerRe *regexp.Regexp

	// global keeps every observation of a program value across all paths.
	global map[string]*contextual.Values
	// pathScoped keeps, per point, the observations made at that point.
	pathScoped map[ir.StmtID]map[string]*contextual.Values
	// snapshots holds one environment per occurrence of a point on the current path.
	snapshots map[ir.StmtID][]env
	// varargs maps synthetic vararg variables to the argument they stand for.
	varargs map[int]ir.Value

	mu             sync.Mutex
	triggers       []*TriggerRecord
	systemSpecific map[ir.StmtID]bool
	rows           []Row
}

var (
	_ traversal.Hooks    = (*Engine)(nil)
	_ contextual.Context = (*Engine)(nil)
)

// New returns an engine over prog. The recovery may be shared between engines.
func New(prog Program, recovery *predicate.Recovery, opts Options, log logrus.FieldLogger) *Engine {
	e := &Engine{
		prog:           prog,
		recovery:       recovery,
		chain:          recognition.NewChain(),
		opts:           opts,
		log:            log,
		triggerRe:      triggerPattern(opts.TriggerMethods),
		global:         make(map[string]*contextual.Values),
		pathScoped:     make(map[ir.StmtID]map[string]*contextual.Values),
		snapshots:      make(map[ir.StmtID][]env),
		varargs:        make(map[int]ir.Value),
		systemSpecific: make(map[ir.StmtID]bool),
	}
	e.trav = traversal.New(prog, e, traversal.Options{MaxVisits: opts.MaxVisits, MaxCallDepth: opts.MaxCallDepth})
	return e
}

// Run walks every path of entry. On error (budget exhausted, context done) the findings made so
// far remain available from Results.
func (e *Engine) Run(ctx context.Context, entry *ir.Method) error {
	e.log.WithField("entry", entry.Signature()).Debug("symbolic execution started")
	err := e.trav.Run(ctx, entry)
	e.log.WithFields(logrus.Fields{
		"entry":    entry.Signature(),
		"visits":   e.trav.Visits(),
		"triggers": len(e.Results().Triggers),
	}).Debug("symbolic execution finished")
	return err
}

// Visits returns the number of points visited so far.
func (e *Engine) Visits() int { return e.trav.Visits() }

// Path implements contextual.Context.
func (e *Engine) Path() []*ir.Stmt { return e.trav.Path() }

// Snapshot implements contextual.Context: it reads the latest environment recorded at point.
func (e *Engine) Snapshot(point *ir.Stmt, v ir.Value) ([]symbolic.Value, bool) {
	stack := e.snapshots[point.ID]
	if len(stack) == 0 {
		return nil, false
	}
	b, ok := stack[len(stack)-1][e.key(v)]
	if !ok {
		return nil, false
	}
	return b.syms, true
}

// Global returns the history of v across all paths, or nil.
func (e *Engine) Global(v ir.Value) *contextual.Values { return e.global[e.key(v)] }

// PathScoped returns the history of v at point, or nil.
func (e *Engine) PathScoped(point *ir.Stmt, v ir.Value) *contextual.Values {
	return e.pathScoped[point.ID][e.key(v)]
}

func (e *Engine) key(v ir.Value) string {
	if e.opts.TextualIdentity {
		return v.String()
	}
	return v.Key().String()
}

// BeforeNeighbors implements traversal.Hooks.
func (e *Engine) BeforeNeighbors(s *ir.Stmt) {
	parent := e.currentEnv()
	bindings := e.recognize(s, parent)

	next := make(env, len(parent)+len(bindings))
	for k, b := range parent {
		next[k] = b
	}
	updated := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		k := e.key(b.Value)
		e.store(e.global, k, b.Value).AddValue(s, b.Sym)
		scoped, ok := e.pathScoped[s.ID]
		if !ok {
			scoped = make(map[string]*contextual.Values)
			e.pathScoped[s.ID] = scoped
		}
		e.store(scoped, k, b.Value).AddValue(s, b.Sym)

		// Strong update: the first binding at this point replaces what the parent knew.
		cur := next[k]
		if !updated[k] {
			updated[k] = true
			cur = binding{value: b.Value}
		}
		cur.syms = append(cur.syms[:len(cur.syms):len(cur.syms)], b.Sym)
		next[k] = cur

		e.log.WithFields(logrus.Fields{"stmt": s.ID, "value": k, "sym": b.Sym.String()}).Trace("bound")
	}
	e.snapshots[s.ID] = append(e.snapshots[s.ID], next)

	if e.isTrigger(s) {
		e.processTrigger(s, next)
	}
}

// OnNeighbor implements traversal.Hooks.
func (e *Engine) OnNeighbor(_, _ *ir.Stmt) {}

// AfterNeighbors implements traversal.Hooks: the environment recorded for this occurrence of s
// is dropped.
func (e *Engine) AfterNeighbors(s *ir.Stmt) {
	stack := e.snapshots[s.ID]
	if len(stack) <= 1 {
		delete(e.snapshots, s.ID)
		return
	}
	e.snapshots[s.ID] = stack[:len(stack)-1]
}

// currentEnv returns the environment of the last point on the path.
func (e *Engine) currentEnv() env {
	path := e.trav.Path()
	if len(path) == 0 {
		return env{}
	}
	stack := e.snapshots[path[len(path)-1].ID]
	if len(stack) == 0 {
		return env{}
	}
	return stack[len(stack)-1]
}

func (e *Engine) store(m map[string]*contextual.Values, k string, v ir.Value) *contextual.Values {
	cv, ok := m[k]
	if !ok {
		cv = contextual.New(v, e)
		m[k] = cv
	}
	return cv
}

// envView adapts an env to recognition.Env.
type envView struct {
	e   *Engine
	env env
}

func (v envView) Lookup(val ir.Value) []symbolic.Value {
	return v.env[v.e.key(val)].syms
}

// recognize returns the bindings produced by s. Parameter identities in a callee entered from a
// call site are bound to the symbolic values of the corresponding arguments.
func (e *Engine) recognize(s *ir.Stmt, parent env) []recognition.Binding {
	view := envView{e: e, env: parent}
	if s.Kind == ir.Identity {
		if p, ok := s.RHS.(*ir.Param); ok {
			if site := e.trav.CallSite(); site != nil {
				if inv := site.InvokeExpr(); inv != nil && p.Index < len(inv.Args) {
					var out []recognition.Binding
					for _, sym := range recognition.Symbolize(inv.Args[p.Index], view) {
						out = append(out, recognition.Binding{Value: s.LHS, Sym: sym})
					}
					return out
				}
			}
		}
	}
	return e.chain.Recognize(s, view)
}
