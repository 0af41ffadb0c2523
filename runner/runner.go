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

// Package runner analyzes the entry points of a program, each with its own symbolic execution
// engine, in parallel. A failing or panicking entry point never affects its siblings, and the
// findings made before a timeout are always returned.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/huaxunhuang/confdroid-sub110/formula"
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/predicate"
	"github.com/huaxunhuang/confdroid-sub110/symexec"
	"github.com/huaxunhuang/confdroid-sub110/traversal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Config configures a Runner.
type Config struct {
	Options    symexec.Options
	Workers    int
	MaxClauses int
}

// EntryResult is the outcome of one entry point.
type EntryResult struct {
	Entry   *ir.Method
	Results symexec.Results
	Visits  int
	Err     error
}

// Result is the outcome of a run, in entry point order.
type Result struct {
	Entries  []EntryResult
	Recovery *predicate.Recovery
}

// Triggers returns the trigger records of all entry points.
func (r *Result) Triggers() []*symexec.TriggerRecord {
	var out []*symexec.TriggerRecord
	for _, e := range r.Entries {
		out = append(out, e.Results.Triggers...)
	}
	return out
}

// Rows returns the result table rows of all entry points.
func (r *Result) Rows() []symexec.Row {
	var out []symexec.Row
	for _, e := range r.Entries {
		out = append(out, e.Results.Rows...)
	}
	return out
}

// SystemSpecific merges the system-specific maps of all entry points.
func (r *Result) SystemSpecific() map[ir.StmtID]bool {
	out := make(map[ir.StmtID]bool)
	for _, e := range r.Entries {
		for id, flag := range e.Results.SystemSpecific {
			out[id] = out[id] || flag
		}
	}
	return out
}

// Runner drives the analysis of a program.
type Runner struct {
	prog    *ir.Program
	cfg     Config
	log     logrus.FieldLogger
	metrics *Metrics

	mu      sync.Mutex
	engines []*symexec.Engine
}

// New returns a runner over prog. metrics may be nil.
func New(prog *ir.Program, cfg Config, log logrus.FieldLogger, metrics *Metrics) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Runner{prog: prog, cfg: cfg, log: log, metrics: metrics}
}

// Run analyzes entries (all entry points of the program if entries is empty). Per-entry
// failures are reported in the result. The returned error is the context error if ctx ended
// before every entry point completed; the result then holds the partial findings.
func (r *Runner) Run(ctx context.Context, entries ...*ir.Method) (*Result, error) {
	if len(entries) == 0 {
		entries = r.prog.EntryPoints()
	}
	recovery := predicate.New(r.prog, formula.NewFactory(), r.cfg.MaxClauses)
	res := &Result{Entries: make([]EntryResult, len(entries)), Recovery: recovery}

	r.log.WithFields(logrus.Fields{"entry_points": len(entries), "workers": r.cfg.Workers}).Info("analysis started")

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i, entry := range entries {
		i, entry := i, entry
		engine := symexec.New(r.prog, recovery, r.cfg.Options, r.log.WithField("entry", entry.Signature()))
		r.mu.Lock()
		r.engines = append(r.engines, engine)
		r.mu.Unlock()

		g.Go(func() error {
			res.Entries[i] = r.analyze(ctx, entry, engine)
			return nil
		})
	}
	// Entry point errors are collected in the result, never returned to the group.
	_ = g.Wait()

	r.log.WithField("triggers", len(res.Triggers())).Info("analysis finished")
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("analysis interrupted: %w", err)
	}
	return res, nil
}

// Snapshot returns the findings made so far by every engine started by r. It is safe to call
// while Run is in progress.
func (r *Runner) Snapshot() []symexec.Results {
	r.mu.Lock()
	engines := append([]*symexec.Engine(nil), r.engines...)
	r.mu.Unlock()
	out := make([]symexec.Results, len(engines))
	for i, e := range engines {
		out[i] = e.Results()
	}
	return out
}

// analyze runs engine on entry, converting a panic into an error.
func (r *Runner) analyze(ctx context.Context, entry *ir.Method, engine *symexec.Engine) (er EntryResult) {
	er.Entry = entry
	start := time.Now()
	if r.metrics != nil {
		r.metrics.InProgress.Inc()
	}
	outcome := OutcomeOK

	defer func() {
		if p := recover(); p != nil {
			er.Err = fmt.Errorf("INTERNAL PANIC analyzing %s: %v\n%s", entry.Signature(), p, string(debug.Stack()))
			outcome = OutcomePanic
		}
		er.Results = engine.Results()
		er.Visits = engine.Visits()

		fields := logrus.Fields{
			"entry":    entry.Signature(),
			"outcome":  outcome,
			"triggers": len(er.Results.Triggers),
			"visits":   er.Visits,
		}
		if er.Err != nil {
			r.log.WithFields(fields).WithError(er.Err).Warn("entry point incomplete")
		} else {
			r.log.WithFields(fields).Info("entry point analyzed")
		}
		r.observe(er, outcome, time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		er.Err = err
		outcome = OutcomeTimeout
		return er
	}

	if err := engine.Run(ctx, entry); err != nil {
		er.Err = err
		switch {
		case errors.Is(err, traversal.ErrVisitBudgetExceeded):
			outcome = OutcomeBudget
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			outcome = OutcomeTimeout
		default:
			outcome = OutcomeError
		}
	}
	return er
}

func (r *Runner) observe(er EntryResult, outcome string, d time.Duration) {
	if r.metrics == nil {
		return
	}
	r.metrics.InProgress.Dec()
	r.metrics.EntryPoints.WithLabelValues(outcome).Inc()
	r.metrics.Duration.Observe(d.Seconds())
	r.metrics.Visits.Add(float64(er.Visits))
	r.metrics.Triggers.Add(float64(len(er.Results.Triggers)))
	for _, t := range er.Results.Triggers {
		if t.SystemSpecific {
			r.metrics.SystemSpecific.Inc()
		}
	}
}
