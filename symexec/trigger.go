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

package symexec

import (
	"regexp"
	"strings"

	"github.com/huaxunhuang/confdroid-sub110/config"
	"github.com/huaxunhuang/confdroid-sub110/formula"
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/sirupsen/logrus"
)

// triggerPattern compiles the accessor names into one anchored regular expression.
func triggerPattern(names []string) *regexp.Regexp {
	alts := make([]string, 0, len(names))
	for _, n := range names {
		if prefix, ok := strings.CutSuffix(n, "*"); ok {
			alts = append(alts, regexp.QuoteMeta(prefix)+`\w*`)
			continue
		}
		alts = append(alts, regexp.QuoteMeta(n))
	}
	return regexp.MustCompile(`^(?:` + strings.Join(alts, "|") + `)$`)
}

// isTrigger returns true if s calls one of the trigger accessors on the receiver type.
func (e *Engine) isTrigger(s *ir.Stmt) bool {
	if s.IsBranch() {
		return false
	}
	inv := s.InvokeExpr()
	if inv == nil || inv.Base == nil {
		return false
	}
	if inv.Method.Class != e.opts.ReceiverType && inv.Base.Type() != ir.Type(e.opts.ReceiverType) {
		return false
	}
	return e.triggerRe.MatchString(inv.Method.Name)
}

// processTrigger recovers and canonicalizes the guard formula of the trigger call s reached on
// the current path, and records the finding.
func (e *Engine) processTrigger(s *ir.Stmt, cur env) {
	inv := s.InvokeExpr()
	factory := e.recovery.Factory()

	f := e.recovery.FullPathPredicateOf(s)
	if f == nil {
		f = formula.True
	}

	// Tie the formula to a variable-arity argument passed as an unnamed intermediate.
	for _, a := range inv.Args {
		l, ok := a.(*ir.Local)
		if !ok || !l.IsStackTemp() || !l.Typ.IsArray() {
			continue
		}
		v := factory.Fresh(config.VarargPrefix + l.Name)
		e.varargs[v.ID] = l
		f = formula.Conj(f, formula.Pos(v))
	}

	f = formula.CNF(f)

	onPath := e.trav.PathSet()
	subs := make(map[formula.Var]formula.Formula)
	for _, lit := range formula.Literals(f) {
		if e.literalOnPath(lit, onPath.Has) {
			continue
		}
		if _, done := subs[lit.Var]; done {
			continue
		}
		// Falsify the literal so that it drops out of its clauses.
		subs[lit.Var] = formula.Constant(!lit.Positive)
	}
	f = formula.CNF(formula.Substitute(f, subs))
	pathFormula := f

	var resolutions []Resolution
	systemSpecific := false
	rewrites := make(map[formula.Var]formula.Formula)
	for _, lit := range formula.Literals(f) {
		res := e.resolveLiteral(s, lit, cur)
		resolutions = append(resolutions, res)
		if !res.Resolved {
			systemSpecific = true
			continue
		}
		if _, done := rewrites[lit.Var]; done {
			continue
		}
		// The rewritten text already accounts for the polarity; the image carries it so that the
		// substituted literal reads positively.
		image := formula.Literal{Var: factory.Named(res.Rewritten), Positive: lit.Positive}
		rewrites[lit.Var] = image
	}
	f = formula.Substitute(f, rewrites)

	f = formula.CNF(formula.Conj(
		f,
		formula.Pos(factory.Named(e.canonicalText(inv))),
		formula.Pos(factory.Named(s.Method.Class())),
	))

	rec := &TriggerRecord{
		Stmt:           s,
		Formula:        f,
		PathFormula:    pathFormula,
		Resolutions:    resolutions,
		SystemSpecific: systemSpecific,
		Context:        append([]*ir.Stmt(nil), e.trav.Path()...),
	}
	e.mu.Lock()
	e.triggers = append(e.triggers, rec)
	e.systemSpecific[s.ID] = e.systemSpecific[s.ID] || systemSpecific
	e.rows = append(e.rows, Row{
		Stmt:    s.String(),
		Method:  s.Method.Signature(),
		Line:    s.Line,
		Formula: pathFormula.String(),
	})
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"stmt":            s.String(),
		"method":          s.Method.Signature(),
		"formula":         f.String(),
		"system_specific": systemSpecific,
	}).Debug("trigger")
}

// literalOnPath returns true if the guarding statement of lit is on the current path. Synthetic
// vararg literals have no guarding statement and always count as on the path.
func (e *Engine) literalOnPath(lit formula.Literal, onPath func(int) bool) bool {
	if g := e.recovery.GuardingStatementOf(lit); g != nil {
		return onPath(g.ID)
	}
	_, vararg := e.varargs[lit.Var.ID]
	return vararg
}

// canonicalText returns the text of inv with stack temporaries among its arguments replaced by
// the placeholder, so that equal calls lifted with different temporaries read the same.
func (e *Engine) canonicalText(inv *ir.InvokeExpr) string {
	args := make([]ir.Value, len(inv.Args))
	for i, a := range inv.Args {
		if l, ok := a.(*ir.Local); ok && l.IsStackTemp() {
			a = &ir.Local{Name: e.opts.StackPlaceholder, Typ: l.Typ, Scope: l.Scope}
		}
		args[i] = a
	}
	canon := *inv
	canon.Args = args
	return canon.String()
}
