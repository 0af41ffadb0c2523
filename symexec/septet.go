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
	"strconv"

	"github.com/huaxunhuang/confdroid-sub110/contextual"
	"github.com/huaxunhuang/confdroid-sub110/formula"
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/symbolic"
)

// Septet links a guard literal to the symbolic interpretation of the comparison it encodes.
type Septet struct {
	// Values are the values the comparison is about: operand 1's if any, else operand 2's.
	Values    []symbolic.Value
	Op1Values []symbolic.Value
	Op2Values []symbolic.Value
	Op1       ir.Value
	Op2       ir.Value
	// Constant is the constant side of the comparison, if any.
	Constant *ir.Const
	Literal  formula.Literal
	// Guard is the conditional statement of the literal; nil for vararg literals.
	Guard *ir.Stmt
	// Op is the comparison operator as written in the guard, oriented so that Values are on its
	// left. It is empty for vararg literals.
	Op string
	// SentinelCheck is true if the values are binary operations against 0 or -1, the shape of
	// null checks and of cmp results.
	SentinelCheck bool
}

// Resolution is the outcome of resolving one literal of a trigger formula.
type Resolution struct {
	Literal formula.Literal
	// Septet is nil if no guard could be related to the literal.
	Septet *Septet
	// Rewritten is the canonical text of the literal, set when Resolved.
	Rewritten string
	Resolved  bool
}

var caseIndexRe = regexp.MustCompile(`case (-?\d+)$`)

// accessorNames are the accessors whose results are taken as the source of a value when no
// observation of it exists.
var accessorNames = map[string]bool{
	"hasValue":        true,
	"hasValueOrEmpty": true,
	"getBoolean":      true,
	"getInt":          true,
	"getFloat":        true,
	"getColor":        true,
}

// resolveLiteral builds the septet of lit and attempts its canonical rewrite.
func (e *Engine) resolveLiteral(s *ir.Stmt, lit formula.Literal, cur env) Resolution {
	res := Resolution{Literal: lit}
	sep := e.septet(s, lit, cur)
	if sep == nil {
		return res
	}
	res.Septet = sep
	res.Rewritten, res.Resolved = e.rewrite(sep, lit.Positive)
	return res
}

// septet returns the septet of lit, or nil if its guard cannot be related to any value.
func (e *Engine) septet(s *ir.Stmt, lit formula.Literal, cur env) *Septet {
	guard := e.recovery.GuardingStatementOf(lit)
	if guard == nil {
		arg, ok := e.varargs[lit.Var.ID]
		if !ok {
			return nil
		}
		return e.varargSeptet(s, lit, arg, cur)
	}

	var op1, op2 ir.Value
	var op string
	switch guard.Kind {
	case ir.If:
		op1, op2, op = guard.Cond.X, guard.Cond.Y, guard.Cond.Op
	case ir.Switch:
		m := caseIndexRe.FindStringSubmatch(lit.Var.Name)
		if m == nil {
			return nil
		}
		idx, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil
		}
		op1, op2, op = guard.Op, ir.NewIntConst(idx), "=="
	default:
		return nil
	}

	sep := &Septet{Op1: op1, Op2: op2, Literal: lit, Guard: guard, Op: op}
	op1Found, op2Found := false, false
	if cv := e.operandValues(guard, op1); cv != nil {
		op1Found = true
		sep.Op1Values = cv.LastCoherentValues(guard)
	}
	if cv := e.operandValues(guard, op2); cv != nil {
		op2Found = true
		sep.Op2Values = cv.LastCoherentValues(guard)
	}

	switch {
	case len(sep.Op1Values) > 0:
		sep.Values = sep.Op1Values
		sep.Constant, _ = op2.(*ir.Const)
	case len(sep.Op2Values) > 0:
		sep.Values = sep.Op2Values
		sep.Constant, _ = op1.(*ir.Const)
		sep.Op = mirrorOp(op)
	case op1Found || op2Found:
		sep.Values = []symbolic.Value{symbolic.NewSingleVariable(op1)}
		sep.Constant, _ = op2.(*ir.Const)
	default:
		// Nothing is known about either side; only a comparison with a constant is left.
		sep.Constant, _ = op2.(*ir.Const)
	}
	sep.SentinelCheck = sentinelCheck(sep.Values)
	return sep
}

// varargSeptet resolves a synthetic vararg literal from the observations made at the last point
// of the path, or failing that from the environment of the trigger.
func (e *Engine) varargSeptet(s *ir.Stmt, lit formula.Literal, arg ir.Value, cur env) *Septet {
	sep := &Septet{Op1: arg, Literal: lit}
	if path := e.trav.Path(); len(path) > 0 {
		if cv := e.PathScoped(path[len(path)-1], arg); cv != nil {
			sep.Op1Values = cv.AllValues()
		}
	}
	if len(sep.Op1Values) == 0 {
		sep.Op1Values = cur[e.key(arg)].syms
	}
	sep.Values = sep.Op1Values
	sep.SentinelCheck = sentinelCheck(sep.Values)
	return sep
}

// operandValues returns the history of a non-constant operand of the guard.
func (e *Engine) operandValues(guard *ir.Stmt, v ir.Value) *contextual.Values {
	if _, ok := v.(*ir.Const); ok || v == nil {
		return nil
	}
	return e.ResolveValues(guard, v)
}

// ResolveValues returns the history of v as seen from point: the global history if v was ever
// bound, otherwise a fresh history holding the right-hand side of the nearest reaching
// definition of v, or nil if that definition is not understood.
func (e *Engine) ResolveValues(point *ir.Stmt, v ir.Value) *contextual.Values {
	if cv := e.Global(v); cv != nil {
		return cv
	}
	defs := e.prog.ReachingDefinitions(point, v)
	if len(defs) == 0 {
		return nil
	}
	def := defs[0]
	var sym symbolic.Value
	switch rhs := def.RHS.(type) {
	case *ir.InvokeExpr:
		m := symbolic.NewMethodRepresentation(rhs.Method)
		if accessorNames[rhs.Method.Name] {
			m.AddTag(ir.Type(rhs.Method.Class).SimpleName())
		}
		sym = m
	case *ir.FieldRef, *ir.Param:
		sym = symbolic.NewSingleVariable(rhs)
	case *ir.Const:
		sym = symbolic.NewConstant(rhs)
	default:
		return nil
	}
	cv := contextual.New(v, e)
	cv.AddValue(def, sym)
	return cv
}

func sentinelCheck(vs []symbolic.Value) bool {
	for _, v := range vs {
		if b, ok := v.(*symbolic.BinOp); ok && symbolic.SentinelOperand(b.Y) {
			return true
		}
	}
	return false
}

// mirrorOp returns the operator that holds for "y op' x" exactly when "x op y" holds.
func mirrorOp(op string) string {
	switch op {
	case "<":
		return ">"
	case ">":
		return "<"
	case "<=":
		return ">="
	case ">=":
		return "<="
	}
	return op
}
