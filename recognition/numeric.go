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

package recognition

import (
	"math"
	"strconv"

	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/symbolic"
)

// numeric recognizes definitions of int, float and double locals. Invocation results are first
// offered to the domain matchers, since e.g. Calendar.get returns an int.
type numeric struct {
	deferAll
	typ ir.Type
}

var domainMatchers = []func(*ir.InvokeExpr) (symbolic.Value, bool){
	matchDateTime,
	matchLocation,
	matchSms,
}

func (n numeric) Definition(s *ir.Stmt, env Env) ([]Binding, bool) {
	if s.LHS.Type() != n.typ {
		return nil, false
	}
	if inv, ok := s.RHS.(*ir.InvokeExpr); ok {
		for _, match := range domainMatchers {
			if v, ok := match(inv); ok {
				return []Binding{{Value: s.LHS, Sym: v}}, true
			}
		}
	}
	return bindAll(s.LHS, Symbolize(s.RHS, env)), true
}

// typed recognizes definitions of locals of type typ (or any of also).
type typed struct {
	deferAll
	typ  ir.Type
	also []ir.Type
}

func (t typed) Definition(s *ir.Stmt, env Env) ([]Binding, bool) {
	lt := s.LHS.Type()
	match := lt == t.typ
	for _, a := range t.also {
		match = match || lt == a
	}
	if !match {
		return nil, false
	}
	return bindAll(s.LHS, Symbolize(s.RHS, env)), true
}

// fold evaluates arithmetic on two numeric constants. Comparisons and cmp are never folded,
// the guard resolution relies on seeing them.
func fold(op string, x, y symbolic.Value) (symbolic.Value, bool) {
	cx, ok := x.(*symbolic.Constant)
	if !ok {
		return nil, false
	}
	cy, ok := y.(*symbolic.Constant)
	if !ok || cx.Value.Kind != cy.Value.Kind {
		return nil, false
	}
	switch cx.Value.Kind {
	case ir.IntConst, ir.LongConst:
		a, errA := strconv.ParseInt(cx.Value.Text, 10, 64)
		b, errB := strconv.ParseInt(cy.Value.Text, 10, 64)
		if errA != nil || errB != nil {
			return nil, false
		}
		var r int64
		switch op {
		case "+":
			r = a + b
		case "-":
			r = a - b
		case "*":
			r = a * b
		case "/":
			if b == 0 {
				return nil, false
			}
			r = a / b
		case "%":
			if b == 0 {
				return nil, false
			}
			r = a % b
		default:
			return nil, false
		}
		if cx.Value.Kind == ir.IntConst {
			r = int64(int32(r))
		}
		return symbolic.NewConstant(&ir.Const{Kind: cx.Value.Kind, Text: strconv.FormatInt(r, 10)}), true
	case ir.FloatConst, ir.DoubleConst:
		a, _ := cx.Value.Float()
		b, _ := cy.Value.Float()
		var r float64
		switch op {
		case "+":
			r = a + b
		case "-":
			r = a - b
		case "*":
			r = a * b
		case "/":
			r = a / b
		default:
			return nil, false
		}
		if math.IsInf(r, 0) || math.IsNaN(r) {
			return nil, false
		}
		return symbolic.NewConstant(&ir.Const{Kind: cx.Value.Kind, Text: strconv.FormatFloat(r, 'g', -1, 64)}), true
	}
	return nil, false
}
