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
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/symbolic"
)

// MaxCombinations bounds the number of values produced for a single binary expression, whose
// operands may each hold several values.
const MaxCombinations = 16

// Symbolize returns the symbolic values expr may evaluate to under env. It never returns an
// empty slice: expressions nothing is known about are wrapped as they are.
func Symbolize(expr ir.Value, env Env) []symbolic.Value {
	switch e := expr.(type) {
	case *ir.Const:
		return []symbolic.Value{symbolic.NewConstant(e)}
	case *ir.Local, *ir.Param, *ir.This, *ir.FieldRef:
		if vs := env.Lookup(e); len(vs) > 0 {
			return vs
		}
		return []symbolic.Value{symbolic.NewSingleVariable(e)}
	case *ir.CastExpr:
		return Symbolize(e.X, env)
	case *ir.BinExpr:
		return binOps(e, env)
	case *ir.InvokeExpr:
		return []symbolic.Value{invocation(e, env)}
	case *ir.NewArrayExpr:
		if e.Elem == ir.Float {
			return []symbolic.Value{symbolic.NewFloatArray(operand(e.Size, env))}
		}
	}
	return []symbolic.Value{symbolic.NewUnresolved(expr.String())}
}

func binOps(e *ir.BinExpr, env Env) []symbolic.Value {
	xs := Symbolize(e.X, env)
	ys := Symbolize(e.Y, env)
	var out []symbolic.Value
	for _, x := range xs {
		for _, y := range ys {
			if len(out) == MaxCombinations {
				return out
			}
			if folded, ok := fold(e.Op, x, y); ok {
				out = append(out, folded)
				continue
			}
			out = append(out, symbolic.NewBinOp(e.Op, x, y))
		}
	}
	return out
}

// invocation returns the symbolic result of calling e. String constant arguments become tags,
// so do the tags of the receiver's values and the simple name of the declaring class.
func invocation(e *ir.InvokeExpr, env Env) symbolic.Value {
	m := symbolic.NewMethodRepresentation(e.Method)
	m.AddTag(ir.Type(e.Method.Class).SimpleName())
	if e.Base != nil {
		for _, b := range env.Lookup(e.Base) {
			for _, t := range b.Tags() {
				m.AddTag(t)
			}
		}
	}
	for _, s := range stringArgs(e) {
		m.AddTag(s)
	}
	return m
}

// operand returns a single operand for v: its only known value, or v itself.
func operand(v ir.Value, env Env) symbolic.Operand {
	vs := Symbolize(v, env)
	if len(vs) == 1 {
		return vs[0]
	}
	return v
}

func stringArgs(e *ir.InvokeExpr) []string {
	var out []string
	for _, a := range e.Args {
		if c, ok := a.(*ir.Const); ok && c.Kind == ir.StringConst {
			out = append(out, c.Text)
		}
	}
	return out
}
