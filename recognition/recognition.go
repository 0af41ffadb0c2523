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

// Package recognition turns single statements into bindings of program values to symbolic
// values. Statements are dispatched on their kind; definitions of numeric type go straight to
// the recognizer of that type, everything else walks an ordered chain of domain recognizers
// ending in a generic fallback.
package recognition

import (
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/symbolic"
)

// Binding states that Value may hold Sym after the statement executes.
type Binding struct {
	Value ir.Value
	Sym   symbolic.Value
}

// Env gives access to the symbolic values program values hold before the statement executes.
type Env interface {
	Lookup(v ir.Value) []symbolic.Value
}

// Recognizer is a link of the chain. Each handler returns the bindings it produced and true,
// or false to defer to the next link. Handlers never fail on input they do not understand.
type Recognizer interface {
	Definition(s *ir.Stmt, env Env) ([]Binding, bool)
	Invocation(s *ir.Stmt, env Env) ([]Binding, bool)
	Return(s *ir.Stmt, env Env) ([]Binding, bool)
}

// Chain is the full recognizer: specialized recognizers for int, float and double definitions
// plus the ordered chain for everything else.
type Chain struct {
	intRec    Recognizer
	floatRec  Recognizer
	doubleRec Recognizer
	links     []Recognizer
}

// NewChain returns the default chain. Domain recognizers come first so that, e.g., a long
// holding a timestamp is recognized as a date rather than as a plain number.
func NewChain() *Chain {
	return &Chain{
		intRec:    numeric{typ: ir.Int},
		floatRec:  numeric{typ: ir.Float},
		doubleRec: numeric{typ: ir.Double},
		links: []Recognizer{
			dateTime,
			location,
			sms,
			typed{typ: ir.Long},
			typed{typ: ir.Byte, also: []ir.Type{ir.Short, ir.Char}},
			typed{typ: ir.Boolean},
			floatArray{},
			generic{},
		},
	}
}

// Recognize returns the bindings produced by s, or nil.
func (c *Chain) Recognize(s *ir.Stmt, env Env) []Binding {
	switch s.Kind {
	case ir.Assign, ir.Identity:
		var rec Recognizer
		switch s.LHS.Type() {
		case ir.Int:
			rec = c.intRec
		case ir.Float:
			rec = c.floatRec
		case ir.Double:
			rec = c.doubleRec
		}
		if rec != nil {
			if bs, ok := rec.Definition(s, env); ok {
				return bs
			}
		}
		return c.walk(func(r Recognizer) ([]Binding, bool) { return r.Definition(s, env) })
	case ir.InvokeStmt:
		return c.walk(func(r Recognizer) ([]Binding, bool) { return r.Invocation(s, env) })
	case ir.Return:
		return c.walk(func(r Recognizer) ([]Binding, bool) { return r.Return(s, env) })
	case ir.ReturnVoid, ir.If, ir.Switch, ir.Goto, ir.Nop, ir.Throw:
		return nil
	}
	return nil
}

func (c *Chain) walk(handle func(Recognizer) ([]Binding, bool)) []Binding {
	for _, r := range c.links {
		if bs, ok := handle(r); ok {
			return bs
		}
	}
	return nil
}

// deferAll is embedded by recognizers that only handle some statement shapes.
type deferAll struct{}

func (deferAll) Definition(*ir.Stmt, Env) ([]Binding, bool) { return nil, false }
func (deferAll) Invocation(*ir.Stmt, Env) ([]Binding, bool) { return nil, false }
func (deferAll) Return(*ir.Stmt, Env) ([]Binding, bool)     { return nil, false }

func bindAll(v ir.Value, syms []symbolic.Value) []Binding {
	out := make([]Binding, 0, len(syms))
	for _, s := range syms {
		out = append(out, Binding{Value: v, Sym: s})
	}
	return out
}
