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

const stringBuilderClass = "java.lang.StringBuilder"

// generic is the last link of the chain: it accepts every statement shape it is offered.
type generic struct{}

func (generic) Definition(s *ir.Stmt, env Env) ([]Binding, bool) {
	return bindAll(s.LHS, Symbolize(s.RHS, env)), true
}

// Invocation handles calls whose result is dropped but which update their receiver.
func (generic) Invocation(s *ir.Stmt, env Env) ([]Binding, bool) {
	inv := s.Invoke
	if inv == nil || inv.Base == nil {
		return nil, true
	}
	switch {
	case inv.Method.Class == stringBuilderClass && inv.Method.Name == "append" && len(inv.Args) == 1:
		arg := operand(inv.Args[0], env)
		var out []Binding
		for _, b := range Symbolize(inv.Base, env) {
			out = append(out, Binding{Value: inv.Base, Sym: symbolic.NewBinOp("append", b, arg)})
		}
		return out, true
	case inv.Method.Class == calendarClass && inv.Method.Name == "set" && len(inv.Args) == 2:
		field := symbolic.NewDateTime(calendarField(inv.Args[0]))
		return []Binding{{
			Value: inv.Base,
			Sym:   symbolic.NewBinOp("set", field, operand(inv.Args[1], env)),
		}}, true
	}
	return nil, true
}

// Return binds the return slot of the enclosing method.
func (generic) Return(s *ir.Stmt, env Env) ([]Binding, bool) {
	if s.Op == nil || s.Method == nil {
		return nil, true
	}
	slot := &ir.ReturnSlot{Method: s.Method.Signature(), Typ: s.Method.Ref.Ret}
	return bindAll(slot, Symbolize(s.Op, env)), true
}
