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
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/symbolic"
)

// rewrite returns the canonical text of the literal described by sep, or false if the literal
// does not compare a value derived from the receiver type. positive is the polarity of the
// literal: a negative literal is written with the negated operator.
func (e *Engine) rewrite(sep *Septet, positive bool) (string, bool) {
	if len(sep.Values) == 0 {
		return "", false
	}
	receiver := ir.Type(e.opts.ReceiverType).SimpleName()
	derived := false
	for _, v := range sep.Values {
		if symbolic.Mentions(v, receiver) {
			derived = true
			break
		}
	}
	if !derived {
		return "", false
	}

	text, identical := commonText(sep.Values)

	// A vararg literal has no comparison; it stands for the argument itself.
	if sep.Op == "" {
		if identical {
			return text, true
		}
		return "", false
	}

	op := sep.Op
	if !positive {
		op = ir.NegateOp(op)
	}
	rhs, ok := rhsText(sep)
	if !ok {
		return "", false
	}

	if allIndexAccessors(sep.Values) {
		m := sep.Values[0].(*symbolic.MethodRepresentation)
		return "(" + m.ShortString() + ") " + op + " " + rhs, true
	}

	if !identical || !symbolic.Mentions(sep.Values[0], receiver) {
		return "", false
	}
	// "a cmp b" compared with 0 is the comparison of a and b.
	if b, ok := sep.Values[0].(*symbolic.BinOp); ok && b.IsCmp() && sep.Constant != nil {
		if f, ok := sep.Constant.Float(); ok && f == 0 {
			return b.X.String() + " " + op + " " + b.Y.String(), true
		}
	}
	return text + " " + op + " " + rhs, true
}

// commonText returns the text of the first value and whether all values share it.
func commonText(vs []symbolic.Value) (string, bool) {
	text := vs[0].String()
	for _, v := range vs[1:] {
		if v.String() != text {
			return text, false
		}
	}
	return text, true
}

func allIndexAccessors(vs []symbolic.Value) bool {
	for _, v := range vs {
		m, ok := v.(*symbolic.MethodRepresentation)
		if !ok || !m.IsIndexAccessor() {
			return false
		}
	}
	return true
}

// rhsText returns the side of the comparison the values are compared against.
// A comparison with no known second operand has none.
func rhsText(sep *Septet) (string, bool) {
	if sep.Constant != nil {
		return sep.Constant.String(), true
	}
	if len(sep.Op2Values) == 1 && len(sep.Op1Values) > 0 {
		return sep.Op2Values[0].String(), true
	}
	if sep.Op2 != nil {
		return sep.Op2.String(), true
	}
	return "", false
}
