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

// NewInvoke returns an invocation of ref on base (nil for static calls).
func NewInvoke(kind InvokeKind, base Value, ref MethodRef, args ...Value) *InvokeExpr {
	return &InvokeExpr{Kind: kind, Base: base, Method: ref, Args: args}
}

// Compare returns the boolean comparison "x op y".
func Compare(op string, x, y Value) *BinExpr {
	return &BinExpr{Op: op, X: x, Y: y, Typ: Boolean}
}

// Arith returns the arithmetic (or cmp) expression "x op y" of type t.
func Arith(op string, x, y Value, t Type) *BinExpr {
	return &BinExpr{Op: op, X: x, Y: y, Typ: t}
}

// Ref is shorthand for building a MethodRef.
func Ref(class, name string, ret Type, params ...Type) MethodRef {
	return MethodRef{Class: class, Name: name, Params: params, Ret: ret}
}
