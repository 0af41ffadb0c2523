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

// Package ir hosts the in-memory, Jimple-like intermediate representation of analyzed Android
// method bodies: values, statements, method control-flow graphs and the program-wide call graph.
// The analysis packages only consume it through the ICFG, Graph and DefUse interfaces.
package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the textual name of a static type, e.g. "int", "java.lang.String" or "float[]".
type Type string

// Primitive types used by the recognizers.
const (
	Int     Type = "int"
	Long    Type = "long"
	Float   Type = "float"
	Double  Type = "double"
	Byte    Type = "byte"
	Short   Type = "short"
	Char    Type = "char"
	Boolean Type = "boolean"
	Void    Type = "void"
	String  Type = "java.lang.String"
	Unknown Type = "unknown"
)

// IsArray returns true if t is an array type.
func (t Type) IsArray() bool {
	return strings.HasSuffix(string(t), "[]")
}

// SimpleName returns the unqualified class name of t ("android.content.res.TypedArray" -> "TypedArray").
func (t Type) SimpleName() string {
	s := string(t)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ValueKey is the stable identity of a Value: a scope (the declaring method for locals and
// parameters) plus a name that is unique within that scope.
type ValueKey struct {
	Scope string
	Name  string
}

func (k ValueKey) String() string {
	if k.Scope == "" {
		return k.Name
	}
	return k.Scope + "::" + k.Name
}

// Value is a program value occurring in a method body: a local, a parameter, a field reference,
// a constant or an expression. String returns its Jimple-like textual form, Key its stable
// identity.
type Value interface {
	Type() Type
	String() string
	Key() ValueKey
}

// Local is a method-local variable. Locals are interned per method by the MethodBuilder, so two
// *Local with the same name in the same method are the same pointer.
type Local struct {
	Name  string
	Typ   Type
	Scope string
}

func (l *Local) Type() Type     { return l.Typ }
func (l *Local) String() string { return l.Name }
func (l *Local) Key() ValueKey  { return ValueKey{Scope: l.Scope, Name: l.Name} }

// IsStackTemp returns true for unnamed intermediates introduced by the bytecode lifter.
func (l *Local) IsStackTemp() bool { return strings.HasPrefix(l.Name, "$") }

// Param is a reference to the index-th formal parameter of the enclosing method.
type Param struct {
	Index int
	Typ   Type
	Scope string
}

func (p *Param) Type() Type { return p.Typ }
func (p *Param) String() string {
	return fmt.Sprintf("@parameter%d: %s", p.Index, p.Typ)
}
func (p *Param) Key() ValueKey {
	return ValueKey{Scope: p.Scope, Name: "@parameter" + strconv.Itoa(p.Index)}
}

// This is a reference to the receiver of the enclosing method.
type This struct {
	Typ   Type
	Scope string
}

func (t *This) Type() Type     { return t.Typ }
func (t *This) String() string { return "@this: " + string(t.Typ) }
func (t *This) Key() ValueKey  { return ValueKey{Scope: t.Scope, Name: "@this"} }

// FieldRef is a static (Base == nil) or instance field access.
type FieldRef struct {
	Base  Value
	Class string
	Name  string
	Typ   Type
}

func (f *FieldRef) Type() Type { return f.Typ }

func (f *FieldRef) String() string {
	sig := fmt.Sprintf("<%s: %s %s>", f.Class, f.Typ, f.Name)
	if f.Base == nil {
		return sig
	}
	return f.Base.String() + "." + sig
}

func (f *FieldRef) Key() ValueKey {
	if f.Base == nil {
		return ValueKey{Name: f.Class + "." + f.Name}
	}
	base := f.Base.Key()
	return ValueKey{Scope: base.Scope, Name: base.Name + "." + f.Class + "." + f.Name}
}

// ConstKind distinguishes the literal kinds of a Const.
type ConstKind uint8

// Constant kinds.
const (
	IntConst ConstKind = iota
	LongConst
	FloatConst
	DoubleConst
	StringConst
	NullConst
	ClassConst
)

// Const is a literal. Text holds the literal without its kind suffix or quotes.
type Const struct {
	Kind ConstKind
	Text string
}

// NewIntConst returns an int constant.
func NewIntConst(i int64) *Const { return &Const{Kind: IntConst, Text: strconv.FormatInt(i, 10)} }

// NewLongConst returns a long constant.
func NewLongConst(i int64) *Const { return &Const{Kind: LongConst, Text: strconv.FormatInt(i, 10)} }

// NewStringConst returns a string constant.
func NewStringConst(s string) *Const { return &Const{Kind: StringConst, Text: s} }

func (c *Const) Type() Type {
	switch c.Kind {
	case IntConst:
		return Int
	case LongConst:
		return Long
	case FloatConst:
		return Float
	case DoubleConst:
		return Double
	case StringConst:
		return String
	case ClassConst:
		return "java.lang.Class"
	default:
		return Unknown
	}
}

func (c *Const) String() string {
	switch c.Kind {
	case LongConst:
		return c.Text + "L"
	case FloatConst:
		return c.Text + "F"
	case StringConst:
		return strconv.Quote(c.Text)
	case NullConst:
		return "null"
	case ClassConst:
		return "class \"" + c.Text + "\""
	default:
		return c.Text
	}
}

func (c *Const) Key() ValueKey { return ValueKey{Scope: "const", Name: c.String()} }

// IsNumeric returns true for int, long, float and double constants.
func (c *Const) IsNumeric() bool {
	switch c.Kind {
	case IntConst, LongConst, FloatConst, DoubleConst:
		return true
	}
	return false
}

// Float returns the numeric value of c, and false if c is not numeric.
func (c *Const) Float() (float64, bool) {
	if !c.IsNumeric() {
		return 0, false
	}
	f, err := strconv.ParseFloat(c.Text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// InvokeKind is the dispatch kind of an invocation.
type InvokeKind uint8

// Invocation kinds.
const (
	VirtualInvoke InvokeKind = iota
	InterfaceInvoke
	SpecialInvoke
	StaticInvoke
	DynamicInvoke
)

var invokeKindNames = [...]string{"virtualinvoke", "interfaceinvoke", "specialinvoke", "staticinvoke", "dynamicinvoke"}

func (k InvokeKind) String() string {
	if int(k) < len(invokeKindNames) {
		return invokeKindNames[k]
	}
	return "invoke"
}

// MethodRef identifies a callee by declaring class, name and signature.
type MethodRef struct {
	Class  string
	Name   string
	Params []Type
	Ret    Type
}

// Signature returns the Soot-style signature "<cls: ret name(p1,p2)>".
func (m MethodRef) Signature() string {
	return fmt.Sprintf("<%s: %s %s(%s)>", m.Class, m.Ret, m.Name, joinTypes(m.Params))
}

// SubSignature returns "name(p1,p2)".
func (m MethodRef) SubSignature() string {
	return m.Name + "(" + joinTypes(m.Params) + ")"
}

// InvokeExpr is a method invocation expression.
type InvokeExpr struct {
	Kind   InvokeKind
	Base   Value
	Method MethodRef
	Args   []Value
}

func (e *InvokeExpr) Type() Type { return e.Method.Ret }

func (e *InvokeExpr) String() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteByte(' ')
	if e.Base != nil {
		b.WriteString(e.Base.String())
		b.WriteByte('.')
	}
	b.WriteString(e.Method.Signature())
	b.WriteByte('(')
	for i, a := range e.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (e *InvokeExpr) Key() ValueKey { return ValueKey{Scope: "expr", Name: e.String()} }

// BinExpr is a binary arithmetic, comparison or cmp expression.
type BinExpr struct {
	Op  string
	X   Value
	Y   Value
	Typ Type
}

func (e *BinExpr) Type() Type     { return e.Typ }
func (e *BinExpr) String() string { return e.X.String() + " " + e.Op + " " + e.Y.String() }
func (e *BinExpr) Key() ValueKey  { return ValueKey{Scope: "expr", Name: e.String()} }

// IsComparison returns true if the operator is one of ==, !=, <, <=, >, >=.
func (e *BinExpr) IsComparison() bool {
	switch e.Op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

// CastExpr converts X to Typ.
type CastExpr struct {
	X   Value
	Typ Type
}

func (e *CastExpr) Type() Type     { return e.Typ }
func (e *CastExpr) String() string { return "(" + string(e.Typ) + ") " + e.X.String() }
func (e *CastExpr) Key() ValueKey  { return ValueKey{Scope: "expr", Name: e.String()} }

// NewExpr allocates an instance of Typ.
type NewExpr struct {
	Typ Type
}

func (e *NewExpr) Type() Type     { return e.Typ }
func (e *NewExpr) String() string { return "new " + string(e.Typ) }
func (e *NewExpr) Key() ValueKey  { return ValueKey{Scope: "expr", Name: e.String()} }

// NewArrayExpr allocates an array of Elem with Size elements.
type NewArrayExpr struct {
	Elem Type
	Size Value
}

func (e *NewArrayExpr) Type() Type { return e.Elem + "[]" }
func (e *NewArrayExpr) String() string {
	return "newarray (" + string(e.Elem) + ")[" + e.Size.String() + "]"
}
func (e *NewArrayExpr) Key() ValueKey { return ValueKey{Scope: "expr", Name: e.String()} }

// ReturnSlot stands for the value returned by a method. Return statements bind it so that
// callers can pick up values produced inside the callee.
type ReturnSlot struct {
	Method string
	Typ    Type
}

func (r *ReturnSlot) Type() Type     { return r.Typ }
func (r *ReturnSlot) String() string { return "return@" + r.Method }
func (r *ReturnSlot) Key() ValueKey  { return ValueKey{Scope: r.Method, Name: "@return"} }

// NegateOp returns the comparison operator that holds exactly when op does not.
func NegateOp(op string) string {
	switch op {
	case "==":
		return "!="
	case "!=":
		return "=="
	case "<":
		return ">="
	case ">=":
		return "<"
	case ">":
		return "<="
	case "<=":
		return ">"
	}
	return op
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}
