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

// Package symbolic defines the semantic values the analysis infers for program values: constants,
// results of binary operations, bare variable references, method results, and domain values such
// as dates, locations and SMS contents.
//
// The structure of a value never changes after construction. Values carry provenance tags
// (string labels propagated along data flow) which may only be added, never removed.
package symbolic

import (
	"slices"
	"strings"

	"github.com/huaxunhuang/confdroid-sub110/ir"
)

// Value is an inferred semantic value.
type Value interface {
	// String returns the canonical textual form of the value. Two values with equal text are
	// considered equal by the analysis.
	String() string
	// Tags returns the provenance tags in the order they were added.
	Tags() []string
	// HasTag returns true if at least one tag is present.
	HasTag() bool
	// ContainsTag returns true if name is among the tags.
	ContainsTag(name string) bool
	// AddTag adds name to the tags if not already present.
	AddTag(name string)
}

// Operand is an operand of a BinOp: either a Value or a raw ir.Value that could not be
// interpreted further.
type Operand interface {
	String() string
}

// tagSet implements the tag part of Value.
type tagSet struct {
	names []string
}

func (t *tagSet) Tags() []string { return slices.Clone(t.names) }

func (t *tagSet) HasTag() bool { return len(t.names) > 0 }

func (t *tagSet) ContainsTag(name string) bool { return slices.Contains(t.names, name) }

func (t *tagSet) AddTag(name string) {
	if name == "" || t.ContainsTag(name) {
		return
	}
	t.names = append(t.names, name)
}

// Constant is a literal value.
type Constant struct {
	tagSet
	Value *ir.Const
}

// NewConstant returns the symbolic form of c.
func NewConstant(c *ir.Const) *Constant { return &Constant{Value: c} }

func (c *Constant) String() string { return c.Value.String() }

// BinOp is the result of a binary operation.
type BinOp struct {
	tagSet
	Op string
	X  Operand
	Y  Operand
}

// NewBinOp returns "x op y". Tags of symbolic operands are inherited.
func NewBinOp(op string, x, y Operand) *BinOp {
	b := &BinOp{Op: op, X: x, Y: y}
	for _, o := range []Operand{x, y} {
		if v, ok := o.(Value); ok {
			for _, t := range v.Tags() {
				b.AddTag(t)
			}
		}
	}
	return b
}

func (b *BinOp) String() string {
	return wrap(b.X) + " " + b.Op + " " + wrap(b.Y)
}

// IsCmp returns true for the three-way comparisons cmp, cmpl and cmpg.
func (b *BinOp) IsCmp() bool {
	switch b.Op {
	case "cmp", "cmpl", "cmpg":
		return true
	}
	return false
}

func wrap(o Operand) string {
	if _, ok := o.(*BinOp); ok {
		return "(" + o.String() + ")"
	}
	return o.String()
}

// SingleVariable is a bare reference to a program value whose content is not known further.
type SingleVariable struct {
	tagSet
	Value ir.Value
}

// NewSingleVariable wraps v.
func NewSingleVariable(v ir.Value) *SingleVariable { return &SingleVariable{Value: v} }

func (s *SingleVariable) String() string { return s.Value.String() }

// MethodRepresentation is the result of calling a method, printed as
// "declaring.Class.name(paramTypes)".
type MethodRepresentation struct {
	tagSet
	Class  string
	Name   string
	Params []ir.Type
	Ret    ir.Type
}

// NewMethodRepresentation returns the symbolic result of calling ref.
func NewMethodRepresentation(ref ir.MethodRef) *MethodRepresentation {
	return &MethodRepresentation{Class: ref.Class, Name: ref.Name, Params: ref.Params, Ret: ref.Ret}
}

func (m *MethodRepresentation) String() string {
	return m.Class + "." + m.signature()
}

// ShortString drops the package of the declaring class: "TypedArray.getIndex(int)".
func (m *MethodRepresentation) ShortString() string {
	return ir.Type(m.Class).SimpleName() + "." + m.signature()
}

func (m *MethodRepresentation) signature() string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		parts[i] = string(p)
	}
	return m.Name + "(" + strings.Join(parts, ",") + ")"
}

// IsIndexAccessor returns true for getIndex(int) style calls that map a position of an
// attribute set to an attribute index.
func (m *MethodRepresentation) IsIndexAccessor() bool {
	return m.Name == "getIndex"
}

// DateTime is a component of the current date or time, e.g. "date:year" or "date:now".
type DateTime struct {
	tagSet
	Field string
}

// NewDateTime returns the date/time component field.
func NewDateTime(field string) *DateTime { return &DateTime{Field: field} }

func (d *DateTime) String() string { return "date:" + d.Field }

// Location is a component of the device location, e.g. "location:latitude".
type Location struct {
	tagSet
	Field string
}

// NewLocation returns the location component field.
func NewLocation(field string) *Location { return &Location{Field: field} }

func (l *Location) String() string { return "location:" + l.Field }

// Sms is a component of a received SMS message, e.g. "sms:body".
type Sms struct {
	tagSet
	Field string
}

// NewSms returns the SMS component field.
func NewSms(field string) *Sms { return &Sms{Field: field} }

func (s *Sms) String() string { return "sms:" + s.Field }

// FloatArray is a freshly allocated float array.
type FloatArray struct {
	tagSet
	Size Operand
}

// NewFloatArray returns an array of size elements.
func NewFloatArray(size Operand) *FloatArray { return &FloatArray{Size: size} }

func (f *FloatArray) String() string { return "float[" + f.Size.String() + "]" }

// Unresolved wraps the raw text of an expression no recognizer understood.
type Unresolved struct {
	tagSet
	Text string
}

// NewUnresolved returns the opaque value text.
func NewUnresolved(text string) *Unresolved { return &Unresolved{Text: text} }

func (u *Unresolved) String() string { return u.Text }

// Equal compares values by their textual form.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// Mentions returns true if name is among the tags of v or occurs in its text as a whole
// identifier: "TypedArray" is mentioned by "android.content.res.TypedArray.getInt(int,int)" but
// not by "com.example.MyTypedArrayHelper".
func Mentions(v Value, name string) bool {
	if name == "" {
		return false
	}
	if v.ContainsTag(name) {
		return true
	}
	text := v.String()
	for from := 0; ; {
		i := strings.Index(text[from:], name)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(name)
		if (start == 0 || !identChar(text[start-1])) && (end == len(text) || !identChar(text[end])) {
			return true
		}
		from = start + 1
	}
}

func identChar(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// SentinelOperand returns true if o is the constant 0 or -1 in any numeric kind.
func SentinelOperand(o Operand) bool {
	var c *ir.Const
	switch o := o.(type) {
	case *Constant:
		c = o.Value
	case *ir.Const:
		c = o
	default:
		return false
	}
	f, ok := c.Float()
	return ok && (f == 0 || f == -1)
}

var (
	_ Value = (*Constant)(nil)
	_ Value = (*BinOp)(nil)
	_ Value = (*SingleVariable)(nil)
	_ Value = (*MethodRepresentation)(nil)
	_ Value = (*DateTime)(nil)
	_ Value = (*Location)(nil)
	_ Value = (*Sms)(nil)
	_ Value = (*FloatArray)(nil)
	_ Value = (*Unresolved)(nil)
)
