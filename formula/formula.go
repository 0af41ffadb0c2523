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

// Package formula implements the propositional formula algebra used for path predicates:
// boolean variables, literals, conjunction and disjunction, conversion to conjunctive normal
// form, and substitution of variables.
package formula

import (
	"strings"
	"sync"
)

// Var is a boolean variable. Variables are identified by ID; Name is what gets printed.
type Var struct {
	ID   int
	Name string
}

// Factory hands out variables. Fresh variables are always distinct, named variables are interned
// so that equal names yield the same variable. A Factory is safe for concurrent use.
type Factory struct {
	mu    sync.Mutex
	next  int
	named map[string]Var
}

// NewFactory returns an empty Factory.
func NewFactory() *Factory {
	return &Factory{named: make(map[string]Var)}
}

// Fresh returns a new variable distinct from every other variable of f.
func (f *Factory) Fresh(name string) Var {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return Var{ID: f.next, Name: name}
}

// Named returns the variable interned under name, creating it on first use.
func (f *Factory) Named(name string) Var {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.named[name]; ok {
		return v
	}
	f.next++
	v := Var{ID: f.next, Name: name}
	f.named[name] = v
	return v
}

// Formula is a propositional formula. The concrete types are Constant, Literal, And, Or and Not.
type Formula interface {
	String() string
	isFormula()
}

// Constant is the formula true or false.
type Constant bool

// The two constants.
const (
	True  = Constant(true)
	False = Constant(false)
)

// Literal is a variable or its negation.
type Literal struct {
	Var      Var
	Positive bool
}

// And is a conjunction. The empty conjunction is true.
type And []Formula

// Or is a disjunction. The empty disjunction is false.
type Or []Formula

// Not negates X.
type Not struct {
	X Formula
}

func (Constant) isFormula() {}
func (Literal) isFormula()  {}
func (And) isFormula()      {}
func (Or) isFormula()       {}
func (Not) isFormula()      {}

func (c Constant) String() string {
	if c {
		return "$true"
	}
	return "$false"
}

func (l Literal) String() string {
	if l.Positive {
		return l.Var.Name
	}
	return "~" + l.Var.Name
}

func (a And) String() string { return join(a, " & ") }
func (o Or) String() string  { return join(o, " | ") }
func (n Not) String() string { return "~(" + n.X.String() + ")" }

func join(fs []Formula, sep string) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		switch f.(type) {
		case And, Or:
			parts[i] = "(" + f.String() + ")"
		default:
			parts[i] = f.String()
		}
	}
	return strings.Join(parts, sep)
}

// Pos returns the positive literal of v.
func Pos(v Var) Literal { return Literal{Var: v, Positive: true} }

// Neg returns the negative literal of v.
func Neg(v Var) Literal { return Literal{Var: v} }

// Negate returns the literal of the same variable with the opposite polarity.
func (l Literal) Negate() Literal { return Literal{Var: l.Var, Positive: !l.Positive} }

// Conj returns the conjunction of fs, flattening nested conjunctions and folding constants.
func Conj(fs ...Formula) Formula {
	var out And
	for _, f := range fs {
		switch f := f.(type) {
		case nil:
		case Constant:
			if !f {
				return False
			}
		case And:
			out = append(out, f...)
		default:
			out = append(out, f)
		}
	}
	switch len(out) {
	case 0:
		return True
	case 1:
		return out[0]
	}
	return out
}

// Disj returns the disjunction of fs, flattening nested disjunctions and folding constants.
func Disj(fs ...Formula) Formula {
	var out Or
	for _, f := range fs {
		switch f := f.(type) {
		case nil:
		case Constant:
			if f {
				return True
			}
		case Or:
			out = append(out, f...)
		default:
			out = append(out, f)
		}
	}
	switch len(out) {
	case 0:
		return False
	case 1:
		return out[0]
	}
	return out
}

// Negation returns the negation of f, pushing it into literals and constants where that is free.
func Negation(f Formula) Formula {
	switch f := f.(type) {
	case Constant:
		return !f
	case Literal:
		return f.Negate()
	case Not:
		return f.X
	}
	return Not{X: f}
}

// Substitute replaces every occurrence of a variable in subs by its image. A negative literal of
// a substituted variable becomes the negation of the image.
func Substitute(f Formula, subs map[Var]Formula) Formula {
	if len(subs) == 0 {
		return f
	}
	switch f := f.(type) {
	case Literal:
		image, ok := subs[f.Var]
		if !ok {
			return f
		}
		if f.Positive {
			return image
		}
		return Negation(image)
	case And:
		out := make([]Formula, len(f))
		for i, g := range f {
			out[i] = Substitute(g, subs)
		}
		return Conj(out...)
	case Or:
		out := make([]Formula, len(f))
		for i, g := range f {
			out[i] = Substitute(g, subs)
		}
		return Disj(out...)
	case Not:
		return Negation(Substitute(f.X, subs))
	}
	return f
}

// Literals returns the distinct literals of f in order of first occurrence.
func Literals(f Formula) []Literal {
	seen := make(map[Literal]bool)
	var out []Literal
	var walk func(Formula)
	walk = func(f Formula) {
		switch f := f.(type) {
		case Literal:
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		case And:
			for _, g := range f {
				walk(g)
			}
		case Or:
			for _, g := range f {
				walk(g)
			}
		case Not:
			walk(f.X)
		}
	}
	walk(f)
	return out
}

// Variables returns the distinct variables of f in order of first occurrence.
func Variables(f Formula) []Var {
	seen := make(map[Var]bool)
	var out []Var
	for _, l := range Literals(f) {
		if !seen[l.Var] {
			seen[l.Var] = true
			out = append(out, l.Var)
		}
	}
	return out
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Formula) bool {
	switch a := a.(type) {
	case Constant, Literal:
		return a == b
	case And:
		bb, ok := b.(And)
		return ok && equalSlices(a, bb)
	case Or:
		bb, ok := b.(Or)
		return ok && equalSlices(a, bb)
	case Not:
		bb, ok := b.(Not)
		return ok && Equal(a.X, bb.X)
	}
	return false
}

func equalSlices(a, b []Formula) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
