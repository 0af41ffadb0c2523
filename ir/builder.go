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

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownLabel is returned by MethodBuilder.Build when a branch targets an undefined label.
	ErrUnknownLabel = errors.New("unknown label")
	// ErrDuplicateMethod is returned when two bodies are built for the same signature.
	ErrDuplicateMethod = errors.New("duplicate method")
)

// MethodBuilder appends statements to a method body and wires its control-flow graph on Build.
// Statement IDs are allocated from the owning Program.
type MethodBuilder struct {
	prog    *Program
	m       *Method
	labels  map[string]*Stmt
	pending []string
	line    int
	err     error
}

// NewMethod starts building the body of the method identified by ref.
func (p *Program) NewMethod(ref MethodRef) *MethodBuilder {
	return &MethodBuilder{
		prog:   p,
		m:      &Method{Ref: ref, locals: make(map[string]*Local)},
		labels: make(map[string]*Stmt),
	}
}

// Local returns the local called name, creating it with type t on first use.
func (b *MethodBuilder) Local(name string, t Type) *Local {
	if l, ok := b.m.locals[name]; ok {
		return l
	}
	l := &Local{Name: name, Typ: t, Scope: b.m.Signature()}
	b.m.locals[name] = l
	return l
}

// Param returns a reference to the index-th parameter.
func (b *MethodBuilder) Param(index int, t Type) *Param {
	return &Param{Index: index, Typ: t, Scope: b.m.Signature()}
}

// This returns a reference to the receiver.
func (b *MethodBuilder) This() *This {
	return &This{Typ: Type(b.m.Ref.Class), Scope: b.m.Signature()}
}

// Label attaches name to the next appended statement.
func (b *MethodBuilder) Label(name string) *MethodBuilder {
	b.pending = append(b.pending, name)
	return b
}

// Line sets the source line recorded for subsequently appended statements.
func (b *MethodBuilder) Line(n int) *MethodBuilder {
	b.line = n
	return b
}

// Assign appends "lhs = rhs".
func (b *MethodBuilder) Assign(lhs, rhs Value) *Stmt {
	return b.add(&Stmt{Kind: Assign, LHS: lhs, RHS: rhs})
}

// Identity appends "lhs := rhs", used for parameter and receiver bindings.
func (b *MethodBuilder) Identity(lhs, rhs Value) *Stmt {
	return b.add(&Stmt{Kind: Identity, LHS: lhs, RHS: rhs})
}

// Invoke appends an invocation whose result is discarded.
func (b *MethodBuilder) Invoke(inv *InvokeExpr) *Stmt {
	return b.add(&Stmt{Kind: InvokeStmt, Invoke: inv})
}

// If appends "if cond goto target".
func (b *MethodBuilder) If(cond *BinExpr, target string) *Stmt {
	return b.add(&Stmt{Kind: If, Cond: cond, targets: []string{target}})
}

// Switch appends a lookup switch over key.
func (b *MethodBuilder) Switch(key Value, cases []int64, targets []string, defaultTarget string) *Stmt {
	if len(cases) != len(targets) && b.err == nil {
		b.err = fmt.Errorf("switch in %s: %d cases but %d targets", b.m.Signature(), len(cases), len(targets))
	}
	ts := append(append([]string(nil), targets...), defaultTarget)
	return b.add(&Stmt{Kind: Switch, Op: key, Cases: cases, targets: ts})
}

// Goto appends an unconditional jump.
func (b *MethodBuilder) Goto(target string) *Stmt {
	return b.add(&Stmt{Kind: Goto, targets: []string{target}})
}

// Return appends "return v".
func (b *MethodBuilder) Return(v Value) *Stmt {
	return b.add(&Stmt{Kind: Return, Op: v})
}

// ReturnVoid appends "return".
func (b *MethodBuilder) ReturnVoid() *Stmt {
	return b.add(&Stmt{Kind: ReturnVoid})
}

// Nop appends a no-op.
func (b *MethodBuilder) Nop() *Stmt {
	return b.add(&Stmt{Kind: Nop})
}

// Throw appends "throw v".
func (b *MethodBuilder) Throw(v Value) *Stmt {
	return b.add(&Stmt{Kind: Throw, Op: v})
}

func (b *MethodBuilder) add(s *Stmt) *Stmt {
	s.ID = b.prog.nextID
	b.prog.nextID++
	s.Method = b.m
	s.Line = b.line
	if s.Line == 0 {
		s.Line = len(b.m.Stmts) + 1
	}
	for _, l := range b.pending {
		if _, dup := b.labels[l]; dup && b.err == nil {
			b.err = fmt.Errorf("label %q defined twice in %s", l, b.m.Signature())
		}
		b.labels[l] = s
		if s.Label == "" {
			s.Label = l
		}
	}
	b.pending = nil
	b.m.Stmts = append(b.m.Stmts, s)
	return s
}

// Build resolves branch targets, wires successor and predecessor edges and registers the method
// with the program.
func (b *MethodBuilder) Build() (*Method, error) {
	if b.err != nil {
		return nil, b.err
	}
	if _, dup := b.prog.bySignature[b.m.Signature()]; dup {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateMethod, b.m.Signature())
	}

	stmts := b.m.Stmts
	for i, s := range stmts {
		var next *Stmt
		if i+1 < len(stmts) {
			next = stmts[i+1]
		}
		switch s.Kind {
		case If:
			target, err := b.resolve(s.targets[0])
			if err != nil {
				return nil, err
			}
			s.Succs = []*Stmt{target}
			if next != nil {
				s.Succs = append(s.Succs, next)
			}
		case Switch, Goto:
			for _, t := range s.targets {
				target, err := b.resolve(t)
				if err != nil {
					return nil, err
				}
				s.Succs = append(s.Succs, target)
			}
		case Return, ReturnVoid, Throw:
		default:
			if next != nil {
				s.Succs = []*Stmt{next}
			}
		}
	}
	for _, s := range stmts {
		for _, succ := range s.Succs {
			if !containsStmt(succ.Preds, s) {
				succ.Preds = append(succ.Preds, s)
			}
		}
	}

	b.prog.methods = append(b.prog.methods, b.m)
	b.prog.bySignature[b.m.Signature()] = b.m
	return b.m, nil
}

func (b *MethodBuilder) resolve(label string) (*Stmt, error) {
	s, ok := b.labels[label]
	if !ok {
		return nil, fmt.Errorf("%w %q in %s", ErrUnknownLabel, label, b.m.Signature())
	}
	return s, nil
}

func containsStmt(stmts []*Stmt, s *Stmt) bool {
	for _, x := range stmts {
		if x == s {
			return true
		}
	}
	return false
}
