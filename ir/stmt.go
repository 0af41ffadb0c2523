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
	"fmt"
	"strconv"
	"strings"
)

// StmtID identifies a statement uniquely within a Program. IDs are small dense integers so that
// sets of statements can be kept as sparse bit sets.
type StmtID = int

// StmtKind is the closed set of statement shapes.
type StmtKind uint8

// Statement kinds.
const (
	Assign StmtKind = iota
	Identity
	InvokeStmt
	Return
	ReturnVoid
	If
	Switch
	Goto
	Nop
	Throw
)

var stmtKindNames = [...]string{"assign", "identity", "invoke", "return", "return-void", "if", "switch", "goto", "nop", "throw"}

func (k StmtKind) String() string {
	if int(k) < len(stmtKindNames) {
		return stmtKindNames[k]
	}
	return "stmt(" + strconv.Itoa(int(k)) + ")"
}

// Stmt is a single program point of a method body.
//
// Field usage by kind:
//   - Assign, Identity: LHS, RHS
//   - InvokeStmt: Invoke
//   - Return, Throw: Op
//   - If: Cond; Succs are [taken, fallthrough]
//   - Switch: Op is the key, Cases the case values; Succs are one per case followed by default
type Stmt struct {
	ID     StmtID
	Kind   StmtKind
	Method *Method
	Line   int
	Label  string

	LHS    Value
	RHS    Value
	Invoke *InvokeExpr
	Op     Value
	Cond   *BinExpr
	Cases  []int64

	Succs []*Stmt
	Preds []*Stmt

	targets []string
}

// InvokeExpr returns the invocation performed by s, either as a bare invoke statement or as the
// right-hand side of an assignment, and nil otherwise.
func (s *Stmt) InvokeExpr() *InvokeExpr {
	switch s.Kind {
	case InvokeStmt:
		return s.Invoke
	case Assign:
		if inv, ok := s.RHS.(*InvokeExpr); ok {
			return inv
		}
	}
	return nil
}

// IsDefinition returns true for statements that bind a left-hand side.
func (s *Stmt) IsDefinition() bool {
	return s.Kind == Assign || s.Kind == Identity
}

// IsBranch returns true for control statements that carry no computation.
func (s *Stmt) IsBranch() bool {
	switch s.Kind {
	case If, Switch, Goto, Nop:
		return true
	}
	return false
}

func (s *Stmt) String() string {
	switch s.Kind {
	case Assign:
		return s.LHS.String() + " = " + s.RHS.String()
	case Identity:
		return s.LHS.String() + " := " + s.RHS.String()
	case InvokeStmt:
		return s.Invoke.String()
	case Return:
		return "return " + s.Op.String()
	case ReturnVoid:
		return "return"
	case If:
		return "if " + s.Cond.String() + " goto " + s.targetText(0)
	case Switch:
		var b strings.Builder
		b.WriteString("lookupswitch(")
		b.WriteString(s.Op.String())
		b.WriteString(") {")
		for i, c := range s.Cases {
			fmt.Fprintf(&b, " case %d: goto %s;", c, s.targetText(i))
		}
		b.WriteString(" default: goto ")
		b.WriteString(s.targetText(len(s.Cases)))
		b.WriteString("; }")
		return b.String()
	case Goto:
		return "goto " + s.targetText(0)
	case Nop:
		return "nop"
	case Throw:
		return "throw " + s.Op.String()
	}
	return s.Kind.String()
}

func (s *Stmt) targetText(i int) string {
	if i < len(s.targets) && s.targets[i] != "" {
		return s.targets[i]
	}
	if i < len(s.Succs) {
		return "[" + strconv.Itoa(s.Succs[i].ID) + "]"
	}
	return "?"
}

// Method is an analyzed method body together with its intraprocedural control-flow graph.
type Method struct {
	Ref   MethodRef
	Stmts []*Stmt

	locals map[string]*Local
}

// Signature returns the Soot-style signature of m.
func (m *Method) Signature() string { return m.Ref.Signature() }

// Class returns the fully-qualified declaring class of m.
func (m *Method) Class() string { return m.Ref.Class }

func (m *Method) String() string { return m.Signature() }

// Heads returns the entry statements of m.
func (m *Method) Heads() []*Stmt {
	if len(m.Stmts) == 0 {
		return nil
	}
	return m.Stmts[:1]
}

// Succs returns the intraprocedural successors of s.
func (m *Method) Succs(s *Stmt) []*Stmt { return s.Succs }

// Preds returns the intraprocedural predecessors of s.
func (m *Method) Preds(s *Stmt) []*Stmt { return s.Preds }

// Nodes returns every statement of m in body order.
func (m *Method) Nodes() []*Stmt { return m.Stmts }

// LocalByName returns the local with the given name, or nil.
func (m *Method) LocalByName(name string) *Local { return m.locals[name] }
