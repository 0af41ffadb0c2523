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

package formula

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// clause is a disjunction of literals, kept sorted and free of duplicates.
type clause []Literal

// CNF converts f into canonical conjunctive normal form: tautological clauses and subsumed
// clauses are dropped, literals and clauses are sorted. CNF is idempotent.
func CNF(f Formula) Formula {
	out, _ := CNFWithLimit(f, 0)
	return out
}

// CNFWithLimit is CNF with a bound on the number of intermediate clauses. If the bound (when
// positive) is exceeded, it gives up and returns (nil, false).
func CNFWithLimit(f Formula, maxClauses int) (Formula, bool) {
	cs, ok := toClauses(f, false, maxClauses)
	if !ok {
		return nil, false
	}
	return fromClauses(cs), true
}

// Clauses returns the clauses of the CNF of f, each as a slice of literals.
func Clauses(f Formula) [][]Literal {
	cs, _ := toClauses(f, false, 0)
	out := make([][]Literal, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

func toClauses(f Formula, neg bool, limit int) ([]clause, bool) {
	switch f := f.(type) {
	case nil:
		return nil, true
	case Constant:
		if bool(f) != neg {
			return nil, true
		}
		return []clause{{}}, true
	case Literal:
		if neg {
			f = f.Negate()
		}
		return []clause{{f}}, true
	case Not:
		return toClauses(f.X, !neg, limit)
	case And:
		if neg {
			return disjoin(f, true, limit)
		}
		return conjoin(f, false, limit)
	case Or:
		if neg {
			return conjoin(f, true, limit)
		}
		return disjoin(f, false, limit)
	}
	return nil, true
}

func conjoin(fs []Formula, neg bool, limit int) ([]clause, bool) {
	var out []clause
	for _, g := range fs {
		cs, ok := toClauses(g, neg, limit)
		if !ok {
			return nil, false
		}
		out = append(out, cs...)
		if limit > 0 && len(out) > limit {
			return nil, false
		}
	}
	return simplify(out), true
}

func disjoin(fs []Formula, neg bool, limit int) ([]clause, bool) {
	acc := []clause{{}}
	for _, g := range fs {
		cs, ok := toClauses(g, neg, limit)
		if !ok {
			return nil, false
		}
		if limit > 0 && len(acc)*len(cs) > limit {
			return nil, false
		}
		next := make([]clause, 0, len(acc)*len(cs))
		for _, a := range acc {
			for _, c := range cs {
				merged := make(clause, 0, len(a)+len(c))
				merged = append(merged, a...)
				merged = append(merged, c...)
				next = append(next, merged)
			}
		}
		acc = simplify(next)
	}
	return acc, true
}

// simplify normalizes every clause, drops tautologies, duplicates and subsumed clauses and sorts
// the result. A set containing the empty clause collapses to just the empty clause.
func simplify(cs []clause) []clause {
	seen := make(map[string]bool, len(cs))
	var out []clause
	for _, c := range cs {
		c, taut := normalize(c)
		if taut {
			continue
		}
		if len(c) == 0 {
			return []clause{{}}
		}
		k := c.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}

	// Shorter clauses first so that a subsuming clause is always kept before what it subsumes.
	slices.SortStableFunc(out, func(a, b clause) int { return cmp.Compare(len(a), len(b)) })
	kept := out[:0]
	for _, c := range out {
		subsumed := false
		for _, k := range kept {
			if k.subsetOf(c) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			kept = append(kept, c)
		}
	}
	slices.SortFunc(kept, func(a, b clause) int { return strings.Compare(a.key(), b.key()) })
	return kept
}

func normalize(c clause) (clause, bool) {
	out := slices.Clone(c)
	slices.SortFunc(out, compareLiterals)
	out = slices.Compact(out)
	for i := 1; i < len(out); i++ {
		if out[i].Var == out[i-1].Var {
			return nil, true
		}
	}
	return out, false
}

func compareLiterals(a, b Literal) int {
	if n := strings.Compare(a.Var.Name, b.Var.Name); n != 0 {
		return n
	}
	if n := cmp.Compare(a.Var.ID, b.Var.ID); n != 0 {
		return n
	}
	switch {
	case a.Positive == b.Positive:
		return 0
	case a.Positive:
		return -1
	}
	return 1
}

func (c clause) key() string {
	var b strings.Builder
	for _, l := range c {
		if !l.Positive {
			b.WriteByte('~')
		}
		b.WriteString(l.Var.Name)
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(l.Var.ID))
		b.WriteByte('|')
	}
	return b.String()
}

func (c clause) subsetOf(d clause) bool {
	i := 0
	for _, l := range d {
		if i < len(c) && c[i] == l {
			i++
		}
	}
	return i == len(c)
}

func fromClauses(cs []clause) Formula {
	if len(cs) == 0 {
		return True
	}
	if len(cs) == 1 && len(cs[0]) == 0 {
		return False
	}
	conj := make(And, 0, len(cs))
	for _, c := range cs {
		if len(c) == 1 {
			conj = append(conj, c[0])
			continue
		}
		disj := make(Or, len(c))
		for i, l := range c {
			disj[i] = l
		}
		conj = append(conj, disj)
	}
	if len(conj) == 1 {
		return conj[0]
	}
	return conj
}
