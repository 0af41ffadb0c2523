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

// Package nesting relates trigger guards to each other: a guard is nested in another one when it
// only executes inside the region the other one controls. Nesting is used to rank and
// deduplicate findings; failing to relate two guards is never an error.
package nesting

import (
	"cmp"
	"slices"

	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/predicate"
	"github.com/huaxunhuang/confdroid-sub110/symexec"
)

// Pair states that the guard Inner is nested in the guard Outer.
type Pair struct {
	Outer *ir.Stmt
	Inner *ir.Stmt
}

// Analyzer answers nesting queries with the dominator trees and guarded blocks of a recovery.
type Analyzer struct {
	recovery *predicate.Recovery
}

// New returns an Analyzer over recovery.
func New(recovery *predicate.Recovery) *Analyzer {
	return &Analyzer{recovery: recovery}
}

// IsNested returns true if outer and inner are distinct guards of the same method, outer
// dominates inner, and inner lies in the blocks guarded by outer.
func (a *Analyzer) IsNested(outer, inner *ir.Stmt) bool {
	if outer == nil || inner == nil || outer == inner || outer.Method != inner.Method {
		return false
	}
	dom := a.recovery.DominatorsOf(outer.Method)
	if dom == nil || !dom.Dominates(outer, inner) {
		return false
	}
	return a.recovery.GuardedBlocksOf(outer).Has(inner.ID)
}

// Pairs returns every nested pair among the guards of the given trigger records, in order of
// first appearance.
func (a *Analyzer) Pairs(records []*symexec.TriggerRecord) []Pair {
	guards := Guards(records)
	var out []Pair
	for _, outer := range guards {
		for _, inner := range guards {
			if a.IsNested(outer, inner) {
				out = append(out, Pair{Outer: outer, Inner: inner})
			}
		}
	}
	return out
}

// Guards returns the distinct guard statements of the septets of records.
func Guards(records []*symexec.TriggerRecord) []*ir.Stmt {
	seen := make(map[ir.StmtID]bool)
	var out []*ir.Stmt
	for _, r := range records {
		for _, sep := range r.Septets() {
			if sep.Guard == nil || seen[sep.Guard.ID] {
				continue
			}
			seen[sep.Guard.ID] = true
			out = append(out, sep.Guard)
		}
	}
	return out
}

// Depth returns the nesting depth of the guards of r: the number of distinct guards, among
// all guards in pairs, that enclose one of r's guards.
func Depth(r *symexec.TriggerRecord, pairs []Pair) int {
	own := make(map[ir.StmtID]bool)
	for _, sep := range r.Septets() {
		if sep.Guard != nil {
			own[sep.Guard.ID] = true
		}
	}
	outers := make(map[ir.StmtID]bool)
	for _, p := range pairs {
		if own[p.Inner.ID] {
			outers[p.Outer.ID] = true
		}
	}
	return len(outers)
}

// Deduplicate drops records whose statement and final formula equal those of an earlier record.
func Deduplicate(records []*symexec.TriggerRecord) []*symexec.TriggerRecord {
	type key struct {
		id      ir.StmtID
		formula string
	}
	seen := make(map[key]bool)
	var out []*symexec.TriggerRecord
	for _, r := range records {
		k := key{id: r.Stmt.ID, formula: r.Formula.String()}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// Ranked is a record together with its nesting depth.
type Ranked struct {
	Record *symexec.TriggerRecord
	Depth  int
}

// Rank deduplicates records and orders them: system-specific findings first, then deeper
// nested ones, then by statement ID. The sort is stable.
func (a *Analyzer) Rank(records []*symexec.TriggerRecord) ([]Ranked, []Pair) {
	records = Deduplicate(records)
	pairs := a.Pairs(records)
	out := make([]Ranked, len(records))
	for i, r := range records {
		out[i] = Ranked{Record: r, Depth: Depth(r, pairs)}
	}
	slices.SortStableFunc(out, func(x, y Ranked) int {
		if x.Record.SystemSpecific != y.Record.SystemSpecific {
			if x.Record.SystemSpecific {
				return -1
			}
			return 1
		}
		if n := cmp.Compare(y.Depth, x.Depth); n != 0 {
			return n
		}
		return cmp.Compare(x.Record.Stmt.ID, y.Record.Stmt.ID)
	})
	return out, pairs
}
