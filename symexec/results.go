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
	"maps"

	"github.com/huaxunhuang/confdroid-sub110/formula"
	"github.com/huaxunhuang/confdroid-sub110/ir"
)

// TriggerRecord is the finding made when a trigger call is reached on one path. Records are
// never modified once created.
type TriggerRecord struct {
	Stmt *ir.Stmt
	// Formula is the final guard formula: the rewritten path formula conjoined with the
	// canonical statement text and the enclosing class.
	Formula formula.Formula
	// PathFormula is the guard formula restricted to the current path, before any rewrite.
	PathFormula formula.Formula
	Resolutions []Resolution
	// SystemSpecific is true if some literal could not be rewritten canonically.
	SystemSpecific bool
	// Context is the traversal path that led to Stmt.
	Context []*ir.Stmt
}

// Septets returns the septets of the resolved or partially resolved literals of r.
func (r *TriggerRecord) Septets() []*Septet {
	var out []*Septet
	for _, res := range r.Resolutions {
		if res.Septet != nil {
			out = append(out, res.Septet)
		}
	}
	return out
}

// Row is a line of the results table.
type Row struct {
	Stmt    string `json:"stmt"`
	Method  string `json:"method"`
	Line    int    `json:"line"`
	Formula string `json:"formula"`
}

// Results is a snapshot of the findings of an engine.
type Results struct {
	Triggers []*TriggerRecord
	// SystemSpecific tells, per trigger statement, whether any of its records is system
	// specific.
	SystemSpecific map[ir.StmtID]bool
	Rows           []Row
}

// Results returns the findings made so far. It may be called while the engine runs, e.g. to
// flush partial results on timeout.
func (e *Engine) Results() Results {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Results{
		Triggers:       append([]*TriggerRecord(nil), e.triggers...),
		SystemSpecific: maps.Clone(e.systemSpecific),
		Rows:           append([]Row(nil), e.rows...),
	}
}
