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

// Package report turns the trigger records of a run into ranked findings and writes them as
// text, JSON or a SQLite database.
package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/huaxunhuang/confdroid-sub110/nesting"
	"github.com/huaxunhuang/confdroid-sub110/runner"
	"github.com/huaxunhuang/confdroid-sub110/symbolic"
	"github.com/huaxunhuang/confdroid-sub110/symexec"
)

// Report is the complete output of a run.
type Report struct {
	RunID     string        `json:"run_id"`
	Generated time.Time     `json:"generated"`
	Findings  []Finding     `json:"findings"`
	Rows      []symexec.Row `json:"rows"`
	Nestings  []Nesting     `json:"nestings"`
	Errors    []EntryError  `json:"errors,omitempty"`
	Partial   bool          `json:"partial"`
}

// Finding is one deduplicated trigger record.
type Finding struct {
	ID             int       `json:"id"`
	Stmt           string    `json:"stmt"`
	Method         string    `json:"method"`
	Class          string    `json:"class"`
	Line           int       `json:"line"`
	Formula        string    `json:"formula"`
	PathFormula    string    `json:"path_formula"`
	SystemSpecific bool      `json:"system_specific"`
	Depth          int       `json:"depth"`
	Literals       []Literal `json:"literals"`
}

// Literal summarizes the resolution of one guard literal.
type Literal struct {
	Literal   string   `json:"literal"`
	Guard     string   `json:"guard,omitempty"`
	GuardLine int      `json:"guard_line,omitempty"`
	Values    []string `json:"values,omitempty"`
	Sentinel  bool     `json:"sentinel,omitempty"`
	Rewritten string   `json:"rewritten,omitempty"`
	Resolved  bool     `json:"resolved"`
}

// Nesting states that the guard Inner lies in the region controlled by the guard Outer.
type Nesting struct {
	Method    string `json:"method"`
	Outer     string `json:"outer"`
	OuterLine int    `json:"outer_line"`
	Inner     string `json:"inner"`
	InnerLine int    `json:"inner_line"`
}

// EntryError is an entry point whose analysis did not complete.
type EntryError struct {
	Entry string `json:"entry"`
	Error string `json:"error"`
}

// Build ranks the records of res and assembles the report. partial marks a run that was cut
// short.
func Build(res *runner.Result, partial bool) *Report {
	r := &Report{
		RunID:     uuid.NewString(),
		Generated: time.Now().UTC(),
		Rows:      res.Rows(),
		Partial:   partial,
	}

	ranked, pairs := nesting.New(res.Recovery).Rank(res.Triggers())
	for i, rk := range ranked {
		r.Findings = append(r.Findings, finding(i+1, rk))
	}
	for _, p := range pairs {
		r.Nestings = append(r.Nestings, Nesting{
			Method:    p.Outer.Method.Signature(),
			Outer:     p.Outer.String(),
			OuterLine: p.Outer.Line,
			Inner:     p.Inner.String(),
			InnerLine: p.Inner.Line,
		})
	}
	for _, e := range res.Entries {
		if e.Err != nil {
			r.Errors = append(r.Errors, EntryError{Entry: e.Entry.Signature(), Error: e.Err.Error()})
		}
	}
	return r
}

func finding(id int, rk nesting.Ranked) Finding {
	rec := rk.Record
	f := Finding{
		ID:             id,
		Stmt:           rec.Stmt.String(),
		Method:         rec.Stmt.Method.Signature(),
		Class:          rec.Stmt.Method.Class(),
		Line:           rec.Stmt.Line,
		Formula:        rec.Formula.String(),
		PathFormula:    rec.PathFormula.String(),
		SystemSpecific: rec.SystemSpecific,
		Depth:          rk.Depth,
	}
	for _, res := range rec.Resolutions {
		l := Literal{Literal: res.Literal.String(), Rewritten: res.Rewritten, Resolved: res.Resolved}
		if sep := res.Septet; sep != nil {
			if sep.Guard != nil {
				l.Guard = sep.Guard.String()
				l.GuardLine = sep.Guard.Line
			}
			l.Values = texts(sep.Values)
			l.Sentinel = sep.SentinelCheck
		}
		f.Literals = append(f.Literals, l)
	}
	return f
}

func texts(vs []symbolic.Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}
