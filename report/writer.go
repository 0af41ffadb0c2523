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

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Write writes r to w in the given format, "text" or "json".
func Write(w io.Writer, r *Report, format string) error {
	switch format {
	case "json":
		return WriteJSON(w, r)
	case "text", "":
		return WriteText(w, r)
	}
	return fmt.Errorf("unknown report format %q", format)
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteText writes a human-readable summary: the findings, most suspicious first, then the
// results table.
func WriteText(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "run %s", r.RunID)
	if r.Partial {
		fmt.Fprint(tw, " (partial)")
	}
	fmt.Fprintf(tw, "\n%d finding(s)\n\n", len(r.Findings))

	for _, f := range r.Findings {
		flag := "resolved"
		if f.SystemSpecific {
			flag = "SYSTEM-SPECIFIC"
		}
		fmt.Fprintf(tw, "#%d\t%s\tdepth %d\n", f.ID, flag, f.Depth)
		fmt.Fprintf(tw, "\tstmt:\t%s\n", f.Stmt)
		fmt.Fprintf(tw, "\tmethod:\t%s (line %d)\n", f.Method, f.Line)
		fmt.Fprintf(tw, "\tformula:\t%s\n", f.Formula)
		for _, l := range f.Literals {
			out := l.Rewritten
			if !l.Resolved {
				out = "unresolved"
			}
			fmt.Fprintf(tw, "\t  %s\t=> %s\n", l.Literal, out)
		}
	}

	if len(r.Nestings) > 0 {
		fmt.Fprintf(tw, "\nnested guards\n")
		for _, n := range r.Nestings {
			fmt.Fprintf(tw, "\t%d: %s\tencloses %d: %s\n", n.OuterLine, n.Outer, n.InnerLine, n.Inner)
		}
	}

	if len(r.Rows) > 0 {
		fmt.Fprintf(tw, "\nSTATEMENT\tMETHOD\tLINE\tFORMULA\n")
		for _, row := range r.Rows {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", row.Stmt, row.Method, row.Line, row.Formula)
		}
	}

	for _, e := range r.Errors {
		fmt.Fprintf(tw, "\nerror: %s: %s\n", e.Entry, firstLine(e.Error))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
