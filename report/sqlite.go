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
	"fmt"
	"os"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE findings (
	run_id          TEXT NOT NULL,
	id              INTEGER NOT NULL,
	stmt            TEXT NOT NULL,
	method          TEXT NOT NULL,
	class           TEXT NOT NULL,
	line            INTEGER NOT NULL,
	formula         TEXT NOT NULL,
	path_formula    TEXT NOT NULL,
	system_specific INTEGER NOT NULL,
	depth           INTEGER NOT NULL,
	PRIMARY KEY (run_id, id)
);
CREATE TABLE literals (
	run_id     TEXT NOT NULL,
	finding_id INTEGER NOT NULL,
	literal    TEXT NOT NULL,
	guard      TEXT,
	guard_line INTEGER,
	vals       TEXT,
	sentinel   INTEGER NOT NULL,
	rewritten  TEXT,
	resolved   INTEGER NOT NULL
);
CREATE TABLE predicates (
	run_id  TEXT NOT NULL,
	stmt    TEXT NOT NULL,
	method  TEXT NOT NULL,
	line    INTEGER NOT NULL,
	formula TEXT NOT NULL
);
CREATE TABLE nestings (
	run_id     TEXT NOT NULL,
	method     TEXT NOT NULL,
	outer_stmt TEXT NOT NULL,
	outer_line INTEGER NOT NULL,
	inner_stmt TEXT NOT NULL,
	inner_line INTEGER NOT NULL
);
`

// WriteSQLite writes r into a fresh SQLite database at path, replacing any existing file.
func WriteSQLite(path string, r *Report) (err error) {
	_ = os.Remove(path)

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer endFn(&err)

	if err := insertFindings(conn, r); err != nil {
		return err
	}
	if err := insertRows(conn, r); err != nil {
		return err
	}
	return insertNestings(conn, r)
}

func insertFindings(conn *sqlite.Conn, r *Report) error {
	stmt, err := conn.Prepare(`INSERT INTO findings (run_id, id, stmt, method, class, line, formula, path_formula, system_specific, depth) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare findings: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	lits, err := conn.Prepare(`INSERT INTO literals (run_id, finding_id, literal, guard, guard_line, vals, sentinel, rewritten, resolved) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare literals: %w", err)
	}
	defer func() { _ = lits.Finalize() }()

	for _, f := range r.Findings {
		stmt.BindText(1, r.RunID)
		stmt.BindInt64(2, int64(f.ID))
		stmt.BindText(3, f.Stmt)
		stmt.BindText(4, f.Method)
		stmt.BindText(5, f.Class)
		stmt.BindInt64(6, int64(f.Line))
		stmt.BindText(7, f.Formula)
		stmt.BindText(8, f.PathFormula)
		stmt.BindBool(9, f.SystemSpecific)
		stmt.BindInt64(10, int64(f.Depth))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert finding %d: %w", f.ID, err)
		}
		_ = stmt.Reset()

		for _, l := range f.Literals {
			lits.BindText(1, r.RunID)
			lits.BindInt64(2, int64(f.ID))
			lits.BindText(3, l.Literal)
			lits.BindText(4, l.Guard)
			lits.BindInt64(5, int64(l.GuardLine))
			lits.BindText(6, strings.Join(l.Values, "\n"))
			lits.BindBool(7, l.Sentinel)
			lits.BindText(8, l.Rewritten)
			lits.BindBool(9, l.Resolved)
			if _, err := lits.Step(); err != nil {
				return fmt.Errorf("insert literal of finding %d: %w", f.ID, err)
			}
			_ = lits.Reset()
		}
	}
	return nil
}

func insertRows(conn *sqlite.Conn, r *Report) error {
	stmt, err := conn.Prepare(`INSERT INTO predicates (run_id, stmt, method, line, formula) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare predicates: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, row := range r.Rows {
		stmt.BindText(1, r.RunID)
		stmt.BindText(2, row.Stmt)
		stmt.BindText(3, row.Method)
		stmt.BindInt64(4, int64(row.Line))
		stmt.BindText(5, row.Formula)
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert predicate: %w", err)
		}
		_ = stmt.Reset()
	}
	return nil
}

func insertNestings(conn *sqlite.Conn, r *Report) error {
	stmt, err := conn.Prepare(`INSERT INTO nestings (run_id, method, outer_stmt, outer_line, inner_stmt, inner_line) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare nestings: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, n := range r.Nestings {
		stmt.BindText(1, r.RunID)
		stmt.BindText(2, n.Method)
		stmt.BindText(3, n.Outer)
		stmt.BindInt64(4, int64(n.OuterLine))
		stmt.BindText(5, n.Inner)
		stmt.BindInt64(6, int64(n.InnerLine))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert nesting: %w", err)
		}
		_ = stmt.Reset()
	}
	return nil
}

// CountRows returns the number of rows of table in the database at path.
func CountRows(path, table string) (int, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return 0, fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var n int
	err = sqlitex.ExecuteTransient(conn, "SELECT count(*) FROM "+table, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			n = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
