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

// Package contextual keeps, per program value, the history of symbolic values bound to it at
// every program point, and answers path-sensitive queries over that history.
package contextual

import (
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/symbolic"
	"github.com/huaxunhuang/confdroid-sub110/util/orderedmap"
)

// Context is the view of the running traversal that path-sensitive queries need.
type Context interface {
	// Path returns the current traversal path; the last element is the point being visited.
	Path() []*ir.Stmt
	// Snapshot returns the symbolic values of v in the flow environment recorded at point, and
	// false if no environment is recorded there.
	Snapshot(point *ir.Stmt, v ir.Value) ([]symbolic.Value, bool)
}

// Values is the binding history of one program value. Observations are only ever appended:
// revisiting a point on another path adds to the list bound to that point.
type Values struct {
	value  ir.Value
	ctx    Context
	points *orderedmap.OrderedMap[*ir.Stmt, []symbolic.Value]
	size   int
}

// New returns an empty history of v. ctx may be nil, in which case every path-sensitive query
// falls back to AllValues.
func New(v ir.Value, ctx Context) *Values {
	return &Values{
		value:  v,
		ctx:    ctx,
		points: orderedmap.New[*ir.Stmt, []symbolic.Value](),
	}
}

// Value returns the program value owning the history.
func (c *Values) Value() ir.Value { return c.value }

// AddValue appends sv to the list bound at point. A nil sv is ignored.
func (c *Values) AddValue(point *ir.Stmt, sv symbolic.Value) {
	if sv == nil {
		return
	}
	vs := c.points.Value(point)
	c.points.Store(point, append(vs, sv))
	c.size++
}

// Len returns the total number of observations.
func (c *Values) Len() int { return c.size }

// Points returns the points with observations, in order of first observation.
func (c *Values) Points() []*ir.Stmt { return c.points.Keys() }

// ValuesAt returns the observations made at point.
func (c *Values) ValuesAt(point *ir.Stmt) []symbolic.Value {
	return append([]symbolic.Value(nil), c.points.Value(point)...)
}

// AllValues returns every observation, ordered by point of first observation and then by
// observation order. The result is never nil.
func (c *Values) AllValues() []symbolic.Value {
	out := make([]symbolic.Value, 0, c.size)
	c.points.OrderedRange(func(_ *ir.Stmt, vs []symbolic.Value) bool {
		out = append(out, vs...)
		return true
	})
	return out
}

// LastCoherentValues returns the values that hold on the current path.
//
// With a nil point, the current path is walked backwards from the element preceding the
// visited point and the observations of the first point that has any are returned. With a
// non-nil point, the flow environment recorded at that point is consulted. Whenever no
// path-specific answer exists the result is AllValues, so it is never nil.
func (c *Values) LastCoherentValues(point *ir.Stmt) []symbolic.Value {
	if c.ctx == nil {
		return c.AllValues()
	}
	if point == nil {
		path := c.ctx.Path()
		for i := len(path) - 2; i >= 0; i-- {
			if vs := c.points.Value(path[i]); len(vs) > 0 {
				return append([]symbolic.Value(nil), vs...)
			}
		}
		return c.AllValues()
	}
	if vs, ok := c.ctx.Snapshot(point, c.value); ok && vs != nil {
		return append([]symbolic.Value(nil), vs...)
	}
	return c.AllValues()
}
