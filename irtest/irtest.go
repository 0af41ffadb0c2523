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

// Package irtest implements small programs shared by the tests of several packages. Every
// fixture returns the program together with the statements the tests refer to.
package irtest

import (
	"testing"

	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/stretchr/testify/require"
)

// Common types and classes of the fixtures.
const (
	TypedArray  = ir.Type("android.content.res.TypedArray")
	WidgetClass = "com.example.Widget"
)

// GetIndex is TypedArray.getIndex(int).
var GetIndex = ir.Ref(string(TypedArray), "getIndex", ir.Int, ir.Int)

// GetInt is TypedArray.getInt(int,int).
var GetInt = ir.Ref(string(TypedArray), "getInt", ir.Int, ir.Int, ir.Int)

// GetString is TypedArray.getString(int).
var GetString = ir.Ref(string(TypedArray), "getString", ir.String, ir.Int)

// Method starts building a void method of com.example.Widget taking params.
func Method(p *ir.Program, name string, params ...ir.Type) *ir.MethodBuilder {
	return p.NewMethod(ir.Ref(WidgetClass, name, ir.Void, params...))
}

// Build finishes b, failing the test on error.
func Build(t testing.TB, b *ir.MethodBuilder) *ir.Method {
	t.Helper()
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

// IndexGuard is the program of
//
//	void init(TypedArray a) {
//	    int x = a.getIndex(0);
//	    if (x == 0) { a.getInt(x, 5); }
//	}
type IndexGuard struct {
	Program *ir.Program
	Method  *ir.Method
	Index   *ir.Stmt
	Guard   *ir.Stmt
	Trigger *ir.Stmt
	Exit    *ir.Stmt
	X       *ir.Local
}

// NewIndexGuard builds IndexGuard.
func NewIndexGuard(t testing.TB) *IndexGuard {
	t.Helper()
	f := &IndexGuard{Program: ir.NewProgram()}
	b := Method(f.Program, "init", TypedArray)
	a := b.Local("$r1", TypedArray)
	f.X = b.Local("$i0", ir.Int)
	res := b.Local("$i1", ir.Int)

	b.Identity(a, b.Param(0, TypedArray))
	f.Index = b.Assign(f.X, ir.NewInvoke(ir.VirtualInvoke, a, GetIndex, ir.NewIntConst(0)))
	f.Guard = b.If(ir.Compare("!=", f.X, ir.NewIntConst(0)), "exit")
	f.Trigger = b.Assign(res, ir.NewInvoke(ir.VirtualInvoke, a, GetInt, f.X, ir.NewIntConst(5)))
	f.Exit = b.Label("exit").ReturnVoid()
	f.Method = Build(t, b)
	f.Program.AddEntryPoint(f.Method)
	return f
}

// DeviceGuard is the program of
//
//	void init(TypedArray a) {
//	    if (SystemProperties.get("ro.build.tags").contains("test-keys")) { a.getInt(1, 0); }
//	}
type DeviceGuard struct {
	Program *ir.Program
	Method  *ir.Method
	Guard   *ir.Stmt
	Trigger *ir.Stmt
}

// NewDeviceGuard builds DeviceGuard.
func NewDeviceGuard(t testing.TB) *DeviceGuard {
	t.Helper()
	f := &DeviceGuard{Program: ir.NewProgram()}
	b := Method(f.Program, "init", TypedArray)
	a := b.Local("$r1", TypedArray)
	tags := b.Local("$r2", ir.String)
	flag := b.Local("$z0", ir.Boolean)
	res := b.Local("$i1", ir.Int)

	b.Identity(a, b.Param(0, TypedArray))
	b.Assign(tags, ir.NewInvoke(ir.StaticInvoke, nil,
		ir.Ref("android.os.SystemProperties", "get", ir.String, ir.String),
		ir.NewStringConst("ro.build.tags")))
	b.Assign(flag, ir.NewInvoke(ir.VirtualInvoke, tags,
		ir.Ref("java.lang.String", "contains", ir.Boolean, "java.lang.CharSequence"),
		ir.NewStringConst("test-keys")))
	f.Guard = b.If(ir.Compare("==", flag, ir.NewIntConst(0)), "exit")
	f.Trigger = b.Assign(res, ir.NewInvoke(ir.VirtualInvoke, a, GetInt, ir.NewIntConst(1), ir.NewIntConst(0)))
	b.Label("exit").ReturnVoid()
	f.Method = Build(t, b)
	f.Program.AddEntryPoint(f.Method)
	return f
}

// Nested is the program of
//
//	void init(TypedArray a) {
//	    if (a.getIndex(0) == 0) {
//	        if (a.getIndex(1) == 1) { a.getInt(0, 0); }
//	        a.getString(0);
//	    }
//	}
type Nested struct {
	Program *ir.Program
	Method  *ir.Method
	Outer   *ir.Stmt
	Inner   *ir.Stmt
	// InnerTrigger is guarded by both conditions, OuterTrigger only by Outer.
	InnerTrigger *ir.Stmt
	OuterTrigger *ir.Stmt
}

// NewNested builds Nested.
func NewNested(t testing.TB) *Nested {
	t.Helper()
	f := &Nested{Program: ir.NewProgram()}
	b := Method(f.Program, "init", TypedArray)
	a := b.Local("$r1", TypedArray)
	x := b.Local("$i0", ir.Int)
	y := b.Local("$i1", ir.Int)
	r1 := b.Local("$i2", ir.Int)
	r2 := b.Local("$r3", ir.String)

	b.Identity(a, b.Param(0, TypedArray))
	b.Assign(x, ir.NewInvoke(ir.VirtualInvoke, a, GetIndex, ir.NewIntConst(0)))
	f.Outer = b.If(ir.Compare("!=", x, ir.NewIntConst(0)), "exit")
	b.Assign(y, ir.NewInvoke(ir.VirtualInvoke, a, GetIndex, ir.NewIntConst(1)))
	f.Inner = b.If(ir.Compare("!=", y, ir.NewIntConst(1)), "after")
	f.InnerTrigger = b.Assign(r1, ir.NewInvoke(ir.VirtualInvoke, a, GetInt, ir.NewIntConst(0), ir.NewIntConst(0)))
	f.OuterTrigger = b.Label("after").Assign(r2, ir.NewInvoke(ir.VirtualInvoke, a, GetString, ir.NewIntConst(0)))
	b.Label("exit").ReturnVoid()
	f.Method = Build(t, b)
	f.Program.AddEntryPoint(f.Method)
	return f
}

// TwoPaths is the program of
//
//	void init(TypedArray a, int p) {
//	    int v;
//	    if (p > 0) { v = 20; } else { v = 10; }
//	    int w = v + 1;
//	    a.getInt(w, 0);
//	}
//
// Join binds w once per path: 21 on the first path explored, 11 on the second.
type TwoPaths struct {
	Program *ir.Program
	Method  *ir.Method
	Guard   *ir.Stmt
	Join    *ir.Stmt
	Trigger *ir.Stmt
	W       *ir.Local
}

// NewTwoPaths builds TwoPaths.
func NewTwoPaths(t testing.TB) *TwoPaths {
	t.Helper()
	f := &TwoPaths{Program: ir.NewProgram()}
	b := Method(f.Program, "init", TypedArray, ir.Int)
	a := b.Local("$r1", TypedArray)
	p := b.Local("i0", ir.Int)
	v := b.Local("i1", ir.Int)
	f.W = b.Local("$i2", ir.Int)
	res := b.Local("$i3", ir.Int)

	b.Identity(a, b.Param(0, TypedArray))
	b.Identity(p, b.Param(1, ir.Int))
	f.Guard = b.If(ir.Compare(">", p, ir.NewIntConst(0)), "positive")
	b.Assign(v, ir.NewIntConst(10))
	b.Goto("join")
	b.Label("positive").Assign(v, ir.NewIntConst(20))
	f.Join = b.Label("join").Assign(f.W, ir.Arith("+", v, ir.NewIntConst(1), ir.Int))
	f.Trigger = b.Assign(res, ir.NewInvoke(ir.VirtualInvoke, a, GetInt, f.W, ir.NewIntConst(0)))
	b.ReturnVoid()
	f.Method = Build(t, b)
	f.Program.AddEntryPoint(f.Method)
	return f
}

// Interprocedural is the program of
//
//	void onCreate(TypedArray a) { int k = a.getIndex(2); helper(a, k); }
//	void helper(TypedArray a, int k) { if (k == 2) { a.getColor(k, 0); } }
type Interprocedural struct {
	Program *ir.Program
	Entry   *ir.Method
	Helper  *ir.Method
	Call    *ir.Stmt
	After   *ir.Stmt
	Guard   *ir.Stmt
	Trigger *ir.Stmt
}

// NewInterprocedural builds Interprocedural.
func NewInterprocedural(t testing.TB) *Interprocedural {
	t.Helper()
	f := &Interprocedural{Program: ir.NewProgram()}
	helperRef := ir.Ref(WidgetClass, "helper", ir.Void, TypedArray, ir.Int)

	hb := f.Program.NewMethod(helperRef)
	ha := hb.Local("r1", TypedArray)
	hk := hb.Local("i0", ir.Int)
	hres := hb.Local("$i1", ir.Int)
	hb.Identity(ha, hb.Param(0, TypedArray))
	hb.Identity(hk, hb.Param(1, ir.Int))
	f.Guard = hb.If(ir.Compare("!=", hk, ir.NewIntConst(2)), "exit")
	f.Trigger = hb.Assign(hres, ir.NewInvoke(ir.VirtualInvoke, ha,
		ir.Ref(string(TypedArray), "getColor", ir.Int, ir.Int, ir.Int), hk, ir.NewIntConst(0)))
	hb.Label("exit").ReturnVoid()
	f.Helper = Build(t, hb)

	b := Method(f.Program, "onCreate", TypedArray)
	a := b.Local("$r1", TypedArray)
	k := b.Local("$i0", ir.Int)
	b.Identity(a, b.Param(0, TypedArray))
	b.Assign(k, ir.NewInvoke(ir.VirtualInvoke, a, GetIndex, ir.NewIntConst(2)))
	f.Call = b.Invoke(ir.NewInvoke(ir.SpecialInvoke, b.This(), helperRef, a, k))
	f.After = b.ReturnVoid()
	f.Entry = Build(t, b)

	f.Program.AddCall(f.Call, f.Helper)
	f.Program.AddEntryPoint(f.Entry)
	return f
}

// SwitchGuard is the program of
//
//	void init(TypedArray a) {
//	    switch (a.getIndex(0)) {
//	    case 3: a.getInt(3, 0); break;
//	    default: a.getFloat(0, 0f);
//	    }
//	}
type SwitchGuard struct {
	Program        *ir.Program
	Method         *ir.Method
	Switch         *ir.Stmt
	CaseTrigger    *ir.Stmt
	DefaultTrigger *ir.Stmt
}

// NewSwitchGuard builds SwitchGuard.
func NewSwitchGuard(t testing.TB) *SwitchGuard {
	t.Helper()
	f := &SwitchGuard{Program: ir.NewProgram()}
	b := Method(f.Program, "init", TypedArray)
	a := b.Local("$r1", TypedArray)
	key := b.Local("$i0", ir.Int)
	r1 := b.Local("$i1", ir.Int)
	r2 := b.Local("$f0", ir.Float)

	b.Identity(a, b.Param(0, TypedArray))
	b.Assign(key, ir.NewInvoke(ir.VirtualInvoke, a, GetIndex, ir.NewIntConst(0)))
	f.Switch = b.Switch(key, []int64{3}, []string{"three"}, "other")
	f.CaseTrigger = b.Label("three").Assign(r1, ir.NewInvoke(ir.VirtualInvoke, a, GetInt, ir.NewIntConst(3), ir.NewIntConst(0)))
	b.Goto("exit")
	f.DefaultTrigger = b.Label("other").Assign(r2, ir.NewInvoke(ir.VirtualInvoke, a,
		ir.Ref(string(TypedArray), "getFloat", ir.Float, ir.Int, ir.Float), ir.NewIntConst(0), &ir.Const{Kind: ir.FloatConst, Text: "0.0"}))
	b.Label("exit").ReturnVoid()
	f.Method = Build(t, b)
	f.Program.AddEntryPoint(f.Method)
	return f
}

// Loop is the program of
//
//	void init(TypedArray a, int n) { for (int i = 0; i < n; i++) { a.getString(i); } }
type Loop struct {
	Program *ir.Program
	Method  *ir.Method
	Head    *ir.Stmt
	Trigger *ir.Stmt
}

// NewLoop builds Loop.
func NewLoop(t testing.TB) *Loop {
	t.Helper()
	f := &Loop{Program: ir.NewProgram()}
	b := Method(f.Program, "init", TypedArray, ir.Int)
	a := b.Local("$r1", TypedArray)
	n := b.Local("i0", ir.Int)
	i := b.Local("i1", ir.Int)
	s := b.Local("$r2", ir.String)

	b.Identity(a, b.Param(0, TypedArray))
	b.Identity(n, b.Param(1, ir.Int))
	b.Assign(i, ir.NewIntConst(0))
	f.Head = b.Label("head").If(ir.Compare(">=", i, n), "exit")
	f.Trigger = b.Assign(s, ir.NewInvoke(ir.VirtualInvoke, a, GetString, i))
	b.Assign(i, ir.Arith("+", i, ir.NewIntConst(1), ir.Int))
	b.Goto("head")
	b.Label("exit").ReturnVoid()
	f.Method = Build(t, b)
	f.Program.AddEntryPoint(f.Method)
	return f
}
