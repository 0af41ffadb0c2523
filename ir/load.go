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
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// ErrMalformedProgram is returned when a program dump cannot be turned into a Program.
var ErrMalformedProgram = errors.New("malformed program dump")

// Open loads a program dump from path. Dumps ending in .zst, .s2 or .gz are decompressed on the
// fly; anything else is read as plain YAML (or JSON, which YAML subsumes).
func Open(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open program dump: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd reader for %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	case ".s2", ".sz":
		r = s2.NewReader(f)
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip reader for %s: %w", path, err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	p, err := Load(r)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return p, nil
}

// Load decodes a program dump.
func Load(r io.Reader) (*Program, error) {
	var doc programDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode program dump: %w", err)
	}

	p := NewProgram()
	type pendingCall struct {
		site    *Stmt
		callees []string
	}
	var calls []pendingCall
	for _, md := range doc.Methods {
		ref := MethodRef{Class: md.Class, Name: md.Name, Ret: Type(md.Ret), Params: toTypes(md.Params)}
		if ref.Ret == "" {
			ref.Ret = Void
		}
		b := p.NewMethod(ref)
		for name, t := range md.Locals {
			b.Local(name, Type(t))
		}
		for i, sd := range md.Body {
			s, err := sd.append(b)
			if err != nil {
				return nil, fmt.Errorf("%w: %s statement %d: %v", ErrMalformedProgram, ref.Signature(), i, err)
			}
			if len(sd.Callees) > 0 {
				calls = append(calls, pendingCall{site: s, callees: sd.Callees})
			}
		}
		if _, err := b.Build(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedProgram, err)
		}
	}

	for _, c := range calls {
		for _, sig := range c.callees {
			callee := p.Method(sig)
			if callee == nil {
				return nil, fmt.Errorf("%w: call at %q targets unknown method %s", ErrMalformedProgram, c.site, sig)
			}
			p.AddCall(c.site, callee)
		}
	}
	for _, sig := range doc.EntryPoints {
		m := p.Method(sig)
		if m == nil {
			return nil, fmt.Errorf("%w: unknown entry point %s", ErrMalformedProgram, sig)
		}
		p.AddEntryPoint(m)
	}
	return p, nil
}

type programDoc struct {
	Methods     []methodDoc `yaml:"methods"`
	EntryPoints []string    `yaml:"entry_points"`
}

type methodDoc struct {
	Class  string            `yaml:"class"`
	Name   string            `yaml:"name"`
	Params []string          `yaml:"params"`
	Ret    string            `yaml:"ret"`
	Locals map[string]string `yaml:"locals"`
	Body   []stmtDoc         `yaml:"body"`
}

type stmtDoc struct {
	Label   string   `yaml:"label"`
	Line    int      `yaml:"line"`
	Kind    string   `yaml:"kind"`
	LHS     *exprDoc `yaml:"lhs"`
	RHS     *exprDoc `yaml:"rhs"`
	Expr    *exprDoc `yaml:"expr"`
	Cond    *exprDoc `yaml:"cond"`
	Target  string   `yaml:"target"`
	Cases   []int64  `yaml:"cases"`
	Targets []string `yaml:"targets"`
	Default string   `yaml:"default"`
	Callees []string `yaml:"callees"`
}

type exprDoc struct {
	Local    *string      `yaml:"local"`
	Param    *paramDoc    `yaml:"param"`
	This     bool         `yaml:"this"`
	Int      *int64       `yaml:"int"`
	Long     *int64       `yaml:"long"`
	Float    *string      `yaml:"float"`
	Double   *string      `yaml:"double"`
	String   *string      `yaml:"string"`
	Null     bool         `yaml:"null"`
	Class    *string      `yaml:"class"`
	Field    *fieldDoc    `yaml:"field"`
	Invoke   *invokeDoc   `yaml:"invoke"`
	BinOp    *binOpDoc    `yaml:"binop"`
	Cast     *castDoc     `yaml:"cast"`
	New      string       `yaml:"new"`
	NewArray *newArrayDoc `yaml:"newarray"`
}

type paramDoc struct {
	Index int    `yaml:"index"`
	Type  string `yaml:"type"`
}

type fieldDoc struct {
	Base  *exprDoc `yaml:"base"`
	Class string   `yaml:"class"`
	Name  string   `yaml:"name"`
	Type  string   `yaml:"type"`
}

type invokeDoc struct {
	Kind   string     `yaml:"kind"`
	Base   *exprDoc   `yaml:"base"`
	Class  string     `yaml:"class"`
	Method string     `yaml:"method"`
	Params []string   `yaml:"params"`
	Ret    string     `yaml:"ret"`
	Args   []*exprDoc `yaml:"args"`
}

type binOpDoc struct {
	Op   string   `yaml:"op"`
	X    *exprDoc `yaml:"x"`
	Y    *exprDoc `yaml:"y"`
	Type string   `yaml:"type"`
}

type castDoc struct {
	Type string   `yaml:"type"`
	X    *exprDoc `yaml:"x"`
}

type newArrayDoc struct {
	Elem string   `yaml:"elem"`
	Size *exprDoc `yaml:"size"`
}

func (sd *stmtDoc) append(b *MethodBuilder) (*Stmt, error) {
	if sd.Label != "" {
		b.Label(sd.Label)
	}
	if sd.Line > 0 {
		b.Line(sd.Line)
	}
	switch sd.Kind {
	case "assign", "identity":
		lhs, err := sd.LHS.value(b)
		if err != nil {
			return nil, fmt.Errorf("lhs: %w", err)
		}
		rhs, err := sd.RHS.value(b)
		if err != nil {
			return nil, fmt.Errorf("rhs: %w", err)
		}
		if sd.Kind == "identity" {
			return b.Identity(lhs, rhs), nil
		}
		return b.Assign(lhs, rhs), nil
	case "invoke":
		v, err := sd.Expr.value(b)
		if err != nil {
			return nil, err
		}
		inv, ok := v.(*InvokeExpr)
		if !ok {
			return nil, fmt.Errorf("invoke statement wraps %T", v)
		}
		return b.Invoke(inv), nil
	case "return", "throw":
		v, err := sd.Expr.value(b)
		if err != nil {
			return nil, err
		}
		if sd.Kind == "throw" {
			return b.Throw(v), nil
		}
		return b.Return(v), nil
	case "return-void":
		return b.ReturnVoid(), nil
	case "if":
		v, err := sd.Cond.value(b)
		if err != nil {
			return nil, err
		}
		cond, ok := v.(*BinExpr)
		if !ok || !cond.IsComparison() {
			return nil, fmt.Errorf("if condition %q is not a comparison", v)
		}
		return b.If(cond, sd.Target), nil
	case "switch":
		key, err := sd.Expr.value(b)
		if err != nil {
			return nil, err
		}
		return b.Switch(key, sd.Cases, sd.Targets, sd.Default), nil
	case "goto":
		return b.Goto(sd.Target), nil
	case "nop":
		return b.Nop(), nil
	}
	return nil, fmt.Errorf("unknown statement kind %q", sd.Kind)
}

func (e *exprDoc) value(b *MethodBuilder) (Value, error) {
	if e == nil {
		return nil, errors.New("missing expression")
	}
	switch {
	case e.Local != nil:
		if l := b.m.locals[*e.Local]; l != nil {
			return l, nil
		}
		return b.Local(*e.Local, Unknown), nil
	case e.Param != nil:
		return b.Param(e.Param.Index, Type(e.Param.Type)), nil
	case e.This:
		return b.This(), nil
	case e.Int != nil:
		return NewIntConst(*e.Int), nil
	case e.Long != nil:
		return NewLongConst(*e.Long), nil
	case e.Float != nil:
		return &Const{Kind: FloatConst, Text: *e.Float}, nil
	case e.Double != nil:
		return &Const{Kind: DoubleConst, Text: *e.Double}, nil
	case e.String != nil:
		return NewStringConst(*e.String), nil
	case e.Null:
		return &Const{Kind: NullConst, Text: "null"}, nil
	case e.Class != nil:
		return &Const{Kind: ClassConst, Text: *e.Class}, nil
	case e.Field != nil:
		f := &FieldRef{Class: e.Field.Class, Name: e.Field.Name, Typ: Type(e.Field.Type)}
		if e.Field.Base != nil {
			base, err := e.Field.Base.value(b)
			if err != nil {
				return nil, err
			}
			f.Base = base
		}
		return f, nil
	case e.Invoke != nil:
		return e.Invoke.value(b)
	case e.BinOp != nil:
		x, err := e.BinOp.X.value(b)
		if err != nil {
			return nil, err
		}
		y, err := e.BinOp.Y.value(b)
		if err != nil {
			return nil, err
		}
		t := Type(e.BinOp.Type)
		if t == "" {
			t = Boolean
		}
		return &BinExpr{Op: e.BinOp.Op, X: x, Y: y, Typ: t}, nil
	case e.Cast != nil:
		x, err := e.Cast.X.value(b)
		if err != nil {
			return nil, err
		}
		return &CastExpr{X: x, Typ: Type(e.Cast.Type)}, nil
	case e.New != "":
		return &NewExpr{Typ: Type(e.New)}, nil
	case e.NewArray != nil:
		size, err := e.NewArray.Size.value(b)
		if err != nil {
			return nil, err
		}
		return &NewArrayExpr{Elem: Type(e.NewArray.Elem), Size: size}, nil
	}
	return nil, errors.New("empty expression")
}

var invokeKinds = map[string]InvokeKind{
	"virtual":   VirtualInvoke,
	"interface": InterfaceInvoke,
	"special":   SpecialInvoke,
	"static":    StaticInvoke,
	"dynamic":   DynamicInvoke,
}

func (d *invokeDoc) value(b *MethodBuilder) (Value, error) {
	kind, ok := invokeKinds[strings.TrimSuffix(d.Kind, "invoke")]
	if !ok {
		return nil, fmt.Errorf("unknown invoke kind %q", d.Kind)
	}
	inv := &InvokeExpr{
		Kind:   kind,
		Method: MethodRef{Class: d.Class, Name: d.Method, Params: toTypes(d.Params), Ret: Type(d.Ret)},
	}
	if inv.Method.Ret == "" {
		inv.Method.Ret = Void
	}
	if d.Base != nil {
		base, err := d.Base.value(b)
		if err != nil {
			return nil, fmt.Errorf("invoke base: %w", err)
		}
		inv.Base = base
	}
	for i, a := range d.Args {
		v, err := a.value(b)
		if err != nil {
			return nil, fmt.Errorf("invoke argument %d: %w", i, err)
		}
		inv.Args = append(inv.Args, v)
	}
	return inv, nil
}

func toTypes(ss []string) []Type {
	if len(ss) == 0 {
		return nil
	}
	ts := make([]Type, len(ss))
	for i, s := range ss {
		ts[i] = Type(s)
	}
	return ts
}
