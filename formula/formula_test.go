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
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func vars(f *Factory, names ...string) []Var {
	out := make([]Var, len(names))
	for i, n := range names {
		out[i] = f.Named(n)
	}
	return out
}

func TestFactory(t *testing.T) {
	t.Parallel()

	f := NewFactory()
	a := f.Named("a")
	require.Equal(t, a, f.Named("a"))
	require.NotEqual(t, a, f.Named("b"))

	x, y := f.Fresh("x"), f.Fresh("x")
	require.NotEqual(t, x.ID, y.ID)
	require.Equal(t, "x", x.Name)
}

func TestConjDisjFolding(t *testing.T) {
	t.Parallel()

	v := vars(NewFactory(), "a", "b")
	a, b := Pos(v[0]), Pos(v[1])

	require.Equal(t, True, Conj())
	require.Equal(t, False, Disj())
	require.Equal(t, False, Conj(a, False))
	require.Equal(t, True, Disj(a, True))
	require.Equal(t, Formula(a), Conj(True, a))
	require.Equal(t, Formula(a), Conj(nil, a))
	require.Equal(t, And{a, b, a}, Conj(Conj(a, b), a))
	require.Equal(t, "a | ~b", Disj(a, b.Negate()).String())
}

func TestCNF(t *testing.T) {
	t.Parallel()

	v := vars(NewFactory(), "a", "b", "c")
	a, b, c := Pos(v[0]), Pos(v[1]), Pos(v[2])

	tests := []struct {
		name string
		in   Formula
		want string
	}{
		{name: "literal", in: a, want: "a"},
		{name: "distribution", in: Disj(Conj(a, b), c), want: "(a | c) & (b | c)"},
		{name: "tautology", in: Disj(a, a.Negate()), want: "$true"},
		{name: "complementary units", in: Conj(a.Negate(), a), want: "a & ~a"},
		{name: "subsumption", in: Conj(Disj(a, b), a), want: "a"},
		{name: "duplicates", in: Conj(b, a, b), want: "a & b"},
		{name: "de morgan", in: Not{X: Conj(a, b)}, want: "~a | ~b"},
		{name: "double negation", in: Not{X: Not{X: c}}, want: "c"},
		{name: "constant", in: Not{X: True}, want: "$false"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, CNF(tt.in).String())
		})
	}
}

func TestCNFIsIdempotent(t *testing.T) {
	t.Parallel()

	v := vars(NewFactory(), "a", "b", "c", "d")
	a, b, c, d := Pos(v[0]), Pos(v[1]), Pos(v[2]), Pos(v[3])
	inputs := []Formula{
		a,
		Disj(Conj(a, b), Conj(c, d)),
		Not{X: Disj(a, Conj(b, c.Negate()))},
		Conj(Disj(a, b), Disj(b, a), d.Negate()),
		Disj(a, Conj(a.Negate(), b)),
	}
	for i, in := range inputs {
		once := CNF(in)
		require.True(t, Equal(once, CNF(once)), "input %d: %s", i, in)
	}
}

func TestCNFKeepsVariables(t *testing.T) {
	t.Parallel()

	v := vars(NewFactory(), "a", "b", "c", "d")
	in := Disj(Conj(Pos(v[0]), Pos(v[1])), Conj(Pos(v[2]), Neg(v[3])))
	out := CNF(in)

	inVars := make(map[Var]bool)
	for _, x := range Variables(in) {
		inVars[x] = true
	}
	for _, l := range Literals(out) {
		require.True(t, inVars[l.Var], "CNF introduced %s", l)
	}
	// Two conjunctions of two literals distribute into four binary clauses.
	require.Len(t, Clauses(in), 4)
	for _, c := range Clauses(in) {
		require.Len(t, c, 2)
	}
}

func TestCNFWithLimit(t *testing.T) {
	t.Parallel()

	f := NewFactory()
	var terms []Formula
	for i := 0; i < 3; i++ {
		terms = append(terms, Conj(Pos(f.Named(fmt.Sprintf("a%d", i))), Pos(f.Named(fmt.Sprintf("b%d", i)))))
	}
	in := Disj(terms...)

	out, ok := CNFWithLimit(in, 4)
	require.False(t, ok)
	require.Nil(t, out)

	out, ok = CNFWithLimit(in, 8)
	require.True(t, ok)
	require.Len(t, out.(And), 8)
}

func TestSubstitute(t *testing.T) {
	t.Parallel()

	v := vars(NewFactory(), "a", "b", "x")
	a, b, x := v[0], v[1], v[2]

	subs := map[Var]Formula{a: Pos(x)}
	require.Equal(t, Formula(Neg(x)), Substitute(Neg(a), subs))
	require.Equal(t, "x & b", Substitute(Conj(Pos(a), Pos(b)), subs).String())

	// Constants fold away.
	subs = map[Var]Formula{a: False}
	require.Equal(t, Formula(Pos(b)), Substitute(Disj(Pos(a), Pos(b)), subs))
	require.Equal(t, True, Substitute(Neg(a), subs))

	require.Equal(t, Formula(Pos(b)), Substitute(Pos(b), nil))
}

func TestLiterals(t *testing.T) {
	t.Parallel()

	v := vars(NewFactory(), "a", "b")
	a, b := v[0], v[1]
	got := Literals(Conj(Pos(b), Disj(Neg(a), Pos(b)), Not{X: Pos(a)}))
	require.Equal(t, []Literal{Pos(b), Neg(a), Pos(a)}, got)
	require.Equal(t, []Var{b, a}, Variables(Conj(Pos(b), Neg(a), Pos(a))))
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
