// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"testing"

	"github.com/go-quicktest/qt"

	"mvdan.cc/parexp/syntax"
)

func parseArithm(t *testing.T, src string) syntax.ArithmExpr {
	t.Helper()
	word := parseWord(t, "$(("+src+"))")
	return word.Parts[0].(*syntax.ArithmExp).X
}

var arithTests = []struct {
	in   string
	want int
}{
	{"1 + 2", 3},
	{"7 - 10", -3},
	{"2 * 3 + 1", 7},
	{"7 / 2", 3},
	{"7 % 2", 1},
	{"2 ** 10", 1024},
	{"(1 + 2) * 3", 9},
	{"-i", -3},
	{"!i", 0},
	{"!0", 1},
	{"~0", -1},
	{"i == 3", 1},
	{"i != 3", 0},
	{"i < 4 && i > 2", 1},
	{"0 || 0", 0},
	{"1 << 4", 16},
	{"0x10 | 1", 17},
	{"2#101", 5},
	{"ref + 1", 4},
	{"none + 1", 1},
	{"nonnum", 0},
}

func TestArithm(t *testing.T) {
	t.Parallel()
	for _, tc := range arithTests {
		t.Run("", func(t *testing.T) {
			env := mapEnviron{"i": str("3"), "ref": str("i"), "nonnum": str("foo")}
			cfg := &Config{Env: env}
			got, err := Arithm(cfg, parseArithm(t, tc.in))
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Equals(got, tc.want), qt.Commentf("$((%s))", tc.in))
		})
	}
}

func TestArithmAssign(t *testing.T) {
	t.Parallel()
	env := mapEnviron{"i": str("3")}
	cfg := &Config{Env: env}
	for _, tc := range []struct {
		in   string
		want int
		i    string
	}{
		{"i++", 3, "4"},
		{"++i", 5, "5"},
		{"i--", 5, "4"},
		{"i += 6", 10, "10"},
		{"i <<= 1", 20, "20"},
		{"i %= 7", 6, "6"},
		{"j = i * 2", 12, "6"},
	} {
		got, err := Arithm(cfg, parseArithm(t, tc.in))
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(got, tc.want), qt.Commentf("$((%s))", tc.in))
		qt.Assert(t, qt.Equals(env["i"].Str, tc.i), qt.Commentf("$((%s))", tc.in))
	}
	qt.Assert(t, qt.Equals(env["j"].Str, "12"))
}

func TestArithmErrors(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		in, want string
	}{
		{"1 / 0", "division by zero"},
		{"1 % 0", "division by zero"},
		{"2 ** -1", "exponent less than 0"},
		{"i /= 0", "division by zero"},
		{"0 || 3 / 0", "division by zero"},
	} {
		_, err := Arithm(&Config{Env: mapEnviron{}}, parseArithm(t, tc.in))
		qt.Assert(t, qt.ErrorMatches(err, tc.want), qt.Commentf("$((%s))", tc.in))
	}
}

func TestArithmShortCircuit(t *testing.T) {
	t.Parallel()
	env := mapEnviron{}
	cfg := &Config{Env: env}
	got, err := Arithm(cfg, parseArithm(t, "0 && (x = 1)"))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(got, 0))
	got, err = Arithm(cfg, parseArithm(t, "1 || (x = 1)"))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(got, 1))
	qt.Assert(t, qt.IsFalse(env.Get("x").IsSet()))
}

func TestArithmNameLoop(t *testing.T) {
	t.Parallel()
	env := mapEnviron{"a": str("b"), "b": str("a")}
	got, err := Arithm(&Config{Env: env}, parseArithm(t, "a"))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(got, 0))
}
