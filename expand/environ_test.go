// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestListEnviron(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"Empty", nil, []string{}},
		{
			"Simple",
			[]string{"A=b", "c="},
			[]string{"A=b", "c="},
		},
		{
			"MissingEqual",
			[]string{"A=b", "invalid", "c="},
			[]string{"A=b", "c="},
		},
		{
			"DuplicateNames",
			[]string{"A=b", "A=x", "c=", "c=y"},
			[]string{"A=x", "c=y"},
		},
		{
			"NoName",
			[]string{"=b", "=c"},
			[]string{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotEnv := ListEnviron(tc.in...)
			got := []string(gotEnv.(listEnviron))
			qt.Assert(t, qt.DeepEquals(got, tc.want), qt.Commentf("ListEnviron(%q)", tc.in))
		})
	}
}

func TestListEnvironGet(t *testing.T) {
	env := ListEnviron("A=b", "empty=", "Z=z")
	qt.Assert(t, qt.DeepEquals(env.Get("A"), str("b")))
	qt.Assert(t, qt.DeepEquals(env.Get("empty"), str("")))
	qt.Assert(t, qt.Equals(env.Get("empty").State(), SetEmpty))
	qt.Assert(t, qt.Equals(env.Get("B").State(), Unset))

	var names []string
	env.Each(func(name string, vr Variable) bool {
		names = append(names, name)
		return name != "empty"
	})
	// byte order, so uppercase names come first
	qt.Assert(t, qt.DeepEquals(names, []string{"A", "Z", "empty"}))
}

func TestFuncEnviron(t *testing.T) {
	env := FuncEnviron(func(name string) string {
		if name == "A" {
			return "b"
		}
		return ""
	})
	qt.Assert(t, qt.DeepEquals(env.Get("A"), str("b")))
	qt.Assert(t, qt.IsFalse(env.Get("B").IsSet()))
}

func TestVariableState(t *testing.T) {
	tests := []struct {
		vr   Variable
		want ParamState
	}{
		{Variable{}, Unset},
		{Variable{Kind: String, ReadOnly: true}, Unset},
		{str(""), SetEmpty},
		{str("x"), SetNonEmpty},
		{list(), Unset},
		{list(""), SetEmpty},
		{list("", ""), SetNonEmpty},
		{list("x"), SetNonEmpty},
	}
	for _, tc := range tests {
		qt.Check(t, qt.Equals(tc.vr.State(), tc.want), qt.Commentf("%#v", tc.vr))
	}
	qt.Check(t, qt.Equals(list("a", "b").String(), "a"))
	qt.Check(t, qt.Equals(list().String(), ""))
	qt.Check(t, qt.Equals(Indexed.String(), "indexed"))
}
