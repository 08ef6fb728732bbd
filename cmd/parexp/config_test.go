// Copyright (c) 2024, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package main

import (
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/spf13/afero"

	"mvdan.cc/parexp/expand"
)

var loadConfigTests = []struct {
	name    string
	src     string
	want    *config
	wantErr string
}{
	{
		name: "Empty",
		src:  "",
		want: &config{},
	},
	{
		name: "Full",
		src: `
compat: posix
nounset: true
env:
  FOO: bar
  _x1: ""
readonly: [FOO]
params: ["a b", c]
`,
		want: &config{
			Compat:   "posix",
			Nounset:  true,
			Env:      map[string]string{"FOO": "bar", "_x1": ""},
			Readonly: []string{"FOO"},
			Params:   []string{"a b", "c"},
		},
	},
	{
		name:    "UnknownField",
		src:     "compatibility: bash\n",
		wantErr: `unknown field "compatibility"`,
	},
	{
		name:    "BadCompat",
		src:     "compat: zsh\n",
		wantErr: `'compat' failed on the 'oneof' tag`,
	},
	{
		name:    "BadEnvName",
		src:     "env:\n  1abc: x\n",
		wantErr: `failed on the 'varname' tag`,
	},
	{
		name:    "BadReadonlyName",
		src:     "readonly: [a-b]\n",
		wantErr: `failed on the 'varname' tag`,
	},
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	for _, tc := range loadConfigTests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			fs := afero.NewMemMapFs()
			qt.Assert(t, qt.IsNil(afero.WriteFile(fs, "parexp.yaml", []byte(tc.src), 0o666)))
			got, err := loadConfig(fs, "parexp.yaml")
			if tc.wantErr != "" {
				qt.Assert(t, qt.ErrorMatches(err, `parexp\.yaml: .*`+tc.wantErr+`.*`))
				return
			}
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.DeepEquals(got, tc.want))
		})
	}
}

func TestLoadConfigMissing(t *testing.T) {
	t.Parallel()
	_, err := loadConfig(afero.NewMemMapFs(), "missing.yaml")
	qt.Assert(t, qt.IsNotNil(err))
}

func TestConfigCompat(t *testing.T) {
	t.Parallel()
	compat, err := (&config{}).compat()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(compat, expand.CompatBash))

	compat, err = (&config{Compat: "posix"}).compat()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(compat, expand.CompatPOSIX))
}

func TestConfigEnviron(t *testing.T) {
	t.Parallel()
	cfg := &config{Env: map[string]string{"B": "2", "A": "new"}}
	got := cfg.environ([]string{"A=old", "C=3"})
	qt.Assert(t, qt.DeepEquals(got, []string{"A=old", "C=3", "A=new", "B=2"}))

	env := expand.ListEnviron(got...)
	qt.Assert(t, qt.Equals(env.Get("A").String(), "new"))
}
