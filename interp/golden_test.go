// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"mvdan.cc/parexp/expand"
)

// scenarioTests are run with the positional parameters "1 2" and "3 4", once
// per compatibility mode. Their transcripts are kept as golden files.
var scenarioTests = []struct {
	name, src string
}{
	{"scenario-a", `
i=0
x=x
echo ${x:-$((i++))}
echo i=$i
`},
	{"scenario-b", `
i=0
echo ${undefined:-$((i++))}
echo i=$i
echo ${undefined:-$((i++))}
echo i=$i
`},
	{"scenario-c", `
printf '<%s>' X${unset=x"$@"x}X; echo
printf '<%s>' "X${unset2=x"$@"x}X"; echo
`},
	{"scenario-d", `
empty=''
echo ${empty:?'is em'pty}
echo after
`},
	{"scenario-e", `
v=foo
echo ${v+is-set} ${unset:+is-set}
`},
}

func TestScenarios(t *testing.T) {
	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
	)
	for _, tc := range scenarioTests {
		for _, compat := range []expand.Compat{expand.CompatBash, expand.CompatPOSIX} {
			name := tc.name + "-" + compat.String()
			t.Run(name, func(t *testing.T) {
				var out bytes.Buffer
				r, err := New(
					Env(expand.ListEnviron()),
					Params("--", "1 2", "3 4"),
					StdIO(nil, &out, &out),
					CompatMode(compat),
				)
				if err != nil {
					t.Fatal(err)
				}
				err = r.Run(context.Background(), parse(t, nil, tc.src))
				status, _ := IsExitStatus(err)
				fmt.Fprintf(&out, "# status: %d\n", status)
				out.WriteString("# vars:\n")
				for _, kv := range r.Vars() {
					if !strings.HasPrefix(kv, "IFS=") {
						out.WriteString(kv + "\n")
					}
				}
				g.Assert(t, name, out.Bytes())
			})
		}
	}
}
