// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-quicktest/qt"

	"mvdan.cc/parexp/expand"
	"mvdan.cc/parexp/syntax"
)

func parse(tb testing.TB, parser *syntax.Parser, src string) *syntax.File {
	if parser == nil {
		parser = syntax.NewParser()
	}
	file, err := parser.Parse(strings.NewReader(src), "")
	if err != nil {
		tb.Fatal(err)
	}
	return file
}

// concBuffer wraps a [bytes.Buffer] in a mutex so that concurrent writes
// to it don't upset the race detector.
type concBuffer struct {
	buf bytes.Buffer
	sync.Mutex
}

func (c *concBuffer) Write(p []byte) (int, error) {
	c.Lock()
	n, err := c.buf.Write(p)
	c.Unlock()
	return n, err
}

func (c *concBuffer) String() string {
	c.Lock()
	s := c.buf.String()
	c.Unlock()
	return s
}

type runTest struct {
	in, want string
}

var runTests = []runTest{
	// no-op programs
	{"", ""},
	{"true", ""},
	{":", ""},
	{"exit", ""},
	{"exit 0", ""},
	{"(:)", ""},

	// exit status codes
	{"exit 1", "exit status 1"},
	{"exit 300", "exit status 44"},
	{"exit foo", "exit: foo: numeric argument required\nexit status 2"},
	{"exit 1 2", "exit: too many arguments\nexit status 1"},
	{"false", "exit status 1"},
	{"false; true", ""},
	{"false; exit", "exit status 1"},
	{"exit 3; echo no", "exit status 3"},
	{"(exit 4)", "exit status 4"},
	{"(exit 4); echo $?", "4\n"},
	{"foo", "foo: command not found\nexit status 127"},
	{"false && echo no", "exit status 1"},
	{"false || echo yes", "yes\n"},
	{"true && echo yes || echo no", "yes\n"},

	// echo and printf
	{"echo foo bar", "foo bar\n"},
	{"echo -n foo", "foo"},
	{"echo -e 'a\\tb'", "a\tb\n"},
	{"echo 'a\\tb'", "a\\tb\n"},
	{"echo -n -e '\\x41'", "A"},
	{`printf '%s-%s\n' a b c`, "a-b\nc-\n"},
	{`printf '%d|%5s|\n' 42 ab`, "42|   ab|\n"},
	{"printf", "usage: printf format [arguments]\nexit status 2"},
	{"printf '%z'", "printf: invalid format char: z\nexit status 1"},

	// variables
	{"a=b; echo $a", "b\n"},
	{"a=b b=$a; echo $b", "b\n"},
	{"a=(x y z); echo ${a[1]} ${#a[@]}", "y 3\n"},
	{"a=(x y z); echo ${a[-1]}", "z\n"},
	{"a[2]=c; echo ${a[@]}", "c\n"},
	{"a=x; a[1]=y; echo ${a[@]}", "x y\n"},
	{"a=(x y); a=z; echo ${a[@]}", "z y\n"},
	{"a=héllo; echo ${#a}", "5\n"},
	{"a=b :; echo ${a-unset}", "unset\n"},
	{"a=b; unset a; echo ${a-unset}", "unset\n"},
	{"unset -f a", "unset: invalid option: \"-f\"\nexit status 2"},
	{"a=1; (a=2; echo $a); echo $a", "2\n1\n"},
	{"echo $0", "parexp\n"},
	{"readonly a=b; a=c", "a: readonly variable\nexit status 1"},
	{"readonly a=b; a=c; echo $a", "a: readonly variable\nb\n"},
	{"readonly a=b; unset a", "unset: a: cannot unset: readonly variable\nexit status 1"},
	{"readonly a=b c; readonly", "readonly a=\"b\"\nreadonly c\n"},
	{"readonly 1a", "readonly: \"1a\": not a valid identifier\nexit status 1"},
	{"a=1; set", "IFS= \t\n\nINTERP_GLOBAL=value\na=1\n"},

	// positional parameters
	{"set -- a b c; echo $# $2", "3 b\n"},
	{"set -- a b c; shift; echo $@", "b c\n"},
	{"set -- a b c; shift 2; echo $1 ${2-none}", "c none\n"},
	{"set -- a; shift 2", "exit status 1"},
	{"shift x", "usage: shift [n]\nexit status 2"},
	{"set -- a b; set --; echo $#", "0\n"},
	{"set -z", "set: invalid option: \"-z\"\nexit status 2"},
	{`set -- "a  b" c; echo "$1" $1 "$*"`, "a  b a b a  b c\n"},

	// conditional parameter expansions
	{"echo ${a-x} ${a:-y}", "x y\n"},
	{"a=; echo ${a-x} ${a:-y}", "y\n"},
	{`a=; echo "${a-x}" ${a:-y}`, " y\n"},
	{"echo ${a=x} $a", "x x\n"},
	{"a=; echo ${a:=x} $a", "x x\n"},
	{"a=; echo [${a=x}] [$a]", "[] []\n"},
	{"echo [${a+x}]; a=; echo ${a+x} [${a:+y}]; a=z; echo ${a:+y}", "[]\nx []\ny\n"},
	{"echo ${a?}", "a: parameter null or not set\nexit status 1"},
	{"echo ${a?custom msg}; echo no", "a: custom msg\nexit status 1"},
	{"a=; echo ${a?} ok", "ok\n"},
	{"a=; echo ${a:?}", "a: parameter null or not set\nexit status 1"},
	{"a=; echo ${a:?$a is empty}", "a:  is empty\nexit status 1"},
	{"false || echo ${a:?}; echo no", "a: parameter null or not set\nexit status 1"},
	{"true && echo ${a-x}", "x\n"},
	{"(echo ${a?sub}; echo no); echo after $?", "a: sub\nafter 1\n"},
	{`echo "[$(echo ${a?x}; echo no)]"; echo after`, "a: x\n[]\nafter\n"},
	{"echo ${1:=x}; echo no", "$1: cannot assign in this way\nexit status 1"},
	{"echo ${@:=x}", "$@: cannot assign in this way\nexit status 1"},
	{"echo ${none[@]:=x}", "none[@]: cannot assign in this way\nexit status 1"},
	{"readonly a; echo ${a:=x}", "a: readonly variable\nexit status 1"},
	{"a=(x y); echo ${a:=z} ${a[3]=w} ${a[@]}", "x w x y w\n"},

	// laziness and evaluation order
	{"i=0; x=x; echo ${x:-$((i++))} $i", "x 0\n"},
	{"i=0; echo ${undefined:-$((i++))}; echo ${undefined:-$((i++))} $i", "0\n1 2\n"},
	{"i=0; echo ${u=$((i++))} ${u=$((i++))} $i", "0 0 1\n"},
	{"i=0; x=; echo [${x+$((i++))}] [${x:+$((i++))}] $i", "[0] [] 1\n"},
	{"v=foo; echo ${v+is-set} ${unset:+is-set}", "is-set\n"},
	{"empty=''; echo ${empty:?'is em'pty}; echo after", "empty: is empty\nexit status 1"},
	{`set -- "1 2" "3 4"; printf '<%s>' X${unset=x"$@"x}X; echo`, "<Xx1><2><3><4xX>\n"},
	{`set -- "1 2" "3 4"; printf '<%s>' "X${unset=x"$@"x}X"; echo`, "<Xx1 2 3 4xX>\n"},
	{`set -- "1 2" "3 4"; : ${unset=x"$@"x}; echo "$unset"`, "x1 2 3 4x\n"},

	// nounset
	{"set -u; echo $a; echo no", "a: unbound variable\nexit status 1"},
	{`set -u; echo ${a-ok} "$@" $*`, "ok\n"},
	{"set -u; set +u; echo [$a]", "[]\n"},
	{"set -o nounset; echo $a", "a: unbound variable\nexit status 1"},
	{"set -o", "nounset\toff\n"},
	{"set -u -o", "nounset\ton\n"},

	// other expansions
	{"echo $((1 / 0)); echo after", "division by zero\nafter\n"},
	{"IFS=:; a=x:y; echo $a", "x y\n"},
	{`a="x  y"; echo $a "$a"`, "x y x  y\n"},
	{"a=$(echo foo); echo $a", "foo\n"},
	{"a=$(false); echo $?", "1\n"},
	{"echo $(exit 3); echo $?", "\n0\n"},
	{"echo $(echo a; echo b)", "a b\n"},
}

func TestRunnerRun(t *testing.T) {
	t.Parallel()
	p := syntax.NewParser()
	for i := range runTests {
		t.Run(fmt.Sprintf("%03d", i), func(t *testing.T) {
			c := runTests[i]
			file := parse(t, p, c.in)
			t.Parallel()
			var cb concBuffer
			r, err := New(
				Env(expand.ListEnviron("INTERP_GLOBAL=value")),
				StdIO(nil, &cb, &cb),
			)
			if err != nil {
				t.Fatal(err)
			}
			ctx := context.Background()
			if err := r.Run(ctx, file); err != nil {
				cb.Write([]byte(err.Error()))
			}
			if got := cb.String(); got != c.want {
				t.Fatalf("wrong output in %q:\nwant: %q\ngot:  %q",
					c.in, c.want, got)
			}
		})
	}
}

func TestRunnerCompat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in         string
		bash, posx string
	}{
		{
			"echo ${a?}; echo no",
			"a: parameter null or not set\nexit status 1",
			"a: parameter null or not set\nexit status 2",
		},
		{
			"a=; echo ${a:?empty}",
			"a: empty\nexit status 1",
			"a: empty\nexit status 2",
		},
		{
			"set -u; echo $a",
			"a: unbound variable\nexit status 1",
			"a: unbound variable\nexit status 2",
		},
		{
			"(echo ${a?}); echo $?",
			"a: parameter null or not set\n1\n",
			"a: parameter null or not set\n2\n",
		},
		{
			"echo ${1:=x}",
			"$1: cannot assign in this way\nexit status 1",
			"$1: cannot assign in this way\nexit status 1",
		},
		{
			`set -- "1 2" "3 4"; printf '<%s>' X${unset=x"$@"x}X; echo`,
			"<Xx1><2><3><4xX>\n",
			"<Xx1 2><3 4xX>\n",
		},
		{
			`set -- "1 2" "3 4"; printf '<%s>' "X${unset=x"$@"x}X"; echo`,
			"<Xx1 2 3 4xX>\n",
			"<Xx1 2 3 4xX>\n",
		},
		{
			`printf '<%s>' ${unset=a b}; echo "[$unset]"`,
			"<a><b>[a b]\n",
			"<a><b>[a b]\n",
		},
		{
			`sp=' x  y '; printf '<%s>' ${u1=a   b} ${u2=$sp}; echo "[$u1][$u2]"`,
			"<a><b><x><y>[a   b][ x  y ]\n",
			"<a><b><x><y>[a   b][ x  y ]\n",
		},
		{
			`printf '<%s>' ${unset="a  b"}; echo "[$unset]"`,
			"<a><b>[a  b]\n",
			"<a  b>[a  b]\n",
		},
	}
	p := syntax.NewParser()
	for _, tc := range tests {
		for _, mode := range []struct {
			compat expand.Compat
			want   string
		}{
			{expand.CompatBash, tc.bash},
			{expand.CompatPOSIX, tc.posx},
		} {
			t.Run("", func(t *testing.T) {
				file := parse(t, p, tc.in)
				var cb concBuffer
				r, err := New(
					Env(expand.ListEnviron()),
					StdIO(nil, &cb, &cb),
					CompatMode(mode.compat),
				)
				qt.Assert(t, qt.IsNil(err))
				if err := r.Run(context.Background(), file); err != nil {
					cb.Write([]byte(err.Error()))
				}
				qt.Assert(t, qt.Equals(cb.String(), mode.want), qt.Commentf("%s in %q", mode.compat.String(), tc.in))
			})
		}
	}
}

func TestRunnerOpts(t *testing.T) {
	t.Parallel()
	opts := func(list ...RunnerOption) []RunnerOption {
		return list
	}
	cases := []struct {
		opts     []RunnerOption
		in, want string
	}{
		{
			nil,
			"echo $#",
			"0\n",
		},
		{
			opts(Env(expand.ListEnviron("a=b"))),
			"echo $a",
			"b\n",
		},
		{
			opts(Env(expand.ListEnviron("A=b", "A=c"))),
			"echo $A",
			"c\n",
		},
		{
			opts(Params("foo")),
			"echo $@",
			"foo\n",
		},
		{
			opts(Env(expand.ListEnviron()), Params("-u", "--", "foo", "bar")),
			"echo $2 $x",
			"x: unbound variable\nexit status 1",
		},
		{
			opts(Env(expand.ListEnviron()), Params("-u", "+u")),
			"echo [$x]",
			"[]\n",
		},
		{
			opts(Params("-", "a")),
			"echo $1",
			"a\n",
		},
		{
			opts(Params("foo"), Params("-u")),
			"echo $1",
			"foo\n",
		},
		{
			opts(Env(expand.ListEnviron()), CompatMode(expand.CompatPOSIX)),
			"echo ${x:?}",
			"x: parameter null or not set\nexit status 2",
		},
	}
	p := syntax.NewParser()
	for _, c := range cases {
		t.Run("", func(t *testing.T) {
			file := parse(t, p, c.in)
			var cb concBuffer
			r, err := New(append(c.opts, StdIO(nil, &cb, &cb))...)
			if err != nil {
				t.Fatal(err)
			}
			if err := r.Run(context.Background(), file); err != nil {
				cb.Write([]byte(err.Error()))
			}
			if got := cb.String(); got != c.want {
				t.Fatalf("wrong output in %q:\nwant: %q\ngot:  %q",
					c.in, c.want, got)
			}
		})
	}
}

func TestRunnerOptsErrors(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		args []string
		want string
	}{
		{[]string{"-z"}, `invalid option: "-z"`},
		{[]string{"+"}, `invalid option: "\+"`},
		{[]string{"-o", "errexit"}, `invalid option: "errexit"`},
	} {
		_, err := New(Params(tc.args...))
		qt.Assert(t, qt.ErrorMatches(err, tc.want), qt.Commentf("%q", tc.args))
	}
}

func TestRunnerExecHandler(t *testing.T) {
	t.Parallel()
	var got []string
	handler := func(ctx context.Context, args []string) error {
		hc := HandlerCtx(ctx)
		got = append(got, fmt.Sprintf("%s a=%s", strings.Join(args, " "), hc.Env.Get("a").String()))
		if args[0] == "fail" {
			return ExitStatus(3)
		}
		return nil
	}
	file := parse(t, nil, "a=global; a=local cmd x; cmd y; fail || echo $?; a=${b:=set} cmd $b")
	var cb concBuffer
	r, err := New(
		Env(expand.ListEnviron()),
		StdIO(nil, &cb, &cb),
		ExecHandler(handler),
	)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(r.Run(context.Background(), file)))
	qt.Assert(t, qt.DeepEquals(got, []string{
		"cmd x a=local",
		"cmd y a=global",
		"fail a=global",
		"cmd a=set",
	}))
	qt.Assert(t, qt.Equals(cb.String(), "3\n"))
	qt.Assert(t, qt.DeepEquals(r.Vars(), []string{"IFS= \t\n", "a=global", "b=set"}))
}

func TestRunnerHandlerFatal(t *testing.T) {
	t.Parallel()
	errFatal := errors.New("handler failed")
	handler := func(ctx context.Context, args []string) error {
		return errFatal
	}
	for _, src := range []string{
		"foo; echo no",
		"echo $(foo); echo no",
		"(foo); echo no",
	} {
		var cb concBuffer
		r, err := New(Env(expand.ListEnviron()), StdIO(nil, &cb, &cb), ExecHandler(handler))
		qt.Assert(t, qt.IsNil(err))
		err = r.Run(context.Background(), parse(t, nil, src))
		qt.Assert(t, qt.ErrorIs(err, errFatal), qt.Commentf("%q", src))
		qt.Assert(t, qt.IsTrue(r.Exited()))
		qt.Assert(t, qt.Equals(cb.String(), ""), qt.Commentf("%q", src))
	}
}

func TestRunnerContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, _ := New(Env(expand.ListEnviron()))
	err := r.Run(ctx, parse(t, nil, "echo foo"))
	qt.Assert(t, qt.ErrorIs(err, context.Canceled))
}

func TestRunnerExited(t *testing.T) {
	t.Parallel()
	p := syntax.NewParser()
	for _, tc := range []struct {
		src         string
		interactive bool
		exited      bool
		status      uint8
	}{
		{"true", false, false, 0},
		{"false", false, false, 1},
		{"exit 2", false, true, 2},
		{"exit 2", true, true, 2},
		{"echo ${a?}", false, true, 1},
		{"echo ${a?}", true, false, 1},
		{"(exit 2)", false, false, 2},
	} {
		r, err := New(Env(expand.ListEnviron()), Interactive(tc.interactive))
		qt.Assert(t, qt.IsNil(err))
		err = r.Run(context.Background(), parse(t, p, tc.src))
		status, _ := IsExitStatus(err)
		qt.Check(t, qt.Equals(status, tc.status), qt.Commentf("%q", tc.src))
		qt.Check(t, qt.Equals(r.Exited(), tc.exited), qt.Commentf("%q", tc.src))
	}
}

func TestRunnerIncremental(t *testing.T) {
	t.Parallel()
	var cb concBuffer
	r, _ := New(Env(expand.ListEnviron()), StdIO(nil, &cb, &cb), Interactive(true))
	p := syntax.NewParser()
	for _, line := range []string{
		"i=0",
		"echo ${u:-$((i++))} $i",
		"echo ${v:?missing}; echo no",
		"echo $? $i",
	} {
		r.Run(context.Background(), parse(t, p, line))
		qt.Assert(t, qt.IsFalse(r.Exited()), qt.Commentf("%q", line))
	}
	qt.Assert(t, qt.Equals(cb.String(), "0 1\nv: missing\n1 1\n"))
}

func TestRunnerReset(t *testing.T) {
	t.Parallel()
	var cb concBuffer
	r, _ := New(
		Env(expand.ListEnviron("a=env")),
		Params("-u", "--", "p1"),
		StdIO(nil, &cb, &cb),
	)
	ctx := context.Background()
	qt.Assert(t, qt.IsNil(r.Run(ctx, parse(t, nil, "a=new; set +u -- p2; echo $a $1 $x"))))
	r.Reset()
	err := r.Run(ctx, parse(t, nil, "echo $a $1; echo $x"))
	qt.Assert(t, qt.ErrorMatches(err, "exit status 1"))
	qt.Assert(t, qt.Equals(cb.String(), "new p2\nenv p1\nx: unbound variable\n"))
}

func TestRunnerSubshell(t *testing.T) {
	t.Parallel()
	r, _ := New(Env(expand.ListEnviron()))
	ctx := context.Background()
	qt.Assert(t, qt.IsNil(r.Run(ctx, parse(t, nil, "a=parent; b=parent"))))

	r2 := r.Subshell()
	var cb concBuffer
	StdIO(nil, &cb, &cb)(r2)
	qt.Assert(t, qt.IsNil(r2.Run(ctx, parse(t, nil, "a=child; echo ${c:=child}"))))
	qt.Assert(t, qt.IsNil(r.Run(ctx, parse(t, nil, "b=changed"))))
	qt.Assert(t, qt.IsNil(r2.Run(ctx, parse(t, nil, "echo $a $b $c"))))
	qt.Assert(t, qt.Equals(cb.String(), "child\nchild parent child\n"))
	qt.Assert(t, qt.DeepEquals(r.Vars(), []string{"IFS= \t\n", "a=parent", "b=changed"}))
}

func TestRunnerAltNodes(t *testing.T) {
	t.Parallel()
	file := parse(t, nil, "echo foo")
	var cb concBuffer
	r, _ := New(Env(expand.ListEnviron()), StdIO(nil, &cb, &cb))
	ctx := context.Background()
	qt.Assert(t, qt.IsNil(r.Run(ctx, file.Stmts[0])))
	qt.Assert(t, qt.IsNil(r.Run(ctx, file.Stmts[0].Cmd)))
	qt.Assert(t, qt.Equals(cb.String(), "foo\nfoo\n"))
	qt.Assert(t, qt.ErrorMatches(r.Run(ctx, &syntax.Lit{}), "node can only be File, Stmt, or Command: .*"))
}

func TestRunnerFilename(t *testing.T) {
	t.Parallel()
	file, err := syntax.NewParser().Parse(strings.NewReader("echo $0"), "script.sh")
	qt.Assert(t, qt.IsNil(err))
	var cb concBuffer
	r, _ := New(Env(expand.ListEnviron()), StdIO(nil, &cb, &cb))
	qt.Assert(t, qt.IsNil(r.Run(context.Background(), file)))
	qt.Assert(t, qt.Equals(cb.String(), "script.sh\n"))
}

func TestRunnerEnvNoModify(t *testing.T) {
	t.Parallel()
	env := expand.ListEnviron("one=1", "two=2")
	file := parse(t, nil, `echo -n "$one $two; "; one=x; unset two; echo ${three:=3}`)

	var cb concBuffer
	r, _ := New(Env(env), StdIO(nil, &cb, &cb))
	for i := 0; i < 3; i++ {
		r.Reset()
		err := r.Run(context.Background(), file)
		qt.Assert(t, qt.IsNil(err))
	}
	qt.Assert(t, qt.Equals(cb.String(), strings.Repeat("1 2; 3\n", 3)))
	qt.Assert(t, qt.IsFalse(env.Get("three").IsSet()))
}
