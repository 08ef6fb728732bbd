// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package interp implements an interpreter for the subset of shell programs
// understood by the syntax package: simple commands, assignments, lists and
// subshells, with full support for parameter expansions.
//
// The interpreter generally aims to behave like Bash. Where shells disagree
// on the behavior of parameter expansions, see [CompatMode].
package interp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/parexp/expand"
	"mvdan.cc/parexp/syntax"
)

// A Runner interprets shell programs. It can be reused, but it is not safe for
// concurrent use. Use [New] to build a new Runner.
//
// Runner's exported fields are meant to be configured via [RunnerOption];
// once a Runner has been created, the fields should be treated as read-only.
type Runner struct {
	// Env specifies the initial environment for the interpreter, which must
	// not be nil. It can only be set via [Env].
	Env expand.Environ

	// writeEnv overlays [Runner.Env] so that we can write environment variables
	// as an overlay.
	writeEnv *overlayEnviron

	// Params are the current shell parameters, accessible via the $@/$*
	// family of vars. It can only be set via [Params].
	Params []string

	// execHandler is responsible for executing programs. It must not be nil.
	execHandler ExecHandlerFunc

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	ecfg *expand.Config
	ectx context.Context // just so that Runner.Subshell can use it again

	// didReset remembers whether the runner has ever been reset. This is
	// used so that Reset is automatically called when running any program
	// or node for the first time on a Runner.
	didReset bool

	usedNew bool

	filename string // only if Node was a File

	interactive bool

	compat expand.Compat

	// The current and last exit statuses. They can only be different if
	// the interpreter is in the middle of running a statement. In that
	// scenario, 'exit' is the status for the current statement being run,
	// and 'lastExit' corresponds to the previous statement that was run.
	exit     exitStatus
	lastExit exitStatus

	lastExpandExit exitStatus // used to surface exit statuses while expanding fields

	opts runnerOpts

	origParams []string
	origOpts   runnerOpts
	origStdin  io.Reader
	origStdout io.Writer
	origStderr io.Writer
}

// exitStatus holds the state of the shell after running one command.
// Beyond the exit status code, it also holds whether the shell should exit,
// as well as any Go error values that should be given back to the user.
type exitStatus struct {
	// code is the exit status code.
	code uint8

	exiting   bool // whether the current shell is exiting
	fatalExit bool // whether the current shell is exiting due to a fatal error; err below must not be nil
	expandErr bool // whether exiting is due to an expansion error such as ${name?}

	// err is a fatal error if fatalExit is true, or a non-fatal custom
	// error from a handler.
	err error
}

func (e *exitStatus) ok() bool { return e.code == 0 }

func (e *exitStatus) oneIf(b bool) {
	if b {
		e.code = 1
	} else {
		e.code = 0
	}
}

func (e *exitStatus) fatal(err error) {
	if !e.fatalExit && err != nil {
		e.exiting = true
		e.fatalExit = true
		e.err = err
		if e.code == 0 {
			e.code = 1
		}
	}
}

func (e *exitStatus) fromHandlerError(err error) {
	if err != nil {
		var es ExitStatus
		if errors.As(err, &es) {
			e.err = err
			e.code = uint8(es)
		} else {
			e.fatal(err) // handler's custom fatal error
		}
	} else {
		e.code = 0
	}
}

func (r *Runner) optByFlag(flag byte) *bool {
	for i, opt := range &shellOptsTable {
		if opt.flag == flag {
			return &r.opts[i]
		}
	}
	return nil
}

// optByName returns the matching runner's option, or nil.
func (r *Runner) optByName(name string) *bool {
	for i, opt := range &shellOptsTable {
		if opt.name == name {
			return &r.opts[i]
		}
	}
	return nil
}

type runnerOpts [len(shellOptsTable)]bool

type shellOpt struct {
	flag byte
	name string
}

var shellOptsTable = [...]shellOpt{
	{'u', "nounset"},
}

// To access the shell options array without a linear search when we
// know which option we're after at compile time.
const (
	optNoUnset = iota
)

// New creates a new Runner, applying a number of options. If applying any of
// the options results in an error, it is returned.
//
// Any unset options fall back to their defaults. For example, not supplying the
// environment falls back to the process's environment, and not supplying the
// standard output writer means that the output will be discarded.
func New(opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		usedNew: true,
		stdout:  io.Discard,
		stderr:  io.Discard,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	// Set the default fallbacks, if necessary.
	if r.Env == nil {
		Env(nil)(r)
	}
	if r.execHandler == nil {
		r.execHandler = DefaultExecHandler()
	}
	return r, nil
}

// RunnerOption can be passed to [New] to alter a [Runner]'s behaviour.
// It can also be applied directly on an existing Runner,
// such as interp.Params("-u")(runner).
// Note that options cannot be applied once Run or Reset have been called.
type RunnerOption func(*Runner) error

// Env sets the interpreter's environment. If nil, a copy of the current
// process's environment is used.
func Env(env expand.Environ) RunnerOption {
	return func(r *Runner) error {
		if env == nil {
			env = expand.ListEnviron(os.Environ()...)
		}
		r.Env = env
		return nil
	}
}

// Interactive configures the interpreter to behave like an interactive shell.
// Expansion errors such as "${name?}" then abort the current command line,
// but they do not exit the shell.
func Interactive(enabled bool) RunnerOption {
	return func(r *Runner) error {
		r.interactive = enabled
		return nil
	}
}

// CompatMode selects the behavior of parameter expansions on which shells
// disagree, such as the exit status of "${name?}". The default is
// [expand.CompatBash].
func CompatMode(compat expand.Compat) RunnerOption {
	return func(r *Runner) error {
		r.compat = compat
		return nil
	}
}

// Params populates the shell options and parameters. For example,
// Params("-u", "--", "foo") will set the "-u" option and the parameters
// ["foo"], and Params("+u") will unset the "-u" option and leave the
// parameters untouched.
//
// This is similar to what the interpreter's "set" builtin does.
func Params(args ...string) RunnerOption {
	return func(r *Runner) error {
		fp := flagParser{remaining: args}
		for fp.more() {
			flag := fp.flag()
			if flag == "-" {
				if args := fp.args(); len(args) > 0 {
					r.Params = args
				}
				return nil
			}
			if len(flag) < 2 {
				return fmt.Errorf("invalid option: %q", flag)
			}
			enable := flag[0] == '-'
			if flag[1] != 'o' {
				opt := r.optByFlag(flag[1])
				if opt == nil {
					return fmt.Errorf("invalid option: %q", flag)
				}
				*opt = enable
				continue
			}
			value := fp.value()
			if value == "" {
				for i, opt := range &shellOptsTable {
					status := "off"
					if r.opts[i] {
						status = "on"
					}
					r.outf("%s\t%s\n", opt.name, status)
				}
				continue
			}
			opt := r.optByName(value)
			if opt == nil {
				return fmt.Errorf("invalid option: %q", value)
			}
			*opt = enable
		}
		if args := fp.args(); args != nil {
			// If "--" wasn't given and there were zero arguments,
			// we don't want to override the current parameters.
			r.Params = args
		}
		return nil
	}
}

// ExecHandler sets the command execution handler, which replaces
// [DefaultExecHandler]. See [ExecHandlerFunc] for more info.
func ExecHandler(f ExecHandlerFunc) RunnerOption {
	return func(r *Runner) error {
		r.execHandler = f
		return nil
	}
}

// StdIO configures an interpreter's standard input, standard output, and
// standard error. If out or err are nil, they default to a writer that discards
// the output.
func StdIO(in io.Reader, out, err io.Writer) RunnerOption {
	return func(r *Runner) error {
		r.stdin = in
		if out == nil {
			out = io.Discard
		}
		r.stdout = out
		if err == nil {
			err = io.Discard
		}
		r.stderr = err
		return nil
	}
}

// Reset returns a runner to its initial state, right before the first call to
// Run or Reset.
//
// Typically, this function only needs to be called if a runner is reused to run
// multiple programs non-incrementally. Not calling Reset between each run will
// mean that the shell state will be kept, including variables and options.
func (r *Runner) Reset() {
	if !r.usedNew {
		panic("use interp.New to construct a Runner")
	}
	if !r.didReset {
		r.origParams = r.Params
		r.origOpts = r.opts
		r.origStdin = r.stdin
		r.origStdout = r.stdout
		r.origStderr = r.stderr
	}
	// reset the internal state
	*r = Runner{
		Env:         r.Env,
		execHandler: r.execHandler,
		interactive: r.interactive,
		compat:      r.compat,

		// These can be set by functions like [Params], but builtins can
		// overwrite them; reset the fields to whatever the constructor
		// set up.
		Params: r.origParams,
		opts:   r.origOpts,
		stdin:  r.origStdin,
		stdout: r.origStdout,
		stderr: r.origStderr,

		origParams: r.origParams,
		origOpts:   r.origOpts,
		origStdin:  r.origStdin,
		origStdout: r.origStdout,
		origStderr: r.origStderr,

		usedNew: r.usedNew,
	}
	r.writeEnv = newOverlayEnviron(r.Env, false)
	if !r.writeEnv.Get("IFS").IsSet() {
		r.setVarString("IFS", " \t\n")
	}
	r.didReset = true
}

// ExitStatus is a non-zero status code resulting from running a shell node.
type ExitStatus uint8

func (s ExitStatus) Error() string { return fmt.Sprintf("exit status %d", s) }

// IsExitStatus checks whether error contains an exit status and returns it.
func IsExitStatus(err error) (status uint8, ok bool) {
	var es ExitStatus
	if errors.As(err, &es) {
		return uint8(es), true
	}
	return 0, false
}

// Run interprets a node, which can be a [*syntax.File], [*syntax.Stmt], or
// [syntax.Command]. If a non-nil error is returned, it will typically contain
// a command's exit status, which can be retrieved with [IsExitStatus].
//
// Run can be called multiple times synchronously to interpret programs
// incrementally. To reuse a [Runner] without keeping the internal shell state,
// call Reset.
func (r *Runner) Run(ctx context.Context, node syntax.Node) error {
	if !r.didReset {
		r.Reset()
	}
	r.fillExpandConfig(ctx)
	r.exit = exitStatus{}
	r.filename = ""
	switch node := node.(type) {
	case *syntax.File:
		r.filename = node.Name
		r.stmts(ctx, node.Stmts)
	case *syntax.Stmt:
		r.stmt(ctx, node)
	case syntax.Command:
		r.cmd(ctx, node)
	default:
		return fmt.Errorf("node can only be File, Stmt, or Command: %T", node)
	}
	if r.interactive && r.exit.expandErr {
		// the command line was aborted, but the shell goes on
		r.exit.exiting = false
		r.exit.expandErr = false
		r.lastExit = r.exit
	}
	// Return the first of: a fatal error, a non-fatal handler error, or the exit code.
	if err := r.exit.err; err != nil {
		return err
	}
	if code := r.exit.code; code != 0 {
		return ExitStatus(code)
	}
	return nil
}

// Exited reports whether the last Run call should exit an entire shell. This
// can be triggered by the "exit" built-in command, or by a fatal expansion
// error like "${name?}", for example.
//
// Note that this state is overwritten at every Run call, so it should be
// checked immediately after each Run call.
func (r *Runner) Exited() bool {
	return r.exit.exiting
}

// Vars returns the names and values of the set variables in the shell,
// sorted by name, in the form "name=value". Indexed variables are listed
// with their elements joined by spaces.
func (r *Runner) Vars() []string {
	if !r.didReset {
		r.Reset()
	}
	var list []string
	r.writeEnv.Each(func(name string, vr expand.Variable) bool {
		if vr.IsSet() {
			list = append(list, name+"="+varString(vr))
		}
		return true
	})
	return list
}

func varString(vr expand.Variable) string {
	if vr.Kind == expand.Indexed {
		return strings.Join(vr.List, " ")
	}
	return vr.Str
}

// Subshell makes a copy of the given [Runner], suitable for use concurrently
// with the original. The copy will have the same environment, including
// variables and options, but they can all be modified without affecting the
// original.
//
// Subshell is not safe to use concurrently with [Run]. Orchestrating this is
// left up to the caller; no locking is performed.
//
// To replace e.g. stdin/out/err, do [StdIO](r.stdin, r.stdout, r.stderr)(r) on
// the copy.
func (r *Runner) Subshell() *Runner {
	return r.subshell(true)
}

// subshell is like [Runner.Subshell], but allows skipping some copies when
// creating subshells which will not be used concurrently with the parent
// shell, such as the ones for "$(cmd)" or "(cmd)".
func (r *Runner) subshell(background bool) *Runner {
	if !r.didReset {
		r.Reset()
	}
	// Keep in sync with the Runner type.
	r2 := &Runner{
		Env:         r.Env,
		Params:      r.Params,
		execHandler: r.execHandler,
		stdin:       r.stdin,
		stdout:      r.stdout,
		stderr:      r.stderr,
		filename:    r.filename,
		interactive: false, // subshells are never interactive
		compat:      r.compat,
		opts:        r.opts,
		usedNew:     r.usedNew,
		exit:        r.exit,
		lastExit:    r.lastExit,

		origStdout: r.origStdout,
	}
	r2.writeEnv = newOverlayEnviron(r.writeEnv, background)
	r2.fillExpandConfig(r.ectx)
	r2.didReset = true
	return r2
}
