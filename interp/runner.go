// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"errors"
	"fmt"
	"io"

	"mvdan.cc/parexp/expand"
	"mvdan.cc/parexp/syntax"
)

func (r *Runner) fillExpandConfig(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	r.ectx = ctx
	r.ecfg = &expand.Config{
		Env: expandEnv{r},
		CmdSubst: func(w io.Writer, cs *syntax.CmdSubst) error {
			if len(cs.Stmts) == 0 { // nothing to do
				return nil
			}
			r2 := r.subshell(false)
			r2.stdout = w
			r2.stmts(ctx, cs.Stmts)
			r2.exit.exiting = false // subshells don't exit the parent shell
			r2.exit.expandErr = false
			r.lastExpandExit = r2.exit
			if r2.exit.fatalExit {
				return runnerFatal{r2.exit.err} // surface fatal errors immediately
			}
			return nil
		},
	}
	r.updateExpandOpts()
}

func (r *Runner) updateExpandOpts() {
	r.ecfg.NoUnset = r.opts[optNoUnset]
	r.ecfg.Compat = r.compat
}

// expandErr reports an error from an expansion. The current command is not
// run. Fatal errors, like the ones from "${name?}", also make the shell exit.
func (r *Runner) expandErr(err error) {
	if err == nil {
		return
	}
	var rerr runnerFatal
	if errors.As(err, &rerr) {
		// the error comes from a handler in a command substitution
		r.exit.fatal(rerr.err)
		return
	}
	fmt.Fprintln(r.stderr, err.Error())
	r.exit.code = 1
	var fatal expand.FatalError
	if errors.As(err, &fatal) {
		r.exit.code = fatal.ExitStatus()
		r.exit.exiting = true
		r.exit.expandErr = true
	}
}

// runnerFatal wraps a Go error which must halt the runner, so that it can
// cross the expand package without being printed as a shell error.
type runnerFatal struct{ err error }

func (e runnerFatal) Error() string { return e.err.Error() }
func (e runnerFatal) Unwrap() error { return e.err }

func (r *Runner) arithm(expr syntax.ArithmExpr) int {
	n, err := expand.Arithm(r.ecfg, expr)
	r.expandErr(err)
	return n
}

func (r *Runner) fields(words ...*syntax.Word) []string {
	strs, err := expand.Fields(r.ecfg, words...)
	r.expandErr(err)
	return strs
}

func (r *Runner) literal(word *syntax.Word) string {
	str, err := expand.Literal(r.ecfg, word)
	r.expandErr(err)
	return str
}

// expandEnv exposes [Runner]'s variables to the expand package.
type expandEnv struct {
	r *Runner
}

var _ expand.WriteEnviron = expandEnv{}

func (e expandEnv) Get(name string) expand.Variable {
	return e.r.lookupVar(name)
}

func (e expandEnv) Set(name string, vr expand.Variable) error {
	return e.r.setVar(name, vr)
}

func (e expandEnv) Each(fn func(name string, vr expand.Variable) bool) {
	e.r.writeEnv.Each(fn)
}

func (r *Runner) handlerCtx(ctx context.Context, pos syntax.Pos) context.Context {
	hc := HandlerContext{
		Env:    newOverlayEnviron(r.writeEnv, false),
		Pos:    pos,
		Stdin:  r.stdin,
		Stdout: r.stdout,
		Stderr: r.stderr,
	}
	return context.WithValue(ctx, handlerCtxKey{}, hc)
}

func (r *Runner) out(s string) {
	io.WriteString(r.stdout, s)
}

func (r *Runner) outf(format string, a ...any) {
	fmt.Fprintf(r.stdout, format, a...)
}

func (r *Runner) errf(format string, a ...any) {
	fmt.Fprintf(r.stderr, format, a...)
}

func (r *Runner) stop(ctx context.Context) bool {
	if r.exit.exiting {
		return true
	}
	if err := ctx.Err(); err != nil {
		r.exit.fatal(err)
		return true
	}
	return false
}

func (r *Runner) stmt(ctx context.Context, st *syntax.Stmt) {
	if r.stop(ctx) {
		return
	}
	r.exit = exitStatus{}
	r.cmd(ctx, st.Cmd)
	r.lastExit = r.exit
}

func (r *Runner) stmts(ctx context.Context, stmts []*syntax.Stmt) {
	for _, stmt := range stmts {
		r.stmt(ctx, stmt)
	}
}

func (r *Runner) cmd(ctx context.Context, cm syntax.Command) {
	if r.stop(ctx) {
		return
	}
	switch cm := cm.(type) {
	case *syntax.Subshell:
		r2 := r.subshell(false)
		r2.stmts(ctx, cm.Stmts)
		r2.exit.exiting = r2.exit.fatalExit // subshells don't exit the parent shell
		r2.exit.expandErr = false
		r.exit = r2.exit
	case *syntax.CallExpr:
		r.lastExpandExit = exitStatus{}
		fields := r.fields(cm.Args...)
		if !r.exit.ok() {
			break
		}
		if len(fields) == 0 {
			for _, as := range cm.Assigns {
				if err := r.assignVar(as); err != nil {
					r.errf("%v\n", err)
					r.exit.code = 1
				}
				if !r.exit.ok() {
					return
				}
			}
			// If interpreting the last expansion like $(foo) failed,
			// and the expansion and assignments otherwise succeeded,
			// we need to surface that last exit code.
			if r.exit.ok() {
				r.exit = r.lastExpandExit
			}
			break
		}

		type restoreVar struct {
			name string
			vr   expand.Variable
		}
		var restores []restoreVar

		for _, as := range cm.Assigns {
			name := as.Name.Value
			prev := r.writeEnv.Get(name)
			if err := r.assignVar(as); err != nil {
				r.errf("%v\n", err)
				r.exit.code = 1
			}
			if !r.exit.ok() {
				break
			}
			restores = append(restores, restoreVar{name, prev})
		}
		if r.exit.ok() {
			r.call(ctx, cm.Args[0].Pos(), fields)
		}
		for _, restore := range restores {
			r.writeEnv.Set(restore.name, restore.vr)
		}
	case *syntax.BinaryCmd:
		switch cm.Op {
		case syntax.AndStmt, syntax.OrStmt:
			r.stmt(ctx, cm.X)
			if r.exit.ok() == (cm.Op == syntax.AndStmt) {
				r.stmt(ctx, cm.Y)
			}
		default:
			panic(fmt.Sprintf("unhandled binary cmd op: %v", cm.Op))
		}
	default:
		panic(fmt.Sprintf("unhandled command node: %T", cm))
	}
}

func (r *Runner) call(ctx context.Context, pos syntax.Pos, args []string) {
	if r.stop(ctx) {
		return
	}
	name := args[0]
	if IsBuiltin(name) {
		r.exit = r.builtin(ctx, pos, name, args[1:])
		return
	}
	r.exec(ctx, pos, args)
}

func (r *Runner) exec(ctx context.Context, pos syntax.Pos, args []string) {
	r.exit.fromHandlerError(r.execHandler(r.handlerCtx(ctx, pos), args))
}
