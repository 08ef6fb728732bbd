// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"strconv"
	"strings"

	"mvdan.cc/parexp/expand"
	"mvdan.cc/parexp/syntax"
)

// IsBuiltin returns true if the given word is a builtin command.
func IsBuiltin(name string) bool {
	switch name {
	case "true", ":", "false", "exit", "set", "shift", "unset",
		"echo", "printf", "readonly":
		return true
	}
	return false
}

func (r *Runner) builtin(ctx context.Context, pos syntax.Pos, name string, args []string) exitStatus {
	var exit exitStatus
	switch name {
	case "true", ":":
	case "false":
		exit.code = 1
	case "exit":
		switch len(args) {
		case 0:
			exit = r.lastExit
		case 1:
			n, err := strconv.Atoi(args[0])
			if err != nil {
				r.errf("exit: %s: numeric argument required\n", args[0])
				exit.code = 2
			} else {
				exit.code = uint8(n)
			}
		default:
			r.errf("exit: too many arguments\n")
			exit.code = 1
			return exit
		}
		exit.exiting = true
	case "set":
		if len(args) == 0 {
			r.writeEnv.Each(func(name string, vr expand.Variable) bool {
				if vr.IsSet() {
					r.outf("%s=%s\n", name, varString(vr))
				}
				return true
			})
			break
		}
		if err := Params(args...)(r); err != nil {
			r.errf("set: %v\n", err)
			exit.code = 2
			return exit
		}
		r.updateExpandOpts()
	case "shift":
		n := 1
		switch len(args) {
		case 0:
		case 1:
			if n2, err := strconv.Atoi(args[0]); err == nil && n2 >= 0 {
				n = n2
				break
			}
			fallthrough
		default:
			r.errf("usage: shift [n]\n")
			exit.code = 2
			return exit
		}
		if n > len(r.Params) {
			exit.code = 1
			break
		}
		r.Params = r.Params[n:]
	case "unset":
		fp := flagParser{remaining: args}
		for fp.more() {
			switch flag := fp.flag(); flag {
			case "-v":
			default:
				r.errf("unset: invalid option: %q\n", flag)
				exit.code = 2
				return exit
			}
		}
		for _, arg := range fp.args() {
			if err := r.delVar(arg); err != nil {
				r.errf("unset: %v\n", err)
				exit.code = 1
			}
		}
	case "readonly":
		if len(args) == 0 || (len(args) == 1 && args[0] == "-p") {
			r.writeEnv.Each(func(name string, vr expand.Variable) bool {
				if !vr.ReadOnly {
					return true
				}
				if vr.IsSet() {
					r.outf("readonly %s=%q\n", name, varString(vr))
				} else {
					r.outf("readonly %s\n", name)
				}
				return true
			})
			break
		}
		for _, arg := range args {
			name, value, hasValue := strings.Cut(arg, "=")
			if !syntax.ValidName(name) {
				r.errf("readonly: %q: not a valid identifier\n", name)
				exit.code = 1
				continue
			}
			if hasValue {
				if err := r.setVar(name, stringVar(value)); err != nil {
					r.errf("readonly: %v\n", err)
					exit.code = 1
					continue
				}
			}
			vr := r.writeEnv.Get(name)
			vr.ReadOnly = true
			r.writeEnv.Set(name, vr)
		}
	case "echo":
		newline, escapes := true, false
	echoOpts:
		for len(args) > 0 {
			switch args[0] {
			case "-n":
				newline = false
			case "-e":
				escapes = true
			case "-E": // default
			default:
				break echoOpts
			}
			args = args[1:]
		}
		for i, arg := range args {
			if i > 0 {
				r.out(" ")
			}
			if escapes {
				arg, _, _ = expand.Format(r.ecfg, arg, nil)
			}
			r.out(arg)
		}
		if newline {
			r.out("\n")
		}
	case "printf":
		if len(args) == 0 {
			r.errf("usage: printf format [arguments]\n")
			exit.code = 2
			return exit
		}
		format, args := args[0], args[1:]
		for {
			s, n, err := expand.Format(r.ecfg, format, args)
			if err != nil {
				r.errf("printf: %v\n", err)
				exit.code = 1
				return exit
			}
			r.out(s)
			args = args[n:]
			if n == 0 || len(args) == 0 {
				break
			}
		}
	default:
		panic("unhandled builtin: " + name)
	}
	return exit
}

// flagParser is used to parse builtin flags.
//
// It's similar to the getopts implementation, but with some key differences.
// First, the API is designed for Go. Second, it supports "-" to signal the
// end of the flags, used by "set". Third, it supports "+" flags, also used
// by "set".
type flagParser struct {
	current   string
	remaining []string
}

func (p *flagParser) more() bool {
	if p.current != "" {
		// We're still parsing part of "-ab".
		return true
	}
	if len(p.remaining) == 0 {
		// Nothing left.
		p.remaining = nil
		return false
	}
	arg := p.remaining[0]
	if arg == "--" {
		// We explicitly stop parsing flags.
		p.remaining = p.remaining[1:]
		return false
	}
	if len(arg) == 0 || (arg[0] != '-' && arg[0] != '+') {
		// The next argument is not a flag.
		return false
	}
	// More flags to come.
	return true
}

func (p *flagParser) flag() string {
	arg := p.current
	if arg == "" {
		arg = p.remaining[0]
		p.remaining = p.remaining[1:]
	} else {
		p.current = ""
	}
	if len(arg) > 2 {
		// We have "-ab", so return "-a" and keep "-b".
		p.current = arg[:1] + arg[2:]
		arg = arg[:2]
	}
	return arg
}

func (p *flagParser) value() string {
	if len(p.remaining) == 0 {
		return ""
	}
	arg := p.remaining[0]
	p.remaining = p.remaining[1:]
	return arg
}

func (p *flagParser) args() []string { return p.remaining }
