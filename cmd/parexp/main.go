// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// parexp runs shell programs built around parameter expansions such as
// "${name:-default}" and "${name:?message}".
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/renameio/v2"
	"github.com/pkg/diff"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"mvdan.cc/parexp/expand"
	"mvdan.cc/parexp/interp"
	"mvdan.cc/parexp/syntax"
)

var (
	command    = flag.String("c", "", "command to be executed")
	configPath = flag.String("config", "", "YAML file with default settings")
	compare    = flag.Bool("compare", false, "run in both compatibility modes and diff the outputs")
	dumpEnv    = flag.String("dump-env", "", "write the final variables to a file")
	printAST   = flag.Bool("ast", false, "print the syntax tree and exit")

	compat expand.Compat

	parser = syntax.NewParser()

	osFs afero.Fs = afero.NewOsFs()

	errColor = color.New(color.FgRed, color.Bold)
)

func init() {
	flag.Var(&compat, "compat", "compatibility mode: bash or posix")
}

func main() {
	os.Exit(main1())
}

func main1() int {
	flag.Parse()
	color.NoColor = !term.IsTerminal(int(os.Stderr.Fd()))
	err := runAll()
	if err == nil {
		return 0
	}
	if status, ok := interp.IsExitStatus(err); ok {
		return int(status)
	}
	errColor.Fprintln(os.Stderr, err)
	return 1
}

// program is a parsed source along with the parameters it runs with.
type program struct {
	name   string
	src    []byte
	params []string
}

func runAll() error {
	cfg := &config{}
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(osFs, *configPath); err != nil {
			return err
		}
	}
	mode, err := cfg.compat()
	if err != nil {
		return err
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "compat" {
			mode = compat
		}
	})

	var prog program
	args := flag.Args()
	switch {
	case *command != "":
		prog = program{src: []byte(*command), params: args}
	case len(args) > 0:
		src, err := afero.ReadFile(osFs, args[0])
		if err != nil {
			return err
		}
		prog = program{name: args[0], src: src, params: args[1:]}
	case term.IsTerminal(int(os.Stdin.Fd())) && !*printAST && !*compare:
		r, err := newRunner(cfg, mode, nil, interp.Interactive(true),
			interp.StdIO(os.Stdin, os.Stdout, os.Stderr))
		if err != nil {
			return err
		}
		return interactive(r)
	default:
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		prog = program{src: src, params: args}
	}

	file, err := parser.Parse(bytes.NewReader(prog.src), prog.name)
	if err != nil {
		return err
	}
	if *printAST {
		return syntax.DebugPrint(os.Stdout, file)
	}
	if *compare {
		return compareModes(cfg, file, prog.params)
	}
	r, err := newRunner(cfg, mode, prog.params,
		interp.StdIO(os.Stdin, os.Stdout, os.Stderr))
	if err != nil {
		return err
	}
	runErr := r.Run(context.Background(), file)
	if *dumpEnv != "" {
		if err := writeVars(*dumpEnv, r); err != nil {
			return err
		}
	}
	return runErr
}

// newRunner creates a runner following the configuration. The parameters
// from the command line replace the configured ones if there are any.
func newRunner(cfg *config, mode expand.Compat, params []string, opts ...interp.RunnerOption) (*interp.Runner, error) {
	if len(params) == 0 {
		params = cfg.Params
	}
	setArgs := []string{"+u"}
	if cfg.Nounset {
		setArgs[0] = "-u"
	}
	setArgs = append(setArgs, "--")
	setArgs = append(setArgs, params...)
	opts = append([]interp.RunnerOption{
		interp.Env(expand.ListEnviron(cfg.environ(os.Environ())...)),
		interp.CompatMode(mode),
		interp.Params(setArgs...),
	}, opts...)
	r, err := interp.New(opts...)
	if err != nil {
		return nil, err
	}
	r.Reset()
	if len(cfg.Readonly) > 0 {
		// the names are validated, so they need no quoting
		src := "readonly " + strings.Join(cfg.Readonly, " ")
		file, err := syntax.NewParser().Parse(strings.NewReader(src), "")
		if err != nil {
			return nil, err
		}
		if err := r.Run(context.Background(), file); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// compareModes runs a program once per compatibility mode, concurrently, and
// prints a unified diff of the two transcripts. The returned error is an
// exit status of 1 if the transcripts differ.
func compareModes(cfg *config, file *syntax.File, params []string) error {
	modes := [...]expand.Compat{expand.CompatBash, expand.CompatPOSIX}
	var outs [len(modes)]bytes.Buffer
	var g errgroup.Group
	for i, mode := range modes {
		i, mode := i, mode
		g.Go(func() error {
			out := &outs[i]
			r, err := newRunner(cfg, mode, params, interp.StdIO(nil, out, out))
			if err != nil {
				return err
			}
			err = r.Run(context.Background(), file)
			status, ok := interp.IsExitStatus(err)
			if err != nil && !ok {
				return err
			}
			fmt.Fprintf(out, "# status: %d\n", status)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if bytes.Equal(outs[0].Bytes(), outs[1].Bytes()) {
		return nil
	}
	if err := diff.Text(modes[0].String(), modes[1].String(),
		outs[0].Bytes(), outs[1].Bytes(), os.Stdout); err != nil {
		return fmt.Errorf("computing diff: %w", err)
	}
	return interp.ExitStatus(1)
}

// writeVars replaces the file at path with the runner's variables, one
// "name=value" pair per line.
func writeVars(path string, r *interp.Runner) error {
	var buf bytes.Buffer
	for _, kv := range r.Vars() {
		buf.WriteString(kv)
		buf.WriteByte('\n')
	}
	return renameio.WriteFile(path, buf.Bytes(), 0o666)
}

// interactive reads commands line by line, prompting with "$ ". Lines which
// leave a quote or parenthesis open are joined with the following ones.
func interactive(r *interp.Runner) error {
	return interactiveLoop(r, bufio.NewReader(os.Stdin), os.Stdout, os.Stderr)
}

func interactiveLoop(r *interp.Runner, in *bufio.Reader, stdout, stderr io.Writer) error {
	parser := syntax.NewParser()
	fmt.Fprint(stdout, "$ ")
	var pending strings.Builder
	var runErr error
	for {
		line, err := in.ReadString('\n')
		pending.WriteString(line)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		atEOF := err != nil
		if pending.Len() == 0 && atEOF {
			return runErr
		}
		file, perr := parser.Parse(strings.NewReader(pending.String()), "")
		switch {
		case perr == nil:
			pending.Reset()
			runErr = r.Run(context.Background(), file)
			if _, ok := interp.IsExitStatus(runErr); !ok && runErr != nil {
				return runErr
			}
			if r.Exited() {
				return runErr
			}
		case syntax.IsIncomplete(perr) && !atEOF:
			fmt.Fprint(stdout, "> ")
			continue
		default:
			pending.Reset()
			errColor.Fprintln(stderr, perr)
			runErr = interp.ExitStatus(2)
		}
		if atEOF {
			return runErr
		}
		fmt.Fprint(stdout, "$ ")
	}
}
