// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package shell contains high-level features that use the syntax and expand
// packages, such as expanding a string like a shell would.
package shell

import (
	"os"
	"strings"

	"mvdan.cc/parexp/expand"
	"mvdan.cc/parexp/syntax"
)

// Expand performs shell expansion on s as if it were within double quotes,
// using env to resolve variables. This includes parameter expansions like
// $var, ${var:-default} and ${#var}, as well as arithmetic expansions like
// $((var + 3)).
//
// If env is nil, the current environment variables are used. Empty variables
// are treated as unset; to support variables which are set but empty, use
// the expand package directly.
//
// Command substitutions like $(echo foo) aren't supported to avoid running
// arbitrary code, and neither are assignments like ${var:=default}, as env
// is read-only. To support those, use an interpreter.
//
// An error will be reported if the input string had invalid syntax.
func Expand(s string, env func(string) string) (string, error) {
	p := syntax.NewParser()
	word, err := p.Document(strings.NewReader(s))
	if err != nil {
		return "", err
	}
	if err := noCmdSubst(word); err != nil {
		return "", err
	}
	return expand.Document(config(env), word)
}

// Fields performs shell expansion on s as if it were a command's arguments,
// using env to resolve variables. It is similar to Expand, but includes
// field splitting and quote removal.
//
// If env is nil, the current environment variables are used. Empty variables
// are treated as unset; to support variables which are set but empty, use
// the expand package directly.
//
// An error will be reported if the input string had invalid syntax.
func Fields(s string, env func(string) string) ([]string, error) {
	p := syntax.NewParser()
	words, err := p.Words(strings.NewReader(s))
	if err != nil {
		return nil, err
	}
	for _, word := range words {
		if err := noCmdSubst(word); err != nil {
			return nil, err
		}
	}
	return expand.Fields(config(env), words...)
}

func config(env func(string) string) *expand.Config {
	if env == nil {
		env = os.Getenv
	}
	return &expand.Config{Env: expand.FuncEnviron(env)}
}

// noCmdSubst rejects any command substitution in word, even one which would
// not be evaluated, like the one in "${HOME:-$(cmd)}".
func noCmdSubst(word *syntax.Word) error {
	var err error
	syntax.Walk(word, func(node syntax.Node) bool {
		if cs, ok := node.(*syntax.CmdSubst); ok && err == nil {
			err = expand.UnexpectedCommandError{Node: cs}
		}
		return err == nil
	})
	return err
}
