// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"fmt"

	"mvdan.cc/parexp/syntax"
)

// FatalError is implemented by expansion errors which must abort the shell
// running the expansion, along with the exit status it should exit with.
type FatalError interface {
	error
	ExitStatus() uint8
}

// UnsetParameterError is returned when a parameter is required to be set
// and non-empty, such as in "${name:?message}", or when an unset parameter is
// expanded while the nounset option is enabled.
type UnsetParameterError struct {
	Node *syntax.ParamExp

	// Name is the parameter as written, such as "foo" or "foo[1]".
	Name    string
	Message string

	// Status is the exit status the shell should exit with.
	Status uint8
}

func (u *UnsetParameterError) Error() string {
	return u.Name + ": " + u.Message
}

func (u *UnsetParameterError) ExitStatus() uint8 {
	if u.Status == 0 {
		return 1
	}
	return u.Status
}

// InvalidAssignError is returned when an expansion such as "${name:=word}"
// needs to assign to a parameter which cannot be assigned, like "$1" or
// "${foo[@]}". It is returned before the word is evaluated.
type InvalidAssignError struct {
	Node *syntax.ParamExp

	Name  string
	Index string // "@" or "*", if non-empty
}

func (e *InvalidAssignError) Error() string {
	if e.Index != "" {
		return fmt.Sprintf("%s[%s]: cannot assign in this way", e.Name, e.Index)
	}
	return fmt.Sprintf("$%s: cannot assign in this way", e.Name)
}

func (e *InvalidAssignError) ExitStatus() uint8 { return 1 }

// UnexpectedCommandError is returned if a command substitution is encountered
// when Config.CmdSubst is nil.
type UnexpectedCommandError struct {
	Node *syntax.CmdSubst
}

func (u UnexpectedCommandError) Error() string {
	return fmt.Sprintf("unexpected command substitution at %s", u.Node.Pos())
}
