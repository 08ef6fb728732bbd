// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"fmt"

	"mvdan.cc/parexp/syntax"
)

// ParamState describes whether a parameter is set, and if so, whether its
// value is empty.
type ParamState uint8

const (
	Unset ParamState = iota
	SetEmpty
	SetNonEmpty
)

func (s ParamState) String() string {
	switch s {
	case Unset:
		return "unset"
	case SetEmpty:
		return "set-empty"
	case SetNonEmpty:
		return "set-nonempty"
	}
	return fmt.Sprintf("ParamState(%d)", uint8(s))
}

// State reports the state of a variable. An indexed variable with no
// elements is unset, and one whose only element is empty is set but empty.
func (v Variable) State() ParamState {
	if !v.IsSet() {
		return Unset
	}
	switch v.Kind {
	case Indexed:
		return elemsState(v.List)
	case String:
		if v.Str == "" {
			return SetEmpty
		}
		return SetNonEmpty
	}
	return Unset
}

func elemsState(list []string) ParamState {
	switch {
	case len(list) == 0:
		return Unset
	case len(list) == 1 && list[0] == "":
		return SetEmpty
	}
	return SetNonEmpty
}

// Action is what a conditional parameter expansion does with its parameter
// and its word, as decided by Resolve.
type Action uint8

const (
	// UseOriginal expands to the parameter's own value.
	UseOriginal Action = iota
	// UseEmpty expands to nothing at all.
	UseEmpty
	// UseFallback expands to the expansion's word.
	UseFallback
	// AssignFallback assigns the expansion's word to the parameter, and
	// expands to the assigned value.
	AssignFallback
	// RaiseError fails with an error, using the expansion's word as the
	// message if it is not empty.
	RaiseError
)

var actionNames = [...]string{
	UseOriginal:    "UseOriginal",
	UseEmpty:       "UseEmpty",
	UseFallback:    "UseFallback",
	AssignFallback: "AssignFallback",
	RaiseError:     "RaiseError",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("Action(%d)", uint8(a))
}

// NeedsWord reports whether the action requires the expansion's word to be
// evaluated. The word must never be evaluated otherwise.
func (a Action) NeedsWord() bool {
	return a == UseFallback || a == AssignFallback || a == RaiseError
}

// Resolve decides what a conditional parameter expansion with the operator
// op does, given the state of its parameter. It has no side effects.
//
// The operators with a colon, such as ":-", treat an empty parameter like an
// unset one.
func Resolve(state ParamState, op syntax.ParExpOperator) Action {
	missing := state == Unset || (state == SetEmpty && op.TestsEmpty())
	switch op {
	case syntax.SubstMinus, syntax.SubstColMinus:
		if missing {
			return UseFallback
		}
	case syntax.SubstAssgn, syntax.SubstColAssgn:
		if missing {
			return AssignFallback
		}
	case syntax.SubstPlus, syntax.SubstColPlus:
		if missing {
			return UseEmpty
		}
		return UseFallback
	case syntax.SubstQuest, syntax.SubstColQuest:
		if missing {
			return RaiseError
		}
	default:
		panic(fmt.Sprintf("unhandled parameter expansion operator: %v", op))
	}
	return UseOriginal
}
