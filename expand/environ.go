// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"fmt"
	"sort"
	"strings"
)

// Environ is the base interface for a shell's environment, allowing it to
// fetch variables by name and to iterate over all the currently set
// variables.
type Environ interface {
	// Get retrieves a variable by its name. To check if the variable is
	// set, use Variable.IsSet.
	Get(name string) Variable

	// Each iterates over all the currently set variables, calling the
	// supplied function on each variable. Iteration is stopped if the
	// function returns false.
	//
	// The names used in the calls aren't required to be unique or sorted.
	// If a variable name appears twice, the latest occurrence takes
	// priority.
	Each(func(name string, vr Variable) bool)
}

// WriteEnviron is an extension on Environ that supports modifying and
// deleting variables.
type WriteEnviron interface {
	Environ
	// Set sets a variable by name. If !vr.IsSet(), the variable is being
	// unset; otherwise, the variable is being replaced.
	//
	// An error may be returned if the operation is invalid, such as
	// modifying a read-only variable.
	Set(name string, vr Variable) error
}

// ValueKind describes which kind of value the variable holds.
// While most unset variables will have an Unknown kind, an unset variable may
// have a kind associated too, such as via a declaration without a value.
type ValueKind uint8

const (
	// Unknown is used for unset variables which do not have a kind yet.
	Unknown ValueKind = iota
	// String describes plain string variables, such as "foo=bar".
	String
	// Indexed describes indexed array variables, such as "foo=(bar baz)",
	// as well as the positional parameters in "$@".
	Indexed
)

func (k ValueKind) String() string {
	switch k {
	case Unknown:
		return "unknown"
	case String:
		return "string"
	case Indexed:
		return "indexed"
	}
	return fmt.Sprintf("ValueKind(%d)", uint8(k))
}

// Variable describes a shell variable, which can have a number of attributes
// and a value.
//
// The shape of the value is fixed by Kind: Str is used for String
// variables, and List for Indexed variables.
type Variable struct {
	// Set is true when the variable has been set to a value,
	// which may be empty.
	Set bool

	ReadOnly bool

	// Kind defines which of the value fields below should be used.
	Kind ValueKind

	Str  string   // Used when Kind is String.
	List []string // Used when Kind is Indexed.
}

// IsSet reports whether the variable has been set to a value.
// The zero value of a Variable is unset.
func (v Variable) IsSet() bool {
	return v.Set
}

// String returns the variable's value as a string. In general, this only
// makes sense if the variable has a string value or no value at all.
// For indexed arrays, the first element is returned, like "$arr" would.
func (v Variable) String() string {
	switch v.Kind {
	case String:
		return v.Str
	case Indexed:
		if len(v.List) > 0 {
			return v.List[0]
		}
	}
	return ""
}

// FuncEnviron wraps a function mapping variable names to their string values,
// and implements Environ. Empty strings returned by the function will be
// treated as unset variables. All variables will be exported.
//
// Note that the returned Environ's Each method will be a no-op.
func FuncEnviron(fn func(string) string) Environ {
	return funcEnviron(fn)
}

type funcEnviron func(string) string

func (f funcEnviron) Get(name string) Variable {
	value := f(name)
	if value == "" {
		return Variable{}
	}
	return Variable{Set: true, Kind: String, Str: value}
}

func (f funcEnviron) Each(func(name string, vr Variable) bool) {}

// ListEnviron returns an Environ with the supplied variables, in the form
// "key=value". All variables will be exported. The last value in pairs is
// used if multiple values are present.
//
// Each pair must contain an "=" separator; pairs without one are dropped.
func ListEnviron(pairs ...string) Environ {
	list := append([]string{}, pairs...)

	// stable sort by name, so that the last value of a name wins
	sort.SliceStable(list, func(i, j int) bool {
		isep := strings.IndexByte(list[i], '=')
		jsep := strings.IndexByte(list[j], '=')
		if isep < 0 || jsep < 0 {
			return isep < jsep
		}
		return list[i][:isep] < list[j][:jsep]
	})

	last := ""
	for i := 0; i < len(list); {
		s := list[i]
		sep := strings.IndexByte(s, '=')
		if sep <= 0 {
			// invalid element; remove it
			list = append(list[:i], list[i+1:]...)
			continue
		}
		name := s[:sep]
		if last == name {
			// duplicate; the last one wins
			list = append(list[:i-1], list[i:]...)
			continue
		}
		last = name
		i++
	}
	return listEnviron(list)
}

// listEnviron is a sorted list of "name=value" strings.
type listEnviron []string

func (l listEnviron) Get(name string) Variable {
	prefix := name + "="
	i := sort.SearchStrings(l, prefix)
	if i < len(l) && strings.HasPrefix(l[i], prefix) {
		return Variable{Set: true, Kind: String, Str: strings.TrimPrefix(l[i], prefix)}
	}
	return Variable{}
}

func (l listEnviron) Each(fn func(name string, vr Variable) bool) {
	for _, pair := range l {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			// should never happen; see ListEnviron
			panic("expand.listEnviron: did not expect malformed name-value pair: " + pair)
		}
		if !fn(name, Variable{Set: true, Kind: String, Str: value}) {
			return
		}
	}
}
