// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"mvdan.cc/parexp/expand"
	"mvdan.cc/parexp/syntax"
)

// overlayEnviron is a WriteEnviron on top of a parent Environ. Unsetting a
// variable records it as unset in the overlay, hiding the parent's value.
type overlayEnviron struct {
	parent expand.Environ
	values map[string]expand.Variable
}

// newOverlayEnviron creates an overlay on parent. If background is true, the
// parent's variables are copied, so that the overlay stays the same even if
// the parent is modified concurrently.
func newOverlayEnviron(parent expand.Environ, background bool) *overlayEnviron {
	oenv := &overlayEnviron{values: make(map[string]expand.Variable)}
	if !background {
		oenv.parent = parent
		return oenv
	}
	parent.Each(func(name string, vr expand.Variable) bool {
		oenv.values[name] = vr
		return true
	})
	return oenv
}

func (o *overlayEnviron) Get(name string) expand.Variable {
	if vr, ok := o.values[name]; ok {
		return vr
	}
	if o.parent == nil {
		return expand.Variable{}
	}
	return o.parent.Get(name)
}

func (o *overlayEnviron) Set(name string, vr expand.Variable) error {
	o.values[name] = vr
	return nil
}

// Each visits the variables sorted by name, including the unset ones which
// are read-only.
func (o *overlayEnviron) Each(f func(name string, vr expand.Variable) bool) {
	all := make(map[string]expand.Variable, len(o.values))
	if o.parent != nil {
		o.parent.Each(func(name string, vr expand.Variable) bool {
			all[name] = vr
			return true
		})
	}
	for name, vr := range o.values {
		all[name] = vr
	}
	names := make([]string, 0, len(all))
	for name, vr := range all {
		if vr.IsSet() || vr.ReadOnly {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if !f(name, all[name]) {
			return
		}
	}
}

func (r *Runner) lookupVar(name string) expand.Variable {
	if name == "" {
		panic("variable name must not be empty")
	}
	switch name {
	case "#":
		return stringVar(strconv.Itoa(len(r.Params)))
	case "@", "*":
		return expand.Variable{Set: true, Kind: expand.Indexed, List: r.Params}
	case "?":
		return stringVar(strconv.Itoa(int(r.lastExit.code)))
	case "$":
		return stringVar(strconv.Itoa(os.Getpid()))
	case "PPID":
		return stringVar(strconv.Itoa(os.Getppid()))
	case "0":
		if r.filename != "" {
			return stringVar(r.filename)
		}
		return stringVar("parexp")
	}
	if n, err := strconv.Atoi(name); err == nil && n > 0 && name[0] != '+' {
		if n <= len(r.Params) {
			return stringVar(r.Params[n-1])
		}
		return expand.Variable{}
	}
	return r.writeEnv.Get(name)
}

func stringVar(s string) expand.Variable {
	return expand.Variable{Set: true, Kind: expand.String, Str: s}
}

func (r *Runner) setVarString(name, value string) {
	r.setVar(name, stringVar(value))
}

// setVar sets a variable, failing if the existing variable is read-only.
func (r *Runner) setVar(name string, vr expand.Variable) error {
	prev := r.writeEnv.Get(name)
	if prev.ReadOnly {
		return fmt.Errorf("%s: readonly variable", name)
	}
	if !vr.IsSet() {
		vr = expand.Variable{}
	}
	return r.writeEnv.Set(name, vr)
}

// setVarIndex assigns to one element of an indexed variable, converting a
// string variable to an indexed one first.
func (r *Runner) setVarIndex(name string, index int, value string) error {
	prev := r.lookupVar(name)
	var list []string
	switch {
	case prev.Kind == expand.Indexed && prev.IsSet():
		list = append(list, prev.List...)
	case prev.Kind == expand.String && prev.IsSet():
		list = append(list, prev.Str)
	}
	if index < 0 {
		index += len(list)
		if index < 0 {
			return fmt.Errorf("%s[%d]: bad array subscript", name, index-len(list))
		}
	}
	for len(list) <= index {
		list = append(list, "")
	}
	list[index] = value
	return r.setVar(name, expand.Variable{Set: true, Kind: expand.Indexed, List: list})
}

func (r *Runner) delVar(name string) error {
	if r.writeEnv.Get(name).ReadOnly {
		return fmt.Errorf("%s: cannot unset: readonly variable", name)
	}
	return r.writeEnv.Set(name, expand.Variable{})
}

// assignVar applies a single assignment like "a=b", "a[1]=b" or "a=(b c)".
func (r *Runner) assignVar(as *syntax.Assign) error {
	name := as.Name.Value
	if as.Array != nil {
		elems := r.fields(as.Array.Elems...)
		if !r.exit.ok() {
			return nil
		}
		if elems == nil {
			elems = []string{}
		}
		return r.setVar(name, expand.Variable{Set: true, Kind: expand.Indexed, List: elems})
	}
	value := ""
	if as.Value != nil {
		value = r.literal(as.Value)
		if !r.exit.ok() {
			return nil
		}
	}
	if as.Index != nil {
		index := r.arithm(as.Index)
		if !r.exit.ok() {
			return nil
		}
		return r.setVarIndex(name, index, value)
	}
	if prev := r.lookupVar(name); prev.Kind == expand.Indexed && prev.IsSet() {
		// "a=b" on an array sets its first element
		return r.setVarIndex(name, 0, value)
	}
	return r.setVar(name, stringVar(value))
}
