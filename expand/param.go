// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"mvdan.cc/parexp/syntax"
)

func anyOfLit(v any, vals ...string) string {
	word, _ := v.(*syntax.Word)
	if word == nil || len(word.Parts) != 1 {
		return ""
	}
	lit, ok := word.Parts[0].(*syntax.Lit)
	if !ok {
		return ""
	}
	for _, val := range vals {
		if lit.Value == val {
			return val
		}
	}
	return ""
}

// paramValue is the value of a parameter as referenced by a ParamExp, such
// as a whole variable, one element of an indexed variable, or all of them.
type paramValue struct {
	set bool
	str string

	// elems is true for "$@", "$*", "${a[@]}", and "${a[*]}"; the value is
	// then in list.
	elems bool
	star  bool
	list  []string

	// index is the already evaluated index in "${a[index]}".
	index    int
	hasIndex bool
}

func (v paramValue) state() ParamState {
	if v.elems {
		return elemsState(v.list)
	}
	switch {
	case !v.set:
		return Unset
	case v.str == "":
		return SetEmpty
	}
	return SetNonEmpty
}

func (cfg *Config) lookupParam(pe *syntax.ParamExp) (paramValue, error) {
	name := pe.Param.Value
	vr := cfg.Env.Get(name)
	if name == "*" {
		// the same parameters as "$@", joined differently
		vr = cfg.Env.Get("@")
	}
	var val paramValue
	elemsIndex := anyOfLit(pe.Index, "@", "*")
	switch {
	case name == "@" || name == "*":
		val.elems = true
		val.star = name == "*"
		if vr.Kind == Indexed {
			val.list = vr.List
		}
	case elemsIndex != "":
		val.elems = true
		val.star = elemsIndex == "*"
		switch vr.Kind {
		case Indexed:
			val.list = vr.List
		case String:
			val.list = []string{vr.Str}
		}
	case pe.Index != nil:
		// evaluated exactly once, even if assigned to later
		n, err := Arithm(cfg, pe.Index)
		if err != nil {
			return val, err
		}
		val.index, val.hasIndex = n, true
		switch vr.Kind {
		case Indexed:
			if n < 0 {
				n += len(vr.List)
			}
			if n >= 0 && n < len(vr.List) {
				val.set, val.str = true, vr.List[n]
			}
		case String:
			if n == 0 {
				val.set, val.str = true, vr.Str
			}
		}
	default:
		val.set = vr.Kind != Indexed || len(vr.List) > 0
		val.str = vr.String()
	}
	if !vr.IsSet() {
		val.set, val.list = false, nil
	}
	return val, nil
}

type resultKind uint8

const (
	resultString resultKind = iota
	resultElems             // the elements of "$@" and the like
	resultFields            // already split, from an unquoted word
)

// expResult is the result of a parameter expansion, before it is joined with
// the rest of its word.
type expResult struct {
	kind resultKind
	// str is the value for resultString, and the text before splitting
	// for resultFields.
	str    string
	list   []string
	star   bool
	fields [][]string
}

func (r expResult) joined(cfg *Config) string {
	switch r.kind {
	case resultElems:
		if r.star {
			return cfg.ifsJoin(r.list)
		}
		return strings.Join(r.list, " ")
	}
	return r.str
}

func (v paramValue) result() expResult {
	if v.elems {
		return expResult{kind: resultElems, list: v.list, star: v.star}
	}
	return expResult{str: v.str}
}

// paramName is the parameter as written in pe, such as "foo" or "foo[1]".
func paramName(pe *syntax.ParamExp) string {
	name := pe.Param.Value
	if w, ok := pe.Index.(*syntax.Word); ok && w.Lit() != "" {
		name += "[" + w.Lit() + "]"
	}
	return name
}

// paramExp expands a parameter expansion. The quote level is the one around
// pe. split is true if pe is unquoted within a word which is being split into
// fields, in which case the word of a conditional expansion is split too.
func (cfg *Config) paramExp(pe *syntax.ParamExp, ql quoteLevel, split bool) (expResult, error) {
	val, err := cfg.lookupParam(pe)
	if err != nil {
		return expResult{}, err
	}
	if pe.Exp == nil {
		if cfg.NoUnset && !val.elems && !val.set {
			return expResult{}, &UnsetParameterError{
				Node:    pe,
				Name:    paramName(pe),
				Message: "unbound variable",
				Status:  cfg.Compat.unsetStatus(),
			}
		}
		if pe.Length {
			n := len(val.list)
			if !val.elems {
				n = utf8.RuneCountInString(val.str)
			}
			return expResult{str: strconv.Itoa(n)}, nil
		}
		return val.result(), nil
	}

	action := Resolve(val.state(), pe.Exp.Op)
	switch action {
	case UseOriginal:
		return val.result(), nil
	case UseEmpty:
		return expResult{}, nil
	case UseFallback:
		return cfg.expWord(pe.Exp.Word, ql, split)
	case AssignFallback:
		if err := checkAssign(pe); err != nil {
			return expResult{}, err
		}
		res, err := cfg.expWord(pe.Exp.Word, ql, split)
		if err != nil {
			return expResult{}, err
		}
		str := res.joined(cfg)
		if err := cfg.assignParam(pe.Param.Value, val, str); err != nil {
			return expResult{}, err
		}
		if res.kind == resultFields && cfg.Compat.KeepAssignFields {
			return res, nil
		}
		return expResult{str: str}, nil
	default: // RaiseError
		msg := "parameter null or not set"
		if w := pe.Exp.Word; w != nil {
			field, err := cfg.wordField(w.Parts, ql)
			if err != nil {
				return expResult{}, err
			}
			msg = strings.Join(field, "")
		}
		return expResult{}, &UnsetParameterError{
			Node:    pe,
			Name:    paramName(pe),
			Message: msg,
			Status:  cfg.Compat.unsetStatus(),
		}
	}
}

// expWord expands the word of a conditional parameter expansion. It must only
// be called when the word is needed, and never more than once.
func (cfg *Config) expWord(word *syntax.Word, ql quoteLevel, split bool) (expResult, error) {
	if word == nil {
		return expResult{}, nil
	}
	if split {
		var raw strings.Builder
		fields, err := cfg.wordFields(word.Parts, true, &raw)
		if err != nil {
			return expResult{}, err
		}
		return expResult{kind: resultFields, fields: fields, str: raw.String()}, nil
	}
	field, err := cfg.wordField(word.Parts, ql)
	if err != nil {
		return expResult{}, err
	}
	return expResult{str: strings.Join(field, "")}, nil
}

// checkAssign returns an error if the parameter in pe cannot be assigned to.
func checkAssign(pe *syntax.ParamExp) error {
	name := pe.Param.Value
	if !syntax.ValidName(name) {
		return &InvalidAssignError{Node: pe, Name: name}
	}
	if index := anyOfLit(pe.Index, "@", "*"); index != "" {
		return &InvalidAssignError{Node: pe, Name: name, Index: index}
	}
	return nil
}

// assignParam assigns a string to a variable. Indexed variables, or
// expansions with an index, assign a single element. The variable is fetched
// again, as the word may have modified it.
func (cfg *Config) assignParam(name string, val paramValue, str string) error {
	vr := cfg.Env.Get(name)
	if vr.Kind != Indexed && !val.hasIndex {
		return cfg.envSet(name, Variable{Set: true, Kind: String, Str: str})
	}
	var list []string
	switch {
	case vr.Kind == Indexed && vr.IsSet():
		list = append(list, vr.List...)
	case vr.Kind == String && vr.IsSet():
		list = append(list, vr.Str)
	}
	index := val.index
	if index < 0 {
		index += len(list)
		if index < 0 {
			return &InvalidAssignError{Name: name, Index: strconv.Itoa(val.index)}
		}
	}
	for len(list) <= index {
		list = append(list, "")
	}
	list[index] = str
	return cfg.envSet(name, Variable{Set: true, Kind: Indexed, List: list})
}
