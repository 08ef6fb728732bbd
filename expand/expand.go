// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"mvdan.cc/parexp/syntax"
)

// A Config specifies details about how shell expansion should be performed. The
// zero value is a valid configuration.
type Config struct {
	// Env is used to get and set environment variables when performing
	// shell expansions. Some special parameters are also expanded via this
	// interface, such as:
	//
	//   * "#", "@", "*", "0"-"9" for the shell's parameters
	//   * "?", "$", "PPID" for the shell's status and process
	//
	// "@" is expected to be an Indexed variable. "*" is looked up as "@".
	//
	// Assignments, such as the ones in "${name:=word}" or "$((i++))",
	// require Env to also implement WriteEnviron.
	//
	// If nil, there are no environment variables set.
	Env Environ

	// CmdSubst expands a command substitution node, writing its standard
	// output to the provided io.Writer. Its trailing newlines are removed.
	//
	// If nil, encountering a command substitution will result in an
	// UnexpectedCommandError.
	CmdSubst func(io.Writer, *syntax.CmdSubst) error

	// NoUnset makes expanding an unset parameter, like "$foo", an error.
	// It corresponds to the "set -u" shell option.
	NoUnset bool

	// Compat selects the behavior where shells disagree.
	Compat Compat

	bufferAlloc strings.Builder

	ifs string
}

// prepareConfig returns a Config ready to use, allocating one if cfg is nil.
func prepareConfig(cfg *Config) *Config {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Env == nil {
		cfg.Env = FuncEnviron(func(string) string { return "" })
	}
	cfg.prepareIFS()
	return cfg
}

func (cfg *Config) prepareIFS() {
	vr := cfg.Env.Get("IFS")
	if !vr.IsSet() {
		cfg.ifs = " \t\n"
	} else {
		cfg.ifs = vr.String()
	}
}

func (cfg *Config) ifsRune(r rune) bool {
	for _, r2 := range cfg.ifs {
		if r == r2 {
			return true
		}
	}
	return false
}

func (cfg *Config) ifsJoin(strs []string) string {
	sep := ""
	if cfg.ifs != "" {
		sep = cfg.ifs[:1]
	}
	return strings.Join(strs, sep)
}

func (cfg *Config) strBuilder() *strings.Builder {
	b := &cfg.bufferAlloc
	b.Reset()
	return b
}

func (cfg *Config) envGet(name string) string {
	return cfg.Env.Get(name).String()
}

func (cfg *Config) envSet(name string, vr Variable) error {
	wenv, ok := cfg.Env.(WriteEnviron)
	if !ok {
		return fmt.Errorf("environment is read-only")
	}
	if err := wenv.Set(name, vr); err != nil {
		return err
	}
	if name == "IFS" {
		cfg.prepareIFS()
	}
	return nil
}

// Literal expands a single shell word. It is similar to Fields, but the result
// is a single string. This is the behavior when a word is used as the value in
// a shell variable assignment, for example.
//
// The config specifies shell expansion options; nil behaves the same as an
// empty config.
func Literal(cfg *Config, word *syntax.Word) (string, error) {
	if word == nil {
		return "", nil
	}
	cfg = prepareConfig(cfg)
	field, err := cfg.wordField(word.Parts, quoteNone)
	if err != nil {
		return "", err
	}
	return strings.Join(field, ""), nil
}

// Document expands a single shell word as if it were within double quotes. It
// is similar to Literal, but backslashes are only removed before special
// characters. It is meant for words parsed with syntax.Parser.Document.
//
// The config specifies shell expansion options; nil behaves the same as an
// empty config.
func Document(cfg *Config, word *syntax.Word) (string, error) {
	if word == nil {
		return "", nil
	}
	cfg = prepareConfig(cfg)
	field, err := cfg.wordField(word.Parts, quoteDouble)
	if err != nil {
		return "", err
	}
	return strings.Join(field, ""), nil
}

// Fields expands a number of words as if they were arguments in a shell
// command. This includes parameter expansions, command substitutions,
// arithmetic expansions, and field splitting of the unquoted results.
func Fields(cfg *Config, words ...*syntax.Word) ([]string, error) {
	cfg = prepareConfig(cfg)
	fields := make([]string, 0, len(words))
	for _, word := range words {
		wfields, err := cfg.wordFields(word.Parts, false, nil)
		if err != nil {
			return nil, err
		}
		for _, field := range wfields {
			fields = append(fields, strings.Join(field, ""))
		}
	}
	return fields, nil
}

type quoteLevel uint

const (
	quoteNone quoteLevel = iota
	quoteDouble
)

// unescape removes the backslashes from an unquoted literal, or only those
// before special characters if the literal is within double quotes. Escaped
// newlines are removed altogether.
func (cfg *Config) unescape(s string, ql quoteLevel) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	buf := cfg.strBuilder()
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\n': // remove \\\n
				i++
				continue
			case '"', '\\', '$', '`': // special chars
				i++
				b = s[i]
			default:
				if ql == quoteNone {
					i++
					b = s[i]
				}
			}
		}
		buf.WriteByte(b)
	}
	return buf.String()
}

// wordField expands word parts into a single field, made up of the returned
// parts. No field splitting happens, and sequences such as "$@" are joined.
func (cfg *Config) wordField(wps []syntax.WordPart, ql quoteLevel) ([]string, error) {
	var field []string
	for _, wp := range wps {
		switch x := wp.(type) {
		case *syntax.Lit:
			field = append(field, cfg.unescape(x.Value, ql))
		case *syntax.SglQuoted:
			field = append(field, x.Value)
		case *syntax.DblQuoted:
			parts, err := cfg.wordField(x.Parts, quoteDouble)
			if err != nil {
				return nil, err
			}
			field = append(field, parts...)
		case *syntax.ParamExp:
			res, err := cfg.paramExp(x, ql, false)
			if err != nil {
				return nil, err
			}
			field = append(field, res.joined(cfg))
		case *syntax.CmdSubst:
			val, err := cfg.cmdSubst(x)
			if err != nil {
				return nil, err
			}
			field = append(field, val)
		case *syntax.ArithmExp:
			n, err := Arithm(cfg, x.X)
			if err != nil {
				return nil, err
			}
			field = append(field, strconv.Itoa(n))
		default:
			panic(fmt.Sprintf("unhandled word part: %T", x))
		}
	}
	return field, nil
}

func (cfg *Config) cmdSubst(cs *syntax.CmdSubst) (string, error) {
	if cfg.CmdSubst == nil {
		return "", UnexpectedCommandError{Node: cs}
	}
	buf := new(strings.Builder)
	if err := cfg.CmdSubst(buf, cs); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// wordFields expands word parts into any number of fields, each made up of
// parts. Unquoted expansion results are split by IFS.
//
// splitLits is used for the words within unquoted expansions like
// "${a-b c}", where the literal parts are split too.
//
// If raw is non-nil, the expanded text before splitting is written to it, so
// that "${a=b  c}" can assign "b  c" while producing the fields "b" and "c".
func (cfg *Config) wordFields(wps []syntax.WordPart, splitLits bool, raw *strings.Builder) ([][]string, error) {
	if raw == nil {
		raw = new(strings.Builder)
	}
	var fields [][]string
	var curField []string
	flush := func() {
		if len(curField) == 0 {
			return
		}
		fields = append(fields, curField)
		curField = nil
	}
	splitAdd := func(val string) {
		if val == "" {
			return
		}
		if r, _ := utf8.DecodeRuneInString(val); cfg.ifsRune(r) {
			flush()
		}
		for i, field := range strings.FieldsFunc(val, cfg.ifsRune) {
			if i > 0 {
				flush()
			}
			curField = append(curField, field)
		}
		if r, _ := utf8.DecodeLastRuneInString(val); cfg.ifsRune(r) {
			flush()
		}
	}
	for _, wp := range wps {
		switch x := wp.(type) {
		case *syntax.Lit:
			if !splitLits {
				lit := cfg.unescape(x.Value, quoteNone)
				raw.WriteString(lit)
				curField = append(curField, lit)
				break
			}
			s := x.Value
			start := 0
			for i := 0; i < len(s); i++ {
				if s[i] != '\\' || i+1 >= len(s) {
					continue
				}
				raw.WriteString(s[start:i])
				splitAdd(s[start:i])
				i++
				if s[i] != '\n' {
					// escaped characters are never split
					raw.WriteByte(s[i])
					curField = append(curField, s[i:i+1])
				}
				start = i + 1
			}
			raw.WriteString(s[start:])
			splitAdd(s[start:])
		case *syntax.SglQuoted:
			raw.WriteString(x.Value)
			curField = append(curField, x.Value)
		case *syntax.DblQuoted:
			if len(x.Parts) == 0 {
				curField = append(curField, "")
				break
			}
			for _, part := range x.Parts {
				pe, _ := part.(*syntax.ParamExp)
				if pe == nil {
					parts, err := cfg.wordField([]syntax.WordPart{part}, quoteDouble)
					if err != nil {
						return nil, err
					}
					for _, s := range parts {
						raw.WriteString(s)
					}
					curField = append(curField, parts...)
					continue
				}
				res, err := cfg.paramExp(pe, quoteDouble, false)
				if err != nil {
					return nil, err
				}
				raw.WriteString(res.joined(cfg))
				if res.kind != resultElems || res.star {
					curField = append(curField, res.joined(cfg))
					continue
				}
				// "$@" and "${a[@]}" keep one field per element
				for i, elem := range res.list {
					if i > 0 {
						flush()
					}
					curField = append(curField, elem)
				}
			}
		case *syntax.ParamExp:
			res, err := cfg.paramExp(x, quoteNone, true)
			if err != nil {
				return nil, err
			}
			raw.WriteString(res.joined(cfg))
			switch res.kind {
			case resultString:
				splitAdd(res.str)
			case resultElems:
				for i, elem := range res.list {
					if i > 0 {
						flush()
					}
					splitAdd(elem)
				}
			case resultFields:
				for i, field := range res.fields {
					if i > 0 {
						flush()
					}
					curField = append(curField, field...)
				}
			}
		case *syntax.CmdSubst:
			val, err := cfg.cmdSubst(x)
			if err != nil {
				return nil, err
			}
			raw.WriteString(val)
			splitAdd(val)
		case *syntax.ArithmExp:
			n, err := Arithm(cfg, x.X)
			if err != nil {
				return nil, err
			}
			raw.WriteString(strconv.Itoa(n))
			curField = append(curField, strconv.Itoa(n))
		default:
			panic(fmt.Sprintf("unhandled word part: %T", x))
		}
	}
	flush()
	return fields, nil
}
