// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Parser holds the internal state of the parsing mechanism of a program.
//
// A Parser understands the subset of the shell language needed to drive
// parameter expansions: simple commands with assignments and arguments,
// command lists joined by ";", newlines, "&&" and "||", subshells, and words
// made of literals, quotes, parameter expansions, command substitutions, and
// arithmetic expansions.
type Parser struct {
	src  string
	name string

	off  int
	line int
	col  int

	// inDblQuote is set within double quotes, where single quotes are not
	// special even within words like the one in "${a-'b'}".
	inDblQuote bool
}

// NewParser allocates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) reset(src, name string) {
	*p = Parser{src: src, name: name, line: 1, col: 1}
}

// Parse reads and parses a shell program with an optional name. It returns
// the parsed program if no issues were encountered. Otherwise, an error is
// returned. Reads from r are buffered.
func (p *Parser) Parse(r io.Reader, name string) (_ *File, err error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	p.reset(string(src), name)
	defer p.recover(&err)
	f := &File{Name: name}
	f.Stmts = p.stmtList(0)
	return f, nil
}

// Document parses a single word as if it were within double quotes, but
// with quote characters left as literals. The entire input is consumed. This
// is useful to expand strings such as templates.
func (p *Parser) Document(r io.Reader) (_ *Word, err error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	p.reset(string(src), "")
	defer p.recover(&err)
	p.inDblQuote = true
	return &Word{Parts: p.wordParts(wordDocument)}, nil
}

// Words reads and parses a list of words separated by blanks and newlines.
// Any other kind of syntax, such as a semicolon, results in an error.
func (p *Parser) Words(r io.Reader) (_ []*Word, err error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	p.reset(string(src), "")
	defer p.recover(&err)
	var words []*Word
	for {
		p.skipSpace(true)
		if p.eof() {
			return words, nil
		}
		words = append(words, p.word())
	}
}

// ParseError represents an error found when parsing a source file, from which
// the parser cannot recover.
type ParseError struct {
	Filename string
	Pos      Pos
	Text     string

	Incomplete bool
}

func (e ParseError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("%s: %s", e.Pos, e.Text)
	}
	return fmt.Sprintf("%s:%s: %s", e.Filename, e.Pos, e.Text)
}

// IsIncomplete reports whether a Parser error could have been avoided with
// extra input bytes. For example, if an [io.EOF] was encountered while there
// was an unclosed quote or parenthesis.
func IsIncomplete(err error) bool {
	var perr ParseError
	return errors.As(err, &perr) && perr.Incomplete
}

func (p *Parser) recover(err *error) {
	if r := recover(); r != nil {
		perr, ok := r.(ParseError)
		if !ok {
			panic(r)
		}
		*err = perr
	}
}

func (p *Parser) posErr(pos Pos, format string, a ...any) {
	panic(ParseError{
		Filename: p.name,
		Pos:      pos,
		Text:     fmt.Sprintf(format, a...),
	})
}

func (p *Parser) curErr(format string, a ...any) {
	p.posErr(p.pos(), format, a...)
}

func (p *Parser) eofErr(pos Pos, format string, a ...any) {
	panic(ParseError{
		Filename:   p.name,
		Pos:        pos,
		Text:       fmt.Sprintf(format, a...),
		Incomplete: true,
	})
}

func (p *Parser) pos() Pos {
	return NewPos(uint(p.off), uint(p.line), uint(p.col))
}

func (p *Parser) eof() bool { return p.off >= len(p.src) }

func (p *Parser) peek() byte { return p.peekAt(0) }

func (p *Parser) peekAt(n int) byte {
	if p.off+n >= len(p.src) {
		return 0
	}
	return p.src[p.off+n]
}

func (p *Parser) hasPrefix(s string) bool {
	return strings.HasPrefix(p.src[p.off:], s)
}

func (p *Parser) advance(n int) {
	for i := 0; i < n && p.off < len(p.src); i++ {
		if p.src[p.off] == '\n' {
			p.line++
			p.col = 1
		} else {
			p.col++
		}
		p.off++
	}
}

// skipSpace skips blanks, escaped newlines, and comments. Newlines are only
// skipped if newlines is true.
func (p *Parser) skipSpace(newlines bool) {
	for !p.eof() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t':
			p.advance(1)
		case c == '\n' && newlines:
			p.advance(1)
		case c == '\\' && p.peekAt(1) == '\n':
			p.advance(2)
		case c == '#':
			for !p.eof() && p.peek() != '\n' {
				p.advance(1)
			}
		default:
			return
		}
	}
}

func isNameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isNameByte(c byte) bool { return isNameStart(c) || isDigit(c) }

// isSpecialParam reports whether c is the name of a single-character
// special parameter, such as the @ in $@.
func isSpecialParam(c byte) bool {
	switch c {
	case '@', '*', '#', '?', '$', '!', '-':
		return true
	}
	return false
}

// ValidName returns whether val is a valid name as per the POSIX spec.
func ValidName(val string) bool {
	if val == "" {
		return false
	}
	for i := 0; i < len(val); i++ {
		if !isNameByte(val[i]) || (i == 0 && isDigit(val[i])) {
			return false
		}
	}
	return true
}

func wordBreak(c byte) bool {
	switch c {
	case ' ', '\t', '\n', ';', '&', '|', '(', ')', '<', '>':
		return true
	}
	return false
}

func (p *Parser) stmtEnd() bool {
	switch p.peek() {
	case 0, '\n', ';', ')':
		return true
	}
	return p.hasPrefix("&&") || p.hasPrefix("||")
}

// stmtList parses statements until EOF, or until the closer byte if it is
// non-zero. The closer is not consumed.
func (p *Parser) stmtList(closer byte) []*Stmt {
	var stmts []*Stmt
	for {
		p.skipSpace(true)
		if p.eof() {
			if closer != 0 {
				p.eofErr(p.pos(), "reached EOF without matching %c", closer)
			}
			return stmts
		}
		if closer != 0 && p.peek() == closer {
			return stmts
		}
		stmts = append(stmts, p.andOr())
		p.skipSpace(false)
		switch c := p.peek(); {
		case c == ';' || c == '\n':
			p.advance(1)
		case p.eof():
		case closer != 0 && c == closer:
		case c == ')':
			p.curErr(") can only be used to close a subshell")
		default:
			p.curErr("statements must be separated by ; or a newline")
		}
	}
}

func (p *Parser) andOr() *Stmt {
	x := p.command()
	for {
		p.skipSpace(false)
		var op BinCmdOperator
		switch {
		case p.hasPrefix("&&"):
			op = AndStmt
		case p.hasPrefix("||"):
			op = OrStmt
		default:
			return x
		}
		opPos := p.pos()
		p.advance(2)
		p.skipSpace(true)
		if p.eof() {
			p.eofErr(opPos, "%s must be followed by a statement", op)
		}
		y := p.command()
		x = &Stmt{
			Position: x.Position,
			Cmd:      &BinaryCmd{OpPos: opPos, Op: op, X: x, Y: y},
		}
	}
}

func (p *Parser) command() *Stmt {
	pos := p.pos()
	if p.peek() == '(' {
		p.advance(1)
		sub := &Subshell{Lparen: pos}
		sub.Stmts = p.stmtList(')')
		sub.Rparen = p.pos()
		p.advance(1)
		return &Stmt{Position: pos, Cmd: sub}
	}
	return &Stmt{Position: pos, Cmd: p.callExpr()}
}

func (p *Parser) callExpr() *CallExpr {
	ce := &CallExpr{}
	for {
		p.skipSpace(false)
		if p.stmtEnd() {
			break
		}
		if len(ce.Args) == 0 {
			if as := p.assign(); as != nil {
				ce.Assigns = append(ce.Assigns, as)
				continue
			}
		}
		ce.Args = append(ce.Args, p.word())
	}
	if len(ce.Assigns) == 0 && len(ce.Args) == 0 {
		switch c := p.peek(); c {
		case 0, '\n':
			p.curErr("expected a command")
		default:
			if p.hasPrefix("&&") || p.hasPrefix("||") {
				p.curErr("%s can only immediately follow a statement", p.src[p.off:p.off+2])
			}
			p.curErr("%c can only immediately follow a statement", c)
		}
	}
	return ce
}

// assign parses an assignment if one starts at the current position, such as
// "a=b", "a[1]=b", or "a=(b c)". Otherwise, it returns nil without consuming
// any input.
func (p *Parser) assign() *Assign {
	rest := p.src[p.off:]
	i := 0
	for i < len(rest) && isNameByte(rest[i]) {
		i++
	}
	if i == 0 || isDigit(rest[0]) || i == len(rest) {
		return nil
	}
	switch rest[i] {
	case '=':
	case '[':
		end := strings.IndexByte(rest[i:], ']')
		if end < 0 || i+end+1 >= len(rest) || rest[i+end+1] != '=' {
			return nil
		}
	default:
		return nil
	}
	as := &Assign{Name: &Lit{ValuePos: p.pos(), Value: rest[:i]}}
	p.advance(i)
	as.Name.ValueEnd = p.pos()
	if p.peek() == '[' {
		lbrack := p.pos()
		p.advance(1)
		as.Index = p.arithmExpr()
		p.skipSpace(false)
		if p.peek() != ']' {
			p.posErr(lbrack, "[ must be followed by ]")
		}
		p.advance(1)
	}
	p.advance(1) // =
	switch {
	case p.peek() == '(':
		if as.Index != nil {
			p.curErr("arrays cannot be nested")
		}
		as.Array = p.arrayExpr()
	case !p.stmtEnd() && !wordBreak(p.peek()):
		as.Value = p.word()
	}
	return as
}

func (p *Parser) arrayExpr() *ArrayExpr {
	ae := &ArrayExpr{Lparen: p.pos()}
	p.advance(1)
	for {
		p.skipSpace(true)
		if p.eof() {
			p.eofErr(ae.Lparen, "reached EOF without matching ( with )")
		}
		if p.peek() == ')' {
			break
		}
		ae.Elems = append(ae.Elems, p.word())
	}
	ae.Rparen = p.pos()
	p.advance(1)
	return ae
}

func (p *Parser) word() *Word {
	parts := p.wordParts(wordUnquoted)
	if len(parts) == 0 {
		switch c := p.peek(); c {
		case '|':
			p.curErr("pipelines are not supported")
		case '&':
			p.curErr("background commands are not supported")
		case '<', '>':
			p.curErr("redirections are not supported")
		default:
			p.curErr("%q is not a valid word", c)
		}
	}
	return &Word{Parts: parts}
}

type wordMode uint8

const (
	wordUnquoted  wordMode = iota // until a blank or an operator
	wordBrace                     // until "}", as in "${a:-word}"
	wordDblQuoted                 // until a closing double quote
	wordDocument                  // until EOF; quotes are literals
)

func (p *Parser) wordParts(mode wordMode) []WordPart {
	var parts []WordPart
	var lit strings.Builder
	var litPos Pos
	flushLit := func() {
		if lit.Len() == 0 {
			return
		}
		parts = append(parts, &Lit{ValuePos: litPos, ValueEnd: p.pos(), Value: lit.String()})
		lit.Reset()
	}
	addLit := func(n int) {
		if lit.Len() == 0 {
			litPos = p.pos()
		}
		lit.WriteString(p.src[p.off : p.off+n])
		p.advance(n)
	}
	dblQuotes := mode == wordUnquoted || mode == wordBrace
	sglQuotes := mode == wordUnquoted || (mode == wordBrace && !p.inDblQuote)
loop:
	for !p.eof() {
		c := p.peek()
		switch mode {
		case wordUnquoted:
			if wordBreak(c) {
				break loop
			}
		case wordBrace:
			if c == '}' {
				break loop
			}
		case wordDblQuoted:
			if c == '"' {
				break loop
			}
		}
		switch {
		case c == '\'' && sglQuotes:
			flushLit()
			parts = append(parts, p.sglQuoted())
		case c == '"' && dblQuotes:
			flushLit()
			parts = append(parts, p.dblQuoted())
		case c == '$':
			litStart := p.pos()
			if part := p.dollar(); part != nil {
				flushLit()
				parts = append(parts, part)
				break
			}
			if lit.Len() == 0 {
				litPos = litStart
			}
			lit.WriteByte('$')
			p.advance(1)
		case c == '\\' && p.off+1 < len(p.src):
			addLit(2)
		default:
			addLit(1)
		}
	}
	flushLit()
	return parts
}

func (p *Parser) sglQuoted() *SglQuoted {
	sq := &SglQuoted{Left: p.pos()}
	p.advance(1)
	end := strings.IndexByte(p.src[p.off:], '\'')
	if end < 0 {
		p.eofErr(sq.Left, "reached EOF without closing quote '")
	}
	sq.Value = p.src[p.off : p.off+end]
	p.advance(end)
	sq.Right = p.pos()
	p.advance(1)
	return sq
}

func (p *Parser) dblQuoted() *DblQuoted {
	dq := &DblQuoted{Left: p.pos()}
	p.advance(1)
	old := p.inDblQuote
	p.inDblQuote = true
	dq.Parts = p.wordParts(wordDblQuoted)
	p.inDblQuote = old
	if p.eof() {
		p.eofErr(dq.Left, `reached EOF without closing quote "`)
	}
	dq.Right = p.pos()
	p.advance(1)
	return dq
}

// dollar parses an expansion starting with a dollar sign. It returns nil
// without consuming any input if the dollar sign is a literal.
func (p *Parser) dollar() WordPart {
	next := p.peekAt(1)
	switch {
	case p.hasPrefix("$(("):
		return p.arithmExp()
	case next == '(':
		return p.cmdSubst()
	case next == '{':
		return p.paramExpBraces()
	case isNameStart(next), isDigit(next), isSpecialParam(next):
		pe := &ParamExp{Dollar: p.pos(), Short: true}
		p.advance(1)
		start := p.pos()
		n := 1
		if isNameStart(next) {
			for n < len(p.src)-p.off && isNameByte(p.peekAt(n)) {
				n++
			}
		}
		pe.Param = &Lit{ValuePos: start, Value: p.src[p.off : p.off+n]}
		p.advance(n)
		pe.Param.ValueEnd = p.pos()
		return pe
	}
	return nil
}

func (p *Parser) cmdSubst() *CmdSubst {
	cs := &CmdSubst{Left: p.pos()}
	p.advance(2)
	old := p.inDblQuote
	p.inDblQuote = false
	cs.Stmts = p.stmtList(')')
	p.inDblQuote = old
	cs.Right = p.pos()
	p.advance(1)
	return cs
}

func (p *Parser) arithmExp() *ArithmExp {
	ae := &ArithmExp{Left: p.pos()}
	p.advance(3)
	ae.X = p.arithmExpr()
	p.skipSpace(true)
	if !p.hasPrefix("))") {
		if p.eof() {
			p.eofErr(ae.Left, "reached EOF without matching $(( with ))")
		}
		p.curErr("not a valid arithmetic operator: %c", p.peek())
	}
	ae.Right = p.pos()
	p.advance(2)
	return ae
}

func (p *Parser) paramExpBraces() *ParamExp {
	pe := &ParamExp{Dollar: p.pos()}
	p.advance(2)
	if p.peek() == '#' {
		switch c := p.peekAt(1); {
		case c == '}' || c == ':':
		case isNameStart(c), isDigit(c), isSpecialParam(c):
			pe.Length = true
			p.advance(1)
		}
	}
	pe.Param = p.paramName()
	if p.peek() == '[' {
		if !ValidName(pe.Param.Value) {
			p.curErr("cannot index a special parameter name")
		}
		lbrack := p.pos()
		p.advance(1)
		if p.hasPrefix("@]") || p.hasPrefix("*]") {
			pos := p.pos()
			p.advance(1)
			pe.Index = &Word{Parts: []WordPart{&Lit{
				ValuePos: pos,
				ValueEnd: p.pos(),
				Value:    p.src[p.off-1 : p.off],
			}}}
		} else {
			pe.Index = p.arithmExpr()
			p.skipSpace(true)
		}
		if p.peek() != ']' {
			if p.eof() {
				p.eofErr(lbrack, "reached EOF without matching [ with ]")
			}
			p.posErr(lbrack, "[ must be followed by ]")
		}
		p.advance(1)
	}
	switch {
	case p.eof():
	case p.peek() == '}':
	case pe.Length:
		p.curErr("bad substitution")
	default:
		op := p.parExpOperator()
		if op == 0 {
			p.curErr("bad substitution")
		}
		pe.Exp = &Expansion{Op: op}
		if parts := p.wordParts(wordBrace); len(parts) > 0 {
			pe.Exp.Word = &Word{Parts: parts}
		}
	}
	if p.eof() {
		p.eofErr(pe.Dollar, "reached EOF without matching ${ with }")
	}
	pe.Rbrace = p.pos()
	p.advance(1)
	return pe
}

func (p *Parser) paramName() *Lit {
	l := &Lit{ValuePos: p.pos()}
	n := 0
	switch c := p.peek(); {
	case isNameStart(c):
		for n < len(p.src)-p.off && isNameByte(p.peekAt(n)) {
			n++
		}
	case isDigit(c):
		for n < len(p.src)-p.off && isDigit(p.peekAt(n)) {
			n++
		}
	case isSpecialParam(c):
		n = 1
	default:
		if p.eof() {
			p.eofErr(l.ValuePos, "reached EOF without matching ${ with }")
		}
		p.curErr("bad substitution")
	}
	l.Value = p.src[p.off : p.off+n]
	p.advance(n)
	l.ValueEnd = p.pos()
	return l
}

var parExpOperatorsByLen = [...]struct {
	s  string
	op ParExpOperator
}{
	{":+", SubstColPlus},
	{":-", SubstColMinus},
	{":?", SubstColQuest},
	{":=", SubstColAssgn},
	{"+", SubstPlus},
	{"-", SubstMinus},
	{"?", SubstQuest},
	{"=", SubstAssgn},
}

func (p *Parser) parExpOperator() ParExpOperator {
	for _, o := range parExpOperatorsByLen {
		if p.hasPrefix(o.s) {
			p.advance(len(o.s))
			return o.op
		}
	}
	return 0
}
