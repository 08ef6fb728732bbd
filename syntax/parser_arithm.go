// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

// arithmOperators lists the binary arithmetic operators, longest first so
// that a prefix match finds the right one.
var arithmOperators = [...]struct {
	s     string
	op    BinAritOperator
	prec  int
	right bool
}{
	{"<<=", ShlAssgn, 2, true},
	{">>=", ShrAssgn, 2, true},
	{"**", Pow, 14, true},
	{"<<", Shl, 11, false},
	{">>", Shr, 11, false},
	{"<=", Leq, 10, false},
	{">=", Geq, 10, false},
	{"==", Eql, 9, false},
	{"!=", Neq, 9, false},
	{"&&", AndArit, 5, false},
	{"||", OrArit, 4, false},
	{"+=", AddAssgn, 2, true},
	{"-=", SubAssgn, 2, true},
	{"*=", MulAssgn, 2, true},
	{"/=", QuoAssgn, 2, true},
	{"%=", RemAssgn, 2, true},
	{"&=", AndAssgn, 2, true},
	{"|=", OrAssgn, 2, true},
	{"^=", XorAssgn, 2, true},
	{"+", Add, 12, false},
	{"-", Sub, 12, false},
	{"*", Mul, 13, false},
	{"/", Quo, 13, false},
	{"%", Rem, 13, false},
	{"<", Lss, 10, false},
	{">", Gtr, 10, false},
	{"&", And, 8, false},
	{"|", Or, 6, false},
	{"^", Xor, 7, false},
	{"=", Assgn, 2, true},
	{",", Comma, 1, false},
}

// arithmExpr parses an arithmetic expression, stopping at the first byte
// which cannot continue it, such as the closing parentheses in "$((1+2))" or
// the closing bracket in "${a[1]}".
func (p *Parser) arithmExpr() ArithmExpr {
	return p.arithmBinary(1)
}

func (p *Parser) arithmBinary(minPrec int) ArithmExpr {
	x := p.arithmUnary()
	for {
		p.skipSpace(true)
		i := p.arithmOperator()
		if i < 0 || arithmOperators[i].prec < minPrec {
			return x
		}
		o := arithmOperators[i]
		opPos := p.pos()
		if o.op.IsAssign() && !isNameWord(x) {
			p.posErr(opPos, "%s must follow a name", o.op)
		}
		p.advance(len(o.s))
		next := o.prec + 1
		if o.right {
			next = o.prec
		}
		y := p.arithmBinary(next)
		x = &BinaryArithm{OpPos: opPos, Op: o.op, X: x, Y: y}
	}
}

func (p *Parser) arithmOperator() int {
	for i, o := range arithmOperators {
		if p.hasPrefix(o.s) {
			// "+" and "-" followed by themselves are increments and
			// decrements, not binary operators.
			if (o.op == Add || o.op == Sub) && p.peekAt(1) == o.s[0] {
				return -1
			}
			return i
		}
	}
	return -1
}

func (p *Parser) arithmUnary() ArithmExpr {
	p.skipSpace(true)
	opPos := p.pos()
	switch {
	case p.hasPrefix("++"), p.hasPrefix("--"):
		op := Inc
		if p.peek() == '-' {
			op = Dec
		}
		p.advance(2)
		x := p.arithmUnary()
		if !isNameWord(x) {
			p.posErr(opPos, "%s must be followed by a name", op)
		}
		return &UnaryArithm{OpPos: opPos, Op: op, X: x}
	case p.peek() == '!', p.peek() == '~', p.peek() == '+', p.peek() == '-':
		var op UnAritOperator
		switch p.peek() {
		case '!':
			op = Not
		case '~':
			op = BitNegation
		case '+':
			op = Plus
		default:
			op = Minus
		}
		p.advance(1)
		return &UnaryArithm{OpPos: opPos, Op: op, X: p.arithmUnary()}
	}
	x := p.arithmPrimary()
	p.skipSpace(false)
	if (p.hasPrefix("++") || p.hasPrefix("--")) && isNameWord(x) {
		op := Inc
		if p.peek() == '-' {
			op = Dec
		}
		u := &UnaryArithm{OpPos: p.pos(), Op: op, Post: true, X: x}
		p.advance(2)
		return u
	}
	return x
}

func (p *Parser) arithmPrimary() ArithmExpr {
	pos := p.pos()
	switch c := p.peek(); {
	case c == '(':
		p.advance(1)
		pa := &ParenArithm{Lparen: pos, X: p.arithmExpr()}
		p.skipSpace(true)
		if p.peek() != ')' {
			if p.eof() {
				p.eofErr(pos, "reached EOF without matching ( with )")
			}
			p.posErr(pos, "( must be followed by )")
		}
		pa.Rparen = p.pos()
		p.advance(1)
		return pa
	case c == '$':
		part := p.dollar()
		if part == nil {
			p.curErr("$ must be followed by a name or an expansion")
		}
		return &Word{Parts: []WordPart{part}}
	case isNameByte(c):
		n := 1
		for n < len(p.src)-p.off && (isNameByte(p.peekAt(n)) || p.peekAt(n) == '#') {
			n++
		}
		lit := &Lit{ValuePos: pos, Value: p.src[p.off : p.off+n]}
		p.advance(n)
		lit.ValueEnd = p.pos()
		return &Word{Parts: []WordPart{lit}}
	case p.eof():
		p.eofErr(pos, "reached EOF while parsing an arithmetic expression")
	}
	p.curErr("%q is not a valid arithmetic operand", p.peek())
	return nil
}

// isNameWord reports whether x is a word consisting of a single valid name,
// the only kind of arithmetic expression that can be assigned to.
func isNameWord(x ArithmExpr) bool {
	w, ok := x.(*Word)
	return ok && ValidName(w.Lit())
}
