// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"fmt"
	"strings"
)

// Node represents a syntax tree node.
type Node interface {
	// Pos returns the position of the first character of the node.
	Pos() Pos
	// End returns the position of the character immediately after the node.
	End() Pos
}

// Pos is a position within a source file. The zero value is not valid.
type Pos struct {
	offs uint32
	line uint32
	col  uint32
}

// NewPos creates a position with the given offset, line, and column.
func NewPos(offset, line, column uint) Pos {
	return Pos{offs: uint32(offset), line: uint32(line), col: uint32(column)}
}

// Offset returns the byte offset of the position in the original source file.
func (p Pos) Offset() uint { return uint(p.offs) }

// Line returns the line number of the position, starting at 1.
func (p Pos) Line() uint { return uint(p.line) }

// Col returns the column number of the position, starting at 1. It counts
// in bytes.
func (p Pos) Col() uint { return uint(p.col) }

// IsValid reports whether the position contains useful information.
func (p Pos) IsValid() bool { return p.line > 0 }

// After reports whether the position p is after p2.
func (p Pos) After(p2 Pos) bool { return p.offs > p2.offs }

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.line, p.col)
}

// posAddCol moves a position forward on the same line.
func posAddCol(p Pos, n int) Pos {
	if !p.IsValid() {
		return p
	}
	p.offs += uint32(n)
	p.col += uint32(n)
	return p
}

// File represents a shell source file.
type File struct {
	Name string

	Stmts []*Stmt
}

func (f *File) Pos() Pos { return stmtsFirstPos(f.Stmts) }
func (f *File) End() Pos { return stmtsLastEnd(f.Stmts) }

// Stmt represents a statement, a command along with its position.
type Stmt struct {
	Position Pos
	Cmd      Command
}

func (s *Stmt) Pos() Pos { return s.Position }
func (s *Stmt) End() Pos {
	if s.Cmd == nil {
		return s.Position
	}
	return s.Cmd.End()
}

// Command represents all nodes that are commands, which are directly placed
// in a Stmt.
//
// These are *CallExpr, *BinaryCmd, and *Subshell.
type Command interface {
	Node
	commandNode()
}

func (*CallExpr) commandNode()  {}
func (*BinaryCmd) commandNode() {}
func (*Subshell) commandNode()  {}

// Assign represents an assignment to a variable.
//
// Exactly one of Value and Array is non-nil, unless the assignment has an
// empty value, in which case both are nil.
type Assign struct {
	Name  *Lit
	Index ArithmExpr // Name[Index]=...
	Value *Word
	Array *ArrayExpr
}

func (a *Assign) Pos() Pos { return a.Name.Pos() }
func (a *Assign) End() Pos {
	if a.Value != nil {
		return a.Value.End()
	}
	if a.Array != nil {
		return a.Array.End()
	}
	// name=
	return posAddCol(a.Name.End(), 1)
}

// ArrayExpr represents a Bash array expression, such as (a b c).
type ArrayExpr struct {
	Lparen, Rparen Pos

	Elems []*Word
}

func (a *ArrayExpr) Pos() Pos { return a.Lparen }
func (a *ArrayExpr) End() Pos { return posAddCol(a.Rparen, 1) }

// CallExpr represents a command execution or function call, optionally
// preceded by variable assignments.
//
// If Args is empty, Assigns apply to the shell environment. Otherwise, they
// only apply to the command being run.
type CallExpr struct {
	Assigns []*Assign
	Args    []*Word
}

func (c *CallExpr) Pos() Pos {
	if len(c.Assigns) > 0 {
		return c.Assigns[0].Pos()
	}
	return c.Args[0].Pos()
}

func (c *CallExpr) End() Pos {
	if len(c.Args) == 0 {
		return c.Assigns[len(c.Assigns)-1].End()
	}
	return c.Args[len(c.Args)-1].End()
}

// BinaryCmd represents a binary expression between two statements, such as
// "a && b".
type BinaryCmd struct {
	OpPos Pos
	Op    BinCmdOperator
	X, Y  *Stmt
}

func (b *BinaryCmd) Pos() Pos { return b.X.Pos() }
func (b *BinaryCmd) End() Pos { return b.Y.End() }

// Subshell represents a series of commands that should be executed in a
// nested shell environment.
type Subshell struct {
	Lparen, Rparen Pos

	Stmts []*Stmt
}

func (s *Subshell) Pos() Pos { return s.Lparen }
func (s *Subshell) End() Pos { return posAddCol(s.Rparen, 1) }

// Word represents a shell word, containing one or more word parts contiguous
// to each other. The word is delimited by word boundaries, such as spaces,
// newlines, semicolons, or parentheses.
type Word struct {
	Parts []WordPart
}

func (w *Word) Pos() Pos { return w.Parts[0].Pos() }
func (w *Word) End() Pos { return w.Parts[len(w.Parts)-1].End() }

// Lit returns the word as a literal value, if the word consists of *Lit nodes
// only. An empty string is returned otherwise.
//
// For example, the word "foo" will return "foo", but the word "foo${bar}" will
// return "".
func (w *Word) Lit() string {
	if len(w.Parts) == 1 {
		if lit, ok := w.Parts[0].(*Lit); ok {
			return lit.Value
		}
		return ""
	}
	var sb strings.Builder
	for _, part := range w.Parts {
		lit, ok := part.(*Lit)
		if !ok {
			return ""
		}
		sb.WriteString(lit.Value)
	}
	return sb.String()
}

// WordPart represents all nodes that can form part of a word.
//
// These are *Lit, *SglQuoted, *DblQuoted, *ParamExp, *CmdSubst, and
// *ArithmExp.
type WordPart interface {
	Node
	wordPartNode()
}

func (*Lit) wordPartNode()       {}
func (*SglQuoted) wordPartNode() {}
func (*DblQuoted) wordPartNode() {}
func (*ParamExp) wordPartNode()  {}
func (*CmdSubst) wordPartNode()  {}
func (*ArithmExp) wordPartNode() {}

// Lit represents a string literal.
//
// Note that a parsed string literal may not appear as-is in the original
// source code, as it is possible to split literals by escaping newlines.
// The splitting is lost, but the end position is not.
type Lit struct {
	ValuePos, ValueEnd Pos
	Value              string
}

func (l *Lit) Pos() Pos { return l.ValuePos }
func (l *Lit) End() Pos { return l.ValueEnd }

// SglQuoted represents a string within single quotes.
type SglQuoted struct {
	Left, Right Pos
	Value       string
}

func (q *SglQuoted) Pos() Pos { return q.Left }
func (q *SglQuoted) End() Pos { return posAddCol(q.Right, 1) }

// DblQuoted represents a list of nodes within double quotes.
type DblQuoted struct {
	Left, Right Pos
	Parts       []WordPart
}

func (q *DblQuoted) Pos() Pos { return q.Left }
func (q *DblQuoted) End() Pos { return posAddCol(q.Right, 1) }

// CmdSubst represents a command substitution.
type CmdSubst struct {
	Left, Right Pos

	Stmts []*Stmt
}

func (c *CmdSubst) Pos() Pos { return c.Left }
func (c *CmdSubst) End() Pos { return posAddCol(c.Right, 1) }

// ParamExp represents a parameter expansion.
type ParamExp struct {
	Dollar, Rbrace Pos

	Short  bool // $a instead of ${a}
	Length bool // ${#a}

	Param *Lit
	Index ArithmExpr // ${a[i]}, ${a[@]}
	Exp   *Expansion // ${a:-b}, ${a=b}, etc
}

func (p *ParamExp) Pos() Pos { return p.Dollar }
func (p *ParamExp) End() Pos {
	if !p.Short {
		return posAddCol(p.Rbrace, 1)
	}
	return p.Param.End()
}

// Expansion represents a conditional expansion in a ParamExp, such as the
// ":-b" in "${a:-b}".
//
// Word is nil if the expansion has no word, as in "${a:?}".
type Expansion struct {
	Op   ParExpOperator
	Word *Word
}

// ArithmExp represents an arithmetic expansion.
type ArithmExp struct {
	Left, Right Pos
	X           ArithmExpr
}

func (a *ArithmExp) Pos() Pos { return a.Left }
func (a *ArithmExp) End() Pos { return posAddCol(a.Right, 2) }

// ArithmExpr represents all nodes that form arithmetic expressions.
//
// These are *BinaryArithm, *UnaryArithm, *ParenArithm, and *Word.
type ArithmExpr interface {
	Node
	arithmExprNode()
}

func (*BinaryArithm) arithmExprNode() {}
func (*UnaryArithm) arithmExprNode()  {}
func (*ParenArithm) arithmExprNode()  {}
func (*Word) arithmExprNode()         {}

// BinaryArithm represents a binary arithmetic expression.
//
// If Op is any assign operator, X will be a word with a single *Lit whose
// value is a valid name.
type BinaryArithm struct {
	OpPos Pos
	Op    BinAritOperator
	X, Y  ArithmExpr
}

func (b *BinaryArithm) Pos() Pos { return b.X.Pos() }
func (b *BinaryArithm) End() Pos { return b.Y.End() }

// UnaryArithm represents an unary arithmetic expression. The unary operator
// may come before or after the sub-expression.
//
// If Op is Inc or Dec, X will be a word with a single *Lit whose value is a
// valid name.
type UnaryArithm struct {
	OpPos Pos
	Op    UnAritOperator
	Post  bool
	X     ArithmExpr
}

func (u *UnaryArithm) Pos() Pos {
	if u.Post {
		return u.X.Pos()
	}
	return u.OpPos
}

func (u *UnaryArithm) End() Pos {
	if u.Post {
		return posAddCol(u.OpPos, 2)
	}
	return u.X.End()
}

// ParenArithm represents an arithmetic expression within parentheses.
type ParenArithm struct {
	Lparen, Rparen Pos

	X ArithmExpr
}

func (p *ParenArithm) Pos() Pos { return p.Lparen }
func (p *ParenArithm) End() Pos { return posAddCol(p.Rparen, 1) }

func stmtsFirstPos(sts []*Stmt) Pos {
	if len(sts) == 0 {
		return Pos{}
	}
	return sts[0].Pos()
}

func stmtsLastEnd(sts []*Stmt) Pos {
	if len(sts) == 0 {
		return Pos{}
	}
	return sts[len(sts)-1].End()
}
