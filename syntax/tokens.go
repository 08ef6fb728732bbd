// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

// ParExpOperator is the operator of a conditional parameter expansion, such
// as the ":-" in "${a:-b}".
type ParExpOperator uint8

const (
	SubstPlus     ParExpOperator = iota + 1 // +
	SubstColPlus                            // :+
	SubstMinus                              // -
	SubstColMinus                           // :-
	SubstQuest                              // ?
	SubstColQuest                           // :?
	SubstAssgn                              // =
	SubstColAssgn                           // :=
)

var parExpOperators = [...]string{
	SubstPlus:     "+",
	SubstColPlus:  ":+",
	SubstMinus:    "-",
	SubstColMinus: ":-",
	SubstQuest:    "?",
	SubstColQuest: ":?",
	SubstAssgn:    "=",
	SubstColAssgn: ":=",
}

func (o ParExpOperator) String() string {
	if int(o) < len(parExpOperators) && parExpOperators[o] != "" {
		return parExpOperators[o]
	}
	return "ParExpOperator(?)"
}

// TestsEmpty reports whether the operator is one of the colon variants,
// which treat a variable set to the empty string like an unset one.
func (o ParExpOperator) TestsEmpty() bool {
	switch o {
	case SubstColPlus, SubstColMinus, SubstColQuest, SubstColAssgn:
		return true
	}
	return false
}

// BinCmdOperator joins two statements in a BinaryCmd.
type BinCmdOperator uint8

const (
	AndStmt BinCmdOperator = iota + 1 // &&
	OrStmt                            // ||
)

func (o BinCmdOperator) String() string {
	switch o {
	case AndStmt:
		return "&&"
	case OrStmt:
		return "||"
	}
	return "BinCmdOperator(?)"
}

// UnAritOperator is the operator of a UnaryArithm.
type UnAritOperator uint8

const (
	Not         UnAritOperator = iota + 1 // !
	BitNegation                           // ~
	Inc                                   // ++
	Dec                                   // --
	Plus                                  // +
	Minus                                 // -
)

var unAritOperators = [...]string{
	Not:         "!",
	BitNegation: "~",
	Inc:         "++",
	Dec:         "--",
	Plus:        "+",
	Minus:       "-",
}

func (o UnAritOperator) String() string {
	if int(o) < len(unAritOperators) && unAritOperators[o] != "" {
		return unAritOperators[o]
	}
	return "UnAritOperator(?)"
}

// BinAritOperator is the operator of a BinaryArithm.
type BinAritOperator uint8

const (
	Add BinAritOperator = iota + 1 // +
	Sub                            // -
	Mul                            // *
	Quo                            // /
	Rem                            // %
	Pow                            // **
	Eql                            // ==
	Gtr                            // >
	Lss                            // <
	Neq                            // !=
	Leq                            // <=
	Geq                            // >=
	And                            // &
	Or                             // |
	Xor                            // ^
	Shr                            // >>
	Shl                            // <<

	AndArit // &&
	OrArit  // ||
	Comma   // ,

	Assgn    // =
	AddAssgn // +=
	SubAssgn // -=
	MulAssgn // *=
	QuoAssgn // /=
	RemAssgn // %=
	AndAssgn // &=
	OrAssgn  // |=
	XorAssgn // ^=
	ShlAssgn // <<=
	ShrAssgn // >>=
)

var binAritOperators = [...]string{
	Add:      "+",
	Sub:      "-",
	Mul:      "*",
	Quo:      "/",
	Rem:      "%",
	Pow:      "**",
	Eql:      "==",
	Gtr:      ">",
	Lss:      "<",
	Neq:      "!=",
	Leq:      "<=",
	Geq:      ">=",
	And:      "&",
	Or:       "|",
	Xor:      "^",
	Shr:      ">>",
	Shl:      "<<",
	AndArit:  "&&",
	OrArit:   "||",
	Comma:    ",",
	Assgn:    "=",
	AddAssgn: "+=",
	SubAssgn: "-=",
	MulAssgn: "*=",
	QuoAssgn: "/=",
	RemAssgn: "%=",
	AndAssgn: "&=",
	OrAssgn:  "|=",
	XorAssgn: "^=",
	ShlAssgn: "<<=",
	ShrAssgn: ">>=",
}

func (o BinAritOperator) String() string {
	if int(o) < len(binAritOperators) && binAritOperators[o] != "" {
		return binAritOperators[o]
	}
	return "BinAritOperator(?)"
}

// IsAssign reports whether the operator assigns to its left operand.
func (o BinAritOperator) IsAssign() bool {
	return o >= Assgn && o <= ShrAssgn
}
