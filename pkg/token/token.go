package token

import "fmt"

type Type int

const (
	EOF Type = iota
	Ident
	IntConst
	Int
	Return
	Eq
	Plus
	Minus
	Star
	LParen
	RParen
	Semi
	typeCount
)

var KeywordMap = map[string]Type{
	"int":    Int,
	"return": Return,
}

// terminals maps every token type to the terminal name used by the grammar.
var terminals = [typeCount]string{
	EOF:      "$",
	Ident:    "id",
	IntConst: "IntConst",
	Int:      "int",
	Return:   "return",
	Eq:       "=",
	Plus:     "+",
	Minus:    "-",
	Star:     "*",
	LParen:   "(",
	RParen:   ")",
	Semi:     "Semicolon",
}

// Reverse mapping from terminal name to Type
var TerminalTypes = make(map[string]Type)

func init() {
	for typ, name := range terminals {
		TerminalTypes[name] = Type(typ)
	}
}

// Terminal returns the grammar terminal this token type is matched against.
func (t Type) Terminal() string {
	if t < 0 || t >= typeCount {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return terminals[t]
}

func (t Type) String() string { return t.Terminal() }

// Spelling is how the token type is written in source. It differs from the
// terminal name only for the statement separator.
func (t Type) Spelling() string {
	if t == Semi {
		return ";"
	}
	return t.Terminal()
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}

// Text is the literal text carried by the token. Only identifiers and
// integer constants carry one.
func (t Token) Text() string { return t.Value }

// Source is the token as it appears in the source file.
func (t Token) Source() string {
	if t.Value != "" {
		return t.Value
	}
	return t.Type.Spelling()
}

// String renders the token the way token.txt lists it.
func (t Token) String() string { return fmt.Sprintf("(%s,%s)", t.Type.Terminal(), t.Value) }

func Eof() Token { return Token{Type: EOF} }
