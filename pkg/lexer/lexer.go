package lexer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/xplshn/lrc/pkg/token"
)

// Error is a lexical error anchored at the offending token.
type Error struct {
	Tok token.Token
	Msg string
}

func (e *Error) Error() string { return e.Msg }

// Directive is a `// [lrc]: <flags>` line comment. Tok spans the comment.
type Directive struct {
	Tok   token.Token
	Flags string
}

type Lexer struct {
	source     []rune
	fileIndex  int
	pos        int
	line       int
	column     int
	directives []Directive
}

func NewLexer(source []rune, fileIndex int) *Lexer {
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1,
	}
}

// Tokenize scans the whole source. The returned slice always ends with an
// EOF token.
func Tokenize(source []rune, fileIndex int) ([]token.Token, error) {
	l := NewLexer(source, fileIndex)
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) Next() (token.Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return token.Token{}, err
	}
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine), nil
	}

	ch := l.peek()
	if unicode.IsLetter(ch) || ch == '_' {
		l.advance()
		return l.identifierOrKeyword(startPos, startCol, startLine), nil
	}
	if unicode.IsDigit(ch) {
		return l.numberLiteral(startPos, startCol, startLine)
	}

	l.advance()
	switch ch {
	case '(': return l.makeToken(token.LParen, "", startPos, startCol, startLine), nil
	case ')': return l.makeToken(token.RParen, "", startPos, startCol, startLine), nil
	case ';': return l.makeToken(token.Semi, "", startPos, startCol, startLine), nil
	case '=': return l.makeToken(token.Eq, "", startPos, startCol, startLine), nil
	case '+': return l.makeToken(token.Plus, "", startPos, startCol, startLine), nil
	case '-': return l.makeToken(token.Minus, "", startPos, startCol, startLine), nil
	case '*': return l.makeToken(token.Star, "", startPos, startCol, startLine), nil
	}

	tok := l.makeToken(token.EOF, "", startPos, startCol, startLine)
	return tok, &Error{Tok: tok, Msg: fmt.Sprintf("Unexpected character: '%c'", ch)}
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r':
			l.advance()
		case '/':
			switch l.peekNext() {
			case '*':
				if err := l.blockComment(); err != nil {
					return err
				}
			case '/':
				l.lineCommentOrDirective()
			default:
				return nil
			}
		default:
			return nil
		}
	}
}

func (l *Lexer) blockComment() error {
	startPos, startCol, startLine := l.pos, l.column, l.line
	l.advance()
	l.advance()
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			return nil
		}
		l.advance()
	}
	tok := l.makeToken(token.EOF, "", startPos, startCol, startLine)
	tok.Len = 2
	return &Error{Tok: tok, Msg: "Unterminated block comment"}
}

func (l *Lexer) lineCommentOrDirective() {
	startPos, startCol, startLine := l.pos, l.column, l.line
	l.advance()
	l.advance()
	contentStart := l.pos
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
	content := strings.TrimSpace(string(l.source[contentStart:l.pos]))
	if strings.HasPrefix(content, "[lrc]:") {
		l.directives = append(l.directives, Directive{
			Tok:   l.makeToken(token.EOF, "", startPos, startCol, startLine),
			Flags: strings.TrimSpace(strings.TrimPrefix(content, "[lrc]:")),
		})
	}
}

// Directives returns the directive comments skipped so far, in source order.
func (l *Lexer) Directives() []Directive { return l.directives }

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.Ident, value, startPos, startCol, startLine)

	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		tok.Type = tokType
		tok.Value = ""
	}
	return tok
}

// numberLiteral accepts decimal and 0x-prefixed hex constants and stores the
// value in canonical decimal form.
func (l *Lexer) numberLiteral(startPos, startCol, startLine int) (token.Token, error) {
	base := 10
	if l.peek() == '0' && (l.peekNext() == 'x' || l.peekNext() == 'X') {
		base = 16
		l.advance()
		l.advance()
		for isHexDigit(l.peek()) {
			l.advance()
		}
	} else {
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}
	for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}

	valueStr := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.IntConst, valueStr, startPos, startCol, startLine)

	digits := valueStr
	if base == 16 {
		digits = valueStr[2:]
	}
	val, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return tok, &Error{Tok: tok, Msg: fmt.Sprintf("Malformed integer constant '%s'", valueStr)}
	}
	if val > math.MaxInt32 {
		return tok, &Error{Tok: tok, Msg: fmt.Sprintf("Integer constant '%s' does not fit in a 32-bit int", valueStr)}
	}
	tok.Value = strconv.FormatUint(val, 10)
	return tok, nil
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
