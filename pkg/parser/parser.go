package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xplshn/lrc/pkg/grammar"
	"github.com/xplshn/lrc/pkg/lrtable"
	"github.com/xplshn/lrc/pkg/symtab"
	"github.com/xplshn/lrc/pkg/token"
)

var ErrSyntax = errors.New("syntax error")

// SyntaxError is returned when the table has no action for the current
// state and lookahead, or no goto after a reduction.
type SyntaxError struct {
	State    int
	Token    token.Token
	Expected []string
	Reason   string
}

func (e *SyntaxError) Error() string {
	var sb strings.Builder
	switch {
	case e.Reason != "":
		sb.WriteString(e.Reason)
	case e.Token.Type == token.EOF:
		sb.WriteString("unexpected end of input")
	default:
		fmt.Fprintf(&sb, "unexpected '%s'", e.Token.Source())
	}
	if len(e.Expected) > 0 {
		spelled := make([]string, len(e.Expected))
		for i, name := range e.Expected {
			spelled[i] = name
			if typ, ok := token.TerminalTypes[name]; ok && typ != token.EOF {
				spelled[i] = typ.Spelling()
			}
		}
		fmt.Fprintf(&sb, ", expected one of: %s", strings.Join(spelled, " "))
	}
	fmt.Fprintf(&sb, " (state %d)", e.State)
	return sb.String()
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Automaton is the read-only action/goto table the driver runs on.
type Automaton interface {
	InitialState() int
	Action(state int, terminal string) lrtable.Action
	Goto(state int, nonterminal string) (int, bool)
}

// Listener observes the driver. Each notification is delivered before the
// driver mutates its stacks for that step.
type Listener interface {
	WhenShift(state int, tok token.Token)
	WhenReduce(state int, prod *grammar.Production)
	WhenAccept(state int)
	SetSymbolTable(table *symtab.Table)
}

// Parser holds the state for the parsing process
type Parser struct {
	table     Automaton
	symbols   *symtab.Table
	listeners []Listener

	tokens []token.Token
	pos    int

	stateStack  []int
	symbolStack []string
}

func NewParser(table Automaton, symbols *symtab.Table) *Parser {
	return &Parser{table: table, symbols: symbols}
}

// Register appends l to the notification list and hands it the symbol table.
func (p *Parser) Register(l Listener) {
	l.SetSymbolTable(p.symbols)
	p.listeners = append(p.listeners, l)
}

func (p *Parser) LoadTokens(tokens []token.Token) {
	p.tokens = tokens
	p.pos = 0
}

// Parser helpers
func (p *Parser) current() token.Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	eof := token.Eof()
	if n := len(p.tokens); n > 0 {
		last := p.tokens[n-1]
		eof.FileIndex, eof.Line, eof.Column = last.FileIndex, last.Line, last.Column+last.Len
	}
	return eof
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *Parser) top() int { return p.stateStack[len(p.stateStack)-1] }

func (p *Parser) pop(n int) {
	p.stateStack = p.stateStack[:len(p.stateStack)-n]
	p.symbolStack = p.symbolStack[:len(p.symbolStack)-n]
}

func (p *Parser) push(state int, symbol string) {
	p.stateStack = append(p.stateStack, state)
	p.symbolStack = append(p.symbolStack, symbol)
}

// Run drives the automaton over the loaded tokens until Accept or an error.
func (p *Parser) Run() error {
	p.stateStack = append(p.stateStack[:0], p.table.InitialState())
	p.symbolStack = append(p.symbolStack[:0], grammar.EndMarker.Name)

	for {
		state, tok := p.top(), p.current()
		act := p.table.Action(state, tok.Type.Terminal())

		switch act.Kind {
		case lrtable.Shift:
			for _, l := range p.listeners {
				l.WhenShift(state, tok)
			}
			p.push(act.State, tok.Type.Terminal())
			p.advance()

		case lrtable.Reduce:
			prod := act.Production
			for _, l := range p.listeners {
				l.WhenReduce(state, prod)
			}
			if len(prod.Body) >= len(p.stateStack) {
				return &SyntaxError{State: state, Token: tok, Reason: fmt.Sprintf("stack underflow reducing '%s'", prod)}
			}
			p.pop(len(prod.Body))
			next, ok := p.table.Goto(p.top(), prod.Head.Name)
			if !ok {
				return &SyntaxError{State: p.top(), Token: tok, Reason: fmt.Sprintf("no goto on '%s'", prod.Head.Name)}
			}
			p.push(next, prod.Head.Name)

		case lrtable.Accept:
			for _, l := range p.listeners {
				l.WhenAccept(state)
			}
			return nil

		default:
			return p.syntaxError(state, tok)
		}
	}
}

func (p *Parser) syntaxError(state int, tok token.Token) error {
	err := &SyntaxError{State: state, Token: tok}
	if ex, ok := p.table.(interface{ Expected(int) []string }); ok {
		err.Expected = ex.Expected(state)
	}
	return err
}

// Symbols returns the grammar symbols currently on the stack, bottom first.
func (p *Parser) Symbols() []string { return append([]string(nil), p.symbolStack...) }
