package compiler

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xplshn/lrc/pkg/codegen"
	"github.com/xplshn/lrc/pkg/config"
	"github.com/xplshn/lrc/pkg/grammar"
	"github.com/xplshn/lrc/pkg/ir"
	"github.com/xplshn/lrc/pkg/lexer"
	"github.com/xplshn/lrc/pkg/lrtable"
	"github.com/xplshn/lrc/pkg/parser"
	"github.com/xplshn/lrc/pkg/symtab"
	"github.com/xplshn/lrc/pkg/token"
	"github.com/xplshn/lrc/pkg/typeChecker"
	"github.com/xplshn/lrc/pkg/util"
)

type Stage string

const (
	StageLex       Stage = "lex"
	StageDirective Stage = "directive"
	StageTable     Stage = "table"
	StageParse     Stage = "parse"
	StageCheck     Stage = "check"
	StageCodegen   Stage = "codegen"
	StageBackend   Stage = "backend"
)

// StageError tags a failure with the pipeline stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Token returns the source position the underlying error points at, or the
// zero token when it carries none.
func (e *StageError) Token() token.Token {
	var (
		lexErr    *lexer.Error
		synErr    *parser.SyntaxError
		undeclErr *typeChecker.UndeclaredError
		dirErr    *DirectiveError
	)
	switch {
	case errors.As(e.Err, &lexErr):
		return lexErr.Tok
	case errors.As(e.Err, &synErr):
		return synErr.Token
	case errors.As(e.Err, &undeclErr):
		return undeclErr.Tok
	case errors.As(e.Err, &dirErr):
		return dirErr.Tok
	}
	return token.Token{}
}

type DirectiveError struct {
	Tok token.Token
	Err error
}

func (e *DirectiveError) Error() string { return fmt.Sprintf("bad directive: %v", e.Err) }
func (e *DirectiveError) Unwrap() error { return e.Err }

type Options struct {
	// Grammar is the grammar text to build the parse table from. Empty
	// selects the built-in grammar.
	Grammar string
	// Productions maps the arithmetic and statement productions of Grammar
	// to IR. Unset fields take their codegen.DefaultProductions index.
	Productions codegen.Productions
}

// Result holds every artifact of one compilation.
type Result struct {
	// Config is the configuration after the file's directives were applied.
	Config      *config.Config
	Table       *lrtable.Table
	Tokens      []token.Token
	OldSymbols  string
	NewSymbols  string
	Reductions  []*grammar.Production
	IR          *ir.Program
	Legalized   *ir.Program
	Emulation   ir.Result
	EmulateErr  error
	Assembly    string
	Diagnostics []util.Diagnostic
}

// Compile runs the whole pipeline over src. cfg is not modified; directives
// in src apply to a copy.
func Compile(src []rune, fileIndex int, cfg *config.Config, opts Options) (*Result, error) {
	res := &Result{Config: cfg.Clone()}
	cfg = res.Config

	lx := lexer.NewLexer(src, fileIndex)
	for {
		tok, err := lx.Next()
		if err != nil {
			return res, &StageError{StageLex, err}
		}
		res.Tokens = append(res.Tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	for _, d := range lx.Directives() {
		if err := cfg.ProcessDirectiveFlags(d.Flags); err != nil {
			return res, &StageError{StageDirective, &DirectiveError{Tok: d.Tok, Err: err}}
		}
		util.Info("directive '%s' applied", d.Flags)
	}

	symbols := symtab.New()
	for _, tok := range res.Tokens {
		if tok.Type == token.Ident {
			symbols.Add(tok.Value)
		}
	}
	res.OldSymbols = dumpString(symbols.Dump)

	grammarSrc := opts.Grammar
	if grammarSrc == "" {
		grammarSrc = grammar.DefaultSource()
	}
	table, err := lrtable.Cached(grammarSrc)
	if err != nil {
		return res, &StageError{StageTable, err}
	}
	res.Table = table
	util.Info("parse table ready, %d states", table.NumStates())

	ctx := codegen.NewContext().WithProductions(opts.Productions.OrDefault())
	tc := typeChecker.NewTypeChecker()
	collector := &parser.ProductionCollector{}

	p := parser.NewParser(table, symbols)
	if cfg.IsFeatureEnabled(config.FeatTrace) {
		p.Register(&parser.Tracer{W: util.Stderr})
	}
	p.Register(collector)
	p.Register(ctx)
	p.Register(tc)
	p.LoadTokens(res.Tokens)
	if err := p.Run(); err != nil {
		return res, &StageError{StageParse, err}
	}
	res.Reductions = collector.Reduced
	res.NewSymbols = dumpString(symbols.Dump)
	res.IR = ctx.Program()

	res.Diagnostics, err = tc.Check(res.IR, cfg)
	if err != nil {
		return res, &StageError{StageCheck, err}
	}

	res.Legalized = (&ir.Legalizer{Fold: cfg.IsFeatureEnabled(config.FeatFold)}).Run(res.IR)
	res.Emulation, res.EmulateErr = ir.Emulate(res.Legalized)
	util.Info("%d IR instructions, %d after legalization", len(res.IR.Instrs), len(res.Legalized.Instrs))

	backend, err := codegen.SelectBackend(cfg)
	if err != nil {
		return res, &StageError{StageBackend, err}
	}
	buf, err := backend.Generate(res.Legalized, cfg)
	if err != nil {
		stage := StageBackend
		if errors.Is(err, codegen.ErrRegistersExhausted) || errors.Is(err, codegen.ErrUnencodable) {
			stage = StageCodegen
		}
		return res, &StageError{stage, err}
	}
	res.Assembly = buf.String()
	return res, nil
}

func dumpString(dump func(io.Writer) error) string {
	var sb strings.Builder
	dump(&sb)
	return sb.String()
}
