package typeChecker

import (
	"errors"
	"fmt"

	"github.com/xplshn/lrc/pkg/config"
	"github.com/xplshn/lrc/pkg/grammar"
	"github.com/xplshn/lrc/pkg/ir"
	"github.com/xplshn/lrc/pkg/symtab"
	"github.com/xplshn/lrc/pkg/token"
	"github.com/xplshn/lrc/pkg/util"
)

// Production indices of the default grammar the annotator acts on.
const (
	ProdDecl = 4 // S -> D id
	ProdInt  = 5 // D -> int
)

var ErrUndeclared = errors.New("undeclared identifier")

type UndeclaredError struct {
	Tok  token.Token
	Name string
}

func (e *UndeclaredError) Error() string {
	return fmt.Sprintf("%d:%d: '%s' is used without an 'int' declaration", e.Tok.Line, e.Tok.Column, e.Name)
}

func (e *UndeclaredError) Unwrap() error { return ErrUndeclared }

// TypeChecker annotates symbol table entries with their declared type while
// the parser runs, and remembers enough token positions to report misuse
// afterwards through Check.
type TypeChecker struct {
	symbols *symtab.Table
	stack   []string

	last     token.Token
	decls    map[string]token.Token
	redecls  []token.Token
	uses     []token.Token
	stores   []token.Token
	inReturn bool
	returned bool
	dead     *token.Token
}

func NewTypeChecker() *TypeChecker {
	return &TypeChecker{decls: make(map[string]token.Token)}
}

func (tc *TypeChecker) SetSymbolTable(table *symtab.Table) { tc.symbols = table }

func (tc *TypeChecker) WhenShift(_ int, tok token.Token) {
	tc.stack = append(tc.stack, tok.Text())

	if tc.returned && tc.dead == nil {
		dead := tok
		tc.dead = &dead
	}
	switch tok.Type {
	case token.Ident:
		if tc.last.Type != token.Int {
			tc.uses = append(tc.uses, tok)
		}
	case token.Eq:
		tc.stores = append(tc.stores, tc.last)
	case token.Return:
		tc.inReturn = true
	case token.Semi:
		if tc.inReturn {
			tc.returned = true
		}
	}
	tc.last = tok
}

func (tc *TypeChecker) WhenReduce(_ int, prod *grammar.Production) {
	if len(tc.stack) == 0 {
		return
	}
	switch prod.Index {
	case ProdInt:
		tc.pop()
	case ProdDecl:
		name := tc.pop()
		if tc.symbols == nil || !tc.symbols.Has(name) {
			return
		}
		if _, seen := tc.decls[name]; seen {
			tc.redecls = append(tc.redecls, tc.last)
		} else {
			tc.decls[name] = tc.last
		}
		tc.symbols.Get(name).SetType(symtab.Int)
	}
}

func (tc *TypeChecker) WhenAccept(int) { tc.stack = tc.stack[:0] }

func (tc *TypeChecker) pop() string {
	top := tc.stack[len(tc.stack)-1]
	tc.stack = tc.stack[:len(tc.stack)-1]
	return top
}

// Depth is the number of texts left on the stack.
func (tc *TypeChecker) Depth() int { return len(tc.stack) }

// Check reports misuse found after a successful parse. prog is the IR built
// from the same parse; it is only read. With strict-decl enabled the first
// undeclared identifier is returned as an error instead of a warning.
func (tc *TypeChecker) Check(prog *ir.Program, cfg *config.Config) ([]util.Diagnostic, error) {
	if tc.symbols == nil {
		tc.symbols = symtab.New()
	}
	var diags []util.Diagnostic
	warn := func(w config.Warning, tok token.Token, format string, args ...any) {
		if cfg.IsWarningEnabled(w) {
			diags = append(diags, util.Diagnostic{Warning: w, Tok: tok, Msg: fmt.Sprintf(format, args...)})
		}
	}

	referenced := make(map[string]bool)
	reported := make(map[string]bool)
	for _, tok := range tc.uses {
		referenced[tok.Value] = true
		if tc.declared(tok.Value) || reported[tok.Value] {
			continue
		}
		if cfg.IsFeatureEnabled(config.FeatStrictDecl) {
			return diags, &UndeclaredError{Tok: tok, Name: tok.Value}
		}
		reported[tok.Value] = true
		warn(config.WarnImplicitDecl, tok, "implicit declaration of variable '%s'", tok.Value)
	}

	for _, e := range tc.symbols.Entries() {
		if decl, ok := tc.decls[e.Name]; ok && !referenced[e.Name] {
			warn(config.WarnUnused, decl, "variable '%s' declared but not used", e.Name)
		}
	}

	for _, tok := range tc.redecls {
		warn(config.WarnExtra, tok, "redeclaration of '%s'", tok.Value)
	}

	if tc.dead != nil {
		warn(config.WarnUnreachableCode, *tc.dead, "unreachable code after 'return'")
	}

	if prog != nil {
		for _, i := range deadStores(prog) {
			if i < len(tc.stores) {
				warn(config.WarnDeadStore, tc.stores[i], "value assigned to '%s' is never read", tc.stores[i].Value)
			}
		}
	}
	return diags, nil
}

func (tc *TypeChecker) declared(name string) bool {
	e := tc.symbols.Get(name)
	return e != nil && e.Type != symtab.Unknown
}

// deadStores returns the ordinals, among all MOVs into surface variables, of
// those whose value is overwritten or abandoned before any read. Code after
// the first RET never runs, so its reads do not count.
func deadStores(prog *ir.Program) []int {
	type store struct {
		ordinal int
		read    bool
	}
	pending := make(map[*ir.Variable]*store)
	var dead []int
	ordinal := 0
	flush := func(s *store) {
		if s != nil && !s.read {
			dead = append(dead, s.ordinal)
		}
	}

	for _, in := range prog.Instrs {
		for _, arg := range in.Args {
			if v, ok := arg.(*ir.Variable); ok && pending[v] != nil {
				pending[v].read = true
			}
		}
		if in.Op == ir.OpRet {
			break
		}
		if in.Op == ir.OpMov && !in.Result.Temp {
			flush(pending[in.Result])
			pending[in.Result] = &store{ordinal: ordinal}
			ordinal++
		}
	}
	for _, v := range prog.Pool.Vars() {
		flush(pending[v])
	}
	return dead
}
