package codegen

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/lrc/pkg/grammar"
	"github.com/xplshn/lrc/pkg/ir"
	"github.com/xplshn/lrc/pkg/lexer"
	"github.com/xplshn/lrc/pkg/lrtable"
	"github.com/xplshn/lrc/pkg/parser"
	"github.com/xplshn/lrc/pkg/symtab"
)

// build runs the parser with a fresh Context over src and returns the raw IR.
func build(t *testing.T, src string) *ir.Program {
	t.Helper()
	return buildWith(t, NewContext(), src)
}

func buildWith(t *testing.T, ctx *Context, src string) *ir.Program {
	t.Helper()
	tab, err := lrtable.Build(grammar.Default())
	if err != nil {
		t.Fatal(err)
	}
	toks, err := lexer.Tokenize([]rune(src), 0)
	if err != nil {
		t.Fatal(err)
	}
	p := parser.NewParser(tab, symtab.New())
	p.Register(ctx)
	p.LoadTokens(toks)
	if err := p.Run(); err != nil {
		t.Fatalf("Run(%q) error = %v", src, err)
	}
	return ctx.Program()
}

func irLines(p *ir.Program) []string {
	return strings.Split(strings.TrimSuffix(p.String(), "\n"), "\n")
}

func TestContext(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{
			src:  "int a; a = 1 + 2; return a;",
			want: []string{"ADD $0, 1, 2", "MOV a, $0", "RET a"},
		},
		{
			src:  "int b; b = 10 - a;",
			want: []string{"SUB $0, 10, a", "MOV b, $0"},
		},
		{
			src:  "x = (a + b) * (c - 4); return x * 2;",
			want: []string{"ADD $0, a, b", "SUB $1, c, 4", "MUL $2, $0, $1", "MOV x, $2", "MUL $3, x, 2", "RET $3"},
		},
		{
			src:  "a = 1 - 2 - 3;",
			want: []string{"SUB $0, 1, 2", "SUB $1, $0, 3", "MOV a, $1"},
		},
		{
			src:  "return 0x10;",
			want: []string{"RET 16"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, irLines(build(t, tt.src))); diff != "" {
				t.Errorf("IR mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestContextTempsPerInstance(t *testing.T) {
	first := build(t, "return 1 + a;")
	second := build(t, "return 2 + b;")
	if first.Instrs[0].Result.Name != "$0" || second.Instrs[0].Result.Name != "$0" {
		t.Errorf("temporaries are %s and %s, want both $0", first.Instrs[0].Result, second.Instrs[0].Result)
	}
}

func TestContextEmptyStack(t *testing.T) {
	ctx := NewContext()
	g := grammar.Default()
	for _, idx := range []int{ProdAssign, ProdReturn, ProdAdd, ProdSub, ProdMul} {
		ctx.WhenReduce(0, g.Production(idx))
	}
	if n := len(ctx.Program().Instrs); n != 0 {
		t.Errorf("reductions on an empty stack emitted %d instructions", n)
	}
}

func TestContextWithProductions(t *testing.T) {
	swapped := DefaultProductions
	swapped.Add, swapped.Sub = ProdSub, ProdAdd
	got := irLines(buildWith(t, NewContext().WithProductions(swapped), "return 5 - 2;"))
	if diff := cmp.Diff([]string{"ADD $0, 5, 2", "RET $0"}, got); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
}

func TestProductionsOrDefault(t *testing.T) {
	if diff := cmp.Diff(DefaultProductions, Productions{}.OrDefault()); diff != "" {
		t.Errorf("zero value mismatch (-want +got):\n%s", diff)
	}
	want := DefaultProductions
	want.Add, want.Sub = 9, 8
	if diff := cmp.Diff(want, Productions{Add: 9, Sub: 8}.OrDefault()); diff != "" {
		t.Errorf("partial mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestContextLeavesDeclarations(t *testing.T) {
	ctx := NewContext()
	buildWith(t, ctx, "int a; int b; a = 1;")
	if ctx.Depth() != 2 {
		t.Errorf("Depth() = %d, want the two declared names", ctx.Depth())
	}
}
