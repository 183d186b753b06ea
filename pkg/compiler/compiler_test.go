package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/lrc/pkg/codegen"
	"github.com/xplshn/lrc/pkg/config"
	"github.com/xplshn/lrc/pkg/ir"
	"github.com/xplshn/lrc/pkg/parser"
	"github.com/xplshn/lrc/pkg/typeChecker"
)

func compile(t *testing.T, src string, cfg *config.Config) *Result {
	t.Helper()
	res, err := Compile([]rune(src), 0, cfg, Options{})
	if err != nil {
		t.Fatalf("Compile(%q) error = %v", src, err)
	}
	return res
}

func indices(res *Result) []int {
	var out []int
	for _, p := range res.Reductions {
		out = append(out, p.Index)
	}
	return out
}

func TestCompileDeclaredSum(t *testing.T) {
	res := compile(t, "int a; a = 1 + 2; return a;", config.NewConfig())

	if diff := cmp.Diff([]int{5, 4, 15, 12, 10, 15, 12, 8, 6, 14, 12, 10, 7, 3, 2, 2, 1}, indices(res)); diff != "" {
		t.Errorf("reductions mismatch (-want +got):\n%s", diff)
	}
	if res.OldSymbols != "(a, null)\n" || res.NewSymbols != "(a, Int)\n" {
		t.Errorf("symbol tables = %q / %q", res.OldSymbols, res.NewSymbols)
	}
	if diff := cmp.Diff("ADD $0, 1, 2\nMOV a, $0\nRET a\n", res.IR.String()); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("MOV $0, 3\nMOV a, $0\nRET a\n", res.Legalized.String()); diff != "" {
		t.Errorf("legalized IR mismatch (-want +got):\n%s", diff)
	}
	if res.EmulateErr != nil || res.Emulation.Value != 3 {
		t.Errorf("Emulation = %v, %v; want 3", res.Emulation, res.EmulateErr)
	}
	want := ".text\n" +
		"\tli t0, 3\t\t# MOV $0, 3\n" +
		"\tmv t1, t0\t\t# MOV a, $0\n" +
		"\tmv a0, t1\t\t# RET a\n"
	if diff := cmp.Diff(want, res.Assembly); diff != "" {
		t.Errorf("assembly mismatch (-want +got):\n%s", diff)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics %+v", res.Diagnostics)
	}
}

func TestCompileImmediateMinuend(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatAsmComments, false)
	res := compile(t, "return 5 - x;", cfg)

	if diff := cmp.Diff(".text\n\tli t0, 5\n\tsub t1, t0, t2\n\tmv a0, t1\n", res.Assembly); diff != "" {
		t.Errorf("assembly mismatch (-want +got):\n%s", diff)
	}
	var undef *ir.UndefinedError
	if !errors.As(res.EmulateErr, &undef) || undef.Var.Name != "x" {
		t.Errorf("EmulateErr = %v, want x read before assignment", res.EmulateErr)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Warning != config.WarnImplicitDecl {
		t.Errorf("Diagnostics = %+v, want one implicit declaration", res.Diagnostics)
	}
}

func TestCompileDirectives(t *testing.T) {
	cfg := config.NewConfig()
	res := compile(t, "// [lrc]: -Fno-fold -Wno-implicit-decl\nreturn 1 + y;\n", cfg)

	if res.Config.IsFeatureEnabled(config.FeatFold) || !cfg.IsFeatureEnabled(config.FeatFold) {
		t.Error("directive should disable folding on the copy only")
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("Diagnostics = %+v, want none", res.Diagnostics)
	}

	res = compile(t, "// [lrc]: -Fno-fold\nreturn 1 + 2;\n", cfg)
	if diff := cmp.Diff("MOV $1, 1\nADD $0, $1, 2\nRET $0\n", res.Legalized.String()); diff != "" {
		t.Errorf("legalized IR mismatch (-want +got):\n%s", diff)
	}
	if res.Emulation.Value != 3 {
		t.Errorf("Emulation = %v, want 3", res.Emulation)
	}
}

func TestCompileAlternateGrammar(t *testing.T) {
	// Subtraction is listed before addition, shifting their indices.
	src := `P -> S_list;
S_list -> S Semicolon S_list;
S_list -> S Semicolon;
S -> D id;
D -> int;
S -> id = E;
S -> return E;
E -> E - A;
E -> E + A;
E -> A;
A -> A * B;
A -> B;
B -> ( E );
B -> id;
B -> IntConst;
`
	// Only the swapped rules are given; the rest keep their default index.
	prods := codegen.Productions{Add: 9, Sub: 8}
	res, err := Compile([]rune("int a; a = 7 - 2 + 1; return a;"), 0, config.NewConfig(), Options{Grammar: src, Productions: prods})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("SUB $0, 7, 2\nADD $1, $0, 1\nMOV a, $1\nRET a\n", res.IR.String()); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
	if res.Emulation.Value != 6 {
		t.Errorf("Emulation = %v, want 6", res.Emulation)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		setup  func(*config.Config)
		stage  Stage
		target error
		line   int
		col    int
	}{
		{name: "lexical", src: "a = 1 @ 2;", stage: StageLex, line: 1, col: 7},
		{name: "directive", src: "\n// [lrc]: -Wnope\nreturn 1;", stage: StageDirective, line: 2, col: 1},
		{name: "syntax", src: "int a;\na = 1 + ;", stage: StageParse, target: parser.ErrSyntax, line: 2, col: 9},
		{
			name:   "undeclared",
			src:    "return q;",
			setup:  func(c *config.Config) { c.SetFeature(config.FeatStrictDecl, true) },
			stage:  StageCheck,
			target: typeChecker.ErrUndeclared,
			line:   1,
			col:    8,
		},
		{
			name:   "register exhaustion",
			src:    "int a; int b; a = 1; b = 2; return a + b;",
			setup:  func(c *config.Config) { c.Registers = 2 },
			stage:  StageCodegen,
			target: codegen.ErrRegistersExhausted,
		},
		{
			name:  "unknown backend",
			src:   "return 1;",
			setup: func(c *config.Config) { c.Backend = "wasm" },
			stage: StageBackend,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			if tt.setup != nil {
				tt.setup(cfg)
			}
			_, err := Compile([]rune(tt.src), 0, cfg, Options{})
			var se *StageError
			if !errors.As(err, &se) {
				t.Fatalf("Compile() error = %v, want a StageError", err)
			}
			if se.Stage != tt.stage {
				t.Errorf("stage = %s, want %s (%v)", se.Stage, tt.stage, err)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("error %v does not wrap %v", err, tt.target)
			}
			if tok := se.Token(); tok.Line != tt.line || tok.Column != tt.col {
				t.Errorf("Token() at %d:%d, want %d:%d", tok.Line, tok.Column, tt.line, tt.col)
			}
			if !strings.HasPrefix(err.Error(), string(tt.stage)+": ") {
				t.Errorf("Error() = %q does not name the stage", err)
			}
		})
	}
}
