package lexer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/lrc/pkg/token"
)

func types(toks []token.Token) []string {
	var out []string
	for _, t := range toks {
		out = append(out, t.String())
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "declaration and return",
			src:  "int a;\na = 1 + 2;\nreturn a;",
			want: []string{
				"(int,)", "(id,a)", "(Semicolon,)",
				"(id,a)", "(=,)", "(IntConst,1)", "(+,)", "(IntConst,2)", "(Semicolon,)",
				"(return,)", "(id,a)", "(Semicolon,)",
				"($,)",
			},
		},
		{
			name: "operators and parens",
			src:  "b=(c-4)*x_1;",
			want: []string{
				"(id,b)", "(=,)", "((,)", "(id,c)", "(-,)", "(IntConst,4)", "(),)",
				"(*,)", "(id,x_1)", "(Semicolon,)", "($,)",
			},
		},
		{
			name: "comments are skipped",
			src:  "// header\nreturn /* inline */ 0x1F; // trailing",
			want: []string{"(return,)", "(IntConst,31)", "(Semicolon,)", "($,)"},
		},
		{
			name: "keyword prefix is an identifier",
			src:  "integer returns",
			want: []string{"(id,integer)", "(id,returns)", "($,)"},
		},
		{
			name: "empty input",
			src:  "   \n\t",
			want: []string{"($,)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize([]rune(tt.src), 0)
			if err != nil {
				t.Fatalf("Tokenize() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, types(toks)); diff != "" {
				t.Errorf("Tokenize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTokenPositions(t *testing.T) {
	toks, err := Tokenize([]rune("int abc;\n  return 42;"), 3)
	if err != nil {
		t.Fatal(err)
	}
	abc := toks[1]
	if abc.Line != 1 || abc.Column != 5 || abc.Len != 3 || abc.FileIndex != 3 {
		t.Errorf("abc token = %+v, want line 1 col 5 len 3 file 3", abc)
	}
	ret := toks[3]
	if ret.Type != token.Return || ret.Line != 2 || ret.Column != 3 {
		t.Errorf("return token = %+v, want line 2 col 3", ret)
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unexpected character", "a = b / c;"},
		{"unterminated comment", "a = 1; /* never closed"},
		{"malformed constant", "a = 12ab;"},
		{"empty hex constant", "a = 0x;"},
		{"too large", "a = 4294967296;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize([]rune(tt.src), 0)
			var lexErr *Error
			if !errors.As(err, &lexErr) {
				t.Fatalf("Tokenize() error = %v, want *lexer.Error", err)
			}
			if err.Error() != lexErr.Msg {
				t.Errorf("Error() = %q repeats the position of %d:%d", err, lexErr.Tok.Line, lexErr.Tok.Column)
			}
		})
	}
}

func TestDirectives(t *testing.T) {
	l := NewLexer([]rune("// plain comment\n//   [lrc]: -Wno-unused -Ftrace\nreturn 1; // [lrc]:-Wall\n"), 0)
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatal(err)
		}
		if tok.Type == token.EOF {
			break
		}
	}
	got := l.Directives()
	if len(got) != 2 {
		t.Fatalf("Directives() = %+v, want 2", got)
	}
	if got[0].Flags != "-Wno-unused -Ftrace" || got[0].Tok.Line != 2 || got[0].Tok.Column != 1 {
		t.Errorf("first directive = %+v", got[0])
	}
	if got[1].Flags != "-Wall" || got[1].Tok.Line != 3 || got[1].Tok.Column != 11 {
		t.Errorf("second directive = %+v", got[1])
	}
}
