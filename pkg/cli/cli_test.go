package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type options struct {
	out    string
	regs   int
	dump   bool
	prods  []string
	unused bool
	noFold bool
	args   []string
}

func newTestSet(o *options) *FlagSet {
	fs := NewFlagSet("test")
	fs.String(&o.out, "output", "o", ".", "output dir", "dir")
	fs.Int(&o.regs, "registers", "r", 7, "pool size", "n")
	fs.Bool(&o.dump, "dump-ir", "d", false, "dump")
	fs.List(&o.prods, "production", "p", []string{}, "mapping", "rule=index")
	fs.Bool(&o.unused, "Wunused", "", true, "warn")
	fs.Bool(&o.noFold, "Fno-fold", "", false, "no folding")
	return fs
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want options
	}{
		{
			name: "defaults",
			argv: []string{"a.lrc"},
			want: options{out: ".", regs: 7, prods: []string{}, unused: true, args: []string{"a.lrc"}},
		},
		{
			name: "long forms",
			argv: []string{"--output=build", "--registers", "3", "--dump-ir", "a.lrc"},
			want: options{out: "build", regs: 3, dump: true, prods: []string{}, unused: true, args: []string{"a.lrc"}},
		},
		{
			name: "short forms",
			argv: []string{"-o", "out", "-r4", "-d", "-p", "add=9", "-psub=8", "x.lrc", "y.lrc"},
			want: options{out: "out", regs: 4, dump: true, prods: []string{"add=9", "sub=8"}, unused: true, args: []string{"x.lrc", "y.lrc"}},
		},
		{
			name: "single dash long names",
			argv: []string{"-Wunused=false", "-Fno-fold", "-output", "dir"},
			want: options{out: "dir", regs: 7, prods: []string{}, noFold: true, args: []string{}},
		},
		{
			name: "double dash ends flags",
			argv: []string{"-d", "--", "-o", "file"},
			want: options{out: ".", regs: 7, dump: true, prods: []string{}, unused: true, args: []string{"-o", "file"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got options
			fs := newTestSet(&got)
			if err := fs.Parse(tt.argv); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got.args = fs.Args()
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(options{})); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, argv := range [][]string{
		{"--nope"},
		{"-x"},
		{"--registers"},
		{"-r", "many"},
		{"-o"},
		{"--dump-ir=maybe"},
	} {
		var o options
		if err := newTestSet(&o).Parse(argv); err == nil {
			t.Errorf("Parse(%q) succeeded", argv)
		}
	}
}

func TestFlagGroups(t *testing.T) {
	on, off := true, false
	entries := []FlagGroupEntry{{Name: "unused", Prefix: "W", Usage: "warn about unused", Enabled: &on, Disabled: &off}}
	fs := NewFlagSet("test")
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", entries)
	if err := fs.Parse([]string{"-Wno-unused"}); err != nil {
		t.Fatal(err)
	}
	if !*entries[0].Disabled {
		t.Error("-Wno-unused did not set the disabled flag")
	}
	if fs.Lookup("Wunused") == nil || fs.Lookup("Wno-unused") == nil {
		t.Error("group flags were not registered")
	}
}

func TestAppRun(t *testing.T) {
	var stdout, stderr bytes.Buffer
	var got []string
	app := NewApp("lrc")
	app.Synopsis = "[options] <input.lrc> ..."
	app.Description = "compiles things"
	app.Authors = []string{"someone"}
	app.Stdout, app.Stderr = &stdout, &stderr
	var out string
	app.FlagSet.String(&out, "output", "o", ".", "Write the artifact files into <dir>.", "dir")
	app.Action = func(args []string) error { got = args; return nil }

	if err := app.Run([]string{"-o", "x", "a.lrc"}); err != nil {
		t.Fatal(err)
	}
	if out != "x" || !cmp.Equal(got, []string{"a.lrc"}) {
		t.Errorf("output = %q, args = %q", out, got)
	}
}

func TestAppHelpAndUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := NewApp("lrc")
	app.Synopsis = "[options] <input.lrc> ..."
	app.Description = "compiles things"
	app.Stdout, app.Stderr = &stdout, &stderr
	called := false
	app.Action = func([]string) error { called = true; return nil }
	var regs int
	app.FlagSet.Int(&regs, "registers", "r", 7, "Size of the physical register pool.", "n")

	if err := app.Run([]string{"--help"}); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("Action ran for --help")
	}
	help := stdout.String()
	for _, want := range []string{"Synopsis", "lrc [options] <input.lrc> ...", "compiles things", "-r, --registers <n>", "|7|"} {
		if !strings.Contains(help, want) {
			t.Errorf("help page lacks %q:\n%s", want, help)
		}
	}

	if err := app.Run([]string{"--bogus"}); err == nil {
		t.Fatal("Run accepted an unknown flag")
	}
	if !strings.Contains(stderr.String(), "Usage: lrc") {
		t.Errorf("usage not printed on error:\n%s", stderr.String())
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("the quick brown fox jumps over", 10)
	want := []string{"the quick", "brown fox", "jumps over"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wrapText() mismatch (-want +got):\n%s", diff)
	}
}
