package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/lrc/pkg/config"
	"github.com/xplshn/lrc/pkg/token"
)

func capture(t *testing.T) (*bytes.Buffer, *int) {
	t.Helper()
	var buf bytes.Buffer
	code := -1
	oldStderr, oldExit := Stderr, exit
	Stderr, exit = &buf, func(c int) { code = c }
	t.Cleanup(func() { Stderr, exit = oldStderr, oldExit })
	return &buf, &code
}

func TestFormat(t *testing.T) {
	SetSourceFiles([]SourceFileRecord{{Name: "main.lrc", Content: []rune("int a;\na = 1 + bb;\n")}})
	defer SetSourceFiles(nil)

	tok := token.Token{Type: token.Ident, Value: "bb", Line: 2, Column: 9, Len: 2}
	got := Format("note:", tok, "look here")
	want := "main.lrc:2:9: note: look here\n" +
		"  a = 1 + bb;\n" +
		"          \033[32m^~\033[0m\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Format() mismatch (-want +got):\n%s", diff)
	}

	got = Format("note:", token.Token{FileIndex: -1}, "no position")
	if diff := cmp.Diff("unknown: note: no position\n", got); diff != "" {
		t.Errorf("Format() mismatch (-want +got):\n%s", diff)
	}

	// a file-level error, e.g. register exhaustion, has no line to point at
	got = Format("note:", token.Token{FileIndex: 0}, "whole file")
	if diff := cmp.Diff("main.lrc: note: whole file\n", got); diff != "" {
		t.Errorf("Format() mismatch (-want +got):\n%s", diff)
	}
}

func TestError(t *testing.T) {
	buf, code := capture(t)
	Error(token.Token{FileIndex: -1}, "no input files specified.")
	if *code != 1 {
		t.Errorf("exit code = %d, want 1", *code)
	}
	if !strings.Contains(buf.String(), "error:") || !strings.Contains(buf.String(), "no input files specified.") {
		t.Errorf("Error() wrote %q", buf.String())
	}
}

func TestWarn(t *testing.T) {
	buf, code := capture(t)
	cfg := config.NewConfig()

	Warn(cfg, config.WarnDeadStore, token.Token{FileIndex: -1}, "silent")
	if buf.Len() != 0 {
		t.Errorf("disabled warning printed %q", buf.String())
	}
	Warn(cfg, config.WarnUnused, token.Token{FileIndex: -1}, "variable '%s' declared but not used", "u")
	if !strings.Contains(buf.String(), "variable 'u' declared but not used [-Wunused]") {
		t.Errorf("Warn() wrote %q", buf.String())
	}
	if *code != -1 {
		t.Error("Warn() exited")
	}
}

func TestInfo(t *testing.T) {
	buf, _ := capture(t)
	defer SetVerbose(false)

	Info("hidden")
	SetVerbose(true)
	Info("stage %s done", "parse")
	if diff := cmp.Diff("lrc: info: stage parse done\n", buf.String()); diff != "" {
		t.Errorf("Info() mismatch (-want +got):\n%s", diff)
	}
}
