package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/lrc/pkg/config"
	"github.com/xplshn/lrc/pkg/token"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var (
	sourceFiles []SourceFileRecord
	verbose     bool

	// Stderr receives every diagnostic. Tests swap it for a buffer.
	Stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// SetSourceFiles stores the source code for all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) { sourceFiles = files }

func SetVerbose(v bool) { verbose = v }

// Diagnostic is a warning produced by an analysis pass, printed later
// through Warn.
type Diagnostic struct {
	Warning config.Warning
	Tok     token.Token
	Msg     string
}

func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "unknown", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

// sourceLine echoes the line tok sits on with a caret under it.
func sourceLine(tok token.Token) string {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return ""
	}
	lines := strings.Split(string(sourceFiles[tok.FileIndex].Content), "\n")
	if tok.Line > len(lines) {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "  %s\n", lines[tok.Line-1])
	fmt.Fprintf(&sb, "  %s\033[32m^", strings.Repeat(" ", max(tok.Column-1, 0)))
	if tok.Len > 1 {
		sb.WriteString(strings.Repeat("~", tok.Len-1))
	}
	sb.WriteString("\033[0m\n")
	return sb.String()
}

// Format renders "file:line:col: kind: msg" followed by the caret line. A
// token without a line renders as "file: kind: msg".
func Format(kind string, tok token.Token, msg string) string {
	filename, line, col := findFileAndLine(tok)
	if line == 0 {
		return fmt.Sprintf("%s: %s %s\n", filename, kind, msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s %s\n%s", filename, line, col, kind, msg, sourceLine(tok))
}

// Error prints a formatted error message and exits the program
func Error(tok token.Token, format string, args ...any) {
	io.WriteString(Stderr, Format("\033[31merror:\033[0m", tok, fmt.Sprintf(format, args...)))
	exit(1)
}

// Warn prints a formatted warning message if the corresponding warning is enabled
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...any) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	msg := fmt.Sprintf(format, args...) + fmt.Sprintf(" [-W%s]", cfg.Warnings[wt].Name)
	io.WriteString(Stderr, Format("\033[33mwarning:\033[0m", tok, msg))
}

// Info prints a progress line when verbose output is on.
func Info(format string, args ...any) {
	if !verbose {
		return
	}
	fmt.Fprintf(Stderr, "lrc: info: "+format+"\n", args...)
}
