package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/xplshn/lrc/pkg/cli"
	"github.com/xplshn/lrc/pkg/codegen"
	"github.com/xplshn/lrc/pkg/compiler"
	"github.com/xplshn/lrc/pkg/config"
	"github.com/xplshn/lrc/pkg/grammar"
	"github.com/xplshn/lrc/pkg/lrtable"
	"github.com/xplshn/lrc/pkg/token"
	"github.com/xplshn/lrc/pkg/util"
)

func main() {
	app := cli.NewApp("lrc")
	app.Synopsis = "[options] <input.lrc> ..."
	app.Description = "A table-driven compiler for a tiny integer language. Parses with a canonical LR(1) automaton, builds three-address IR and emits RISC-V assembly over a small register pool."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/lrc>"

	var (
		outDir      string
		target      string
		grammarFile string
		prodMap     []string
		registers   int
		dumpIR      bool
		dumpTable   bool
		verbose     bool
	)

	fs := app.FlagSet
	fs.String(&outDir, "output", "o", ".", "Write the artifact files into <dir>.", "dir")
	fs.String(&target, "target", "t", config.BackendRISCV, "Set the backend and, for qbe, the target ABI.", "backend/target")
	fs.String(&grammarFile, "grammar", "g", "", "Build the parse table from <file> instead of the built-in grammar.", "file")
	fs.List(&prodMap, "production", "p", []string{}, "Map an IR-producing rule to a production index of the grammar (e.g., -p add=9).", "rule=index")
	fs.Int(&registers, "registers", "r", config.DefaultRegisters, "Size of the physical register pool.", "n")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Print the legalized IR and exit.")
	fs.Bool(&dumpTable, "dump-table", "", false, "Print the action/goto table and exit.")
	fs.Bool(&verbose, "verbose", "v", false, "Report the progress of every stage.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		util.SetVerbose(verbose)
		cfg.Verbose = verbose
		cfg.ApplyFlagGroups(warningFlags, featureFlags)

		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target); err != nil {
			util.Error(token.Token{FileIndex: -1}, "%v", err)
		}
		if err := cfg.SetRegisters(registers); err != nil {
			util.Error(token.Token{FileIndex: -1}, "%v", err)
		}

		opts := compiler.Options{Productions: codegen.DefaultProductions}
		if grammarFile != "" {
			src, err := os.ReadFile(grammarFile)
			if err != nil {
				util.Error(token.Token{FileIndex: -1}, "could not read grammar '%s': %v", grammarFile, err)
			}
			opts.Grammar = string(src)
		}
		for _, m := range prodMap {
			if err := setProduction(&opts.Productions, m); err != nil {
				util.Error(token.Token{FileIndex: -1}, "%v", err)
			}
		}

		if dumpTable {
			src := opts.Grammar
			if src == "" {
				src = grammar.DefaultSource()
			}
			table, err := lrtable.Cached(src)
			if err != nil {
				util.Error(token.Token{FileIndex: -1}, "%v", err)
			}
			return table.Dump(os.Stdout)
		}

		if len(inputFiles) == 0 {
			util.Error(token.Token{FileIndex: -1}, "no input files specified.")
		}

		records := readSourceFiles(inputFiles)
		util.SetSourceFiles(records)

		for i, rec := range records {
			util.Info("compiling '%s'", rec.Name)
			res, err := compiler.Compile(rec.Content, i, cfg, opts)
			if res != nil {
				for _, d := range res.Diagnostics {
					util.Warn(res.Config, d.Warning, d.Tok, "%s", d.Msg)
				}
			}
			if err != nil {
				util.Error(errorToken(err, i), "%v", err)
			}
			dir := artifactDir(outDir, rec.Name, len(records) > 1)
			if err := emit(os.Stdout, rec.Name, dir, res, dumpIR); err != nil {
				util.Error(token.Token{FileIndex: -1}, "%v", err)
			}
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// errorToken picks the position a compile error is reported at. Errors that
// carry no source position point at the file itself.
func errorToken(err error, fileIndex int) token.Token {
	var se *compiler.StageError
	if errors.As(err, &se) && se.Token().Line > 0 {
		return se.Token()
	}
	return token.Token{FileIndex: fileIndex}
}

// artifactDir is outDir, or a subdirectory named after the input when
// several files are compiled at once.
func artifactDir(outDir, name string, multi bool) string {
	if !multi {
		return outDir
	}
	return filepath.Join(outDir, strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
}

// emit prints the legalized IR when dumpIR is set, and otherwise writes the
// artifact files into dir and prints the result line.
func emit(w io.Writer, name, dir string, res *compiler.Result, dumpIR bool) error {
	if dumpIR {
		_, err := fmt.Fprint(w, res.Legalized)
		return err
	}
	if err := writeArtifacts(dir, res); err != nil {
		return fmt.Errorf("could not write artifacts: %w", err)
	}
	if res.EmulateErr != nil {
		util.Info("emulation of '%s' failed: %v", name, res.EmulateErr)
	}
	_, err := fmt.Fprintf(w, "%s: %s\n", name, res.Emulation)
	return err
}

func setProduction(p *codegen.Productions, mapping string) error {
	name, idx, ok := strings.Cut(mapping, "=")
	n, err := strconv.Atoi(idx)
	if !ok || err != nil || n < 1 {
		return fmt.Errorf("invalid production mapping '%s', want rule=index", mapping)
	}
	switch name {
	case "assign": p.Assign = n
	case "return": p.Return = n
	case "add": p.Add = n
	case "sub": p.Sub = n
	case "mul": p.Mul = n
	default:
		return fmt.Errorf("unknown rule '%s' in '%s'. Rules: assign, return, add, sub, mul", name, mapping)
	}
	return nil
}

func readSourceFiles(paths []string) []util.SourceFileRecord {
	var records []util.SourceFileRecord
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			util.Error(token.Token{FileIndex: -1}, "could not read file '%s': %v", path, err)
			continue
		}
		records = append(records, util.SourceFileRecord{Name: path, Content: []rune(string(content))})
	}
	return records
}

func writeArtifacts(dir string, res *compiler.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var toks strings.Builder
	for _, tok := range res.Tokens {
		toks.WriteString(tok.String())
		toks.WriteByte('\n')
	}
	var reductions strings.Builder
	for _, p := range res.Reductions {
		reductions.WriteString(p.String())
		reductions.WriteByte('\n')
	}
	emulation := res.Emulation.String() + "\n"
	if res.EmulateErr != nil {
		emulation = "error: " + res.EmulateErr.Error() + "\n"
	}
	asmName := "assembly_language.asm"
	if res.Config.Backend == config.BackendQBE {
		asmName = "native.s"
	}

	artifacts := []struct{ name, content string }{
		{"token.txt", toks.String()},
		{"old_symbol_table.txt", res.OldSymbols},
		{"parser_list.txt", reductions.String()},
		{"new_symbol_table.txt", res.NewSymbols},
		{"intermediate_code.txt", res.IR.String()},
		{"ir_emulate_result.txt", emulation},
		{asmName, res.Assembly},
	}
	for _, a := range artifacts {
		path := filepath.Join(dir, a.name)
		if err := os.WriteFile(path, []byte(a.content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		util.Info("wrote %s", path)
	}
	return nil
}
