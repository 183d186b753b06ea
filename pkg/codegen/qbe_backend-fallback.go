//go:build windows

package codegen

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/xplshn/lrc/pkg/config"
	"github.com/xplshn/lrc/pkg/ir"
)

// Generate shells out to the system 'qbe' because libqbe does not build on
// Windows.
func (b *qbeBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	if _, err := exec.LookPath("qbe"); err != nil {
		return nil, fmt.Errorf("QBE not found in PATH: %w", err)
	}

	qbeIR, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}

	inputFile, err := os.CreateTemp("", "lrc-qbe-*.ssa")
	if err != nil {
		return nil, err
	}
	defer os.Remove(inputFile.Name())
	if _, err = inputFile.WriteString(qbeIR); err != nil {
		inputFile.Close()
		return nil, err
	}
	inputFile.Close()

	var asmBuf, stderr bytes.Buffer
	cmd := exec.Command("qbe", "-t", cfg.QbeTarget, inputFile.Name())
	cmd.Stdout, cmd.Stderr = &asmBuf, &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("QBE compilation failed: %w\n%s\nGenerated IR:\n%s", err, stderr.String(), qbeIR)
	}
	return &asmBuf, nil
}
