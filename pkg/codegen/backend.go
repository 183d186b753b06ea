package codegen

import (
	"bytes"
	"fmt"

	"github.com/xplshn/lrc/pkg/config"
	"github.com/xplshn/lrc/pkg/ir"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes a legalized IR program and a configuration, and produces
	// the target assembly as a byte buffer.
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
}

// SelectBackend returns the backend named by cfg.Backend.
func SelectBackend(cfg *config.Config) (Backend, error) {
	switch cfg.Backend {
	case config.BackendRISCV:
		return NewRISCVBackend(), nil
	case config.BackendQBE:
		return NewQBEBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported backend '%s'", cfg.Backend)
	}
}
