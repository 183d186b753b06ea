package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xplshn/lrc/pkg/config"
	"github.com/xplshn/lrc/pkg/ir"
)

type riscvBackend struct{}

func NewRISCVBackend() Backend { return &riscvBackend{} }

func (b *riscvBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	lines, _, err := Emit(prog, cfg.Registers, cfg.IsFeatureEnabled(config.FeatAsmComments))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return &buf, nil
}

// Emit allocates registers and renders assembly for a legalized program.
// The first line is ".text". With comments on, every instruction line ends
// with the IR it was generated from.
func Emit(prog *ir.Program, registers int, comments bool) ([]string, *Allocator, error) {
	a, err := NewAllocator(prog, registers)
	if err != nil {
		return nil, nil, err
	}
	lines := []string{".text"}
	for _, in := range prog.Instrs {
		a.instr = in
		if !ir.Legal(in) {
			return lines, a, &ShapeError{Instr: in}
		}
		asm, err := a.emit(in)
		if err != nil {
			return lines, a, err
		}
		if asm != "" {
			if comments {
				asm += "\t\t# " + in.String()
			}
			lines = append(lines, "\t"+asm)
		}
		a.release()
	}
	return lines, a, nil
}

func reg(r int) string { return RegisterNames[r] }

func mnemonic(op ir.Op) string { return strings.ToLower(op.String()) }

// emit returns the assembly for in, or "" for a move between equal registers.
// The result register is chosen before the operands are read.
func (a *Allocator) emit(in *ir.Instruction) (string, error) {
	switch in.Op {
	case ir.OpMov:
		rd, err := a.define(in.Result)
		if err != nil {
			return "", err
		}
		switch from := in.From().(type) {
		case *ir.Immediate:
			return fmt.Sprintf("li %s, %d", reg(rd), from.Value), nil
		case *ir.Variable:
			rs, err := a.use(from)
			if err != nil || rs == rd {
				return "", err
			}
			return fmt.Sprintf("mv %s, %s", reg(rd), reg(rs)), nil
		}

	case ir.OpRet:
		switch v := in.From().(type) {
		case *ir.Immediate:
			return fmt.Sprintf("li a0, %d", v.Value), nil
		case *ir.Variable:
			rs, err := a.use(v)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("mv a0, %s", reg(rs)), nil
		}

	case ir.OpAdd, ir.OpSub, ir.OpMul:
		rd, err := a.define(in.Result)
		if err != nil {
			return "", err
		}
		rs1, err := a.use(in.LHS().(*ir.Variable))
		if err != nil {
			return "", err
		}
		switch rhs := in.RHS().(type) {
		case *ir.Immediate:
			return fmt.Sprintf("%si %s, %s, %d", mnemonic(in.Op), reg(rd), reg(rs1), rhs.Value), nil
		case *ir.Variable:
			rs2, err := a.use(rhs)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s %s, %s, %s", mnemonic(in.Op), reg(rd), reg(rs1), reg(rs2)), nil
		}
	}
	return "", &ShapeError{Instr: in}
}
