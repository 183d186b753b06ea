package codegen

import (
	"fmt"
	"strings"

	"github.com/xplshn/lrc/pkg/config"
	"github.com/xplshn/lrc/pkg/ir"
)

type qbeBackend struct {
	out       *strings.Builder
	deadCount int
}

func NewQBEBackend() Backend { return &qbeBackend{} }

// GenerateIR renders prog as a single QBE function $main returning a word.
// Surface variables start at zero; code after a RET is kept in its own
// unreachable block so QBE still accepts it.
func (b *qbeBackend) GenerateIR(prog *ir.Program, cfg *config.Config) (string, error) {
	var sb strings.Builder
	b.out, b.deadCount = &sb, 0

	b.out.WriteString("export function w $main() {\n@start\n")
	for _, v := range prog.Pool.Vars() {
		if !v.Temp {
			fmt.Fprintf(b.out, "\t%s =w copy 0\n", b.formatValue(v))
		}
	}
	for _, in := range prog.Instrs {
		if err := b.genInstr(in); err != nil {
			return "", err
		}
	}
	b.out.WriteString("\tret 0\n}\n")
	return sb.String(), nil
}

func (b *qbeBackend) genInstr(in *ir.Instruction) error {
	switch in.Op {
	case ir.OpMov:
		fmt.Fprintf(b.out, "\t%s =w copy %s\n", b.formatValue(in.Result), b.formatValue(in.From()))
	case ir.OpAdd, ir.OpSub, ir.OpMul:
		fmt.Fprintf(b.out, "\t%s =w %s %s, %s\n", b.formatValue(in.Result), mnemonic(in.Op), b.formatValue(in.LHS()), b.formatValue(in.RHS()))
	case ir.OpRet:
		fmt.Fprintf(b.out, "\tret %s\n", b.formatValue(in.From()))
		fmt.Fprintf(b.out, "@dead.%d\n", b.deadCount)
		b.deadCount++
	default:
		return &ShapeError{Instr: in}
	}
	return nil
}

func (b *qbeBackend) formatValue(v ir.Value) string {
	switch val := v.(type) {
	case *ir.Immediate: return fmt.Sprintf("%d", val.Value)
	case *ir.Variable:
		if val.Temp { return "%tmp." + strings.TrimPrefix(val.Name, ir.TempPrefix) }
		return "%" + val.Name
	default: return ""
	}
}
