package ir

// Legalizer rewrites a program so that every instruction has an operand
// shape the register machine can encode directly:
//
//	MOV r, imm|var    RET imm|var
//	ADD r, var, imm|var
//	SUB r, var, imm|var
//	MUL r, var, var
//
// Temporaries it introduces are drawn from the program's pool and are read
// exactly once, by the instruction that follows their definition.
type Legalizer struct {
	// Fold evaluates binary ops whose operands are both immediates.
	Fold bool
}

// Legalize runs the default legalizer with constant folding enabled.
func Legalize(prog *Program) *Program { return (&Legalizer{Fold: true}).Run(prog) }

// Run returns a new program; instructions of prog are never modified.
func (l *Legalizer) Run(prog *Program) *Program {
	out := &Program{Pool: prog.Pool, Instrs: make([]*Instruction, 0, len(prog.Instrs))}
	for _, in := range prog.Instrs {
		out.Instrs = append(out.Instrs, l.legalize(prog.Pool, in)...)
	}
	return out
}

func (l *Legalizer) legalize(pool *Pool, in *Instruction) []*Instruction {
	if !in.Op.IsBinary() {
		return []*Instruction{in}
	}
	lhs, lImm := in.LHS().(*Immediate)
	rhs, rImm := in.RHS().(*Immediate)

	if lImm && rImm && l.Fold {
		return []*Instruction{NewMov(in.Result, Imm(fold(in.Op, lhs.Value, rhs.Value)))}
	}

	switch in.Op {
	case OpAdd:
		if lImm && !rImm {
			return []*Instruction{NewAdd(in.Result, in.RHS(), in.LHS())}
		}
		if lImm {
			t := pool.Temp()
			return []*Instruction{NewMov(t, lhs), NewAdd(in.Result, t, rhs)}
		}
	case OpSub:
		if lImm {
			t := pool.Temp()
			return []*Instruction{NewMov(t, lhs), NewSub(in.Result, t, in.RHS())}
		}
	case OpMul:
		var seq []*Instruction
		left, right := in.LHS(), in.RHS()
		if lImm {
			t := pool.Temp()
			seq = append(seq, NewMov(t, lhs))
			left = t
		}
		if rImm {
			t := pool.Temp()
			seq = append(seq, NewMov(t, rhs))
			right = t
		}
		if len(seq) > 0 {
			return append(seq, NewMul(in.Result, left, right))
		}
	}
	return []*Instruction{in}
}

func fold(op Op, a, b int32) int32 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	default:
		return a * b
	}
}

// Legal reports whether in already has an encodable operand shape.
func Legal(in *Instruction) bool {
	switch in.Op {
	case OpMov:
		return in.Result != nil && len(in.Args) == 1
	case OpRet:
		return in.Result == nil && len(in.Args) == 1
	case OpAdd, OpSub:
		if in.Result == nil || len(in.Args) != 2 {
			return false
		}
		_, ok := in.LHS().(*Variable)
		return ok
	case OpMul:
		if in.Result == nil || len(in.Args) != 2 {
			return false
		}
		_, lv := in.LHS().(*Variable)
		_, rv := in.RHS().(*Variable)
		return lv && rv
	}
	return false
}
