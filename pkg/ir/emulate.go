package ir

import "fmt"

// UndefinedError is returned when a variable is read before any assignment.
type UndefinedError struct {
	Var   *Variable
	Instr *Instruction
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("variable '%s' read before assignment in '%s'", e.Var.Name, e.Instr)
}

// Result is the outcome of emulating a program.
type Result struct {
	Value    int32
	Returned bool
	// Executed is the number of instructions run, the RET included.
	Executed int
}

func (r Result) String() string {
	if !r.Returned {
		return "no return"
	}
	return fmt.Sprintf("%d", r.Value)
}

// Emulate interprets prog with 32-bit wrapping arithmetic and stops at the
// first RET.
func Emulate(prog *Program) (Result, error) {
	values := make(map[*Variable]int32)
	read := func(in *Instruction, v Value) (int32, error) {
		switch v := v.(type) {
		case *Immediate:
			return v.Value, nil
		case *Variable:
			val, ok := values[v]
			if !ok {
				return 0, &UndefinedError{Var: v, Instr: in}
			}
			return val, nil
		}
		return 0, fmt.Errorf("unknown value %T in '%s'", v, in)
	}

	var res Result
	for _, in := range prog.Instrs {
		res.Executed++
		switch in.Op {
		case OpMov:
			v, err := read(in, in.From())
			if err != nil {
				return res, err
			}
			values[in.Result] = v
		case OpAdd, OpSub, OpMul:
			a, err := read(in, in.LHS())
			if err != nil {
				return res, err
			}
			b, err := read(in, in.RHS())
			if err != nil {
				return res, err
			}
			values[in.Result] = fold(in.Op, a, b)
		case OpRet:
			v, err := read(in, in.From())
			if err != nil {
				return res, err
			}
			res.Value, res.Returned = v, true
			return res, nil
		default:
			return res, fmt.Errorf("cannot emulate '%s'", in)
		}
	}
	return res, nil
}
