package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

type Op int

const (
	OpMov Op = iota
	OpAdd
	OpSub
	OpMul
	OpRet
)

func (op Op) String() string {
	switch op {
	case OpMov:
		return "MOV"
	case OpAdd:
		return "ADD"
	case OpSub:
		return "SUB"
	case OpMul:
		return "MUL"
	case OpRet:
		return "RET"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// IsBinary reports whether op takes two source operands.
func (op Op) IsBinary() bool { return op == OpAdd || op == OpSub || op == OpMul }

type Value interface {
	isValue()
	String() string
}

type Immediate struct{ Value int32 }

// Variable is either a surface identifier or a compiler temporary. ID is a
// dense index assigned by the owning Pool.
type Variable struct {
	ID   int
	Name string
	Temp bool
}

func (i *Immediate) isValue() {}
func (v *Variable) isValue()  {}

func (i *Immediate) String() string { return strconv.Itoa(int(i.Value)) }
func (v *Variable) String() string  { return v.Name }

func Imm(v int32) *Immediate { return &Immediate{Value: v} }

// TempPrefix starts every temporary name. Surface identifiers cannot contain it.
const TempPrefix = "$"

// Pool interns variables so that every name maps to one *Variable, and
// hands out temporaries numbered from zero.
type Pool struct {
	vars   []*Variable
	named  map[string]*Variable
	nextID int
}

func NewPool() *Pool { return &Pool{named: make(map[string]*Variable)} }

// Named returns the variable for a surface identifier.
func (p *Pool) Named(name string) *Variable {
	if v, ok := p.named[name]; ok {
		return v
	}
	v := &Variable{ID: len(p.vars), Name: name}
	p.vars = append(p.vars, v)
	p.named[name] = v
	return v
}

// Temp returns a fresh temporary.
func (p *Pool) Temp() *Variable {
	v := &Variable{ID: len(p.vars), Name: TempPrefix + strconv.Itoa(p.nextID), Temp: true}
	p.nextID++
	p.vars = append(p.vars, v)
	p.named[v.Name] = v
	return v
}

// Len is the number of variables issued so far; every Variable.ID is below it.
func (p *Pool) Len() int { return len(p.vars) }

// Vars returns the variables in ID order.
func (p *Pool) Vars() []*Variable { return append([]*Variable(nil), p.vars...) }

// Lookup finds a variable by name without creating it.
func (p *Pool) Lookup(name string) (*Variable, bool) {
	v, ok := p.named[name]
	return v, ok
}

// Instruction is a three-address instruction. Result is nil only for RET.
// Args holds one operand for MOV and RET and two for the binary ops.
type Instruction struct {
	Op     Op
	Result *Variable
	Args   []Value
}

func NewMov(result *Variable, from Value) *Instruction {
	return &Instruction{Op: OpMov, Result: result, Args: []Value{from}}
}

func NewBinary(op Op, result *Variable, lhs, rhs Value) *Instruction {
	return &Instruction{Op: op, Result: result, Args: []Value{lhs, rhs}}
}

func NewAdd(result *Variable, lhs, rhs Value) *Instruction { return NewBinary(OpAdd, result, lhs, rhs) }
func NewSub(result *Variable, lhs, rhs Value) *Instruction { return NewBinary(OpSub, result, lhs, rhs) }
func NewMul(result *Variable, lhs, rhs Value) *Instruction { return NewBinary(OpMul, result, lhs, rhs) }

func NewRet(v Value) *Instruction { return &Instruction{Op: OpRet, Args: []Value{v}} }

func (in *Instruction) LHS() Value  { return in.Args[0] }
func (in *Instruction) RHS() Value  { return in.Args[1] }
func (in *Instruction) From() Value { return in.Args[0] }

// String renders "<OP> <result>, <operand>[, <operand>]".
func (in *Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())
	sep := " "
	if in.Result != nil {
		sb.WriteString(sep + in.Result.String())
		sep = ", "
	}
	for _, a := range in.Args {
		sb.WriteString(sep + a.String())
		sep = ", "
	}
	return sb.String()
}

// Program is an instruction list together with the pool its variables came from.
type Program struct {
	Instrs []*Instruction
	Pool   *Pool
}

func NewProgram() *Program { return &Program{Pool: NewPool()} }

func (p *Program) Add(in *Instruction) { p.Instrs = append(p.Instrs, in) }

func (p *Program) String() string {
	var sb strings.Builder
	for _, in := range p.Instrs {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Dump writes one instruction per line.
func (p *Program) Dump(w io.Writer) error {
	_, err := io.WriteString(w, p.String())
	return err
}
