package codegen

import (
	"errors"
	"fmt"

	"github.com/xplshn/lrc/pkg/ir"
)

var (
	ErrRegistersExhausted = errors.New("register pool exhausted")
	ErrRefCount           = errors.New("variable read more often than counted")
	ErrUnencodable        = errors.New("operand shape cannot be encoded")
)

// RegisterNames lists the physical registers in allocation order. A pool of
// n registers uses the first n names.
var RegisterNames = []string{
	"t0", "t1", "t2", "t3", "t4", "t5", "t6",
	"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
}

type AllocError struct {
	Var   *ir.Variable
	Instr *ir.Instruction
	Pool  int
	Err   error
}

func (e *AllocError) Error() string {
	if errors.Is(e.Err, ErrRefCount) {
		return fmt.Sprintf("'%s' in '%s': %v", e.Var, e.Instr, e.Err)
	}
	return fmt.Sprintf("no free register for '%s' in '%s': all %d registers hold live values", e.Var, e.Instr, e.Pool)
}

func (e *AllocError) Unwrap() error { return e.Err }

// ShapeError reports an instruction the emitter has no encoding for, such as
// a MUL with an immediate operand that skipped legalization.
type ShapeError struct{ Instr *ir.Instruction }

func (e *ShapeError) Error() string {
	return fmt.Sprintf("'%s': %v", e.Instr, ErrUnencodable)
}

func (e *ShapeError) Unwrap() error { return ErrUnencodable }

type binding struct {
	reg  int // -1 while unbound
	refs int
}

// Allocator binds variables to a fixed pool of registers. A variable keeps
// its register until all of its statically counted reads have happened.
type Allocator struct {
	bindings []binding
	occupied []bool
	uses     []int
	live     int
	peak     int
	instr    *ir.Instruction
}

func NewAllocator(prog *ir.Program, n int) (*Allocator, error) {
	if n < 1 || n > len(RegisterNames) {
		return nil, fmt.Errorf("register pool size %d out of range 1..%d", n, len(RegisterNames))
	}
	size := prog.Pool.Len()
	a := &Allocator{
		bindings: make([]binding, size),
		occupied: make([]bool, n),
		uses:     make([]int, size),
	}
	for i := range a.bindings {
		a.bindings[i].reg = -1
	}
	for _, in := range prog.Instrs {
		for _, arg := range in.Args {
			if v, ok := arg.(*ir.Variable); ok {
				a.bindings[v.ID].refs++
			}
		}
	}
	return a, nil
}

func (a *Allocator) alloc(v *ir.Variable) (int, error) {
	for r, busy := range a.occupied {
		if !busy {
			a.occupied[r] = true
			a.bindings[v.ID].reg = r
			a.live++
			a.peak = max(a.peak, a.live)
			return r, nil
		}
	}
	return -1, &AllocError{Var: v, Instr: a.instr, Pool: len(a.occupied), Err: ErrRegistersExhausted}
}

// define returns the register that receives a new value of v.
func (a *Allocator) define(v *ir.Variable) (int, error) {
	if r := a.bindings[v.ID].reg; r >= 0 {
		return r, nil
	}
	return a.alloc(v)
}

// use returns the register holding v for one of its counted reads.
func (a *Allocator) use(v *ir.Variable) (int, error) {
	b := &a.bindings[v.ID]
	if b.refs == 0 {
		return -1, &AllocError{Var: v, Instr: a.instr, Pool: len(a.occupied), Err: ErrRefCount}
	}
	r := b.reg
	if r < 0 {
		var err error
		if r, err = a.alloc(v); err != nil {
			return -1, err
		}
	}
	b.refs--
	a.uses[v.ID]++
	return r, nil
}

// release frees the register of every variable with no reads left.
func (a *Allocator) release() {
	for id := range a.bindings {
		b := &a.bindings[id]
		if b.reg >= 0 && b.refs == 0 {
			a.occupied[b.reg] = false
			b.reg = -1
			a.live--
		}
	}
}

// Peak is the largest number of registers that were bound at once.
func (a *Allocator) Peak() int { return a.peak }

// Uses is how many reads of v were served.
func (a *Allocator) Uses(v *ir.Variable) int { return a.uses[v.ID] }

// Refs is how many counted reads of v are still pending.
func (a *Allocator) Refs(v *ir.Variable) int { return a.bindings[v.ID].refs }

// Live is the number of registers bound right now.
func (a *Allocator) Live() int { return a.live }
