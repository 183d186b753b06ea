package codegen

import "github.com/xplshn/lrc/pkg/ir"

// codegenAssign handles S -> id = E. The value of E is on top, the target
// variable below it.
func (ctx *Context) codegenAssign() {
	if len(ctx.stack) < 2 {
		return
	}
	rhs := ctx.pop()
	lhs, ok := ctx.pop().(*ir.Variable)
	if !ok {
		return
	}
	ctx.prog.Add(ir.NewMov(lhs, rhs))
}

func (ctx *Context) codegenReturn() {
	ctx.prog.Add(ir.NewRet(ctx.pop()))
}

// codegenBinaryOp pops the right operand first, then the left one.
func (ctx *Context) codegenBinaryOp(op ir.Op) {
	if len(ctx.stack) < 2 {
		return
	}
	rhs := ctx.pop()
	lhs := ctx.pop()
	result := ctx.prog.Pool.Temp()
	ctx.prog.Add(ir.NewBinary(op, result, lhs, rhs))
	ctx.push(result)
}
