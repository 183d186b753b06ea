package codegen

import (
	"strconv"

	"github.com/xplshn/lrc/pkg/grammar"
	"github.com/xplshn/lrc/pkg/ir"
	"github.com/xplshn/lrc/pkg/symtab"
	"github.com/xplshn/lrc/pkg/token"
)

// Production indices of the default grammar the IR builder acts on.
const (
	ProdAssign = 6
	ProdReturn = 7
	ProdAdd    = 8
	ProdSub    = 9
	ProdMul    = 11
)

// Productions maps the IR-producing reductions to production indices, so a
// grammar with a different numbering can drive the same builder.
type Productions struct {
	Assign, Return, Add, Sub, Mul int
}

var DefaultProductions = Productions{
	Assign: ProdAssign,
	Return: ProdReturn,
	Add:    ProdAdd,
	Sub:    ProdSub,
	Mul:    ProdMul,
}

// OrDefault fills every unset (zero) index from DefaultProductions.
func (p Productions) OrDefault() Productions {
	pick := func(v, def int) int {
		if v == 0 {
			return def
		}
		return v
	}
	return Productions{
		Assign: pick(p.Assign, ProdAssign),
		Return: pick(p.Return, ProdReturn),
		Add:    pick(p.Add, ProdAdd),
		Sub:    pick(p.Sub, ProdSub),
		Mul:    pick(p.Mul, ProdMul),
	}
}

// Context builds three-address IR from parser notifications. It keeps a
// stack of operand values: shifted identifiers and constants are pushed,
// reductions pop their operands and push the temporary holding the result.
type Context struct {
	prog  *ir.Program
	stack []ir.Value
	prods Productions
}

func NewContext() *Context {
	return &Context{prog: ir.NewProgram(), prods: DefaultProductions}
}

func (ctx *Context) WithProductions(p Productions) *Context {
	ctx.prods = p
	return ctx
}

// Program returns the instructions built so far.
func (ctx *Context) Program() *ir.Program { return ctx.prog }

func (ctx *Context) SetSymbolTable(*symtab.Table) {}

func (ctx *Context) WhenShift(_ int, tok token.Token) {
	switch tok.Type {
	case token.IntConst:
		n, _ := strconv.ParseInt(tok.Value, 10, 32)
		ctx.push(ir.Imm(int32(n)))
	case token.Ident:
		ctx.push(ctx.prog.Pool.Named(tok.Value))
	}
}

func (ctx *Context) WhenReduce(_ int, prod *grammar.Production) {
	if len(ctx.stack) == 0 {
		return
	}
	switch prod.Index {
	case ctx.prods.Assign:
		ctx.codegenAssign()
	case ctx.prods.Return:
		ctx.codegenReturn()
	case ctx.prods.Add:
		ctx.codegenBinaryOp(ir.OpAdd)
	case ctx.prods.Sub:
		ctx.codegenBinaryOp(ir.OpSub)
	case ctx.prods.Mul:
		ctx.codegenBinaryOp(ir.OpMul)
	}
}

func (ctx *Context) WhenAccept(int) {}

func (ctx *Context) push(v ir.Value) { ctx.stack = append(ctx.stack, v) }

func (ctx *Context) pop() ir.Value {
	v := ctx.stack[len(ctx.stack)-1]
	ctx.stack = ctx.stack[:len(ctx.stack)-1]
	return v
}

// Depth is the number of values left on the operand stack.
func (ctx *Context) Depth() int { return len(ctx.stack) }
