package ops

import "fmt"

// NoSlot marks an unused operand.
const NoSlot = -1

// Instruction is one recorded elementary operation.
//
// Result is always greater than any operand slot: instructions are recorded
// in dependency order.
type Instruction struct {
	Op     OpCode
	Result int // slot written by this instruction
	Arg1   int // first operand, NoSlot for Nop/Const
	Arg2   int // second operand, NoSlot unless Op is binary
}

// NewNop creates an instruction that does nothing.
func NewNop() Instruction {
	return Instruction{Op: Nop, Result: 0, Arg1: NoSlot, Arg2: NoSlot}
}

// NewConst creates a constant instruction for slot.
func NewConst(slot int) Instruction {
	return Instruction{Op: Const, Result: slot, Arg1: NoSlot, Arg2: NoSlot}
}

// NewUnary creates a unary instruction result = op(arg).
func NewUnary(op OpCode, result, arg int) Instruction {
	if op.Arity() != 1 {
		panic(fmt.Sprintf("NewUnary: %s is not unary", op))
	}
	return Instruction{Op: op, Result: result, Arg1: arg, Arg2: NoSlot}
}

// NewBinary creates a binary instruction result = op(lhs, rhs).
func NewBinary(op OpCode, result, lhs, rhs int) Instruction {
	if op.Arity() != 2 {
		panic(fmt.Sprintf("NewBinary: %s is not binary", op))
	}
	return Instruction{Op: op, Result: result, Arg1: lhs, Arg2: rhs}
}

// String renders the instruction as "v3 = Add(v1, v2)".
func (in Instruction) String() string {
	switch in.Op.Arity() {
	case 0:
		return fmt.Sprintf("v%d = %s", in.Result, in.Op)
	case 1:
		return fmt.Sprintf("v%d = %s(v%d)", in.Result, in.Op, in.Arg1)
	default:
		return fmt.Sprintf("v%d = %s(v%d, v%d)", in.Result, in.Op, in.Arg1, in.Arg2)
	}
}

// operands returns the operand values, y is zero for unary ops.
func (in Instruction) operands(v []float64) (x, y float64) {
	x = v[in.Arg1]
	if in.Arg2 != NoSlot {
		y = v[in.Arg2]
	}
	return x, y
}

// ZeroOrder recomputes the result slot of v from its operands.
func (in Instruction) ZeroOrder(v []float64) {
	if in.Op == Nop || in.Op == Const {
		return
	}
	x, y := in.operands(v)
	v[in.Result] = ZeroOrderValue(in.Op, x, y)
}

// FirstOrder propagates tangents dv forward through the instruction,
// reading values from v.
func (in Instruction) FirstOrder(v, dv []float64) {
	switch in.Op {
	case Nop:
		return
	case Const:
		dv[in.Result] = 0
		return
	}
	x, y := in.operands(v)
	dx, dy := in.operands(dv)
	dv[in.Result] = FirstOrderValue(in.Op, x, y, dx, dy)
}

// Reverse accumulates the adjoint of the result slot into the operand adjoints.
// Panics with ErrUnsupported on Abs.
func (in Instruction) Reverse(v, vbar []float64) {
	if in.Op == Nop || in.Op == Const {
		return
	}
	x, y := in.operands(v)
	xbar, ybar := Adjoint(in.Op, x, y, vbar[in.Result])
	vbar[in.Arg1] += xbar
	if in.Arg2 != NoSlot {
		vbar[in.Arg2] += ybar
	}
}
