// Package ops defines the closed instruction set recorded on a tape.
//
// Every instruction has three interpretations:
//   - Zero order: the value of the result given the argument values
//   - First order (forward): the tangent of the result given argument tangents
//   - Reverse: the increments added to the argument adjoints given the result adjoint
//
// Supported opcodes:
//   - Nop, Const: no arguments, nothing to propagate
//   - Add, Sub, Mul, Div, Powf: binary arithmetic
//   - Sin, Cos, Tan, Exp, Ln, Asin, Acos, Atan: unary transcendental functions
//   - Abs: the only non-smooth opcode. Its tangent uses the one-sided rule
//     |x+dx| - |x| and it has no reverse rule; reverse treatment of kinks
//     belongs to the abs-normal decomposition.
package ops

import (
	"errors"
	"fmt"
)

// ErrUnsupported is raised when an operation has no derivative in this model,
// e.g. reverse propagation through Abs or rounding functions.
var ErrUnsupported = errors.New("unsupported operation")

// OpCode identifies an elementary operation.
type OpCode uint8

// Opcodes.
const (
	Nop OpCode = iota
	Const
	Add
	Sub
	Mul
	Div
	Sin
	Cos
	Tan
	Abs
	Exp
	Ln
	Asin
	Acos
	Atan
	Powf
)

var opNames = [...]string{
	Nop:   "Nop",
	Const: "Const",
	Add:   "Add",
	Sub:   "Sub",
	Mul:   "Mul",
	Div:   "Div",
	Sin:   "Sin",
	Cos:   "Cos",
	Tan:   "Tan",
	Abs:   "Abs",
	Exp:   "Exp",
	Ln:    "Ln",
	Asin:  "Asin",
	Acos:  "Acos",
	Atan:  "Atan",
	Powf:  "Powf",
}

// String returns the opcode name.
func (c OpCode) String() string {
	if int(c) < len(opNames) {
		return opNames[c]
	}
	return fmt.Sprintf("OpCode(%d)", uint8(c))
}

// Arity returns the number of operands the opcode consumes.
func (c OpCode) Arity() int {
	switch c {
	case Nop, Const:
		return 0
	case Add, Sub, Mul, Div, Powf:
		return 2
	default:
		return 1
	}
}

// IsBinary reports whether the opcode takes two operands.
func (c OpCode) IsBinary() bool {
	return c.Arity() == 2
}

// Unsupported panics with an error naming the operation.
// Used for functions that have no derivative in this model (floor, ceil, ...).
func Unsupported(name string) {
	panic(fmt.Errorf("%s: %w on dual scalars", name, ErrUnsupported))
}
