package ops

import (
	"fmt"
	"math"
)

// ZeroOrderValue computes the result of op applied to x (and y for binary ops).
// y is ignored for unary opcodes.
func ZeroOrderValue(op OpCode, x, y float64) float64 {
	switch op {
	case Add:
		return x + y
	case Sub:
		return x - y
	case Mul:
		return x * y
	case Div:
		return x / y
	case Sin:
		return math.Sin(x)
	case Cos:
		return math.Cos(x)
	case Tan:
		return math.Tan(x)
	case Abs:
		return math.Abs(x)
	case Exp:
		return math.Exp(x)
	case Ln:
		return math.Log(x)
	case Asin:
		return math.Asin(x)
	case Acos:
		return math.Acos(x)
	case Atan:
		return math.Atan(x)
	case Powf:
		return math.Pow(x, y)
	default:
		panic(fmt.Sprintf("ZeroOrderValue: invalid opcode %s", op))
	}
}

// FirstOrderValue computes the tangent of op at (x, y) along (dx, dy).
//
// Abs uses the one-sided rule |x+dx| - |x|, which is exact for the
// piecewise-linear part and agrees with sign(x)*dx away from the kink.
func FirstOrderValue(op OpCode, x, y, dx, dy float64) float64 {
	switch op {
	case Add:
		return dx + dy
	case Sub:
		return dx - dy
	case Mul:
		return dx*y + x*dy
	case Div:
		return (dx*y - x*dy) / (y * y)
	case Sin:
		return dx * math.Cos(x)
	case Cos:
		return -dx * math.Sin(x)
	case Tan:
		c := math.Cos(x)
		return dx / (c * c)
	case Abs:
		return math.Abs(x+dx) - math.Abs(x)
	case Exp:
		return dx * math.Exp(x)
	case Ln:
		return dx / x
	case Asin:
		return dx / math.Sqrt(1-x*x)
	case Acos:
		return -dx / math.Sqrt(1-x*x)
	case Atan:
		return dx / (1 + x*x)
	case Powf:
		var d float64
		// Zero tangents are skipped so that constant exponents of
		// non-positive bases do not produce NaN through ln(x).
		if dx != 0 {
			d += y * math.Pow(x, y-1) * dx
		}
		if dy != 0 {
			d += math.Log(x) * math.Pow(x, y) * dy
		}
		return d
	default:
		panic(fmt.Sprintf("FirstOrderValue: invalid opcode %s", op))
	}
}

// Adjoint returns the partial derivatives of op at (x, y) multiplied by the
// result adjoint rbar. The second value is zero for unary opcodes.
//
// Abs has no adjoint and panics with ErrUnsupported.
func Adjoint(op OpCode, x, y, rbar float64) (xbar, ybar float64) {
	switch op {
	case Nop, Const:
		return 0, 0
	case Add:
		return rbar, rbar
	case Sub:
		return rbar, -rbar
	case Mul:
		return rbar * y, rbar * x
	case Div:
		return rbar / y, -rbar * x / (y * y)
	case Powf:
		xbar = rbar * y * math.Pow(x, y-1)
		// d(x^y)/dy is only defined for a positive base.
		if x > 0 {
			ybar = rbar * math.Log(x) * math.Pow(x, y)
		}
		return xbar, ybar
	case Abs:
		panic(fmt.Errorf("Adjoint: %w: Abs encountered in reverse sweep", ErrUnsupported))
	default:
		return rbar * FirstOrderValue(op, x, 0, 1, 0), 0
	}
}
