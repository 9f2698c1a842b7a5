package autodiff

import (
	"fmt"
	"math"

	"github.com/born-ml/adv/internal/autodiff/ops"
)

// Scalar is a dual number (value, derivative) optionally bound to a Context.
//
// Arithmetic on scalars always computes value and tangent immediately, so the
// type works as plain tapeless forward-mode AD. When an operand is bound, the
// result is also recorded in the operand's context.
type Scalar struct {
	v    float64  // zero-order value
	dv   float64  // first-order value
	ctx  *Context // nil when unbound
	slot int      // value slot in ctx
}

// New creates an unbound scalar from its value and derivative.
func New(value, deriv float64) Scalar {
	return Scalar{v: value, dv: deriv}
}

// Float creates an unbound constant.
func Float(value float64) Scalar {
	return Scalar{v: value}
}

// Zero returns the unbound constant 0.
func Zero() Scalar { return Scalar{} }

// One returns the unbound constant 1.
func One() Scalar { return Scalar{v: 1} }

// Value returns the zero-order value.
func (x Scalar) Value() float64 { return x.v }

// Deriv returns the first-order value.
func (x Scalar) Deriv() float64 { return x.dv }

// Context returns the recording context, or nil if x is unbound.
func (x Scalar) Context() *Context { return x.ctx }

// Slot returns the value slot of x and whether x is bound.
func (x Scalar) Slot() (int, bool) {
	if x.ctx == nil {
		return ops.NoSlot, false
	}
	return x.slot, true
}

// String implements fmt.Stringer.
func (x Scalar) String() string {
	return fmt.Sprintf("(%g, %g)", x.v, x.dv)
}

// Apply is the single recording entry point behind every arithmetic method.
//
// It evaluates op on the operands, and if any operand is bound, records the
// instruction in the shared context (unbound operands are promoted to
// constants first). Combining scalars of different contexts panics with
// ErrContextMismatch.
func Apply(op ops.OpCode, args ...Scalar) Scalar {
	if len(args) != op.Arity() || len(args) == 0 {
		panic(fmt.Sprintf("Apply: %s expects %d operands, got %d", op, op.Arity(), len(args)))
	}

	a := args[0]
	var b Scalar
	if len(args) == 2 {
		b = args[1]
	}

	result := Scalar{
		v:  ops.ZeroOrderValue(op, a.v, b.v),
		dv: ops.FirstOrderValue(op, a.v, b.v, a.dv, b.dv),
	}

	ctx := a.ctx
	if len(args) == 2 && b.ctx != nil {
		if ctx != nil && ctx != b.ctx {
			panic(fmt.Errorf("%s: %w (context %d vs %d)", op, ErrContextMismatch, ctx.id, b.ctx.id))
		}
		ctx = b.ctx
	}
	if ctx == nil {
		return result
	}

	arg1, arg2 := ctx.bind(a), ops.NoSlot
	if len(args) == 2 {
		arg2 = ctx.bind(b)
	}
	result.ctx = ctx
	result.slot = ctx.record(op, result.v, arg1, arg2)
	return result
}

// Add returns x + y.
func (x Scalar) Add(y Scalar) Scalar { return Apply(ops.Add, x, y) }

// Sub returns x - y.
func (x Scalar) Sub(y Scalar) Scalar { return Apply(ops.Sub, x, y) }

// Mul returns x * y.
func (x Scalar) Mul(y Scalar) Scalar { return Apply(ops.Mul, x, y) }

// Div returns x / y.
func (x Scalar) Div(y Scalar) Scalar { return Apply(ops.Div, x, y) }

// AddF returns x + c.
func (x Scalar) AddF(c float64) Scalar { return x.Add(Float(c)) }

// SubF returns x - c.
func (x Scalar) SubF(c float64) Scalar { return x.Sub(Float(c)) }

// MulF returns x * c.
func (x Scalar) MulF(c float64) Scalar { return x.Mul(Float(c)) }

// DivF returns x / c.
func (x Scalar) DivF(c float64) Scalar { return x.Div(Float(c)) }

// Neg returns -x.
func (x Scalar) Neg() Scalar { return Float(-1).Mul(x) }

// Sin returns sin(x).
func (x Scalar) Sin() Scalar { return Apply(ops.Sin, x) }

// Cos returns cos(x).
func (x Scalar) Cos() Scalar { return Apply(ops.Cos, x) }

// Tan returns tan(x).
func (x Scalar) Tan() Scalar { return Apply(ops.Tan, x) }

// Abs returns |x|. This is the only operation that introduces kinks.
func (x Scalar) Abs() Scalar { return Apply(ops.Abs, x) }

// Exp returns e^x.
func (x Scalar) Exp() Scalar { return Apply(ops.Exp, x) }

// Ln returns the natural logarithm of x.
func (x Scalar) Ln() Scalar { return Apply(ops.Ln, x) }

// Asin returns arcsin(x).
func (x Scalar) Asin() Scalar { return Apply(ops.Asin, x) }

// Acos returns arccos(x).
func (x Scalar) Acos() Scalar { return Apply(ops.Acos, x) }

// Atan returns arctan(x).
func (x Scalar) Atan() Scalar { return Apply(ops.Atan, x) }

// Pow returns x^y.
func (x Scalar) Pow(y Scalar) Scalar { return Apply(ops.Powf, x, y) }

// Powi returns x^n.
func (x Scalar) Powi(n int) Scalar { return x.Pow(Float(float64(n))) }

// Sqrt returns the square root of x.
func (x Scalar) Sqrt() Scalar { return x.Pow(Float(0.5)) }

// Cbrt returns the cube root of x.
func (x Scalar) Cbrt() Scalar { return x.Pow(One().DivF(3)) }

// Recip returns 1/x.
func (x Scalar) Recip() Scalar { return One().Div(x) }

// Exp2 returns 2^x.
func (x Scalar) Exp2() Scalar { return Float(2).Pow(x) }

// Log returns the logarithm of x in the given base.
func (x Scalar) Log(base Scalar) Scalar { return x.Ln().Div(base.Ln()) }

// Log2 returns the binary logarithm of x.
func (x Scalar) Log2() Scalar { return x.Log(Float(2)) }

// Log10 returns the decimal logarithm of x.
func (x Scalar) Log10() Scalar { return x.Log(Float(10)) }

// MulAdd returns x*a + b.
func (x Scalar) MulAdd(a, b Scalar) Scalar { return x.Mul(a).Add(b) }

// Hypot returns sqrt(x² + y²).
func (x Scalar) Hypot(y Scalar) Scalar { return x.Powi(2).Add(y.Powi(2)).Sqrt() }

// Max returns max(x, y) = (x + y + |x - y|) / 2.
func (x Scalar) Max(y Scalar) Scalar {
	return Float(0.5).Mul(x.Add(y).Add(x.Sub(y).Abs()))
}

// Min returns min(x, y) = (x + y - |x - y|) / 2.
func (x Scalar) Min(y Scalar) Scalar {
	return Float(0.5).Mul(x.Add(y).Sub(x.Sub(y).Abs()))
}

// AbsSub returns |x - y|.
func (x Scalar) AbsSub(y Scalar) Scalar { return x.Sub(y).Abs() }

// Less compares values only.
func (x Scalar) Less(y Scalar) bool { return x.v < y.v }

// IsNaN reports whether the value is NaN.
func (x Scalar) IsNaN() bool { return math.IsNaN(x.v) }

// Floor has no derivative in this model and always panics.
func (x Scalar) Floor() Scalar { ops.Unsupported("Floor"); return x }

// Ceil has no derivative in this model and always panics.
func (x Scalar) Ceil() Scalar { ops.Unsupported("Ceil"); return x }

// Round has no derivative in this model and always panics.
func (x Scalar) Round() Scalar { ops.Unsupported("Round"); return x }

// Trunc has no derivative in this model and always panics.
func (x Scalar) Trunc() Scalar { ops.Unsupported("Trunc"); return x }

// Signum has no derivative in this model and always panics.
func (x Scalar) Signum() Scalar { ops.Unsupported("Signum"); return x }

// Sinh is not part of the instruction set and always panics.
func (x Scalar) Sinh() Scalar { ops.Unsupported("Sinh"); return x }

// Cosh is not part of the instruction set and always panics.
func (x Scalar) Cosh() Scalar { ops.Unsupported("Cosh"); return x }

// Tanh is not part of the instruction set and always panics.
func (x Scalar) Tanh() Scalar { ops.Unsupported("Tanh"); return x }

// Atan2 is not part of the instruction set and always panics.
func (x Scalar) Atan2(Scalar) Scalar { ops.Unsupported("Atan2"); return x }

// Values extracts the values of xs.
func Values(xs []Scalar) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x.v
	}
	return out
}

// Derivs extracts the derivatives of xs.
func Derivs(xs []Scalar) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x.dv
	}
	return out
}

// Duals zips values and derivatives into unbound scalars.
// dx may be nil for zero derivatives.
func Duals(x, dx []float64) []Scalar {
	if dx != nil && len(dx) != len(x) {
		panic(fmt.Errorf("Duals: %w: %d values, %d derivatives", ErrDimension, len(x), len(dx)))
	}
	out := make([]Scalar, len(x))
	for i := range x {
		out[i].v = x[i]
		if dx != nil {
			out[i].dv = dx[i]
		}
	}
	return out
}
