package autodiff_test

import (
	"math"
	"testing"

	"github.com/born-ml/adv/internal/autodiff"
	"github.com/born-ml/adv/internal/autodiff/ops"
	"github.com/born-ml/adv/internal/parallel"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func arithmetic(x1, x2 autodiff.Scalar) autodiff.Scalar {
	v1, v2, v3, v4 := x1.AddF(2), x1.SubF(2), x1.MulF(2), x1.DivF(2)
	two := autodiff.Float(2)
	v5, v6, v7, v8 := two.Add(x2), two.Sub(x2), two.Mul(x2), two.Div(x2)
	return v1.Add(v5).Add(v2.Sub(v6)).Add(v3.Mul(v7)).Add(v4.Div(v8))
}

func recordArithmetic() *autodiff.RecordedTape {
	ctx := autodiff.NewContext()
	x := ctx.NewIndependents([]float64{0.1, 0.2})
	ctx.MarkDependent(arithmetic(x[0], x[1]))
	return ctx.Tape()
}

// polar maps (r, φ) to (r cos φ, r sin φ).
var polar = autodiff.NewFunction("polar", 2, 2, func(x []autodiff.Scalar) []autodiff.Scalar {
	r, phi := x[0], x[1]
	return []autodiff.Scalar{r.Mul(phi.Cos()), r.Mul(phi.Sin())}
})

func polarJacobian(r, phi float64) *mat.Dense {
	return mat.NewDense(2, 2, []float64{
		math.Cos(phi), -r * math.Sin(phi),
		math.Sin(phi), r * math.Cos(phi),
	})
}

func TestTape_ReplayArithmetic(t *testing.T) {
	tape := recordArithmetic()
	tape.Replay([]float64{2, 3})

	want := arithmetic(autodiff.Float(2), autodiff.Float(3)).Value()
	assert.InDelta(t, want, tape.Y()[0], 1e-15)
	assert.Equal(t, []float64{2, 3}, tape.X())
}

func TestTape_ReplayIdempotent(t *testing.T) {
	tape := recordArithmetic()

	tape.Replay([]float64{-1, 4})
	first := append([]float64(nil), tape.Values()...)
	tape.Replay([]float64{7, 9})
	tape.Replay([]float64{-1, 4})

	assert.Equal(t, first, tape.Values())
}

func TestTape_ReplayWrongLength(t *testing.T) {
	tape := recordArithmetic()
	requirePanicIs(t, autodiff.ErrDimension, func() { tape.Replay([]float64{1}) })
	requirePanicIs(t, autodiff.ErrDimension, func() { tape.Forward([]float64{1, 2, 3}) })
	requirePanicIs(t, autodiff.ErrDimension, func() { tape.Reverse(nil) })
}

func TestTape_ForwardReverseIdentityChain(t *testing.T) {
	ctx := autodiff.NewContext()
	ctx.MarkDependent(identityChain(ctx.NewIndependent(3)))
	tape := ctx.Tape()

	assert.InDelta(t, 1.0, tape.Forward([]float64{1})[0], 1e-15)
	assert.InDelta(t, 1.0, tape.Reverse([]float64{1})[0], 1e-15)
}

func TestTape_ForwardReverseDuality(t *testing.T) {
	tape := autodiff.TapeAt(polar, []float64{2, 0.7})
	dirs := [][]float64{{1, 0}, {0, 1}, {0.3, -1.2}, {-2, 5}}

	for i := 0; i < tape.NumDependents(); i++ {
		seed := make([]float64, tape.NumDependents())
		seed[i] = 1
		adj := tape.Reverse(seed)

		for _, d := range dirs {
			fwd := tape.Forward(d)
			assert.InDelta(t, fwd[i], mat.Dot(mat.NewVecDense(2, adj), mat.NewVecDense(2, d)), 1e-12)
		}
	}
}

func TestTape_ReverseRejectsAbs(t *testing.T) {
	ctx := autodiff.NewContext()
	ctx.MarkDependent(ctx.NewIndependent(-1).Abs())
	tape := ctx.Tape()

	assert.Equal(t, 1, tape.NumKinks())
	// Forward through Abs uses the one-sided rule.
	assert.Equal(t, []float64{-1}, tape.Forward([]float64{1}))
	requirePanicIs(t, ops.ErrUnsupported, func() { tape.Reverse([]float64{1}) })
}

func TestTape_CloneIsIndependent(t *testing.T) {
	tape := recordArithmetic()
	tape.Replay([]float64{1, 1})
	clone := tape.Clone()

	clone.Replay([]float64{5, 6})
	assert.NotEqual(t, tape.Y(), clone.Y())

	tape.Replay([]float64{5, 6})
	assert.Equal(t, tape.Values(), clone.Values())
}

func TestTape_MaxSlot(t *testing.T) {
	tape := recordArithmetic()
	assert.Equal(t, len(tape.Values())-1, autodiff.MaxSlot(tape))
}

func TestJacobian_Polar(t *testing.T) {
	r, phi := 2.0, math.Pi
	want := polarJacobian(r, phi)

	fwd := autodiff.JacobianForward(polar, []float64{r, phi}, parallel.DefaultConfig())
	assert.True(t, mat.EqualApprox(want, fwd, 1e-12), "forward:\n%v", mat.Formatted(fwd))

	tape := autodiff.TapeAt(polar, []float64{0, 0})
	tape.Replay([]float64{r, phi})
	rev := autodiff.JacobianReverse(tape, parallel.Sequential())
	assert.True(t, mat.EqualApprox(want, rev, 1e-12), "reverse:\n%v", mat.Formatted(rev))
}

func TestGradient(t *testing.T) {
	f := autodiff.NewFunction("rosenbrock", 2, 1, func(x []autodiff.Scalar) []autodiff.Scalar {
		a := autodiff.One().Sub(x[0])
		b := x[1].Sub(x[0].Mul(x[0]))
		return []autodiff.Scalar{a.Mul(a).Add(b.Mul(b).MulF(100))}
	})
	tape := autodiff.TapeAt(f, []float64{0, 0})

	x, y := -1.2, 1.0
	got := autodiff.Gradient(tape, []float64{x, y})
	want := []float64{-2*(1-x) - 400*x*(y-x*x), 200 * (y - x*x)}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("gradient mismatch (-want +got):\n%s", diff)
	}
}

func TestFunction_DimensionChecks(t *testing.T) {
	bad := autodiff.NewFunction("bad", 1, 2, func(x []autodiff.Scalar) []autodiff.Scalar { return x })
	requirePanicIs(t, autodiff.ErrDimension, func() { autodiff.EvalFloat(bad, []float64{1}) })
	requirePanicIs(t, autodiff.ErrDimension, func() { autodiff.EvalFloat(polar, []float64{1}) })
}

func sumPairs(n int) autodiff.Function {
	return autodiff.NewFunction("sumPairs", n, n/2, func(x []autodiff.Scalar) []autodiff.Scalar {
		out := make([]autodiff.Scalar, n/2)
		for i := range out {
			out[i] = x[2*i].Add(x[2*i+1])
		}
		return out
	})
}

func TestChain_Eval(t *testing.T) {
	inner := autodiff.NewChain(sumPairs(8), sumPairs(4))
	chain := autodiff.NewChain(inner, sumPairs(2))

	assert.Equal(t, 3, chain.Len())
	assert.Equal(t, 8, chain.InputDim())
	assert.Equal(t, 1, chain.OutputDim())

	x := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	assert.Equal(t, []float64{8}, autodiff.EvalFloat(chain, x))

	y, dy := autodiff.EvalDual(chain, x, []float64{1, 0, 0, 0, 0, 0, 0, 2})
	assert.Equal(t, []float64{8}, y)
	assert.Equal(t, []float64{3}, dy)
}

func TestChain_AppendMismatch(t *testing.T) {
	chain := autodiff.NewChain(sumPairs(8))
	requirePanicIs(t, autodiff.ErrDimension, func() { chain.Append(sumPairs(2)) })
}
