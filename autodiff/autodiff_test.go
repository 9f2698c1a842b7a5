package autodiff_test

import (
	"math"
	"testing"

	"github.com/born-ml/adv/autodiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndReplay(t *testing.T) {
	ctx := autodiff.NewContext()
	x := ctx.NewIndependents([]float64{2, 3})
	ctx.MarkDependent(x[0].Mul(x[1]).Sin())
	tape := ctx.Tape()

	tape.Replay([]float64{1, 4})
	assert.InDelta(t, math.Sin(4), tape.Y()[0], 1e-15)

	grad := autodiff.Reverse(tape, []float64{1})
	assert.InDelta(t, 4*math.Cos(4), grad[0], 1e-12)
	assert.InDelta(t, math.Cos(4), grad[1], 1e-12)

	tangent := autodiff.Forward(tape, []float64{1, 0})
	assert.InDelta(t, grad[0], tangent[0], 1e-12)
}

func TestEvalDual(t *testing.T) {
	f := autodiff.NewFunction("cube", 1, 1, func(x []autodiff.Scalar) []autodiff.Scalar {
		return []autodiff.Scalar{x[0].Powi(3)}
	})
	y, dy := autodiff.EvalDual(f, []float64{2}, []float64{1})
	assert.InDelta(t, 8.0, y[0], 1e-12)
	assert.InDelta(t, 12.0, dy[0], 1e-12)
	assert.InDelta(t, 8.0, autodiff.Eval(f, []float64{2})[0], 1e-12)

	jac := autodiff.Jacobian(f, []float64{2})
	assert.InDelta(t, 12.0, jac.At(0, 0), 1e-12)
	assert.InDelta(t, 12.0, autodiff.Gradient(autodiff.TapeAt(f, []float64{0}), []float64{2})[0], 1e-12)
}

func TestUnsupported(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		assert.ErrorIs(t, r.(error), autodiff.ErrUnsupported)
	}()
	autodiff.Float(1.5).Floor()
}
