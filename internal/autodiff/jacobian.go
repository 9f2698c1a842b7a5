package autodiff

import (
	"fmt"

	"github.com/born-ml/adv/internal/parallel"
	"gonum.org/v1/gonum/mat"
)

// JacobianForward builds the dense Jacobian of f at x with one tapeless
// forward evaluation per column. Columns are evaluated in parallel.
func JacobianForward(f Function, x []float64, cfg parallel.Config) *mat.Dense {
	n, m := f.InputDim(), f.OutputDim()
	if len(x) != n {
		panic(fmt.Errorf("JacobianForward: %w: got %d inputs, function takes %d", ErrDimension, len(x), n))
	}

	cols := make([][]float64, n)
	parallel.For(n, func(j int) {
		dx := make([]float64, n)
		dx[j] = 1
		_, cols[j] = EvalDual(f, x, dx)
	}, cfg)

	jac := mat.NewDense(m, n, nil)
	for j, col := range cols {
		jac.SetCol(j, col)
	}
	return jac
}

// JacobianReverse builds the dense Jacobian of a replayed, kink-free tape
// with one reverse sweep per row. Rows are evaluated in parallel.
func JacobianReverse(t Tape, cfg parallel.Config) *mat.Dense {
	n, m := len(t.Independents()), len(t.Dependents())

	rows := make([][]float64, m)
	parallel.For(m, func(i int) {
		dy := make([]float64, m)
		dy[i] = 1
		rows[i] = Reverse(t, dy)
	}, cfg)

	jac := mat.NewDense(m, n, nil)
	for i, row := range rows {
		jac.SetRow(i, row)
	}
	return jac
}

// Gradient returns the gradient of a scalar-valued tape after replaying it at x.
func Gradient(t *RecordedTape, x []float64) []float64 {
	if t.NumDependents() != 1 {
		panic(fmt.Errorf("Gradient: %w: tape has %d dependents, want 1", ErrDimension, t.NumDependents()))
	}
	t.Replay(x)
	return t.Reverse([]float64{1})
}
