package absnormal

import (
	"fmt"

	"github.com/born-ml/adv/internal/autodiff"
	"github.com/born-ml/adv/internal/autodiff/ops"
	"github.com/born-ml/adv/internal/parallel"
	"gonum.org/v1/gonum/mat"
)

// View is one structural matrix (Z, L, J or Y) of an abs-normal form,
// represented by a sub-selection of the blinded tape's inputs and outputs.
// Views are read-only and safe for concurrent use.
type View struct {
	name   string
	tape   *Tape
	indeps []int
	deps   []int
}

// Independents returns the slots acting as columns.
func (v *View) Independents() []int { return v.indeps }

// Dependents returns the slots acting as rows.
func (v *View) Dependents() []int { return v.deps }

// Instructions returns the blinded instructions.
func (v *View) Instructions() []ops.Instruction { return v.tape.instrs }

// Values returns the shared value buffer.
func (v *View) Values() []float64 { return v.tape.Values() }

// Name returns "Z", "L", "J" or "Y".
func (v *View) Name() string { return v.name }

// Rows returns the number of rows.
func (v *View) Rows() int { return len(v.deps) }

// Cols returns the number of columns.
func (v *View) Cols() int { return len(v.indeps) }

// MulVec returns V·d with a single forward sweep.
func (v *View) MulVec(d []float64) []float64 {
	return autodiff.Forward(v, d)
}

// VecMul returns wᵀ·V with a single reverse sweep.
func (v *View) VecMul(w []float64) []float64 {
	return autodiff.Reverse(v, w)
}

// MulRight returns V·rhs, one forward sweep per column of rhs.
// Returns an empty matrix if the result has a zero dimension.
func (v *View) MulRight(rhs mat.Matrix) *mat.Dense {
	r, c := rhs.Dims()
	if r != v.Cols() && !(r == 0 && c == 0) {
		panic(fmt.Errorf("%s.MulRight: %w: view is %dx%d, rhs is %dx%d",
			v.name, autodiff.ErrDimension, v.Rows(), v.Cols(), r, c))
	}
	if v.Rows() == 0 || c == 0 {
		return &mat.Dense{}
	}

	out := mat.NewDense(v.Rows(), c, nil)
	parallel.For(c, func(j int) {
		out.SetCol(j, autodiff.Forward(v, mat.Col(nil, j, rhs)))
	}, v.tape.cfg)
	return out
}

// MulLeft returns lhs·V, one reverse sweep per row of lhs.
// Returns an empty matrix if the result has a zero dimension.
func (v *View) MulLeft(lhs mat.Matrix) *mat.Dense {
	r, c := lhs.Dims()
	if c != v.Rows() && !(r == 0 && c == 0) {
		panic(fmt.Errorf("%s.MulLeft: %w: lhs is %dx%d, view is %dx%d",
			v.name, autodiff.ErrDimension, r, c, v.Rows(), v.Cols()))
	}
	if v.Cols() == 0 || r == 0 {
		return &mat.Dense{}
	}

	out := mat.NewDense(r, v.Cols(), nil)
	parallel.For(r, func(i int) {
		out.SetRow(i, autodiff.Reverse(v, mat.Row(nil, i, lhs)))
	}, v.tape.cfg)
	return out
}

// Row returns row i of the view.
func (v *View) Row(i int) []float64 {
	w := make([]float64, v.Rows())
	w[i] = 1
	return v.VecMul(w)
}

// Column returns column j of the view.
func (v *View) Column(j int) []float64 {
	d := make([]float64, v.Cols())
	d[j] = 1
	return v.MulVec(d)
}

// Dense materializes the view against the identity of its smaller side.
func (v *View) Dense() *mat.Dense {
	r, c := v.Rows(), v.Cols()
	switch {
	case r == 0 || c == 0:
		return &mat.Dense{}
	case c < r:
		return v.MulRight(eye(c))
	default:
		return v.MulLeft(eye(r))
	}
}

func eye(n int) *mat.DiagDense {
	d := make([]float64, n)
	for i := range d {
		d[i] = 1
	}
	return mat.NewDiagDense(n, d)
}
