package absnormal

import (
	"math"

	"github.com/born-ml/adv/internal/autodiff"
	"gonum.org/v1/gonum/mat"
)

// Form is a materialized abs-normal form at a fixed point.
//
// Matrices and vectors with a zero dimension (every kink-related entry of a
// smooth function) are left empty.
type Form struct {
	A *mat.VecDense // z − L·|z|, length s
	Z *mat.Dense    // s×n
	L *mat.Dense    // s×s, strictly lower triangular
	B *mat.VecDense // −Y·|z|, length m
	J *mat.Dense    // m×n
	Y *mat.Dense    // m×s
}

// Offsets returns a = z − L·|z| and b = −Y·|z| without materializing L or Y.
func (t *Tape) Offsets() (a, b []float64) {
	z := t.Kinks()
	absz := make([]float64, len(z))
	for i, v := range z {
		absz[i] = math.Abs(v)
	}

	a = t.L().MulVec(absz)
	for i := range a {
		a[i] = z[i] - a[i]
	}
	b = t.Y().MulVec(absz)
	for i := range b {
		b[i] = -b[i]
	}
	return a, b
}

// Dense materializes every matrix of the decomposition.
func (t *Tape) Dense() *Form {
	z, l, j, y := t.Views()
	a, b := t.Offsets()
	return &Form{
		A: vec(a),
		Z: z.Dense(),
		L: l.Dense(),
		B: vec(b),
		J: j.Dense(),
		Y: y.Dense(),
	}
}

// Dense records f at x and returns its abs-normal form there.
func Dense(f autodiff.Function, x []float64, opts ...Option) *Form {
	return Decompose(autodiff.TapeAt(f, x), opts...).Dense()
}

func vec(v []float64) *mat.VecDense {
	if len(v) == 0 {
		return &mat.VecDense{}
	}
	return mat.NewVecDense(len(v), v)
}
