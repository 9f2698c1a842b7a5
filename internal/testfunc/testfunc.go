// Package testfunc provides small piecewise-smooth functions together with
// hand-derived abs-normal forms and generalized Jacobians to check the
// drivers against.
package testfunc

import (
	"math"

	"github.com/born-ml/adv/internal/absnormal"
	"github.com/born-ml/adv/internal/autodiff"
	"github.com/born-ml/adv/internal/genjac"
	"gonum.org/v1/gonum/mat"
)

var zero = autodiff.Zero()

// Halfpipe is max(x1² − max(x0, 0), 0).
var Halfpipe = autodiff.NewFunction("halfpipe", 2, 1, func(x []autodiff.Scalar) []autodiff.Scalar {
	return []autodiff.Scalar{x[1].Mul(x[1]).Sub(x[0].Max(zero)).Max(zero)}
})

// Halfpipe1 is the first half of Halfpipe: (max(x0, 0), x1²).
var Halfpipe1 = autodiff.NewFunction("halfpipe_1", 2, 2, func(x []autodiff.Scalar) []autodiff.Scalar {
	return []autodiff.Scalar{x[0].Max(zero), x[1].Mul(x[1])}
})

// Halfpipe2 is the second half of Halfpipe: max(x1 − x0, 0).
var Halfpipe2 = autodiff.NewFunction("halfpipe_2", 2, 1, func(x []autodiff.Scalar) []autodiff.Scalar {
	return []autodiff.Scalar{x[1].Sub(x[0]).Max(zero)}
})

// HalfpipeChain returns Halfpipe2 ∘ Halfpipe1, which equals Halfpipe.
func HalfpipeChain() *autodiff.Chain {
	return autodiff.NewChain(Halfpipe1, Halfpipe2)
}

// AbsPlus is |x0| + x1.
var AbsPlus = autodiff.NewFunction("abs_plus", 2, 1, func(x []autodiff.Scalar) []autodiff.Scalar {
	return []autodiff.Scalar{x[0].Abs().Add(x[1])}
})

// HalfpipeForm returns the abs-normal form of Halfpipe at x.
func HalfpipeForm(x []float64) *absnormal.Form {
	zmat := mat.NewDense(2, 2, []float64{
		1, 0,
		-0.5, 2 * x[1],
	})
	lmat := mat.NewDense(2, 2, []float64{
		0, 0,
		-0.5, 0,
	})
	jmat := mat.NewDense(1, 2, []float64{-0.25, x[1]})
	ymat := mat.NewDense(1, 2, []float64{-0.25, 0.5})

	z := mat.NewVecDense(2, []float64{x[0], x[1]*x[1] - x[0]/2 - math.Abs(x[0])/2})
	absz := mat.NewVecDense(2, []float64{math.Abs(z.AtVec(0)), math.Abs(z.AtVec(1))})

	a := mat.NewVecDense(2, nil)
	a.MulVec(lmat, absz)
	a.SubVec(z, a)

	b := mat.NewVecDense(1, nil)
	b.MulVec(ymat, absz)
	b.ScaleVec(-1, b)

	return &absnormal.Form{A: a, Z: zmat, L: lmat, B: b, J: jmat, Y: ymat}
}

// HalfpipeJacobian returns the generalized Jacobian of Halfpipe at x in
// direction dx, resolving zero kinks to the negative branch.
func HalfpipeJacobian(x, dx []float64) *genjac.Jacobian {
	f := HalfpipeForm(x)

	dz0 := f.A.AtVec(0) + f.Z.At(0, 0)*dx[0]
	dz1 := f.A.AtVec(1) + f.Z.At(1, 0)*dx[0] + f.Z.At(1, 1)*dx[1] + f.L.At(1, 0)*math.Abs(dz0)

	mult := 0
	sign := func(v float64) float64 {
		switch {
		case v < 0:
			return -1
		case v > 0:
			return 1
		}
		mult++
		return -1
	}
	sigma := mat.NewDiagDense(2, []float64{sign(dz0), sign(dz1)})

	// A = (I − LΣ)⁻¹
	var ls, amat mat.Dense
	ls.Mul(f.L, sigma)
	ls.Sub(eye(2), &ls)
	if err := amat.Inverse(&ls); err != nil {
		panic(err)
	}

	var ys, ysa mat.Dense
	ys.Mul(f.Y, sigma)
	ysa.Mul(&ys, &amat)

	var hom mat.Dense
	hom.Mul(&ysa, f.Z)
	hom.Add(f.J, &hom)

	inh := mat.NewVecDense(1, nil)
	inh.MulVec(&ysa, f.A)
	inh.AddVec(f.B, inh)

	return &genjac.Jacobian{Homogeneous: &hom, Inhomogeneous: inh, Multiplicity: mult}
}

func eye(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}
