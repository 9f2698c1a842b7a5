// Package genjac computes generalized Jacobians of piecewise-smooth functions.
//
// At a point x and direction dx the kink perturbations Δz are resolved as the
// fixed point of Δz = a + Z·dx + L·|Δz|. Their signs σ select one smooth
// piece, whose Jacobian is
//
//	homogeneous   = G·J + U·Z
//	inhomogeneous = γ + G·b + U·a
//
// where U = G·Y·Σ·(I − L·Σ)⁻¹ and (G, γ) is an optional downstream
// Jacobian. Kinks with Δz_i exactly zero take their sign from a SignSource
// and are counted in Multiplicity.
package genjac

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/born-ml/adv/internal/absnormal"
	"github.com/born-ml/adv/internal/autodiff"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSignsExhausted is raised when a zero kink needs a sign and the
	// SignSource has none left.
	ErrSignsExhausted = errors.New("sign sequence exhausted")

	// ErrNoConvergence is raised when a fixed-point iteration does not settle
	// within one step per kink. Recorded tapes never produce cyclic kink
	// dependencies, so this indicates a corrupted tape.
	ErrNoConvergence = errors.New("fixed-point iteration did not converge")
)

// Jacobian is a generalized Jacobian: the affine map dx ↦ Homogeneous·dx +
// Inhomogeneous valid on the selected piece.
type Jacobian struct {
	Homogeneous   *mat.Dense
	Inhomogeneous *mat.VecDense
	Multiplicity  int // number of kinks resolved through the SignSource
}

// Identity returns the n×n identity with a zero offset.
func Identity(n int) *Jacobian {
	return &Jacobian{
		Homogeneous:   eye(n),
		Inhomogeneous: mat.NewVecDense(n, nil),
	}
}

// Compute records f at x and returns its generalized Jacobian in direction dx.
// next, if not nil, is the Jacobian of whatever consumes the outputs of f.
func Compute(f autodiff.Function, x, dx []float64, signs SignSource, next *Jacobian, opts ...absnormal.Option) *Jacobian {
	return FromTape(autodiff.TapeAt(f, x), dx, signs, next, opts...)
}

// FromTape returns the generalized Jacobian of a tape replayed at the point
// of interest.
func FromTape(t autodiff.Tape, dx []float64, signs SignSource, next *Jacobian, opts ...absnormal.Option) *Jacobian {
	tape := absnormal.Decompose(t, opts...)
	n, m, s := tape.N(), tape.M(), tape.S()
	if len(dx) != n {
		panic(fmt.Errorf("genjac: %w: got %d directions, tape has %d inputs", autodiff.ErrDimension, len(dx), n))
	}
	if m == 0 {
		panic(fmt.Errorf("genjac: %w: tape has no outputs", autodiff.ErrDimension))
	}

	zv, lv, jv, yv := tape.Views()
	a, b := tape.Offsets()

	dz, dzIters := kinkPerturbation(lv, a, zv.MulVec(dx))
	sigma, mult := resolveSigns(dz, signs)

	var (
		g2    mat.Matrix
		gamma *mat.VecDense
	)
	if next != nil {
		if r, c := next.Homogeneous.Dims(); c != m || next.Inhomogeneous.Len() != r {
			panic(fmt.Errorf("genjac: %w: downstream Jacobian is %dx%d with offset %d, tape has %d outputs",
				autodiff.ErrDimension, r, c, next.Inhomogeneous.Len(), m))
		}
		g2, gamma = next.Homogeneous, next.Inhomogeneous
		mult += next.Multiplicity
	} else {
		g2, gamma = eye(m), mat.NewVecDense(m, nil)
	}
	k, _ := g2.Dims()

	homogeneous := jv.MulLeft(g2)
	inhomogeneous := mat.NewVecDense(k, nil)
	inhomogeneous.MulVec(g2, mat.NewVecDense(m, b))
	inhomogeneous.AddVec(inhomogeneous, gamma)

	uIters := 0
	if s > 0 {
		var u *mat.Dense
		u, uIters = kinkCoupling(lv, yv.MulLeft(g2), sigma)
		if n > 0 {
			homogeneous.Add(homogeneous, zv.MulLeft(u))
		}
		var ua mat.VecDense
		ua.MulVec(u, mat.NewVecDense(s, a))
		inhomogeneous.AddVec(inhomogeneous, &ua)
	}

	logger().Debug("generalized jacobian",
		slog.Int("inputs", n),
		slog.Int("outputs", m),
		slog.Int("kinks", s),
		slog.Int("multiplicity", mult),
		slog.Int("dz_iterations", dzIters),
		slog.Int("u_iterations", uIters),
	)

	return &Jacobian{
		Homogeneous:   homogeneous,
		Inhomogeneous: inhomogeneous,
		Multiplicity:  mult,
	}
}

func logger() *slog.Logger {
	return slog.Default().With(slog.String("component", "genjac"))
}

// kinkPerturbation iterates Δz = a + Z·dx + L·|Δz| to its fixed point.
func kinkPerturbation(l *absnormal.View, a, zdx []float64) ([]float64, int) {
	s := len(a)
	dzt := make([]float64, s)
	for i := range dzt {
		dzt[i] = a[i] + zdx[i]
	}
	if s == 0 {
		return dzt, 0
	}

	dz := dzt
	absdz := make([]float64, s)
	for it := 1; it <= s; it++ {
		for i, v := range dz {
			absdz[i] = math.Abs(v)
		}
		next := l.MulVec(absdz)
		for i := range next {
			next[i] += dzt[i]
		}
		if sameVec(next, dz) {
			return next, it
		}
		dz = next
	}
	panic(fmt.Errorf("genjac: %w: Δz still changing after %d iterations", ErrNoConvergence, s))
}

// resolveSigns returns sign(dz) with exact zeros resolved by signs.
func resolveSigns(dz []float64, signs SignSource) ([]float64, int) {
	sigma := make([]float64, len(dz))
	mult := 0
	for i, v := range dz {
		switch {
		case v < 0:
			sigma[i] = -1
		case v > 0:
			sigma[i] = 1
		default:
			mult++
			positive, ok := signs.Next()
			if !ok {
				panic(fmt.Errorf("genjac: %w: kink %d of %d needs a sign", ErrSignsExhausted, i, len(dz)))
			}
			sigma[i] = -1
			if positive {
				sigma[i] = 1
			}
		}
	}
	return sigma, mult
}

// kinkCoupling iterates U = U·L·Σ + G·Y·Σ to its fixed point, starting from
// G·Y·Σ.
func kinkCoupling(l *absnormal.View, gy *mat.Dense, sigma []float64) (*mat.Dense, int) {
	scaleCols(gy, sigma)
	u := mat.DenseCopyOf(gy)
	for it := 1; it <= len(sigma); it++ {
		next := l.MulLeft(u)
		scaleCols(next, sigma)
		next.Add(next, gy)
		if sameDense(next, u) {
			return next, it
		}
		u = next
	}
	panic(fmt.Errorf("genjac: %w: U still changing after %d iterations", ErrNoConvergence, len(sigma)))
}

func scaleCols(d *mat.Dense, sigma []float64) {
	r, c := d.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d.Set(i, j, d.At(i, j)*sigma[j])
		}
	}
}

func same(x, y float64) bool {
	return x == y || (math.IsNaN(x) && math.IsNaN(y))
}

func sameVec(x, y []float64) bool {
	for i := range x {
		if !same(x[i], y[i]) {
			return false
		}
	}
	return true
}

func sameDense(x, y *mat.Dense) bool {
	r, c := x.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if !same(x.At(i, j), y.At(i, j)) {
				return false
			}
		}
	}
	return true
}

func eye(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}
