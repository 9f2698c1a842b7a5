package genjac_test

import (
	"testing"

	"github.com/born-ml/adv/internal/absnormal"
	"github.com/born-ml/adv/internal/autodiff"
	"github.com/born-ml/adv/internal/genjac"
	"github.com/born-ml/adv/internal/parallel"
	"github.com/born-ml/adv/internal/testfunc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const tol = 1e-12

type point struct {
	x, dx []float64
}

// halfpipeGrid samples x on [0, 4.5]² in steps of 0.5 and dx on {0, 0.5}².
func halfpipeGrid() []point {
	var pts []point
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			for di := 0; di < 2; di++ {
				for dj := 0; dj < 2; dj++ {
					pts = append(pts, point{
						x:  []float64{float64(i) * 0.5, float64(j) * 0.5},
						dx: []float64{float64(di) * 0.5, float64(dj) * 0.5},
					})
				}
			}
		}
	}
	return pts
}

func assertJacobian(t *testing.T, want, got *genjac.Jacobian, p point) {
	t.Helper()
	assert.True(t, mat.EqualApprox(want.Homogeneous, got.Homogeneous, tol),
		"homogeneous at x=%v dx=%v: want %v got %v", p.x, p.dx,
		mat.Formatted(want.Homogeneous), mat.Formatted(got.Homogeneous))
	assert.True(t, mat.EqualApprox(want.Inhomogeneous, got.Inhomogeneous, tol),
		"inhomogeneous at x=%v dx=%v: want %v got %v", p.x, p.dx,
		mat.Formatted(want.Inhomogeneous), mat.Formatted(got.Inhomogeneous))
	assert.Equal(t, want.Multiplicity, got.Multiplicity, "multiplicity at x=%v dx=%v", p.x, p.dx)
}

func TestCompute_Halfpipe(t *testing.T) {
	for _, p := range halfpipeGrid() {
		want := testfunc.HalfpipeJacobian(p.x, p.dx)
		got := genjac.Compute(testfunc.Halfpipe, p.x, p.dx, genjac.NewBitSigns([]byte{0}), nil)
		assertJacobian(t, want, got, p)
	}
}

func TestCompute_HalfpipeWithNext(t *testing.T) {
	for _, p := range halfpipeGrid() {
		want := testfunc.HalfpipeJacobian(p.x, p.dx)
		got := genjac.Compute(testfunc.Halfpipe, p.x, p.dx, genjac.NewBitSigns([]byte{0}), genjac.Identity(1),
			absnormal.WithParallel(parallel.Sequential()))
		assertJacobian(t, want, got, p)
	}
}

func TestCompute_DownstreamComposes(t *testing.T) {
	p := point{x: []float64{1.5, 2}, dx: []float64{0.5, 0}}
	base := genjac.Compute(testfunc.Halfpipe, p.x, p.dx, genjac.ConstantSigns(false), nil)

	next := &genjac.Jacobian{
		Homogeneous:   mat.NewDense(2, 1, []float64{2, -1}),
		Inhomogeneous: mat.NewVecDense(2, []float64{0.25, 1}),
		Multiplicity:  3,
	}
	got := genjac.Compute(testfunc.Halfpipe, p.x, p.dx, genjac.ConstantSigns(false), next)

	var hom mat.Dense
	hom.Mul(next.Homogeneous, base.Homogeneous)
	inh := mat.NewVecDense(2, nil)
	inh.MulVec(next.Homogeneous, base.Inhomogeneous)
	inh.AddVec(inh, next.Inhomogeneous)

	assert.True(t, mat.EqualApprox(&hom, got.Homogeneous, tol))
	assert.True(t, mat.EqualApprox(inh, got.Inhomogeneous, tol))
	assert.Equal(t, base.Multiplicity+3, got.Multiplicity)
}

func TestCompute_Multiplicity(t *testing.T) {
	x, dx := []float64{0, 3}, []float64{0, 0}

	up := genjac.Compute(testfunc.AbsPlus, x, dx, genjac.NewBitSigns([]byte{1}), nil)
	assert.Equal(t, 1, up.Multiplicity)
	assert.Equal(t, []float64{1, 1}, up.Homogeneous.RawRowView(0))
	assert.Equal(t, 0.0, up.Inhomogeneous.AtVec(0))

	down := genjac.Compute(testfunc.AbsPlus, x, dx, genjac.NewBitSigns([]byte{0}), nil)
	assert.Equal(t, 1, down.Multiplicity)
	assert.Equal(t, []float64{-1, 1}, down.Homogeneous.RawRowView(0))
	assert.Equal(t, 0.0, down.Inhomogeneous.AtVec(0))
}

func TestCompute_NonzeroDirectionNeedsNoSign(t *testing.T) {
	got := genjac.Compute(testfunc.AbsPlus, []float64{0, 3}, []float64{-1, 0}, genjac.NewBitSigns(nil), nil)
	assert.Equal(t, 0, got.Multiplicity)
	assert.Equal(t, []float64{-1, 1}, got.Homogeneous.RawRowView(0))
}

func TestCompute_SignsExhausted(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, genjac.ErrSignsExhausted)
	}()
	genjac.Compute(testfunc.AbsPlus, []float64{0, 3}, []float64{0, 0}, genjac.NewBitSigns(nil), nil)
}

func TestCompute_Smooth(t *testing.T) {
	f := autodiff.NewFunction("prod", 2, 2, func(x []autodiff.Scalar) []autodiff.Scalar {
		return []autodiff.Scalar{x[0].Mul(x[1]), x[0].Sin()}
	})
	x := []float64{2, 3}
	got := genjac.Compute(f, x, []float64{1, 1}, genjac.NewBitSigns(nil), nil)

	want := autodiff.JacobianForward(f, x, parallel.Sequential())
	assert.True(t, mat.EqualApprox(want, got.Homogeneous, tol))
	assert.Equal(t, []float64{0, 0}, got.Inhomogeneous.RawVector().Data)
	assert.Zero(t, got.Multiplicity)
}

func TestCompute_DirectionLength(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		assert.ErrorIs(t, r.(error), autodiff.ErrDimension)
	}()
	genjac.Compute(testfunc.Halfpipe, []float64{1, 1}, []float64{1}, genjac.ConstantSigns(true), nil)
}

func TestChain_Halfpipe(t *testing.T) {
	chain := testfunc.HalfpipeChain()
	for _, p := range halfpipeGrid() {
		assert.Equal(t,
			autodiff.EvalFloat(testfunc.Halfpipe, p.x),
			autodiff.EvalFloat(chain, p.x))

		want := testfunc.HalfpipeJacobian(p.x, p.dx)
		got := genjac.Chain(chain, p.x, p.dx, 0)
		assertJacobian(t, want, got, p)
	}
}

func TestChain_BudgetIndependent(t *testing.T) {
	sq := autodiff.NewFunction("sq", 1, 1, func(x []autodiff.Scalar) []autodiff.Scalar {
		return []autodiff.Scalar{x[0].Mul(x[0]).SubF(1).Abs()}
	})
	chain := autodiff.NewChain(sq)
	for i := 0; i < 11; i++ {
		chain.Append(sq)
	}

	x, dx := []float64{0.3}, []float64{1}
	ref := genjac.Chain(chain, x, dx, chain.Len()+1)
	for _, budget := range []int{2, 3, 5, chain.Len()} {
		got := genjac.Chain(chain, x, dx, budget)
		assertJacobian(t, ref, got, point{x: x, dx: dx})
	}
}

func TestBitSigns(t *testing.T) {
	signs := genjac.NewBitSigns([]byte{0b1000_0011, 0b1100_0111})
	want := []bool{
		true, true, false, false, false, false, false, true,
		true, true, true, false, false, false, true, true,
	}

	for i, w := range want {
		got, ok := signs.Next()
		require.True(t, ok, "bit %d", i)
		assert.Equal(t, w, got, "bit %d", i)
	}
	assert.Zero(t, signs.Remaining())
	_, ok := signs.Next()
	assert.False(t, ok)
}

func TestConstantSigns(t *testing.T) {
	for i := 0; i < 100; i++ {
		got, ok := genjac.ConstantSigns(true).Next()
		assert.True(t, ok)
		assert.True(t, got)
	}
}
