// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package drivers computes derivatives of recorded functions: dense
// Jacobians, abs-normal forms, generalized Jacobians of piecewise-smooth
// functions and checkpointed reverse traversals of function chains.
//
// The internal packages fail fast with panics on contract violations. Every
// function here converts such a panic into a returned error, which still
// wraps the original sentinel (autodiff.ErrDimension, ErrBudget, ...).
//
// Example:
//
//	f := autodiff.NewFunction("halfpipe", 2, 1, ...)
//	jac, err := drivers.GeneralizedJacobian(f, x, dx, []byte{0}, nil)
//	if err != nil {
//	    return err
//	}
package drivers

import (
	"fmt"

	"github.com/born-ml/adv/autodiff"
	"github.com/born-ml/adv/internal/absnormal"
	iautodiff "github.com/born-ml/adv/internal/autodiff"
	"github.com/born-ml/adv/internal/checkpoint"
	"github.com/born-ml/adv/internal/genjac"
	"github.com/born-ml/adv/internal/parallel"
	"gonum.org/v1/gonum/mat"
)

// Jacobian is a generalized Jacobian {homogeneous, inhomogeneous, multiplicity}.
type Jacobian = genjac.Jacobian

// Form is a dense abs-normal form {a, Z, L, b, J, Y}.
type Form = absnormal.Form

// AbsNormalTape is a decomposed tape exposing the Z, L, J and Y views.
type AbsNormalTape = absnormal.Tape

// View is one structural matrix of an abs-normal form.
type View = absnormal.View

// SignSource resolves signs of kinks with exactly zero perturbation.
type SignSource = genjac.SignSource

// ParallelConfig controls how view multiplication is spread over goroutines.
type ParallelConfig = parallel.Config

// Option configures a decomposition.
type Option = absnormal.Option

// Sentinel errors.
var (
	ErrBudget         = checkpoint.ErrBudget
	ErrSignsExhausted = genjac.ErrSignsExhausted
	ErrNoConvergence  = genjac.ErrNoConvergence
)

// WithParallel sets the worker pool used by view multiplication.
func WithParallel(cfg ParallelConfig) Option {
	return absnormal.WithParallel(cfg)
}

// DefaultParallel returns a pool sized to the number of CPUs.
func DefaultParallel() ParallelConfig {
	return parallel.DefaultConfig()
}

// Sequential returns a configuration that never spawns goroutines.
func Sequential() ParallelConfig {
	return parallel.Sequential()
}

// BitSigns returns a sign source reading bits LSB first; a set bit selects
// the positive branch.
func BitSigns(bits []byte) SignSource {
	return genjac.NewBitSigns(bits)
}

// ConstantSigns returns an unbounded sign source.
func ConstantSigns(positive bool) SignSource {
	return genjac.ConstantSigns(positive)
}

// catch converts a panic into *err, prefixed with op.
func catch(op string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(error); ok {
		*err = fmt.Errorf("%s: %w", op, e)
		return
	}
	*err = fmt.Errorf("%s: %v", op, r)
}

// JacobianForward returns the dense Jacobian of f at x, one forward
// evaluation per column.
func JacobianForward(f autodiff.Function, x []float64, cfg ParallelConfig) (jac *mat.Dense, err error) {
	defer catch("JacobianForward", &err)
	return iautodiff.JacobianForward(f, x, cfg), nil
}

// JacobianReverse returns the dense Jacobian of a kink-free tape, one reverse
// sweep per row.
func JacobianReverse(t autodiff.Tape, cfg ParallelConfig) (jac *mat.Dense, err error) {
	defer catch("JacobianReverse", &err)
	return iautodiff.JacobianReverse(t, cfg), nil
}

// Decompose returns the abs-normal decomposition of t.
func Decompose(t autodiff.Tape, opts ...Option) *AbsNormalTape {
	return absnormal.Decompose(t, opts...)
}

// DenseForm records f at x and materializes its abs-normal form.
func DenseForm(f autodiff.Function, x []float64, opts ...Option) (form *Form, err error) {
	defer catch("DenseForm", &err)
	return absnormal.Dense(f, x, opts...), nil
}

// GeneralizedJacobian returns the generalized Jacobian of f at x in direction
// dx. signBits resolves zero kinks; next, if not nil, is composed downstream.
func GeneralizedJacobian(f autodiff.Function, x, dx []float64, signBits []byte, next *Jacobian, opts ...Option) (jac *Jacobian, err error) {
	defer catch("GeneralizedJacobian", &err)
	return genjac.Compute(f, x, dx, genjac.NewBitSigns(signBits), next, opts...), nil
}

// GeneralizedJacobianTape is GeneralizedJacobian for an already recorded tape
// with an arbitrary sign source.
func GeneralizedJacobianTape(t autodiff.Tape, dx []float64, signs SignSource, next *Jacobian, opts ...Option) (jac *Jacobian, err error) {
	defer catch("GeneralizedJacobianTape", &err)
	return genjac.FromTape(t, dx, signs, next, opts...), nil
}

// GeneralizedJacobianChain returns the generalized Jacobian of a chain,
// storing at most ncheckpoints intermediate states (<= 0: one per function).
func GeneralizedJacobianChain(c *autodiff.Chain, x, dx []float64, ncheckpoints int, opts ...Option) (jac *Jacobian, err error) {
	defer catch("GeneralizedJacobianChain", &err)
	return genjac.Chain(c, x, dx, ncheckpoints, opts...), nil
}

// Schedule returns the checkpoint positions for a sequence of r states with
// c checkpoints.
func Schedule(c, r int) []int {
	return checkpoint.Schedule(c, r)
}

// ReverseSequence folds the states x, forward(x), ... forward^nsteps(x) from
// last to first while holding at most ncheckpoints of them.
func ReverseSequence[T, R any](x T, nsteps, ncheckpoints int, forward func(T) T, reverse func(T, R) R, seed func(T) R) (res R, err error) {
	defer catch("ReverseSequence", &err)
	return checkpoint.ReverseSequence(x, nsteps, ncheckpoints, forward, reverse, seed), nil
}
