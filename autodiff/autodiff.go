// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides dual-number automatic differentiation with
// optional tape recording.
//
// Arithmetic on a Scalar always computes its value and forward derivative.
// Scalars created by a Context additionally record every operation, and the
// resulting Tape can be replayed, pushed forward or pulled back.
//
// Example:
//
//	import "github.com/born-ml/adv/autodiff"
//
//	func main() {
//	    ctx := autodiff.NewContext()
//	    x := ctx.NewIndependents([]float64{2, 3})
//	    ctx.MarkDependent(x[0].Mul(x[1]).Sin())
//
//	    tape := ctx.Tape()
//	    tape.Replay([]float64{1, 4})
//	    grad := tape.Reverse([]float64{1})
//	}
package autodiff

import (
	"github.com/born-ml/adv/internal/autodiff"
	"github.com/born-ml/adv/internal/autodiff/ops"
	"github.com/born-ml/adv/internal/parallel"
	"gonum.org/v1/gonum/mat"
)

// Scalar is a value/derivative pair, optionally bound to a Context.
type Scalar = autodiff.Scalar

// Context records the operations of bound scalars.
type Context = autodiff.Context

// Tape is the read-only interface shared by recorded tapes and their views.
type Tape = autodiff.Tape

// RecordedTape is a tape extracted from a Context. It owns its value buffer.
type RecordedTape = autodiff.RecordedTape

// Function is a vector function authored over scalars.
type Function = autodiff.Function

// Chain is a sequence of functions applied one after another.
type Chain = autodiff.Chain

// OpCode identifies an elementary operation.
type OpCode = ops.OpCode

// Instruction is one recorded elementary operation.
type Instruction = ops.Instruction

// Sentinel errors carried by panics.
var (
	ErrDimension       = autodiff.ErrDimension
	ErrContextMismatch = autodiff.ErrContextMismatch
	ErrUnsupported     = ops.ErrUnsupported
)

// NewContext creates an empty recording context.
func NewContext() *Context {
	return autodiff.NewContext()
}

// New creates an unbound scalar with the given value and derivative.
func New(value, deriv float64) Scalar {
	return autodiff.New(value, deriv)
}

// Float creates an unbound constant.
func Float(value float64) Scalar {
	return autodiff.Float(value)
}

// NewFunction wraps f as a Function taking n inputs and producing m outputs.
func NewFunction(name string, n, m int, f func(x []Scalar) []Scalar) Function {
	return autodiff.NewFunction(name, n, m, f)
}

// NewChain creates a chain from one or more functions.
func NewChain(first Function, rest ...Function) *Chain {
	return autodiff.NewChain(first, rest...)
}

// TapeAt records f at x.
func TapeAt(f Function, x []float64) *RecordedTape {
	return autodiff.TapeAt(f, x)
}

// Eval evaluates f on plain values.
func Eval(f Function, x []float64) []float64 {
	return autodiff.EvalFloat(f, x)
}

// EvalDual evaluates f and its directional derivative along dx.
func EvalDual(f Function, x, dx []float64) (y, dy []float64) {
	return autodiff.EvalDual(f, x, dx)
}

// Forward pushes the tangent dx through t.
func Forward(t Tape, dx []float64) []float64 {
	return autodiff.Forward(t, dx)
}

// Reverse pulls the adjoint dy back through a kink-free t.
func Reverse(t Tape, dy []float64) []float64 {
	return autodiff.Reverse(t, dy)
}

// Jacobian returns the dense Jacobian of f at x, evaluating columns in parallel.
func Jacobian(f Function, x []float64) *mat.Dense {
	return autodiff.JacobianForward(f, x, parallel.DefaultConfig())
}

// Gradient returns the gradient of a scalar-valued tape at x.
func Gradient(t *RecordedTape, x []float64) []float64 {
	return autodiff.Gradient(t, x)
}
