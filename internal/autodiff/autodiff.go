// Package autodiff implements operator-overloading style automatic differentiation
// over dual scalars with optional tape recording.
//
// Architecture:
//   - Scalar: (value, derivative) pair; arithmetic is always evaluated in
//     forward mode and, if an operand is bound to a Context, recorded
//   - Context: owns the growing instruction list and value buffer of one
//     recording session; safe for concurrent recording
//   - Tape: read-only replayable procedure; RecordedTape owns its buffer and
//     adds Replay
//   - Function / Chain: vector functions authored over scalars
//
// Usage:
//
//	ctx := autodiff.NewContext()
//	x := ctx.NewIndependents([]float64{2, 3})
//	ctx.MarkDependent(x[0].Mul(x[1]).Sin())
//	tape := ctx.Tape()
//
//	tape.Replay([]float64{1, 4})
//	dy := tape.Forward([]float64{1, 0}) // ∂y/∂x0
//	g := tape.Reverse([]float64{1})     // ∇y
package autodiff
