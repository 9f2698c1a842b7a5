// Package absnormal decomposes a tape containing Abs instructions into its
// abs-normal form.
//
// Writing z for the Abs arguments (kinks), x for the inputs and y for the
// outputs, a piecewise-smooth tape is locally
//
//	z = a + Z·Δx + L·|z|
//	y = b + J·Δx + Y·|z|
//
// The four structural matrices are never materialized unless asked for: each
// is a View over a copy of the tape in which every Abs is replaced by a Nop,
// so the Abs results behave like additional independents. Right
// multiplication runs one forward sweep per column, left multiplication one
// reverse sweep per row, and columns/rows are evaluated in parallel.
package absnormal

import (
	"github.com/born-ml/adv/internal/autodiff"
	"github.com/born-ml/adv/internal/autodiff/ops"
	"github.com/born-ml/adv/internal/parallel"
)

// Option configures a decomposition.
type Option func(*Tape)

// WithParallel sets the worker pool configuration used by view multiplication.
func WithParallel(cfg parallel.Config) Option {
	return func(t *Tape) {
		t.cfg = cfg
	}
}

// Tape is a kink-blinded view of a recorded tape.
//
// Independents are the original inputs followed by the Abs results, dependents
// are the Abs arguments followed by the original outputs, both in program
// order. Tape only reads the values of the wrapped tape, which must already
// be replayed at the point of interest and must not be replayed while the
// decomposition is in use.
type Tape struct {
	inner  autodiff.Tape
	instrs []ops.Instruction // inner instructions with Abs replaced by Nop
	indeps []int
	deps   []int
	kinks  []int // Abs argument slots, in program order

	n, m, s int
	cfg     parallel.Config
}

// Decompose wraps t and partitions its slots into regular and kink variables.
func Decompose(t autodiff.Tape, opts ...Option) *Tape {
	inner := t.Instructions()
	instrs := make([]ops.Instruction, len(inner))
	var kinks, results []int
	for i, in := range inner {
		if in.Op == ops.Abs {
			kinks = append(kinks, in.Arg1)
			results = append(results, in.Result)
			instrs[i] = ops.NewNop()
			continue
		}
		instrs[i] = in
	}

	x, y := t.Independents(), t.Dependents()
	a := &Tape{
		inner:  t,
		instrs: instrs,
		indeps: append(append(make([]int, 0, len(x)+len(results)), x...), results...),
		deps:   append(append(make([]int, 0, len(kinks)+len(y)), kinks...), y...),
		kinks:  kinks,
		n:      len(x),
		m:      len(y),
		s:      len(kinks),
		cfg:    parallel.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Independents returns the inputs followed by the Abs results.
func (t *Tape) Independents() []int { return t.indeps }

// Dependents returns the Abs arguments followed by the outputs.
func (t *Tape) Dependents() []int { return t.deps }

// Instructions returns the blinded instructions.
func (t *Tape) Instructions() []ops.Instruction { return t.instrs }

// Values returns the value buffer of the wrapped tape.
func (t *Tape) Values() []float64 { return t.inner.Values() }

// N returns the number of inputs.
func (t *Tape) N() int { return t.n }

// M returns the number of outputs.
func (t *Tape) M() int { return t.m }

// S returns the number of kinks.
func (t *Tape) S() int { return t.s }

// Inputs returns the recorded input values.
func (t *Tape) Inputs() []float64 {
	return autodiff.Gather(t.Values(), t.inner.Independents())
}

// Outputs returns the recorded output values.
func (t *Tape) Outputs() []float64 {
	return autodiff.Gather(t.Values(), t.inner.Dependents())
}

// Kinks returns the recorded Abs argument values z.
func (t *Tape) Kinks() []float64 {
	return autodiff.Gather(t.Values(), t.kinks)
}

// Z returns the view mapping input perturbations to kink arguments.
func (t *Tape) Z() *View { return t.view("Z", t.indeps[:t.n], t.deps[:t.s]) }

// L returns the view mapping kink magnitudes to kink arguments.
// It is strictly lower triangular.
func (t *Tape) L() *View { return t.view("L", t.indeps[t.n:], t.deps[:t.s]) }

// J returns the view mapping input perturbations to outputs.
func (t *Tape) J() *View { return t.view("J", t.indeps[:t.n], t.deps[t.s:]) }

// Y returns the view mapping kink magnitudes to outputs.
func (t *Tape) Y() *View { return t.view("Y", t.indeps[t.n:], t.deps[t.s:]) }

// Views returns Z, L, J and Y.
func (t *Tape) Views() (z, l, j, y *View) {
	return t.Z(), t.L(), t.J(), t.Y()
}

func (t *Tape) view(name string, indeps, deps []int) *View {
	return &View{name: name, tape: t, indeps: indeps, deps: deps}
}
