package autodiff

import (
	"fmt"

	"github.com/born-ml/adv/internal/autodiff/ops"
)

// Tape is a read-only view of a recorded evaluation procedure.
//
// Independents and Dependents select which slots act as inputs and outputs,
// which lets derived views (see package absnormal) reinterpret the same
// instructions and values without copying them. Implementations must not
// mutate Values while a Forward or Reverse sweep is running.
type Tape interface {
	// Independents returns the input slots in argument order.
	Independents() []int
	// Dependents returns the output slots in output order.
	Dependents() []int
	// Instructions returns the recorded instructions in execution order.
	Instructions() []ops.Instruction
	// Values returns the value buffer of the last replay.
	Values() []float64
}

// RecordedTape is a frozen snapshot of a Context that owns its value buffer.
//
// It has value semantics: Clone gives an independent replay buffer, and
// goroutines that replay concurrently must each hold their own clone.
type RecordedTape struct {
	indeps []int
	deps   []int
	instrs []ops.Instruction
	vals   []float64
}

// Independents returns the input slots.
func (t *RecordedTape) Independents() []int { return t.indeps }

// Dependents returns the output slots.
func (t *RecordedTape) Dependents() []int { return t.deps }

// Instructions returns the recorded instructions.
func (t *RecordedTape) Instructions() []ops.Instruction { return t.instrs }

// Values returns the value buffer.
func (t *RecordedTape) Values() []float64 { return t.vals }

// ValuesMut returns the value buffer for in-place modification.
func (t *RecordedTape) ValuesMut() []float64 { return t.vals }

// NumIndependents returns the number of inputs.
func (t *RecordedTape) NumIndependents() int { return len(t.indeps) }

// NumDependents returns the number of outputs.
func (t *RecordedTape) NumDependents() int { return len(t.deps) }

// NumKinks returns the number of Abs instructions.
func (t *RecordedTape) NumKinks() int { return NumKinks(t) }

// Clone returns a deep copy with its own value buffer.
func (t *RecordedTape) Clone() *RecordedTape {
	return &RecordedTape{
		indeps: append([]int(nil), t.indeps...),
		deps:   append([]int(nil), t.deps...),
		instrs: append([]ops.Instruction(nil), t.instrs...),
		vals:   append([]float64(nil), t.vals...),
	}
}

// Replay re-evaluates the recorded procedure at x, overwriting the value buffer.
// len(x) must equal the number of independents.
func (t *RecordedTape) Replay(x []float64) {
	if len(x) != len(t.indeps) {
		panic(fmt.Errorf("Replay: %w: got %d inputs, tape has %d independents", ErrDimension, len(x), len(t.indeps)))
	}
	for i, slot := range t.indeps {
		t.vals[slot] = x[i]
	}
	for _, in := range t.instrs {
		in.ZeroOrder(t.vals)
	}
}

// Forward propagates the input tangent dx. Requires a prior Replay at the point.
func (t *RecordedTape) Forward(dx []float64) []float64 { return Forward(t, dx) }

// Reverse propagates the output adjoint dy. Requires a prior Replay at the point.
func (t *RecordedTape) Reverse(dy []float64) []float64 { return Reverse(t, dy) }

// X returns the stored inputs.
func (t *RecordedTape) X() []float64 { return Gather(t.vals, t.indeps) }

// Y returns the stored outputs.
func (t *RecordedTape) Y() []float64 { return Gather(t.vals, t.deps) }

// NumKinks counts the Abs instructions of t.
func NumKinks(t Tape) int {
	n := 0
	for _, in := range t.Instructions() {
		if in.Op == ops.Abs {
			n++
		}
	}
	return n
}

// MaxSlot returns the largest slot referenced by t.
func MaxSlot(t Tape) int {
	m := 0
	for _, s := range t.Independents() {
		m = max(m, s)
	}
	for _, s := range t.Dependents() {
		m = max(m, s)
	}
	for _, in := range t.Instructions() {
		m = max(m, in.Result)
	}
	return m
}

// Gather returns vals[slots[i]] for every i.
func Gather(vals []float64, slots []int) []float64 {
	out := make([]float64, len(slots))
	for i, s := range slots {
		out[i] = vals[s]
	}
	return out
}

// Forward seeds the independents of t with dx, sweeps the instructions in
// recorded order and returns the tangents of the dependents.
// Only reads t; safe to call concurrently on a shared tape.
func Forward(t Tape, dx []float64) []float64 {
	indeps := t.Independents()
	if len(dx) != len(indeps) {
		panic(fmt.Errorf("Forward: %w: got %d tangents, tape has %d independents", ErrDimension, len(dx), len(indeps)))
	}

	v := t.Values()
	dv := make([]float64, len(v))
	for i, slot := range indeps {
		dv[slot] = dx[i]
	}
	for _, in := range t.Instructions() {
		in.FirstOrder(v, dv)
	}
	return Gather(dv, t.Dependents())
}

// Reverse seeds the dependents of t with dy (accumulating on duplicate slots),
// sweeps the instructions in reverse order and returns the adjoints of the
// independents. Panics with ops.ErrUnsupported if t still contains Abs.
// Only reads t; safe to call concurrently on a shared tape.
func Reverse(t Tape, dy []float64) []float64 {
	deps := t.Dependents()
	if len(dy) != len(deps) {
		panic(fmt.Errorf("Reverse: %w: got %d adjoints, tape has %d dependents", ErrDimension, len(dy), len(deps)))
	}

	instrs := t.Instructions()
	for _, in := range instrs {
		if in.Op == ops.Abs {
			panic(fmt.Errorf("Reverse: %w: Abs at slot %d, decompose the tape into abs-normal form first",
				ops.ErrUnsupported, in.Result))
		}
	}

	v := t.Values()
	vbar := make([]float64, len(v))
	for i, slot := range deps {
		vbar[slot] += dy[i]
	}
	for i := len(instrs) - 1; i >= 0; i-- {
		instrs[i].Reverse(v, vbar)
	}
	return Gather(vbar, t.Independents())
}
