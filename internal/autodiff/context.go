package autodiff

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/born-ml/adv/internal/autodiff/ops"
)

var (
	// ErrDimension is raised when a vector has the wrong length for a tape or function.
	ErrDimension = errors.New("dimension mismatch")

	// ErrContextMismatch is raised when scalars recorded by different contexts are combined.
	ErrContextMismatch = errors.New("scalars belong to different contexts")
)

var nextContextID atomic.Uint64

// Context records a function evaluation.
//
// Scalars bound to a context append instructions to it as they are combined.
// All mutation is serialized behind one mutex so that scalars can be shared
// between goroutines during evaluation.
//
// Usage:
//
//	ctx := autodiff.NewContext()
//	x := ctx.NewIndependents([]float64{1, 2})
//	y := x[0].Mul(x[1]).Sin()
//	ctx.MarkDependent(y)
//	tape := ctx.Tape()
type Context struct {
	id uint64

	mu     sync.Mutex
	indeps []int             // slots of independents, in argument order
	deps   []int             // slots of dependents, in output order (duplicates allowed)
	instrs []ops.Instruction // recorded instructions (in execution order)
	vals   []float64         // value buffer, parallel to slot space
}

// NewContext creates an empty recording context with a process-unique id.
func NewContext() *Context {
	return &Context{
		id:     nextContextID.Add(1),
		instrs: make([]ops.Instruction, 0, 64),
		vals:   make([]float64, 0, 64),
	}
}

// ID returns the process-unique context id.
func (c *Context) ID() uint64 {
	return c.id
}

// NewIndependent allocates an independent variable with the given value.
// The returned scalar has a zero derivative seed.
func (c *Context) NewIndependent(value float64) Scalar {
	c.mu.Lock()
	slot := len(c.vals)
	c.vals = append(c.vals, value)
	c.indeps = append(c.indeps, slot)
	c.mu.Unlock()

	return Scalar{v: value, ctx: c, slot: slot}
}

// NewIndependents allocates one independent per value, in order.
func (c *Context) NewIndependents(values []float64) []Scalar {
	xs := make([]Scalar, len(values))
	for i, v := range values {
		xs[i] = c.NewIndependent(v)
	}
	return xs
}

// SetIndependent binds an unbound scalar to a fresh independent slot.
// Its value is kept, its derivative is left untouched.
func (c *Context) SetIndependent(x *Scalar) {
	bound := c.NewIndependent(x.v)
	x.ctx = bound.ctx
	x.slot = bound.slot
}

// MarkDependent appends x to the outputs of the recording.
// Unbound scalars (literal outputs) are first recorded as constants.
func (c *Context) MarkDependent(x Scalar) {
	slot := c.bind(x)

	c.mu.Lock()
	c.deps = append(c.deps, slot)
	c.mu.Unlock()
}

// MarkDependents marks every scalar in xs as dependent, in order.
func (c *Context) MarkDependents(xs []Scalar) {
	for _, x := range xs {
		c.MarkDependent(x)
	}
}

// NumInstructions returns the number of recorded instructions.
func (c *Context) NumInstructions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.instrs)
}

// Tape extracts an independent snapshot of the recording.
// The context may keep recording afterwards without affecting the tape.
func (c *Context) Tape() *RecordedTape {
	c.mu.Lock()
	defer c.mu.Unlock()

	return &RecordedTape{
		indeps: append([]int(nil), c.indeps...),
		deps:   append([]int(nil), c.deps...),
		instrs: append([]ops.Instruction(nil), c.instrs...),
		vals:   append([]float64(nil), c.vals...),
	}
}

// bind returns the slot of x in this context, recording a constant if x is unbound.
func (c *Context) bind(x Scalar) int {
	if x.ctx == nil {
		return c.record(ops.Const, x.v, ops.NoSlot, ops.NoSlot)
	}
	if x.ctx != c {
		panic(fmt.Errorf("bind: %w (context %d vs %d)", ErrContextMismatch, x.ctx.id, c.id))
	}
	return x.slot
}

// record appends one instruction and its value, returning the result slot.
func (c *Context) record(op ops.OpCode, value float64, arg1, arg2 int) int {
	c.mu.Lock()
	slot := len(c.vals)
	c.vals = append(c.vals, value)
	c.instrs = append(c.instrs, ops.Instruction{Op: op, Result: slot, Arg1: arg1, Arg2: arg2})
	c.mu.Unlock()
	return slot
}
