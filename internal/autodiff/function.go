package autodiff

import "fmt"

// Function is a vector function authored over dual scalars.
//
// Eval must work for both bound and unbound inputs: with unbound inputs it is
// plain forward-mode AD, with bound inputs it records a tape.
type Function interface {
	// InputDim returns the length of the argument vector.
	InputDim() int
	// OutputDim returns the length of the result vector.
	OutputDim() int
	// Eval evaluates the function.
	Eval(x []Scalar) []Scalar
}

// funcOf adapts a plain Go function with declared dimensions.
type funcOf struct {
	n, m int
	name string
	f    func(x []Scalar) []Scalar
}

// NewFunction wraps f as a Function taking n inputs and producing m outputs.
// Dimensions are checked on every evaluation.
func NewFunction(name string, n, m int, f func(x []Scalar) []Scalar) Function {
	return &funcOf{n: n, m: m, name: name, f: f}
}

func (f *funcOf) InputDim() int  { return f.n }
func (f *funcOf) OutputDim() int { return f.m }
func (f *funcOf) String() string { return f.name }

func (f *funcOf) Eval(x []Scalar) []Scalar {
	if len(x) != f.n {
		panic(fmt.Errorf("%s: %w: got %d inputs, want %d", f.name, ErrDimension, len(x), f.n))
	}
	y := f.f(x)
	if len(y) != f.m {
		panic(fmt.Errorf("%s: %w: produced %d outputs, declared %d", f.name, ErrDimension, len(y), f.m))
	}
	return y
}

// TapeAt records f at x by feeding fresh independents through Eval.
func TapeAt(f Function, x []float64) *RecordedTape {
	if len(x) != f.InputDim() {
		panic(fmt.Errorf("TapeAt: %w: got %d inputs, function takes %d", ErrDimension, len(x), f.InputDim()))
	}
	ctx := NewContext()
	ctx.MarkDependents(f.Eval(ctx.NewIndependents(x)))
	return ctx.Tape()
}

// EvalFloat evaluates f on plain values.
func EvalFloat(f Function, x []float64) []float64 {
	return Values(f.Eval(Duals(x, nil)))
}

// EvalDual evaluates f and its directional derivative along dx without recording.
func EvalDual(f Function, x, dx []float64) (y, dy []float64) {
	out := f.Eval(Duals(x, dx))
	return Values(out), Derivs(out)
}

// Chain is a sequence of functions where each takes its input from its predecessor.
// Nested chains are flattened on Append.
type Chain struct {
	funcs []Function
}

// NewChain creates a chain from one or more functions.
func NewChain(first Function, rest ...Function) *Chain {
	c := &Chain{}
	c.Append(first)
	for _, f := range rest {
		c.Append(f)
	}
	return c
}

// Append adds f to the end of the chain.
// The input dimension of f must equal the output dimension of the chain.
func (c *Chain) Append(f Function) {
	if len(c.funcs) > 0 && c.OutputDim() != f.InputDim() {
		panic(fmt.Errorf("Chain.Append: %w: chain produces %d values, function takes %d",
			ErrDimension, c.OutputDim(), f.InputDim()))
	}
	if inner, ok := f.(*Chain); ok {
		c.funcs = append(c.funcs, inner.funcs...)
		return
	}
	c.funcs = append(c.funcs, f)
}

// Len returns the number of (flattened) functions in the chain.
func (c *Chain) Len() int { return len(c.funcs) }

// At returns the i-th function of the chain.
func (c *Chain) At(i int) Function { return c.funcs[i] }

// InputDim returns the input dimension of the first function.
func (c *Chain) InputDim() int { return c.funcs[0].InputDim() }

// OutputDim returns the output dimension of the last function.
func (c *Chain) OutputDim() int { return c.funcs[len(c.funcs)-1].OutputDim() }

// Eval evaluates every function in order.
func (c *Chain) Eval(x []Scalar) []Scalar {
	cur := x
	for _, f := range c.funcs {
		cur = f.Eval(cur)
	}
	return cur
}
