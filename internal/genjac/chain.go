package genjac

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/adv/internal/absnormal"
	"github.com/born-ml/adv/internal/autodiff"
	"github.com/born-ml/adv/internal/checkpoint"
)

// chainState is the state between two functions of a chain: the index of the
// next function together with its input point and direction.
type chainState struct {
	idx   int
	x, dx []float64
}

// Chain returns the generalized Jacobian of the whole chain at x in direction
// dx. The chain is traversed back to front by checkpoint.ReverseSequence with
// at most ncheckpoints stored states; ncheckpoints <= 0 selects one per
// function. Zero kinks resolve to the negative branch.
func Chain(c *autodiff.Chain, x, dx []float64, ncheckpoints int, opts ...absnormal.Option) *Jacobian {
	if len(x) != c.InputDim() || len(dx) != len(x) {
		panic(fmt.Errorf("genjac.Chain: %w: got %d inputs and %d directions, chain takes %d",
			autodiff.ErrDimension, len(x), len(dx), c.InputDim()))
	}
	if ncheckpoints <= 0 {
		ncheckpoints = max(c.Len(), checkpoint.MinCheckpoints)
	}

	forwards := 0
	jac := checkpoint.ReverseSequence(
		chainState{idx: 0, x: x, dx: dx},
		c.Len(),
		ncheckpoints,
		func(st chainState) chainState {
			forwards++
			y, dy := autodiff.EvalDual(c.At(st.idx), st.x, st.dx)
			return chainState{idx: st.idx + 1, x: y, dx: dy}
		},
		func(st chainState, next *Jacobian) *Jacobian {
			return Compute(c.At(st.idx), st.x, st.dx, ConstantSigns(false), next, opts...)
		},
		func(st chainState) *Jacobian {
			return Identity(len(st.x))
		},
	)

	logger().Debug("generalized jacobian chain",
		slog.Int("functions", c.Len()),
		slog.Int("checkpoints", ncheckpoints),
		slog.Int("forward_steps", forwards),
		slog.Int("multiplicity", jac.Multiplicity),
	)
	return jac
}
