// Package checkpoint walks a forward-generated sequence in reverse under a
// fixed memory budget, using a binomial checkpointing schedule.
//
// With c checkpoints and t repetitions a sequence of length β(c, t) = C(c+t, c)
// can be reversed. Schedule places the checkpoints for a sequence of length r
// so that the number of recomputed forward steps is minimal; ReverseSequence
// drives the forward/reverse callbacks along that schedule.
package checkpoint

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

// ErrBudget is returned when fewer than two checkpoints are available.
// One checkpoint always holds the start of the sequence and one its end.
var ErrBudget = errors.New("checkpoint budget too small")

// MinCheckpoints is the smallest budget ReverseSequence accepts.
const MinCheckpoints = 2

// beta returns C(c+t, c), the longest sequence c checkpoints and t
// repetitions can reverse. Non-positive arguments yield 0.
func beta(c, t int) int {
	if c <= 0 || t <= 0 {
		return 0
	}
	b := new(big.Int).Binomial(int64(c+t), int64(c))
	if !b.IsInt64() || b.Int64() > math.MaxInt {
		return math.MaxInt
	}
	return int(b.Int64())
}

// findT returns the smallest repetition number t with β(c, t) ≥ r.
func findT(c, r int) int {
	if c == 1 {
		if r > 0 {
			return r - 1
		}
		return 0
	}

	cf, rf := float64(c), float64(r)
	t := int(math.Ceil(math.Exp(-1)*cf*math.Pow(math.Sqrt(2*math.Pi*cf)*rf, 1/cf) - cf))
	for r > beta(c, t) {
		t++
	}
	for t > 0 && beta(c, t-1) >= r {
		t--
	}
	return t
}

// nextCheckpoint returns the optimal offset of the first checkpoint for a
// sequence of length r with c checkpoints.
func nextCheckpoint(c, r int) int {
	if c <= 0 || r == 0 {
		return 0
	}
	t := findT(c, r)
	switch {
	case r <= beta(c, t-1)+beta(c-2, t-1):
		return beta(c, t-2)
	case r >= beta(c, t)-beta(c-3, t):
		return beta(c, t-1)
	default:
		return r - beta(c-1, t-1) - beta(c-2, t-1)
	}
}

// Schedule returns the checkpoint positions for a sequence of r states and c
// available checkpoints. Positions are strictly increasing, lie in [1, r-1]
// and there are at most c of them.
func Schedule(c, r int) []int {
	var out []int
	offset, cLeft, rLeft := 0, c, r
	for rLeft > 1 && cLeft > 0 {
		var partial int
		switch {
		case rLeft-1 <= cLeft:
			partial = 1
		case cLeft == 1:
			partial = rLeft - 1
		case rLeft > 2:
			partial = min(max(nextCheckpoint(cLeft, rLeft), 1), rLeft-1)
		default:
			partial = 1
		}
		cp := offset + partial
		offset = cp
		rLeft = r - cp
		cLeft--
		out = append(out, cp)
	}
	return out
}

type entry[T any] struct {
	idx   int
	state T
}

// ReverseSequence generates the states x, forward(x), forward(forward(x)), ...
// up to nsteps applications and folds them from last to first: the last state
// is passed to seed, every earlier state to reverse together with the
// accumulated result. At most ncheckpoints states are held at any time.
//
// States are stored by value; T must not share mutable memory between
// successive states. Panics with ErrBudget if ncheckpoints < MinCheckpoints.
func ReverseSequence[T, R any](x T, nsteps, ncheckpoints int, forward func(T) T, reverse func(T, R) R, seed func(T) R) R {
	if ncheckpoints < MinCheckpoints {
		panic(fmt.Errorf("ReverseSequence: %w: got %d, need at least %d", ErrBudget, ncheckpoints, MinCheckpoints))
	}

	stack := make([]entry[T], 1, ncheckpoints)
	stack[0] = entry[T]{idx: 0, state: x}

	var (
		result R
		seeded bool
	)
	for r := nsteps + 1; r > 0; r-- {
		last := stack[len(stack)-1]
		partialR := r - last.idx
		partialC := ncheckpoints - len(stack)

		cur, state := 0, last.state
		for _, cp := range Schedule(partialC, partialR) {
			for ; cur < cp; cur++ {
				state = forward(state)
			}
			stack = append(stack, entry[T]{idx: last.idx + cur, state: state})
		}

		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.idx != r-1 {
			panic(fmt.Sprintf("ReverseSequence: checkpoint at %d, expected %d", top.idx, r-1))
		}
		if seeded {
			result = reverse(top.state, result)
		} else {
			result = seed(top.state)
			seeded = true
		}
	}
	return result
}
