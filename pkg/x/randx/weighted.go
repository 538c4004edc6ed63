// Package randx holds the weighted random helpers used by the engagement loop.
package randx

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Intn is the subset of *rand.Rand the helpers need.
type Intn interface {
	IntN(n int) int
}

var (
	ErrEmptyChoice   = errors.New("randx: no actions to choose from")
	ErrZeroWeights   = errors.New("randx: weights sum to zero")
	ErrWeightsLength = errors.New("randx: actions and weights differ in length")
)

// ChooseWeighted picks one of actions with probability weights[i]/sum(weights).
func ChooseWeighted[T any](rng Intn, actions []T, weights []int) (T, error) {
	var zero T
	if len(actions) == 0 {
		return zero, ErrEmptyChoice
	}
	if len(actions) != len(weights) {
		return zero, ErrWeightsLength
	}

	total := 0
	for i, w := range weights {
		if w < 0 {
			return zero, fmt.Errorf("randx: negative weight %d at index %d", w, i)
		}
		total += w
	}
	if total == 0 {
		return zero, ErrZeroWeights
	}

	n := rng.IntN(total)
	for i, w := range weights {
		if n < w {
			return actions[i], nil
		}
		n -= w
	}
	return actions[len(actions)-1], nil
}

// UniformDuration draws a whole number of seconds in [min, max].
func UniformDuration(rng Intn, min, max time.Duration) time.Duration {
	lo, hi := int(min/time.Second), int(max/time.Second)
	if hi <= lo {
		return time.Duration(lo) * time.Second
	}
	return time.Duration(lo+rng.IntN(hi-lo+1)) * time.Second
}

// New returns a time-seeded source.
func New() *rand.Rand {
	now := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(now, now>>1|1))
}
