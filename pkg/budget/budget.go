// Package budget estimates how much memory one decode-and-draw cycle may use.
//
// The layout planner asks an Estimator once before composition to pick a
// scale factor; the composition engine asks again before every decode so that
// a budget that shrinks mid-run aborts the request instead of exhausting the
// process.
//
// Implementations:
//   - Runtime: derives the budget from the Go memory limit and live heap
//   - Static: a fixed number of bytes (CLI --memory override, tests)
//   - Sequence: a scripted series of budgets (tests)
//   - Func: adapts a plain function
package budget

import (
	"context"
	"math"
	"sync"

	"github.com/matzehuels/photoaffix/pkg/errors"
)

// Unlimited is the budget reported when memory is not constrained.
const Unlimited int64 = math.MaxInt64

// Estimator reports the bytes safely available for one decode+draw cycle.
type Estimator interface {
	Budget(ctx context.Context) (int64, error)
}

// Func adapts a function to the Estimator interface.
type Func func(ctx context.Context) (int64, error)

// Budget implements Estimator.
func (f Func) Budget(ctx context.Context) (int64, error) { return f(ctx) }

// Static is a fixed budget.
type Static int64

// Budget implements Estimator.
func (s Static) Budget(context.Context) (int64, error) { return int64(s), nil }

// Sequence returns its values in order, one per call, and then keeps
// returning the last one. Safe for concurrent use.
type Sequence struct {
	mu     sync.Mutex
	values []int64
	calls  int
}

// NewSequence creates a Sequence. An empty sequence is Unlimited.
func NewSequence(values ...int64) *Sequence {
	return &Sequence{values: values}
}

// Budget implements Estimator.
func (s *Sequence) Budget(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == 0 {
		return Unlimited, nil
	}
	i := s.calls
	if i >= len(s.values) {
		i = len(s.values) - 1
	}
	s.calls++
	return s.values[i], nil
}

// Calls returns how many times Budget has been called.
func (s *Sequence) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// CheckViable fails with MEMORY_PRESSURE when budget cannot cover need.
func CheckViable(budget, need int64) error {
	if need > budget {
		return errors.New(errors.ErrCodeMemoryPressure,
			"memory budget dropped to %s, %s needed", FormatBytes(budget), FormatBytes(need))
	}
	return nil
}
