package budget

import (
	"context"
	"math"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
)

const (
	// DefaultCeiling is used when no Go memory limit is set (1 GiB).
	DefaultCeiling int64 = 1 << 30

	// DefaultReserve is the fraction of the ceiling kept free for the rest of
	// the process.
	DefaultReserve = 0.15
)

const heapObjectsMetric = "/memory/classes/heap/objects:bytes"

// Runtime derives the budget from the process memory ceiling and the bytes
// currently held by live heap objects:
//
//	budget = ceiling - inUse - reserve*ceiling
//
// Each reading runs a full collection first, so a source the engine has
// already released is not counted against the next one.
//
// The ceiling is the Go memory limit (GOMEMLIMIT or debug.SetMemoryLimit)
// when one is set, otherwise Ceiling.
type Runtime struct {
	// Ceiling is the fallback ceiling in bytes. Zero means DefaultCeiling.
	Ceiling int64
	// Reserve is the fraction of the ceiling never handed out. Zero means
	// DefaultReserve.
	Reserve float64

	// inUse overrides the heap reading; used by tests.
	inUse func() int64
}

// NewRuntime creates a Runtime estimator.
func NewRuntime(ceiling int64, reserve float64) *Runtime {
	return &Runtime{Ceiling: ceiling, Reserve: reserve}
}

// Budget implements Estimator.
func (r *Runtime) Budget(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ceiling := r.ceiling()
	reserve := int64(float64(ceiling) * r.reserve())
	inUse := r.heapInUse()

	b := ceiling - inUse - reserve
	if b < 0 {
		return 0, nil
	}
	return b, nil
}

func (r *Runtime) ceiling() int64 {
	// A negative input only queries the current limit.
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit != math.MaxInt64 {
		return limit
	}
	if r.Ceiling > 0 {
		return r.Ceiling
	}
	return DefaultCeiling
}

func (r *Runtime) reserve() float64 {
	if r.Reserve > 0 && r.Reserve < 1 {
		return r.Reserve
	}
	return DefaultReserve
}

func (r *Runtime) heapInUse() int64 {
	if r.inUse != nil {
		return r.inUse()
	}
	return HeapInUse()
}

// HeapInUse collects garbage and returns the bytes held by live heap
// objects.
func HeapInUse() int64 {
	runtime.GC()
	sample := []metrics.Sample{{Name: heapObjectsMetric}}
	metrics.Read(sample)
	if sample[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return int64(sample[0].Value.Uint64())
}
