package budget

import (
	"fmt"
	"sync"

	"github.com/matzehuels/photoaffix/pkg/errors"
)

// Ledger accounts for the bytes a composition holds: the canvas plus at most
// one decoded source at a time. It records the peak so tests and stats can
// check that memory stays bounded. A zero ceiling disables enforcement.
type Ledger struct {
	mu       sync.Mutex
	ceiling  int64
	live     int64
	peak     int64
	acquires int
	releases int
}

// NewLedger creates a Ledger that rejects acquisitions beyond ceiling bytes.
func NewLedger(ceiling int64) *Ledger {
	return &Ledger{ceiling: ceiling}
}

// Acquire records n more live bytes. It fails with MEMORY_PRESSURE, leaving
// the ledger unchanged, if the ceiling would be exceeded.
func (l *Ledger) Acquire(n int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ceiling > 0 && l.live+n > l.ceiling {
		return errors.New(errors.ErrCodeMemoryPressure,
			"allocating %s would exceed the %s ceiling (%s live)",
			FormatBytes(n), FormatBytes(l.ceiling), FormatBytes(l.live))
	}
	l.live += n
	l.acquires++
	if l.live > l.peak {
		l.peak = l.live
	}
	return nil
}

// Release records that n bytes are no longer live.
func (l *Ledger) Release(n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.live -= n
	if l.live < 0 {
		l.live = 0
	}
	l.releases++
}

// Live returns the bytes currently held.
func (l *Ledger) Live() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.live
}

// Peak returns the highest live value observed.
func (l *Ledger) Peak() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peak
}

// Counts returns the number of Acquire and Release calls that succeeded.
func (l *Ledger) Counts() (acquires, releases int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquires, l.releases
}

// FormatBytes renders n with a binary unit, e.g. "1.5 MiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n == Unlimited {
		return "unlimited"
	}
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
