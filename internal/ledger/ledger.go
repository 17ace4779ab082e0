package ledger

import "sync"

// Ledger accumulates listened-seconds per album. RecordPlay and the read
// side may run on different goroutines, so every operation takes the mutex;
// Snapshot hands out a copy, never the live map.
type Ledger struct {
	seconds map[int]int
	mutex   sync.RWMutex
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{
		seconds: make(map[int]int),
	}
}

// RecordPlay adds seconds to the accumulated total for the album, creating
// the entry at 0 if absent. Negative durations are ignored so totals stay
// monotonically non-decreasing between resets.
func (l *Ledger) RecordPlay(albumID, seconds int) {
	if seconds < 0 {
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.seconds[albumID] += seconds
}

// Snapshot returns a copy of the accumulated totals. Every RecordPlay that
// returned before Snapshot was called is fully reflected; none is ever
// visible partially.
func (l *Ledger) Snapshot() map[int]int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	snapshot := make(map[int]int, len(l.seconds))
	for id, secs := range l.seconds {
		snapshot[id] = secs
	}
	return snapshot
}

// TotalSeconds returns the sum across all albums
func (l *Ledger) TotalSeconds() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	total := 0
	for _, secs := range l.seconds {
		total += secs
	}
	return total
}

// Replace swaps in previously persisted totals, discarding current state.
// Used once at startup to restore the ledger from the local store.
func (l *Ledger) Replace(seconds map[int]int) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.seconds = make(map[int]int, len(seconds))
	for id, secs := range seconds {
		if secs > 0 {
			l.seconds[id] = secs
		}
	}
}

// Reset clears all accumulated totals. In-flight RecordPlay calls are
// either fully applied before the clear or not at all; no partial state
// survives once Reset returns.
func (l *Ledger) Reset() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.seconds = make(map[int]int)
}
