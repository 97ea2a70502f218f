// Package ratelimit enforces the process-wide call ceiling for the inference
// service. The primary gate is a sliding window over call timestamps: before
// a call is admitted, the trailing window is checked, and callers suspend
// until the oldest admitted call ages out. An optional local token bucket
// smooths short bursts underneath the window.
//
// The window is the single shared mutable resource of the pipeline; every
// outbound call, regardless of originating partition or goroutine, passes
// through one gate.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window is a sliding-window admission gate. It admits at most limit calls in
// any trailing interval of the configured length, suspending callers until
// capacity frees up. All methods are safe for concurrent use.
type Window struct {
	mu     sync.Mutex
	limit  int
	length time.Duration
	// calls holds the admission timestamps still inside the window, oldest
	// first. Capacity is bounded by limit.
	calls []time.Time

	// now is injectable for tests.
	now func() time.Time
}

// NewWindow creates a sliding-window gate admitting limit calls per length.
func NewWindow(limit int, length time.Duration) *Window {
	return &Window{
		limit:  limit,
		length: length,
		calls:  make([]time.Time, 0, limit),
		now:    time.Now,
	}
}

// Wait blocks until the caller may issue a call, then records the admission.
// Admission and recording are atomic with respect to concurrent callers, so
// the window can never over-admit. Wait returns early with the context error
// when ctx is cancelled during the suspension.
func (w *Window) Wait(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := w.now()
		w.evict(now)

		if len(w.calls) < w.limit {
			w.calls = append(w.calls, now)
			w.mu.Unlock()
			return nil
		}

		// At capacity: suspend until the oldest admission leaves the window.
		wait := w.calls[0].Add(w.length).Sub(now)
		w.mu.Unlock()

		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available returns the number of admissions currently possible without
// suspension. Intended for stats and tests.
func (w *Window) Available() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evict(w.now())
	return w.limit - len(w.calls)
}

// InFlight returns the number of admissions inside the trailing window.
func (w *Window) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evict(w.now())
	return len(w.calls)
}

// evict drops admissions that have aged out of the trailing window.
// Callers must hold mu.
func (w *Window) evict(now time.Time) {
	cutoff := now.Add(-w.length)
	i := 0
	for i < len(w.calls) && !w.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.calls = append(w.calls[:0], w.calls[i:]...)
	}
}
