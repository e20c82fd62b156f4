package org

import "log"

// MaxActivationsPerWindow is the number of activations allowed within T_FAW.
const MaxActivationsPerWindow = 4

// An ActivationWindow remembers the activations of a rank over the last T_FAW
// cycles. It is a ring with one slot per cycle of the window; each slot
// stores the cycle it was written in so stale slots never count.
type ActivationWindow struct {
	stamps []int64
}

// NewActivationWindow creates a window covering the given number of cycles.
func NewActivationWindow(size int64) *ActivationWindow {
	if size < 1 {
		size = 1
	}

	w := &ActivationWindow{stamps: make([]int64, size)}
	for i := range w.stamps {
		w.stamps[i] = -1
	}

	return w
}

// Size returns the number of cycles the window covers.
func (w *ActivationWindow) Size() int64 {
	return int64(len(w.stamps))
}

func (w *ActivationWindow) slot(cycle int64) int {
	return int(cycle % int64(len(w.stamps)))
}

// Record marks an activation at the given cycle.
func (w *ActivationWindow) Record(cycle int64) {
	s := w.slot(cycle)
	if w.stamps[s] == cycle {
		log.Panicf("two activations recorded in cycle %d", cycle)
	}

	w.stamps[s] = cycle
}

// Count returns the number of activations in the cycles [now-size, now-1].
func (w *ActivationWindow) Count(now int64) int {
	n := 0

	for i := int64(1); i <= w.Size(); i++ {
		c := now - i
		if c < 0 {
			break
		}

		if w.stamps[w.slot(c)] == c {
			n++
		}
	}

	return n
}

// Allows tells whether one more activation fits in the window at now.
func (w *ActivationWindow) Allows(now int64) bool {
	return w.Count(now) < MaxActivationsPerWindow
}

// Flush clears the slots that have left the window.
func (w *ActivationWindow) Flush(now int64) {
	for i, c := range w.stamps {
		if c >= 0 && c < now-w.Size() {
			w.stamps[i] = -1
		}
	}
}
