// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package sync

// Trigger is a single-slot wake signal for on-demand poll cycles.
// Firing an already-pending trigger is a no-op, so a burst of writes
// causes at most one extra cycle rather than one per write.
type Trigger struct {
	ch chan struct{}
}

// NewTrigger creates an unfired trigger.
func NewTrigger() *Trigger {
	return &Trigger{ch: make(chan struct{}, 1)}
}

// Fire requests an immediate poll cycle. Never blocks.
func (t *Trigger) Fire() {
	select {
	case t.ch <- struct{}{}:
	default:
		// Already pending; the wakes coalesce.
	}
}

// C returns the channel a waiter selects on. Receiving consumes the
// pending wake and clears the slot.
func (t *Trigger) C() <-chan struct{} {
	return t.ch
}
