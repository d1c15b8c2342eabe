// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package sync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Event identifies which dimension of the snapshot changed. Events
// carry no payload; consumers re-read the snapshot store.
type Event string

const (
	// EventStatusChanged fires when the node status or the cycle error
	// string changed.
	EventStatusChanged Event = "status-changed"

	// EventNetworksChanged fires when the network list changed.
	EventNetworksChanged Event = "networks-changed"

	// EventMembersChanged fires when the member map changed.
	EventMembersChanged Event = "members-changed"
)

// ErrLagged is returned by Subscription.Next when events were dropped
// because the subscriber consumed too slowly. The dropped events are
// gone; the subscriber recovers full fidelity by re-reading the
// snapshot store.
var ErrLagged = errors.New("subscription lagged, events dropped")

// ErrClosed is returned by Subscription.Next after Close.
var ErrClosed = errors.New("subscription closed")

// defaultSubscriptionBuffer is the per-subscriber queue depth. Change
// notifications are cache-invalidation hints, not an event log, so a
// shallow queue is enough.
const defaultSubscriptionBuffer = 16

// Bus is a lossy broadcast channel for change notifications. Publishing
// never blocks: a subscriber whose queue is full has events dropped and
// is handed ErrLagged on its next read instead.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewBus creates an empty notification bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber with its own delivery queue.
// The caller must Close the subscription when done.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		bus: b,
		ch:  make(chan Event, defaultSubscriptionBuffer),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish delivers the event to every subscriber without waiting on any
// of them.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			sub.lagged.Store(true)
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// unsubscribe removes a subscription from the bus.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Subscription is one subscriber's cursor into the bus.
type Subscription struct {
	bus    *Bus
	ch     chan Event
	lagged atomic.Bool
	closed atomic.Bool
}

// Next blocks until an event is available, the context is done, or the
// subscription is closed. When deliveries were dropped since the last
// read it returns ErrLagged once, with the cursor already advanced past
// the dropped events.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}
	if s.lagged.Swap(false) {
		return "", ErrLagged
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case event, ok := <-s.ch:
		if !ok {
			return "", ErrClosed
		}
		return event, nil
	}
}

// Close detaches the subscription from the bus. Pending events are
// discarded; a blocked Next returns ErrClosed.
func (s *Subscription) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.bus.unsubscribe(s)
	close(s.ch)
}
