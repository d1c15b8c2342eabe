// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

// Package sync implements the state synchronization engine: the poller
// that pulls the full entity graph from the ZeroTier control API, the
// snapshot store holding the last fully assembled view, the lossy
// change-notification bus, and the coalescing on-demand trigger.
//
// The remote API is the sole source of truth and offers no push
// mechanism, so the engine is best-effort, eventually-consistent cache
// maintenance: every fact is re-pulled each cycle and failures simply
// heal on the next one.
package sync

import (
	"sync"
	"time"

	"github.com/cinerieus/tierdrop/internal/zt"
)

// Snapshot is one fully assembled view of remote controller state.
// Snapshots are built fresh every cycle and never mutated after being
// stored; readers may retain one indefinitely.
type Snapshot struct {
	// Status is the node status, nil when the status call failed this
	// cycle (Error then says why).
	Status *zt.NodeStatus

	// Networks holds the controller's networks in remote enumeration
	// order. The order is whatever the id listing returned and is not
	// guaranteed stable across cycles.
	Networks []zt.ControllerNetwork

	// Members maps network id to that network's member list, sorted by
	// member id so structural comparison between cycles is meaningful.
	// Every network that was fetched this cycle has an entry; the list
	// is nil when the member listing failed or the network is empty.
	Members map[string][]zt.ControllerMember

	// LastUpdated is when this snapshot was assembled.
	LastUpdated time.Time

	// Error is the status call's failure, if any. An empty string with
	// a nil Status means the engine has not completed a cycle yet.
	Error string
}

// MemberCount returns the total number of members across all networks.
func (s *Snapshot) MemberCount() int {
	n := 0
	for _, members := range s.Members {
		n += len(members)
	}
	return n
}

// AuthorizedCount returns the number of authorized members across all
// networks.
func (s *Snapshot) AuthorizedCount() int {
	n := 0
	for _, members := range s.Members {
		for i := range members {
			if members[i].Authorized {
				n++
			}
		}
	}
	return n
}

// Network returns the network with the given id from the network list,
// or nil when it is not listed.
func (s *Snapshot) Network(nwid string) *zt.ControllerNetwork {
	for i := range s.Networks {
		if s.Networks[i].DisplayID() == nwid {
			return &s.Networks[i]
		}
	}
	return nil
}

// Store is the shared holder of the current snapshot. Many readers may
// load concurrently; replacement is a single pointer swap, so a reader
// always observes either the fully old or fully new snapshot, never a
// mixture.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
}

// NewStore creates a store holding an empty snapshot.
func NewStore() *Store {
	return &Store{current: &Snapshot{Members: map[string][]zt.ControllerMember{}}}
}

// Current returns the current snapshot. The returned value must be
// treated as read-only.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace swaps in a new snapshot wholesale. No field-level merging
// happens; the previous snapshot is simply dropped.
func (s *Store) Replace(snapshot *Snapshot) {
	s.mu.Lock()
	s.current = snapshot
	s.mu.Unlock()
}
