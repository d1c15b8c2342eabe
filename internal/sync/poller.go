// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package sync

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/cinerieus/tierdrop/internal/logging"
	"github.com/cinerieus/tierdrop/internal/metrics"
	"github.com/cinerieus/tierdrop/internal/zt"
)

// PollerConfig configures the synchronizer.
type PollerConfig struct {
	// Interval is how often a cycle runs without an explicit trigger.
	Interval time.Duration
}

// DefaultPollerConfig returns production defaults.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{Interval: 5 * time.Second}
}

// Poller owns the polling loop: it pulls the full entity graph from the
// control API, assembles a candidate snapshot, diffs it against the
// store along three independent axes, swaps it in, and publishes one
// notification per axis that changed.
//
// Cycles never overlap. A cycle runs to completion even when a trigger
// arrives mid-flight; the trigger then starts the next cycle. Ticks
// that land while a cycle is still running are dropped, not queued.
type Poller struct {
	client  zt.ClientInterface
	store   *Store
	bus     *Bus
	trigger *Trigger
	config  PollerConfig

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPoller creates a poller over the given client, store and bus.
func NewPoller(client zt.ClientInterface, store *Store, bus *Bus, config PollerConfig) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultPollerConfig().Interval
	}
	return &Poller{
		client:   client,
		store:    store,
		bus:      bus,
		trigger:  NewTrigger(),
		config:   config,
		stopChan: make(chan struct{}),
	}
}

// String implements fmt.Stringer for suture logging.
func (p *Poller) String() string {
	return "poller"
}

// TriggerNow requests an immediate extra cycle, typically after a
// successful mutation. Fire-and-forget; bursts coalesce into one wake.
func (p *Poller) TriggerNow() {
	p.trigger.Fire()
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.mu.Unlock()

	logging.Info().Dur("interval", p.config.Interval).Msg("starting controller state poller")

	p.wg.Add(1)
	go p.pollLoop(ctx)

	return nil
}

// Serve implements suture.Service for supervisor integration.
func (p *Poller) Serve(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	p.Stop()
	return ctx.Err()
}

// Stop gracefully stops the polling loop, waiting for an in-flight
// cycle to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	logging.Info().Msg("controller state poller stopped")
}

// IsRunning returns whether the poller is active.
func (p *Poller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// pollLoop runs cycles until stopped. The ticker and the on-demand
// trigger race; whichever fires first starts the cycle.
func (p *Poller) pollLoop(ctx context.Context) {
	defer p.wg.Done()

	// First cycle immediately so the UI has data at startup.
	p.PollOnce(ctx)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
		case <-p.trigger.C():
			logging.Debug().Msg("immediate poll requested")
		}
		p.PollOnce(ctx)
	}
}

// PollOnce runs one full cycle: pull, diff, swap, notify. It never
// fails; every outcome is some candidate snapshot, possibly empty.
func (p *Poller) PollOnce(ctx context.Context) {
	start := time.Now()
	candidate := p.pullRemote(ctx)

	current := p.store.Current()
	statusChanged := candidate.Error != current.Error ||
		!reflect.DeepEqual(candidate.Status, current.Status)
	networksChanged := !reflect.DeepEqual(candidate.Networks, current.Networks)
	membersChanged := !reflect.DeepEqual(candidate.Members, current.Members)

	// Single exclusive write, held only for the pointer swap.
	p.store.Replace(candidate)

	metrics.PollCycles.Inc()
	metrics.PollCycleDuration.Observe(time.Since(start).Seconds())
	metrics.SnapshotNetworks.Set(float64(len(candidate.Networks)))
	metrics.SnapshotMembers.Set(float64(candidate.MemberCount()))

	if statusChanged {
		p.publish(EventStatusChanged)
	}
	if networksChanged {
		p.publish(EventNetworksChanged)
	}
	if membersChanged {
		p.publish(EventMembersChanged)
	}

	logging.Debug().
		Int("networks", len(candidate.Networks)).
		Int("members", candidate.MemberCount()).
		Bool("status_changed", statusChanged).
		Bool("networks_changed", networksChanged).
		Bool("members_changed", membersChanged).
		Dur("elapsed", time.Since(start)).
		Msg("poll cycle complete")
}

// publish emits one change notification, fire-and-forget.
func (p *Poller) publish(event Event) {
	metrics.PollEventsPublished.WithLabelValues(string(event)).Inc()
	p.bus.Publish(event)
}

// pullRemote assembles a candidate snapshot from the remote API. Every
// failure yields an absent or empty result for that call; nothing
// aborts the cycle.
func (p *Poller) pullRemote(ctx context.Context) *Snapshot {
	// Phase 1: node status and controller network ids, concurrently.
	var (
		status    *zt.NodeStatus
		statusErr error
		ids       []string
		idsErr    error
	)
	var phase1 sync.WaitGroup
	phase1.Add(2)
	go func() {
		defer phase1.Done()
		status, statusErr = p.client.Status(ctx)
	}()
	go func() {
		defer phase1.Done()
		ids, idsErr = p.client.NetworkIDs(ctx)
	}()
	phase1.Wait()

	snapshot := &Snapshot{
		Members:     make(map[string][]zt.ControllerMember),
		LastUpdated: time.Now(),
	}

	if statusErr != nil {
		logging.Warn().Err(statusErr).Msg("failed to poll node status")
		metrics.PollFetchErrors.WithLabelValues("status").Inc()
		snapshot.Error = statusErr.Error()
	} else {
		snapshot.Status = status
	}

	if idsErr != nil {
		// The node is reachable but not running the controller service.
		// Not a cycle-level error.
		logging.Debug().Err(idsErr).Msg("controller not available")
		metrics.PollFetchErrors.WithLabelValues("network_ids").Inc()
		ids = nil
	}

	// Phase 2: one concurrent fetch task per network. Results land in
	// their enumeration-order slot so the network list order matches
	// the id listing.
	results := make([]*networkResult, len(ids))
	var fanout sync.WaitGroup
	for i, nwid := range ids {
		fanout.Add(1)
		go func(i int, nwid string) {
			defer fanout.Done()
			defer func() {
				// A panicked task contributes nothing this cycle.
				if r := recover(); r != nil {
					logging.Error().Interface("panic", r).Str("nwid", nwid).Msg("network fetch task panicked")
				}
			}()
			results[i] = p.fetchNetwork(ctx, nwid)
		}(i, nwid)
	}
	fanout.Wait()

	for _, result := range results {
		if result == nil {
			continue
		}
		if result.network != nil {
			snapshot.Networks = append(snapshot.Networks, *result.network)
		}
		snapshot.Members[result.nwid] = result.members
	}

	return snapshot
}

// networkResult is one fan-out task's contribution to the candidate.
type networkResult struct {
	nwid string

	// network is nil when the body fetch failed; the member list is
	// still returned.
	network *zt.ControllerNetwork

	members []zt.ControllerMember
}

// fetchNetwork fetches one network's body and member list. The body and
// the member-id listing race; each member body is then fetched
// concurrently. Individual member failures omit that member.
func (p *Poller) fetchNetwork(ctx context.Context, nwid string) *networkResult {
	var (
		network      *zt.ControllerNetwork
		networkErr   error
		memberIDs    map[string]int64
		memberIDsErr error
	)
	var inner sync.WaitGroup
	inner.Add(2)
	go func() {
		defer inner.Done()
		network, networkErr = p.client.Network(ctx, nwid)
	}()
	go func() {
		defer inner.Done()
		memberIDs, memberIDsErr = p.client.MemberIDs(ctx, nwid)
	}()
	inner.Wait()

	if networkErr != nil {
		logging.Warn().Err(networkErr).Str("nwid", nwid).Msg("failed to fetch network body")
		metrics.PollFetchErrors.WithLabelValues("network").Inc()
		network = nil
	}

	var members []zt.ControllerMember
	switch {
	case memberIDsErr != nil:
		logging.Warn().Err(memberIDsErr).Str("nwid", nwid).Msg("failed to list members")
		metrics.PollFetchErrors.WithLabelValues("member_ids").Inc()
	case len(memberIDs) > 0:
		fetched := make([]*zt.ControllerMember, len(memberIDs))
		var memberFanout sync.WaitGroup
		i := 0
		for memberID := range memberIDs {
			memberFanout.Add(1)
			go func(slot int, memberID string) {
				defer memberFanout.Done()
				member, err := p.client.Member(ctx, nwid, memberID)
				if err != nil {
					logging.Debug().Err(err).Str("nwid", nwid).Str("member", memberID).Msg("failed to fetch member")
					metrics.PollFetchErrors.WithLabelValues("member").Inc()
					return
				}
				fetched[slot] = member
			}(i, memberID)
			i++
		}
		memberFanout.Wait()

		for _, member := range fetched {
			if member != nil {
				members = append(members, *member)
			}
		}
		// Sort by id so structural comparison between cycles is not an
		// artifact of completion order.
		sort.Slice(members, func(i, j int) bool {
			return members[i].DisplayID() < members[j].DisplayID()
		})
	}

	return &networkResult{nwid: nwid, network: network, members: members}
}
