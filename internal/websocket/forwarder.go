// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package websocket

import (
	"context"
	"errors"
	"time"

	"github.com/cinerieus/tierdrop/internal/logging"
	statesync "github.com/cinerieus/tierdrop/internal/sync"
)

// Forwarder bridges the synchronization engine's notification bus onto
// the hub: one bus event becomes one change message carrying the
// current snapshot summary.
type Forwarder struct {
	hub   *Hub
	bus   *statesync.Bus
	store *statesync.Store
}

// NewForwarder wires a bus and store to a hub.
func NewForwarder(hub *Hub, bus *statesync.Bus, store *statesync.Store) *Forwarder {
	return &Forwarder{hub: hub, bus: bus, store: store}
}

// Serve implements suture.Service: it subscribes to the bus and
// forwards events until the context is canceled. A lagged subscription
// turns into a refresh broadcast, since the dropped hints are gone.
func (f *Forwarder) Serve(ctx context.Context) error {
	sub := f.bus.Subscribe()
	defer sub.Close()

	logging.Info().Msg("websocket forwarder started")

	for {
		event, err := sub.Next(ctx)
		switch {
		case err == nil:
			f.forward(event)
		case errors.Is(err, statesync.ErrLagged):
			logging.Warn().Msg("forwarder lagged behind engine, broadcasting refresh")
			f.hub.BroadcastRefresh()
		case errors.Is(err, statesync.ErrClosed):
			logging.Info().Msg("notification bus closed, forwarder stopping")
			return nil
		default:
			// Context cancellation.
			logging.Info().Msg("websocket forwarder stopped")
			return err
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (f *Forwarder) String() string {
	return "event-forwarder"
}

// forward translates one engine event into a hub broadcast.
func (f *Forwarder) forward(event statesync.Event) {
	var messageType string
	switch event {
	case statesync.EventStatusChanged:
		messageType = MessageTypeStatusChanged
	case statesync.EventNetworksChanged:
		messageType = MessageTypeNetworksChanged
	case statesync.EventMembersChanged:
		messageType = MessageTypeMembersChanged
	default:
		logging.Warn().Str("event", string(event)).Msg("unknown engine event, ignoring")
		return
	}

	f.hub.BroadcastChange(messageType, f.summarize())
}

// summarize condenses the current snapshot into the change payload.
func (f *Forwarder) summarize() SnapshotSummary {
	snap := f.store.Current()
	summary := SnapshotSummary{
		Timestamp:  snap.LastUpdated.UTC().Format(time.RFC3339),
		Networks:   len(snap.Networks),
		Members:    snap.MemberCount(),
		Authorized: snap.AuthorizedCount(),
		Error:      snap.Error,
	}
	if snap.Status != nil {
		summary.Online = snap.Status.Online
	}
	return summary
}
