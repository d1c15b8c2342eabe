// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

// Package websocket pushes controller state-change notifications to
// browser clients.
//
// The hub fans one message out to every connected client. Messages are
// hints, not data: a change message names the axis that changed
// (status, networks, members) plus a small snapshot summary, and the
// client re-fetches what it renders over the REST API. This keeps the
// socket protocol trivial and makes dropped messages harmless.
//
// The Forwarder bridges the synchronization engine's notification bus
// onto the hub. When the bus reports that the forwarder lagged it
// broadcasts a refresh message, telling clients to re-fetch everything
// rather than trust incremental hints.
//
// Delivery is lossy end to end. A client whose send queue is full is
// disconnected; it reconnects and re-fetches. Nothing in this package
// retains state a reconnect cannot rebuild.
package websocket
