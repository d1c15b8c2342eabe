// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

// Package services provides suture.Service adapters for components
// whose native lifecycle does not match the Serve(ctx) contract.
//
// HTTPServerService wraps net/http's ListenAndServe/Shutdown pair so
// the HTTP server can live in the api-layer supervisor, and
// WebSocketHubService runs the websocket hub's context-driven loop in
// the engine-layer. Components that already implement Serve(ctx)
// directly, like the poller and the event forwarder, are added to the
// tree without a wrapper.
package services
