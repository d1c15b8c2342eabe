// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

/*
Package api serves the dashboard's JSON HTTP API.

Reads are answered from the in-memory snapshot and never touch the
ZeroTier node; they stay fast and available even when the node is down.
Mutations write through to the node's control API and then fire the
synchronization trigger, so the snapshot catches up within one cycle
rather than being patched optimistically.

Live updates are offered two ways, both carrying the same payloadless
axis tags (status-changed, networks-changed, members-changed):

  - GET /api/v1/events — Server-Sent Events
  - GET /api/v1/ws — WebSocket, via the websocket package hub

Routing uses chi with RequestID, RealIP, Recoverer, CORS and httprate
rate limiting. Responses share one envelope (ResponseWriter); request
bodies are validated with go-playground/validator before any call
leaves the process.
*/
package api
