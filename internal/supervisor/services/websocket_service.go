// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package services

import (
	"context"
)

// ContextHub is the subset of the websocket hub the service needs.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// WebSocketHubService runs the websocket hub under the engine-layer
// supervisor. The hub's RunWithContext already follows the
// Serve(ctx) contract, so the wrapper only supplies a stable name.
type WebSocketHubService struct {
	hub ContextHub
}

func NewWebSocketHubService(hub ContextHub) *WebSocketHubService {
	return &WebSocketHubService{hub: hub}
}

// Serve implements suture.Service.
func (s *WebSocketHubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture logging.
func (s *WebSocketHubService) String() string {
	return "websocket-hub"
}
