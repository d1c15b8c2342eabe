// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package api

import (
	"net/http"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/cinerieus/tierdrop/internal/logging"
	"github.com/cinerieus/tierdrop/internal/websocket"
)

// upgrader configures the WebSocket handshake. The dashboard is served
// same-origin; cross-origin upgrades go through the CORS-configured
// origin list.
func (h *Handler) upgrader() gorilla.Upgrader {
	return gorilla.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates the Origin header against the
// configured CORS origins. Requests without an Origin header (curl,
// scripts) are allowed; browsers always send one.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	host := "http://" + r.Host
	hostTLS := "https://" + r.Host
	if origin == host || origin == hostTLS {
		return true
	}

	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the connection and attaches it to the hub, which
// then pushes the same axis tags the SSE stream carries.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		NewResponseWriter(w, r).ServiceUnavailable("websocket hub not running")
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}
