// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package api

import (
	"net/http"
	"time"

	statesync "github.com/cinerieus/tierdrop/internal/sync"
	"github.com/cinerieus/tierdrop/internal/websocket"
	"github.com/cinerieus/tierdrop/internal/zt"
)

// Triggerer requests an immediate synchronization cycle. Satisfied by
// the engine's Poller; nil when the engine is not running (no token).
type Triggerer interface {
	TriggerNow()
}

// Handler holds the dependencies shared by all endpoint handlers.
type Handler struct {
	store   *statesync.Store
	bus     *statesync.Bus
	client  zt.ClientInterface
	trigger Triggerer
	wsHub   *websocket.Hub
	version string

	// allowedOrigins feeds the websocket origin check; set by the
	// router from the CORS configuration.
	allowedOrigins []string
}

// NewHandler creates the handler set. client and trigger may be nil
// when no API token is configured; mutation endpoints then answer 503.
func NewHandler(store *statesync.Store, bus *statesync.Bus, client zt.ClientInterface, trigger Triggerer, wsHub *websocket.Hub, version string) *Handler {
	return &Handler{
		store:   store,
		bus:     bus,
		client:  client,
		trigger: trigger,
		wsHub:   wsHub,
		version: version,
	}
}

// triggerSync fires the engine trigger after a successful mutation.
func (h *Handler) triggerSync() {
	if h.trigger != nil {
		h.trigger.TriggerNow()
	}
}

// requireClient answers 503 and returns false when no controller client
// is configured.
func (h *Handler) requireClient(rw *ResponseWriter) bool {
	if h.client == nil {
		rw.ServiceUnavailable("no ZeroTier API token configured")
		return false
	}
	return true
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status      string `json:"status"`
	ZTConnected bool   `json:"zt_connected"`
	Version     string `json:"version"`
}

// Health reports service health: healthy when the last cycle reached
// the node, degraded otherwise. Degraded is 503 so load balancers and
// uptime monitors see it without parsing the body.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	snap := h.store.Current()

	connected := snap.Status != nil && snap.Error == ""
	response := HealthResponse{
		Status:      "healthy",
		ZTConnected: connected,
		Version:     h.version,
	}
	if !connected {
		response.Status = "degraded"
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{
			Success: true,
			Data:    response,
			Meta:    rw.meta(),
		})
		return
	}
	rw.Success(response)
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Status      *zt.NodeStatus `json:"status"`
	LastUpdated time.Time      `json:"last_updated"`
	Error       string         `json:"error,omitempty"`
}

// Status returns the node status from the snapshot.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	snap := h.store.Current()
	rw.Success(StatusResponse{
		Status:      snap.Status,
		LastUpdated: snap.LastUpdated,
		Error:       snap.Error,
	})
}
