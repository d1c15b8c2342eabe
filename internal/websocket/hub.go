// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cinerieus/tierdrop/internal/logging"
)

// Message types pushed to clients. Change messages carry a SnapshotSummary;
// refresh tells clients to drop cached state and re-fetch everything.
const (
	MessageTypeStatusChanged   = "status-changed"
	MessageTypeNetworksChanged = "networks-changed"
	MessageTypeMembersChanged  = "members-changed"
	MessageTypeRefresh         = "refresh"
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
)

// Message is one WebSocket frame in either direction.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// SnapshotSummary is the small payload attached to change messages so
// clients can update counters without a round trip. Anything richer is
// fetched over the REST API.
type SnapshotSummary struct {
	Timestamp  string `json:"timestamp"`
	Online     bool   `json:"online"`
	Networks   int    `json:"networks"`
	Members    int    `json:"members"`
	Authorized int    `json:"authorized"`
	Error      string `json:"error,omitempty"`
}

// Hub maintains the set of active clients and fans messages out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub loop until the context is canceled, then
// closes every client and returns ctx.Err(). Designed for suture
// supervision: a restart leaves no orphaned connections behind.
//
// Channel selection is prioritized: shutdown first, then client
// lifecycle, then broadcasts, so client state is settled before a
// message fans out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

// broadcastToClients fans one message out in client-id order. A client
// whose queue is full is dropped; it reconnects and re-fetches.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		logging.Warn().Uint64("client_id", client.id).Msg("dropping slow websocket client")
	}
}

// shutdown closes all clients and logs why. Context cancellation is the
// normal shutdown path, so it is not logged as an error.
func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", reason).
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}

// BroadcastChange pushes one change message with its snapshot summary.
// Never blocks; if the hub's queue is full the message is dropped and
// clients catch up on the next change or refresh.
func (h *Hub) BroadcastChange(messageType string, summary SnapshotSummary) {
	if summary.Timestamp == "" {
		summary.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	message := Message{Type: messageType, Data: summary}

	select {
	case h.broadcast <- message:
		logging.Debug().
			Int("clients", h.GetClientCount()).
			Str("message_type", messageType).
			Msg("broadcast change")
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping change message")
	}
}

// BroadcastRefresh tells every client to drop cached state and
// re-fetch, used after the forwarder lagged behind the engine.
func (h *Hub) BroadcastRefresh() {
	message := Message{Type: MessageTypeRefresh}

	select {
	case h.broadcast <- message:
		logging.Info().Int("clients", h.GetClientCount()).Msg("broadcast refresh")
	default:
		logging.Warn().Msg("broadcast channel full, dropping refresh message")
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
