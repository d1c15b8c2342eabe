// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cinerieus/tierdrop/internal/logging"
	"github.com/cinerieus/tierdrop/internal/metrics"
	statesync "github.com/cinerieus/tierdrop/internal/sync"
)

// Events streams change notifications as Server-Sent Events. Each event
// is a bare axis tag; the client re-fetches over the REST API. A lagged
// subscription resumes silently: the client's next fetch reads the
// current snapshot anyway, so dropped tags cost nothing.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		NewResponseWriter(w, r).InternalError("streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sub := h.bus.Subscribe()
	defer sub.Close()

	metrics.EventSubscribers.Inc()
	defer metrics.EventSubscribers.Dec()
	logging.Debug().Msg("sse client connected")

	// Tell the client the stream is live before the first change.
	fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	ctx := r.Context()
	for {
		event, err := sub.Next(ctx)
		switch {
		case err == nil:
			fmt.Fprintf(w, "event: %s\ndata: {}\n\n", event)
			flusher.Flush()
		case errors.Is(err, statesync.ErrLagged):
			continue
		default:
			// Client went away or the bus closed.
			logging.Debug().Msg("sse client disconnected")
			return
		}
	}
}
