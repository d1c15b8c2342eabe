// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockHub struct {
	runCalled chan struct{}
	err       error
}

func (m *mockHub) RunWithContext(ctx context.Context) error {
	close(m.runCalled)
	if m.err != nil {
		return m.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestWebSocketHubService(t *testing.T) {
	t.Run("delegates to RunWithContext", func(t *testing.T) {
		hub := &mockHub{runCalled: make(chan struct{})}
		svc := NewWebSocketHubService(hub)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		select {
		case <-hub.runCalled:
		case <-time.After(time.Second):
			t.Fatal("RunWithContext was never called")
		}

		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Serve did not return after cancel")
		}
	})

	t.Run("propagates hub error", func(t *testing.T) {
		hub := &mockHub{runCalled: make(chan struct{}), err: errors.New("hub failed")}
		svc := NewWebSocketHubService(hub)

		if err := svc.Serve(context.Background()); err == nil || !errors.Is(err, hub.err) {
			t.Errorf("expected hub error, got %v", err)
		}
	})

	t.Run("reports its name", func(t *testing.T) {
		svc := NewWebSocketHubService(&mockHub{runCalled: make(chan struct{})})
		if got := svc.String(); got != "websocket-hub" {
			t.Errorf("expected name %q, got %q", "websocket-hub", got)
		}
	})
}
