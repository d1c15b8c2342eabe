// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockService(t *testing.T) {
	t.Run("blocks until context canceled", func(t *testing.T) {
		svc := NewMockService("test")

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		// Give Serve a chance to record the start.
		deadline := time.Now().Add(time.Second)
		for svc.StartCount() == 0 {
			if time.Now().After(deadline) {
				t.Fatal("service never started")
			}
			time.Sleep(time.Millisecond)
		}

		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Error("Serve did not return after cancel")
		}

		if svc.StopCount() != 1 {
			t.Errorf("expected stop count 1, got %d", svc.StopCount())
		}
	})

	t.Run("returns injected error immediately", func(t *testing.T) {
		svc := NewMockService("failing")
		wantErr := errors.New("injected failure")
		svc.SetError(wantErr)

		err := svc.Serve(context.Background())
		if !errors.Is(err, wantErr) {
			t.Errorf("expected injected error, got %v", err)
		}
		if svc.StartCount() != 1 {
			t.Errorf("expected start count 1, got %d", svc.StartCount())
		}
	})

	t.Run("reports its name", func(t *testing.T) {
		svc := NewMockService("named-service")
		if got := svc.String(); got != "named-service" {
			t.Errorf("expected name %q, got %q", "named-service", got)
		}
	})
}
