// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
)

// MockService is a test helper implementing suture.Service with
// controllable behavior.
type MockService struct {
	name       string
	startCount atomic.Int32
	stopCount  atomic.Int32
	err        error
	mu         sync.Mutex
}

// NewMockService creates a mock service for tests.
func NewMockService(name string) *MockService {
	return &MockService{name: name}
}

// Serve implements suture.Service. It blocks until the context is
// canceled, or returns the configured error immediately.
func (m *MockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)
	defer m.stopCount.Add(1)

	m.mu.Lock()
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return err
	}

	<-ctx.Done()
	return ctx.Err()
}

// SetError makes subsequent Serve calls fail with err.
func (m *MockService) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// StartCount returns how many times Serve was entered.
func (m *MockService) StartCount() int32 {
	return m.startCount.Load()
}

// StopCount returns how many times Serve returned.
func (m *MockService) StopCount() int32 {
	return m.stopCount.Load()
}

// String implements fmt.Stringer for suture logging.
func (m *MockService) String() string {
	return m.name
}
