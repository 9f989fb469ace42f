package store

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/utafrali/bookstore/pkg/errors"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process KV used when no Redis address is configured and in
// tests. Entries expire ttl after their last write or read; ttl <= 0 keeps
// them forever.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an empty in-memory KV.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func memoryKey(scope, key string) string {
	return scope + "\x00" + key
}

// Get returns a copy of the stored value and slides its expiry.
func (m *Memory) Get(_ context.Context, scope, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memoryKey(scope, key)
	e, ok := m.entries[k]
	if !ok || m.expired(e) {
		delete(m.entries, k)
		return nil, apperrors.NotFound(key, scope)
	}
	e.expiresAt = m.deadline()
	m.entries[k] = e

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a copy of value.
func (m *Memory) Set(_ context.Context, scope, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[memoryKey(scope, key)] = memoryEntry{value: v, expiresAt: m.deadline()}
	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (m *Memory) Delete(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, memoryKey(scope, key))
	return nil
}

func (m *Memory) deadline() time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(m.ttl)
}

func (m *Memory) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)
}
