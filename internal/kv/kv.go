// Package kv defines the small key/value storage the favorites store persists
// into, with in-memory and Redis backends. The DuckDB backend lives in
// internal/db.
package kv

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// ErrUnavailable indicates storage is disabled or unreachable.
var ErrUnavailable = errors.New("storage unavailable")

// Store is string-keyed string storage.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Memory is a goroutine-safe in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// Get returns the value for key or ErrNotFound.
func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key.
func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// scoped prefixes every key with a scope.
type scoped struct {
	store Store
	scope string
}

// Scoped returns a Store whose keys live under scope, so one backend can
// hold the state of many browser sessions.
func Scoped(store Store, scope string) Store {
	return &scoped{store: store, scope: scope}
}

func (s *scoped) Get(ctx context.Context, key string) (string, error) {
	return s.store.Get(ctx, s.scope+":"+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.scope+":"+key, value)
}
