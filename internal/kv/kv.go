// Package kv implements the key/value tiers the engine persists through.
// The durable tier survives restarts; the ephemeral tier lives only as
// long as the host session.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Store is a key/value substrate holding raw JSON values.
type Store interface {
	// Get returns the stored values for keys. Missing keys are absent from
	// the result; a nil or empty keys list returns everything.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	// Set merges items into the store. Keys not in items are untouched.
	Set(ctx context.Context, items map[string]json.RawMessage) error
	// Remove deletes keys. Removing a missing key is not an error.
	Remove(ctx context.Context, keys ...string) error
}

// Load decodes key into v. It reports whether the key was present.
func Load(ctx context.Context, s Store, key string, v any) (bool, error) {
	items, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	raw, ok := items[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Encode marshals each value and returns a partial record for Set.
func Encode(values map[string]any) (map[string]json.RawMessage, error) {
	items := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		items[k] = data
	}
	return items, nil
}

// Memory is an in-process Store, used by tests.
type Memory struct {
	mu    sync.RWMutex
	items map[string]json.RawMessage
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]json.RawMessage)}
}

func (m *Memory) Get(_ context.Context, keys ...string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return pick(m.items, keys), nil
}

func (m *Memory) Set(_ context.Context, items map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range items {
		m.items[k] = append(json.RawMessage(nil), v...)
	}
	return nil
}

func (m *Memory) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

// pick copies the requested keys out of items.
func pick(items map[string]json.RawMessage, keys []string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	if len(keys) == 0 {
		for k, v := range items {
			out[k] = append(json.RawMessage(nil), v...)
		}
		return out
	}
	for _, k := range keys {
		if v, ok := items[k]; ok {
			out[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}
