// Package state holds the live tab -> group mapping and the per-window group
// name registries. Both live in the ephemeral tier so they survive engine
// restarts within one browser session and vanish when the session ends.
package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/fakeyudi/tabdock/internal/host"
	"github.com/fakeyudi/tabdock/internal/kv"
)

// Ephemeral tier keys.
const (
	KeyTabGroupMap = "tabGroupMap"
	KeyWindowData  = "windowData"
	KeyInstance    = "hostInstance"
)

// Ungrouped is the group id recorded for tabs without a group.
const Ungrouped = "ungrouped"

// TabGroupMap maps a tab to its group id. No entry means ungrouped.
type TabGroupMap map[host.TabID]string

// WindowRecord is the group name registry of one window.
type WindowRecord struct {
	GroupNames map[string]string `json:"groupNames"`
}

// WindowData maps a window to its group name registry.
type WindowData map[host.WindowID]WindowRecord

// State is the full content of the store.
type State struct {
	TabGroupMap TabGroupMap `json:"tabGroupMap"`
	WindowData  WindowData  `json:"windowData"`
}

// Update is a partial write; nil fields are left untouched.
type Update struct {
	TabGroupMap TabGroupMap
	WindowData  WindowData
}

// Store is the typed accessor over the ephemeral tier. It does not lock
// across Get/Set; callers sequence their read-modify-write cycles.
type Store struct {
	mu sync.Mutex
	kv kv.Store
}

// New returns a Store over the given ephemeral substrate.
func New(backend kv.Store) *Store {
	return &Store{kv: backend}
}

// Get returns the current state, with empty maps for absent keys.
func (s *Store) Get(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		TabGroupMap: make(TabGroupMap),
		WindowData:  make(WindowData),
	}
	if _, err := kv.Load(ctx, s.kv, KeyTabGroupMap, &st.TabGroupMap); err != nil {
		return State{}, fmt.Errorf("load %s: %w", KeyTabGroupMap, err)
	}
	if _, err := kv.Load(ctx, s.kv, KeyWindowData, &st.WindowData); err != nil {
		return State{}, fmt.Errorf("load %s: %w", KeyWindowData, err)
	}
	if st.TabGroupMap == nil {
		st.TabGroupMap = make(TabGroupMap)
	}
	if st.WindowData == nil {
		st.WindowData = make(WindowData)
	}
	for id, rec := range st.WindowData {
		if rec.GroupNames == nil {
			rec.GroupNames = make(map[string]string)
			st.WindowData[id] = rec
		}
	}
	return st, nil
}

// Set persists only the keys present in u.
func (s *Store) Set(ctx context.Context, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := make(map[string]any, 2)
	if u.TabGroupMap != nil {
		values[KeyTabGroupMap] = u.TabGroupMap
	}
	if u.WindowData != nil {
		values[KeyWindowData] = u.WindowData
	}
	if len(values) == 0 {
		return nil
	}
	items, err := kv.Encode(values)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, items); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// Bind ties the stored state to a host instance. State recorded under a
// different instance is dropped, and an empty instance never matches. It
// reports whether earlier state was dropped.
func (s *Store) Bind(ctx context.Context, instance string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored string
	found, err := kv.Load(ctx, s.kv, KeyInstance, &stored)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", KeyInstance, err)
	}
	if instance != "" && found && stored == instance {
		return false, nil
	}

	items, err := kv.Encode(map[string]any{
		KeyTabGroupMap: TabGroupMap{},
		KeyWindowData:  WindowData{},
		KeyInstance:    instance,
	})
	if err != nil {
		return false, err
	}
	if err := s.kv.Set(ctx, items); err != nil {
		return false, fmt.Errorf("reset state: %w", err)
	}
	return found, nil
}

// GroupOf returns the tab's group id or Ungrouped.
func (m TabGroupMap) GroupOf(id host.TabID) string {
	if g, ok := m[id]; ok && g != "" {
		return g
	}
	return Ungrouped
}

// Names returns the window's registry, creating the record when missing.
func (d WindowData) Names(id host.WindowID) map[string]string {
	rec, ok := d[id]
	if !ok || rec.GroupNames == nil {
		rec = WindowRecord{GroupNames: make(map[string]string)}
		d[id] = rec
	}
	return rec.GroupNames
}
