package kv

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// storeFactories lists every Store implementation under the shared contract tests.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "state", "ephemeral.json"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"sqlite-file": func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "tabdock.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			got, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			require.Empty(t, got)

			require.NoError(t, s.Set(ctx, map[string]json.RawMessage{
				"a": json.RawMessage(`1`),
				"b": json.RawMessage(`{"x":"y"}`),
			}))
			// Partial set leaves other keys alone.
			require.NoError(t, s.Set(ctx, map[string]json.RawMessage{"a": json.RawMessage(`2`)}))

			got, err = s.Get(ctx, "a", "b", "c")
			require.NoError(t, err)
			require.Len(t, got, 2)
			require.JSONEq(t, `2`, string(got["a"]))
			require.JSONEq(t, `{"x":"y"}`, string(got["b"]))

			all, err := s.Get(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)

			require.NoError(t, s.Remove(ctx, "a", "never-set"))
			got, err = s.Get(ctx, "a", "b")
			require.NoError(t, err)
			require.NotContains(t, got, "a")
			require.Contains(t, got, "b")
		})
	}
}

func TestLoadAndEncode(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	items, err := Encode(map[string]any{"cfg": map[string]int{"maxSessions": 4}})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, items))

	var cfg struct {
		MaxSessions int `json:"maxSessions"`
	}
	ok, err := Load(ctx, s, "cfg", &cfg)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4, cfg.MaxSessions)

	ok, err = Load(ctx, s, "absent", &cfg)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ephemeral.json")

	first, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, map[string]json.RawMessage{"tabGroupMap": json.RawMessage(`{"3":"g1"}`)}))

	second, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := second.Get(ctx, "tabGroupMap")
	require.NoError(t, err)
	require.JSONEq(t, `{"3":"g1"}`, string(got["tabGroupMap"]))
}
