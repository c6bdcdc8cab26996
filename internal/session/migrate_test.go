package session_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/tabdock/internal/kv"
	"github.com/fakeyudi/tabdock/internal/logging"
	"github.com/fakeyudi/tabdock/internal/session"
)

func fixedNow() time.Time { return time.UnixMilli(1_710_000_000_000) }

func TestMigrateWrapsLegacySession(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, map[string]json.RawMessage{
		session.KeyLegacySavedSession: json.RawMessage(`{"windows":[{"tabs":[
			{"url":"https://a.example","title":"A","pinned":true,"groupId":"g1"},
			{"url":"https://b.example","title":"B"}
		],"groupNames":{"g1":"Work"}}]}`),
		session.KeyLegacyLastSaved: json.RawMessage(`1700000000000`),
	}))

	res, err := session.Migrate(ctx, store, fixedNow, logging.Discard())
	require.NoError(t, err)
	require.True(t, res.Migrated)

	all, err := session.NewRepository(store, session.WithLogger(logging.Discard())).GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "session-1700000000000", all[0].ID)
	require.Equal(t, int64(1_700_000_000_000), all[0].Timestamp)
	require.Equal(t, 2, all[0].TotalTabs)
	require.Equal(t, 1, all[0].WindowCount)
	require.NotNil(t, all[0].GroupNames)
	require.Equal(t, "ungrouped", all[0].Windows[0].Tabs[1].GroupID)

	left, err := store.Get(ctx, session.KeyLegacySavedSession, session.KeyLegacyLastSaved)
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestMigrateAcceptsBareWindowListWithoutTimestamp(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, map[string]json.RawMessage{
		session.KeyLegacySavedSession: json.RawMessage(`[{"tabs":[{"url":"https://a.example"}]},{"tabs":[]}]`),
	}))

	res, err := session.Migrate(ctx, store, fixedNow, logging.Discard())
	require.NoError(t, err)
	require.True(t, res.Migrated)
	require.Equal(t, fixedNow().UnixMilli(), res.Session.Timestamp)
	require.Equal(t, 1, res.Session.WindowCount)
	require.Empty(t, res.Session.GroupNames)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, map[string]json.RawMessage{
		session.KeyLegacySavedSession: json.RawMessage(`{"windows":[{"tabs":[{"url":"https://a.example"}]}]}`),
	}))

	first, err := session.Migrate(ctx, store, fixedNow, logging.Discard())
	require.NoError(t, err)
	require.True(t, first.Migrated)

	second, err := session.Migrate(ctx, store, fixedNow, logging.Discard())
	require.NoError(t, err)
	require.False(t, second.Migrated)
}

func TestMigrateLeavesExistingHistoryAlone(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, map[string]json.RawMessage{
		session.KeySessions:           json.RawMessage(`[]`),
		session.KeyLegacySavedSession: json.RawMessage(`{"windows":[{"tabs":[{"url":"https://a.example"}]}]}`),
	}))

	res, err := session.Migrate(ctx, store, fixedNow, logging.Discard())
	require.NoError(t, err)
	require.False(t, res.Migrated)

	all, err := store.Get(ctx, session.KeySessions)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(all[session.KeySessions]))
}

func TestMigrateNoLegacyData(t *testing.T) {
	res, err := session.Migrate(context.Background(), kv.NewMemory(), fixedNow, logging.Discard())
	require.NoError(t, err)
	require.False(t, res.Migrated)
}

func TestMigrateDiscardsLegacySessionWithoutTabs(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, map[string]json.RawMessage{
		session.KeyLegacySavedSession: json.RawMessage(`{"windows":[{"tabs":[]}]}`),
		session.KeyLegacyLastSaved:    json.RawMessage(`1700000000000`),
	}))

	res, err := session.Migrate(ctx, store, fixedNow, logging.Discard())
	require.NoError(t, err)
	require.False(t, res.Migrated)

	all, err := session.NewRepository(store, session.WithLogger(logging.Discard())).GetAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	left, err := store.Get(ctx, session.KeySessions, session.KeyLegacySavedSession, session.KeyLegacyLastSaved)
	require.NoError(t, err)
	require.Empty(t, left)
}
