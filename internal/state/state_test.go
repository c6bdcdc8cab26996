package state_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/tabdock/internal/host"
	"github.com/fakeyudi/tabdock/internal/kv"
	"github.com/fakeyudi/tabdock/internal/state"
)

func TestGetDefaultsToEmptyMaps(t *testing.T) {
	s := state.New(kv.NewMemory())

	st, err := s.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st.TabGroupMap)
	require.NotNil(t, st.WindowData)
	require.Empty(t, st.TabGroupMap)
	require.Empty(t, st.WindowData)
}

func TestSetIsPartial(t *testing.T) {
	ctx := context.Background()
	s := state.New(kv.NewMemory())

	require.NoError(t, s.Set(ctx, state.Update{
		TabGroupMap: state.TabGroupMap{1: "group-1"},
		WindowData: state.WindowData{
			10: {GroupNames: map[string]string{"group-1": "Work"}},
		},
	}))

	// Writing only the tab map must not wipe window data.
	require.NoError(t, s.Set(ctx, state.Update{TabGroupMap: state.TabGroupMap{2: "group-1"}}))

	st, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, state.TabGroupMap{2: "group-1"}, st.TabGroupMap)
	require.Equal(t, "Work", st.WindowData[10].GroupNames["group-1"])
}

func TestStateSurvivesNewStoreOverSameBackend(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()

	require.NoError(t, state.New(backend).Set(ctx, state.Update{TabGroupMap: state.TabGroupMap{5: "g"}}))

	st, err := state.New(backend).Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "g", st.TabGroupMap.GroupOf(5))
	require.Equal(t, state.Ungrouped, st.TabGroupMap.GroupOf(6))
}

func TestNamesCreatesRecord(t *testing.T) {
	d := state.WindowData{}
	d.Names(host.WindowID(3))["g"] = "Reading"
	require.Equal(t, "Reading", d[3].GroupNames["g"])
}

func TestBindKeepsStateForSameInstance(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()

	dropped, err := state.New(backend).Bind(ctx, "chrome/100")
	require.NoError(t, err)
	require.False(t, dropped)
	require.NoError(t, state.New(backend).Set(ctx, state.Update{TabGroupMap: state.TabGroupMap{5: "g"}}))

	dropped, err = state.New(backend).Bind(ctx, "chrome/100")
	require.NoError(t, err)
	require.False(t, dropped)

	st, err := state.New(backend).Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "g", st.TabGroupMap.GroupOf(5))
}

func TestBindDropsStateOfOtherInstance(t *testing.T) {
	for _, next := range []string{"chrome/200", ""} {
		ctx := context.Background()
		backend := kv.NewMemory()
		s := state.New(backend)

		_, err := s.Bind(ctx, "chrome/100")
		require.NoError(t, err)
		require.NoError(t, s.Set(ctx, state.Update{
			TabGroupMap: state.TabGroupMap{5: "g"},
			WindowData:  state.WindowData{1: {GroupNames: map[string]string{"g": "Work"}}},
		}))

		dropped, err := s.Bind(ctx, next)
		require.NoError(t, err)
		require.True(t, dropped, next)

		st, err := s.Get(ctx)
		require.NoError(t, err)
		require.Empty(t, st.TabGroupMap, next)
		require.Empty(t, st.WindowData, next)
	}
}
