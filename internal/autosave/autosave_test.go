package autosave_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/tabdock/internal/autosave"
	"github.com/fakeyudi/tabdock/internal/logging"
	"github.com/fakeyudi/tabdock/internal/session"
)

func TestSchedulerCoalescesBurst(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{}, 10)
	s := autosave.NewScheduler(context.Background(), 30*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		done <- struct{}{}
		return nil
	}, logging.Discard())
	defer s.Stop()

	for i := 0; i < 10; i++ {
		s.Notify()
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("save never fired")
	}
	// Give a superseded timer the chance to misfire.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, s.Pending())
}

func TestSchedulerStopCancelsPending(t *testing.T) {
	var calls atomic.Int32
	s := autosave.NewScheduler(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, logging.Discard())

	s.Notify()
	require.True(t, s.Pending())
	s.Stop()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	// Notify after Stop is ignored.
	s.Notify()
	assert.False(t, s.Pending())
}

func TestSchedulerNeverOverlapsSaves(t *testing.T) {
	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)
	s := autosave.NewScheduler(context.Background(), 5*time.Millisecond, func(ctx context.Context) error {
		defer wg.Done()
		n := active.Add(1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		time.Sleep(50 * time.Millisecond)
		active.Add(-1)
		return nil
	}, logging.Discard())
	defer s.Stop()

	s.Notify()
	time.Sleep(20 * time.Millisecond) // first save is now running
	s.Notify()
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestSchedulerSwallowsErrors(t *testing.T) {
	done := make(chan struct{})
	s := autosave.NewScheduler(context.Background(), 5*time.Millisecond, func(ctx context.Context) error {
		defer close(done)
		return errors.New("disk full")
	}, logging.Discard())
	defer s.Stop()

	s.Notify()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("save never fired")
	}
}

type stubCollector struct {
	snap session.Snapshot
	err  error
}

func (c stubCollector) Collect(ctx context.Context) (session.Snapshot, error) { return c.snap, c.err }

type recordingUpdater struct {
	calls []session.Snapshot
}

func (u *recordingUpdater) UpdateCurrent(ctx context.Context, snap session.Snapshot) (session.Snapshot, error) {
	u.calls = append(u.calls, snap)
	return snap, nil
}

func TestSaverSkipsEmptySnapshot(t *testing.T) {
	u := &recordingUpdater{}
	saver := autosave.NewSaver(stubCollector{snap: session.Snapshot{TotalTabs: 0}}, u, logging.Discard())

	require.NoError(t, saver.Save(context.Background()))
	assert.Empty(t, u.calls)
}

func TestSaverUpdatesCurrent(t *testing.T) {
	u := &recordingUpdater{}
	snap := session.Snapshot{
		TotalTabs: 1,
		Windows:   []session.WindowSnapshot{{Tabs: []session.TabSnapshot{{URL: "https://a.example"}}}},
	}
	saver := autosave.NewSaver(stubCollector{snap: snap}, u, logging.Discard())

	require.NoError(t, saver.Save(context.Background()))
	require.Len(t, u.calls, 1)
	assert.Equal(t, 1, u.calls[0].TotalTabs)
}

func TestSaverReportsCollectorError(t *testing.T) {
	u := &recordingUpdater{}
	saver := autosave.NewSaver(stubCollector{err: errors.New("host gone")}, u, logging.Discard())

	assert.Error(t, saver.Save(context.Background()))
	assert.Empty(t, u.calls)
}

func TestFreshStartPolicy(t *testing.T) {
	p := autosave.DefaultFreshStartPolicy()
	rich := []session.Snapshot{{TotalTabs: 8}}
	small := []session.Snapshot{{TotalTabs: 3}}

	cases := []struct {
		name    string
		stored  []session.Snapshot
		windows int
		tabs    int
		want    autosave.Decision
	}{
		{"no sessions always fresh", nil, 4, 40, autosave.FreshStartSuspected},
		{"relaunch after rich session", rich, 1, 1, autosave.FreshStartSuspected},
		{"two tabs still relaunch", rich, 1, 2, autosave.FreshStartSuspected},
		{"three tabs is normal", rich, 1, 3, autosave.Normal},
		{"two windows is normal", rich, 2, 1, autosave.Normal},
		{"window count must match exactly", rich, 0, 0, autosave.Normal},
		{"prior session not rich", small, 1, 1, autosave.Normal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.Evaluate(tc.stored, tc.windows, tc.tabs))
		})
	}
}
