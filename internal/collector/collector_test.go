package collector_test

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/tabdock/internal/collector"
	"github.com/fakeyudi/tabdock/internal/host/memhost"
	"github.com/fakeyudi/tabdock/internal/kv"
	"github.com/fakeyudi/tabdock/internal/state"
)

// Property: reserved-scheme URLs are never restorable; ordinary https URLs always are.
func TestRestorableFilter(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rest := rapid.StringMatching(`[a-z0-9./-]{0,30}`).Draw(t, "rest")
		scheme := rapid.SampledFrom([]string{
			"chrome://", "chrome-extension://", "chrome-search://", "devtools://",
			"edge://", "moz-extension://", "about:",
		}).Draw(t, "scheme")

		if collector.Restorable(scheme + rest) {
			t.Fatalf("%q should not be restorable", scheme+rest)
		}
		if !collector.Restorable("https://" + rest) {
			t.Fatalf("%q should be restorable", "https://"+rest)
		}
	})
}

func TestRestorableExamples(t *testing.T) {
	cases := map[string]bool{
		"chrome://settings":       false,
		"about:blank":             false,
		"moz-extension://x":       false,
		"":                        false,
		"https://example.com":     true,
		"http://localhost:8080/a": true,
		"file:///tmp/notes.txt":   true,
	}
	for url, want := range cases {
		if got := collector.Restorable(url); got != want {
			t.Errorf("Restorable(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestCollectSkipsInternalTabsAndEmptyWindows(t *testing.T) {
	ctx := context.Background()
	h := memhost.New()
	w1 := h.Open("https://a.example", "chrome://newtab", "https://b.example")
	h.Open("chrome://settings", "about:blank")
	w3 := h.Open("https://c.example")

	st := state.New(kv.NewMemory())
	if err := st.Set(ctx, state.Update{
		TabGroupMap: state.TabGroupMap{w1.Tabs[0].ID: "g1", w3.Tabs[0].ID: "g2"},
		WindowData: state.WindowData{
			w1.ID: {GroupNames: map[string]string{"g1": "Work", "shared": "from w1"}},
			w3.ID: {GroupNames: map[string]string{"g2": "Reading", "shared": "from w3"}},
		},
	}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	c := collector.New(h, st)
	c.Now = func() time.Time { return time.UnixMilli(42) }
	snap, err := c.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if snap.WindowCount != 2 || snap.TotalTabs != 3 {
		t.Fatalf("got windows=%d tabs=%d, want 2 and 3", snap.WindowCount, snap.TotalTabs)
	}
	if snap.Timestamp != 42 {
		t.Errorf("timestamp = %d, want 42", snap.Timestamp)
	}
	if g := snap.Windows[0].Tabs[0].GroupID; g != "g1" {
		t.Errorf("first tab group = %q, want g1", g)
	}
	if g := snap.Windows[0].Tabs[1].GroupID; g != state.Ungrouped {
		t.Errorf("second tab group = %q, want %q", g, state.Ungrouped)
	}
	if snap.GroupNames["g1"] != "Work" || snap.GroupNames["g2"] != "Reading" {
		t.Errorf("group names not unioned: %v", snap.GroupNames)
	}
	// Later windows win on key collisions.
	if snap.GroupNames["shared"] != "from w3" {
		t.Errorf("shared = %q, want last write to win", snap.GroupNames["shared"])
	}
}

func TestCollectDoesNotMutateState(t *testing.T) {
	ctx := context.Background()
	h := memhost.New()
	h.Open("https://a.example")
	backend := kv.NewMemory()
	st := state.New(backend)

	if _, err := collector.New(h, st).Collect(ctx); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	items, _ := backend.Get(ctx)
	if len(items) != 0 {
		t.Errorf("collector wrote to state: %v", items)
	}
}

func TestCollectReportsHostFailure(t *testing.T) {
	h := memhost.New()
	h.FailList = true
	_, err := collector.New(h, state.New(kv.NewMemory())).Collect(context.Background())
	if err == nil {
		t.Fatal("expected error when host enumeration fails")
	}
}
