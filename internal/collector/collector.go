// Package collector builds session snapshots from the live host state.
package collector

import (
	"context"
	"strings"
	"time"

	apperr "github.com/fakeyudi/tabdock/internal/errors"
	"github.com/fakeyudi/tabdock/internal/host"
	"github.com/fakeyudi/tabdock/internal/session"
	"github.com/fakeyudi/tabdock/internal/state"
)

// internalPrefixes are URL prefixes of pages that cannot be reopened by URL.
var internalPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"chrome-search://",
	"devtools://",
	"edge://",
	"moz-extension://",
	"about:",
}

// Restorable reports whether a tab with url can be recreated by URL.
func Restorable(url string) bool {
	if url == "" {
		return false
	}
	for _, p := range internalPrefixes {
		if strings.HasPrefix(url, p) {
			return false
		}
	}
	return true
}

// StateReader is the read side of the state store.
type StateReader interface {
	Get(ctx context.Context) (state.State, error)
}

// Collector gathers every restorable tab into a draft snapshot.
type Collector struct {
	Host  host.Host
	State StateReader
	// Now stamps the draft; defaults to time.Now.
	Now func() time.Time
}

// New returns a Collector over h and st.
func New(h host.Host, st StateReader) *Collector {
	return &Collector{Host: h, State: st, Now: time.Now}
}

// Collect enumerates windows and their tabs and returns a draft snapshot.
// It never writes to the state store.
func (c *Collector) Collect(ctx context.Context) (session.Snapshot, error) {
	st, err := c.State.Get(ctx)
	if err != nil {
		return session.Snapshot{}, err
	}

	windows, err := c.Host.ListWindows(ctx)
	if err != nil {
		return session.Snapshot{}, apperr.HostFailure("listWindows", err)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	snap := session.Snapshot{
		Timestamp:  now().UnixMilli(),
		Windows:    []session.WindowSnapshot{},
		GroupNames: map[string]string{},
	}

	for _, w := range windows {
		tabs, err := c.Host.ListTabs(ctx, w.ID)
		if err != nil {
			return session.Snapshot{}, apperr.HostFailure("listTabs", err).WithDetail("windowId", int(w.ID))
		}

		names := map[string]string{}
		if rec, ok := st.WindowData[w.ID]; ok {
			for k, v := range rec.GroupNames {
				names[k] = v
				snap.GroupNames[k] = v
			}
		}

		ws := session.WindowSnapshot{GroupNames: names}
		for _, t := range tabs {
			if !Restorable(t.URL) {
				continue
			}
			ws.Tabs = append(ws.Tabs, session.TabSnapshot{
				URL:     t.URL,
				Title:   t.Title,
				Pinned:  t.Pinned,
				GroupID: st.TabGroupMap.GroupOf(t.ID),
			})
		}
		if len(ws.Tabs) == 0 {
			continue
		}
		snap.Windows = append(snap.Windows, ws)
	}

	snap.TotalTabs = snap.CountTabs()
	snap.WindowCount = len(snap.Windows)
	return snap, nil
}
