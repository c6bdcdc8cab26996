// Package restore replays a stored session into new host windows and tabs
// and rebuilds the group mapping for the new identifiers.
package restore

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	apperr "github.com/fakeyudi/tabdock/internal/errors"
	"github.com/fakeyudi/tabdock/internal/host"
	"github.com/fakeyudi/tabdock/internal/logging"
	"github.com/fakeyudi/tabdock/internal/session"
	"github.com/fakeyudi/tabdock/internal/state"
)

// StateStore is the state store surface the restorer needs.
type StateStore interface {
	Get(ctx context.Context) (state.State, error)
	Set(ctx context.Context, u state.Update) error
}

// Result summarises a restore.
type Result struct {
	SessionID      string          `json:"sessionId"`
	WindowsCreated int             `json:"windowsCreated"`
	TabsCreated    int             `json:"tabsCreated"`
	Windows        []host.WindowID `json:"windows"`
	Tabs           []host.TabID    `json:"tabs"`
	Failures       []string        `json:"failures,omitempty"`
}

// Restorer recreates sessions through the host.
type Restorer struct {
	Host  host.Host
	State StateStore
	Log   *logrus.Entry
}

// New returns a Restorer.
func New(h host.Host, st StateStore, log *logrus.Entry) *Restorer {
	if log == nil {
		log = logging.NewLogger("restore")
	}
	return &Restorer{Host: h, State: st, Log: log}
}

// Restore opens every window of snap. Windows and tabs are created one at a
// time so each new id is paired with its record before the next call. A
// failing window or tab is logged and skipped; the rest of the session is
// still restored. The group mapping is written once at the end, also when
// ctx ends partway, so the windows already opened keep their groups.
func (r *Restorer) Restore(ctx context.Context, snap *session.Snapshot) (Result, error) {
	if snap == nil {
		return Result{}, apperr.InvalidSession("no session given")
	}
	if len(snap.Windows) == 0 {
		return Result{}, apperr.InvalidSession("session has no windows").WithDetail("sessionId", snap.ID)
	}

	st, err := r.State.Get(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("reading state: %w", err)
	}

	res := Result{SessionID: snap.ID}
	log := r.Log.WithField("session", snap.ID)

	var cancelled error
windows:
	for wi, ws := range snap.Windows {
		if len(ws.Tabs) == 0 {
			continue
		}
		if cancelled = ctx.Err(); cancelled != nil {
			break
		}

		first := ws.Tabs[0]
		url := first.URL
		if url == "" {
			url = host.BlankURL
		}
		win, err := r.Host.CreateWindow(ctx, url, host.WindowOptions{Pinned: first.Pinned, Focused: wi == 0})
		if err != nil {
			log.WithError(err).WithField("window", wi).Warn("failed to create window, skipping")
			res.Failures = append(res.Failures, fmt.Sprintf("window %d: %v", wi, err))
			continue
		}
		res.WindowsCreated++
		res.Windows = append(res.Windows, win.ID)

		names := st.WindowData.Names(win.ID)
		for k, v := range snap.GroupNames {
			names[k] = v
		}
		for k, v := range ws.GroupNames {
			names[k] = v
		}

		if len(win.Tabs) > 0 {
			res.TabsCreated++
			res.Tabs = append(res.Tabs, win.Tabs[0].ID)
			assign(st.TabGroupMap, win.Tabs[0].ID, first.GroupID)
		}

		for ti, tab := range ws.Tabs[1:] {
			if cancelled = ctx.Err(); cancelled != nil {
				break windows
			}
			url := tab.URL
			if url == "" {
				url = host.BlankURL
			}
			created, err := r.Host.CreateTab(ctx, win.ID, url, host.TabOptions{Pinned: tab.Pinned})
			if err != nil {
				log.WithError(err).WithFields(logrus.Fields{"window": wi, "tab": ti + 1, "url": url}).Warn("failed to create tab, skipping")
				res.Failures = append(res.Failures, fmt.Sprintf("window %d tab %d: %v", wi, ti+1, err))
				continue
			}
			res.TabsCreated++
			res.Tabs = append(res.Tabs, created.ID)
			assign(st.TabGroupMap, created.ID, tab.GroupID)
		}
	}

	if err := r.State.Set(context.WithoutCancel(ctx), state.Update{TabGroupMap: st.TabGroupMap, WindowData: st.WindowData}); err != nil {
		return res, fmt.Errorf("persisting restored groups: %w", err)
	}
	if cancelled != nil {
		log.WithField("tabs", res.TabsCreated).Warn("restore interrupted")
		return res, cancelled
	}

	log.WithFields(logrus.Fields{
		"windows":  res.WindowsCreated,
		"tabs":     res.TabsCreated,
		"failures": len(res.Failures),
	}).Info("session restored")
	return res, nil
}

func assign(m state.TabGroupMap, id host.TabID, group string) {
	if group == "" || group == state.Ungrouped {
		return
	}
	m[id] = group
}
