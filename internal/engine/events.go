package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fakeyudi/tabdock/internal/autosave"
	"github.com/fakeyudi/tabdock/internal/host"
	"github.com/fakeyudi/tabdock/internal/state"
)

// HandleEvent applies one host event.
func (e *Engine) HandleEvent(ctx context.Context, ev host.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev := ev.(type) {
	case host.TabCreated:
		return e.onTabCreated(ctx, ev.Tab)
	case host.TabRemoved:
		return e.onTabRemoved(ctx, ev)
	case host.TabUpdated:
		if ev.Changed.AffectsSnapshot() {
			e.scheduler.Notify()
		}
		return nil
	case host.TabMoved:
		e.scheduler.Notify()
		return nil
	default:
		return fmt.Errorf("unknown host event %T", ev)
	}
}

func (e *Engine) onTabCreated(ctx context.Context, tab host.Tab) error {
	defer e.scheduler.Notify()

	if _, ok := e.restored[tab.ID]; ok {
		// Created by a restore, which already recorded its group.
		delete(e.restored, tab.ID)
		return nil
	}

	if e.evaluate(ctx) == autosave.FreshStartSuspected {
		e.startFreshSession(ctx)
	}

	st, err := e.state.Get(ctx)
	if err != nil {
		return err
	}
	if _, mapped := st.TabGroupMap[tab.ID]; mapped {
		return nil
	}
	group := e.inheritedGroup(ctx, st.TabGroupMap, tab)
	if group == "" {
		return nil
	}
	st.TabGroupMap[tab.ID] = group
	if err := e.state.Set(ctx, state.Update{TabGroupMap: st.TabGroupMap}); err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{"tab": tab.ID, "group": group}).Debug("tab joined group")
	return nil
}

// evaluate runs the fresh-start policy over the current host state. Host
// failures read as Normal.
func (e *Engine) evaluate(ctx context.Context) autosave.Decision {
	stored, err := e.sessions.GetAll(ctx)
	if err != nil {
		e.log.WithError(err).Warn("failed to read sessions for fresh-start check")
		return autosave.Normal
	}
	windows, err := e.host.ListWindows(ctx)
	if err != nil {
		e.log.WithError(err).Warn("failed to list windows for fresh-start check")
		return autosave.Normal
	}
	tabs, err := e.host.ListTabs(ctx, host.AllWindows)
	if err != nil {
		e.log.WithError(err).Warn("failed to list tabs for fresh-start check")
		return autosave.Normal
	}
	return e.policy.Evaluate(stored, len(windows), len(tabs))
}

func (e *Engine) startFreshSession(ctx context.Context) {
	snap, err := e.collector.Collect(ctx)
	if err != nil {
		e.log.WithError(err).Warn("failed to collect fresh session")
		return
	}
	if snap.TotalTabs == 0 {
		return
	}
	stored, err := e.sessions.CreateNew(ctx, snap)
	if err != nil {
		e.log.WithError(err).Warn("failed to create fresh session")
		return
	}
	e.log.WithFields(logrus.Fields{"id": stored.ID, "tabs": stored.TotalTabs}).Info("started new session")
}

// inheritedGroup returns the group a new tab should join: its opener's, or
// else that of the active tab of its window. Lookup failures mean no group.
func (e *Engine) inheritedGroup(ctx context.Context, m state.TabGroupMap, tab host.Tab) string {
	if tab.OpenerID != 0 {
		if g, ok := m[tab.OpenerID]; ok {
			return g
		}
	}
	tabs, err := e.host.ListTabs(ctx, tab.WindowID)
	if err != nil {
		e.log.WithError(err).WithField("window", tab.WindowID).Warn("opener lookup failed")
		return ""
	}
	for _, t := range tabs {
		if t.Active && t.ID != tab.ID {
			return m[t.ID]
		}
	}
	return ""
}

func (e *Engine) onTabRemoved(ctx context.Context, ev host.TabRemoved) error {
	defer e.scheduler.Notify()

	st, err := e.state.Get(ctx)
	if err != nil {
		return err
	}
	delete(e.restored, ev.TabID)
	if _, ok := st.TabGroupMap[ev.TabID]; !ok {
		return nil
	}
	delete(st.TabGroupMap, ev.TabID)
	return e.state.Set(ctx, state.Update{TabGroupMap: st.TabGroupMap})
}
