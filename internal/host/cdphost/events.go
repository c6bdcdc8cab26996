package cdphost

import (
	"github.com/chromedp/cdproto/target"

	"github.com/fakeyudi/tabdock/internal/host"
)

// loop turns target events into tab events. Window lookups go back to the
// browser, so they run here rather than in the listener.
func (h *Host) loop() {
	defer close(h.done)
	defer close(h.events)
	for {
		select {
		case <-h.ctx.Done():
			return
		case ev := <-h.raw:
			for _, out := range h.translate(ev) {
				select {
				case h.events <- out:
				case <-h.ctx.Done():
					return
				}
			}
		}
	}
}

func (h *Host) translate(ev interface{}) []host.Event {
	switch ev := ev.(type) {
	case *target.EventTargetCreated:
		info := ev.TargetInfo
		if !isTab(info, h.control) {
			return nil
		}
		h.mu.Lock()
		replay := h.preexisting[info.TargetID]
		delete(h.preexisting, info.TargetID)
		h.mu.Unlock()
		if replay {
			return nil
		}
		wid, err := h.windowOf(h.ctx, info.TargetID)
		if err != nil {
			h.log.WithError(err).Debug("ignoring target without window")
			return nil
		}
		tab := h.remember(info.TargetID, wid, info.URL, info.Title)
		if info.OpenerID != "" {
			tab.OpenerID = h.idFor(info.OpenerID)
		}
		return []host.Event{host.TabCreated{Tab: tab}}

	case *target.EventTargetDestroyed:
		h.mu.Lock()
		defer h.mu.Unlock()
		id, ok := h.ids[ev.TargetID]
		if !ok {
			return nil
		}
		prev := h.known[id]
		delete(h.ids, ev.TargetID)
		delete(h.targets, id)
		delete(h.known, id)
		closing := true
		for _, t := range h.known {
			if t.WindowID == prev.WindowID {
				closing = false
				break
			}
		}
		return []host.Event{host.TabRemoved{TabID: id, WindowID: prev.WindowID, WindowClosing: closing}}

	case *target.EventTargetInfoChanged:
		info := ev.TargetInfo
		if !isTab(info, h.control) {
			return nil
		}
		h.mu.Lock()
		id, ok := h.ids[info.TargetID]
		prev := h.known[id]
		h.mu.Unlock()
		if !ok {
			return nil
		}
		wid, err := h.windowOf(h.ctx, info.TargetID)
		if err != nil {
			wid = prev.WindowID
		}
		tab := h.remember(info.TargetID, wid, info.URL, info.Title)
		return diff(prev, tab)
	}
	return nil
}

// diff reports the events that turn prev into next.
func diff(prev, next host.Tab) []host.Event {
	var out []host.Event
	var changed host.ChangedFields
	if prev.URL != next.URL {
		url := next.URL
		changed.URL = &url
	}
	if prev.Title != next.Title {
		title := next.Title
		changed.Title = &title
	}
	if changed.AffectsSnapshot() {
		out = append(out, host.TabUpdated{TabID: next.ID, Changed: changed, Tab: next})
	}
	if prev.WindowID != next.WindowID {
		out = append(out, host.TabMoved{TabID: next.ID, WindowID: next.WindowID})
	}
	return out
}
