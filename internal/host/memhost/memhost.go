// Package memhost is an in-memory Host. It assigns ids the way a browser
// does (monotonic, never reused) and emits the matching lifecycle events.
package memhost

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fakeyudi/tabdock/internal/host"
)

// ErrRejected is returned for calls configured to fail.
var ErrRejected = errors.New("memhost: call rejected")

// Host is a fake browser with windows and ordered tabs.
type Host struct {
	mu      sync.Mutex
	nextWin host.WindowID
	nextTab host.TabID
	windows map[host.WindowID][]*host.Tab
	order   []host.WindowID
	events  chan host.Event
	id      string

	// FailURLs makes CreateTab and CreateWindow reject these URLs.
	FailURLs map[string]bool
	// FailList makes ListWindows and ListTabs reject.
	FailList bool
}

// New returns an empty host with a buffered event channel.
func New() *Host {
	return &Host{
		nextWin:  1,
		nextTab:  1,
		windows:  make(map[host.WindowID][]*host.Tab),
		events:   make(chan host.Event, 256),
		id:       uuid.NewString(),
		FailURLs: make(map[string]bool),
	}
}

// Instance implements host.Instancer. Every Host is its own browser.
func (h *Host) Instance() string { return h.id }

// Events implements host.EventSource.
func (h *Host) Events() <-chan host.Event { return h.events }

// Close closes the event stream.
func (h *Host) Close() { close(h.events) }

func (h *Host) emit(ev host.Event) {
	select {
	case h.events <- ev:
	default:
	}
}

// Open adds a window holding urls and returns its handle. Used to seed tests.
func (h *Host) Open(urls ...string) host.Window {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.addWindowLocked()
	for _, u := range urls {
		h.addTabLocked(id, u, host.TabOptions{})
	}
	return h.windowLocked(id)
}

// SetTitle updates a tab title without emitting an event.
func (h *Host) SetTitle(id host.TabID, title string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t := h.findLocked(id); t != nil {
		t.Title = title
	}
}

// SetPinned pins or unpins a tab without emitting an event.
func (h *Host) SetPinned(id host.TabID, pinned bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t := h.findLocked(id); t != nil {
		t.Pinned = pinned
	}
}

func (h *Host) ListWindows(ctx context.Context) ([]host.Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailList {
		return nil, ErrRejected
	}
	out := make([]host.Window, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, host.Window{ID: id})
	}
	return out, nil
}

func (h *Host) ListTabs(ctx context.Context, windowID host.WindowID) ([]host.Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailList {
		return nil, ErrRejected
	}
	var out []host.Tab
	for _, id := range h.order {
		if windowID != host.AllWindows && id != windowID {
			continue
		}
		for _, t := range h.windows[id] {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (h *Host) CreateWindow(ctx context.Context, url string, opts host.WindowOptions) (host.Window, error) {
	if err := ctx.Err(); err != nil {
		return host.Window{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailURLs[url] {
		return host.Window{}, fmt.Errorf("create window %q: %w", url, ErrRejected)
	}
	id := h.addWindowLocked()
	t := h.addTabLocked(id, url, host.TabOptions{Pinned: opts.Pinned, Active: true})
	h.emit(host.TabCreated{Tab: *t})
	return h.windowLocked(id), nil
}

func (h *Host) CreateTab(ctx context.Context, windowID host.WindowID, url string, opts host.TabOptions) (host.Tab, error) {
	if err := ctx.Err(); err != nil {
		return host.Tab{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.windows[windowID]; !ok {
		return host.Tab{}, fmt.Errorf("no window %d: %w", windowID, ErrRejected)
	}
	if h.FailURLs[url] {
		return host.Tab{}, fmt.Errorf("create tab %q: %w", url, ErrRejected)
	}
	t := h.addTabLocked(windowID, url, opts)
	h.emit(host.TabCreated{Tab: *t})
	return *t, nil
}

func (h *Host) CloseTabs(ctx context.Context, ids []host.TabID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		t := h.findLocked(id)
		if t == nil {
			return fmt.Errorf("no tab %d: %w", id, ErrRejected)
		}
		win := t.WindowID
		tabs := h.windows[win]
		kept := tabs[:0]
		for _, other := range tabs {
			if other.ID != id {
				kept = append(kept, other)
			}
		}
		closing := len(kept) == 0
		if closing {
			delete(h.windows, win)
			h.removeOrderLocked(win)
		} else {
			h.windows[win] = kept
			reindex(kept)
		}
		h.emit(host.TabRemoved{TabID: id, WindowID: win, WindowClosing: closing})
	}
	return nil
}

func (h *Host) addWindowLocked() host.WindowID {
	id := h.nextWin
	h.nextWin++
	h.windows[id] = nil
	h.order = append(h.order, id)
	return id
}

func (h *Host) addTabLocked(win host.WindowID, url string, opts host.TabOptions) *host.Tab {
	t := &host.Tab{
		ID:       h.nextTab,
		WindowID: win,
		URL:      url,
		Title:    url,
		Pinned:   opts.Pinned,
		Active:   opts.Active,
	}
	h.nextTab++
	tabs := h.windows[win]
	if opts.Active {
		for _, other := range tabs {
			other.Active = false
		}
	}
	tabs = append(tabs, t)
	// Pinned tabs stay in front, as browsers keep them.
	sort.SliceStable(tabs, func(i, j int) bool { return tabs[i].Pinned && !tabs[j].Pinned })
	reindex(tabs)
	h.windows[win] = tabs
	return t
}

func (h *Host) windowLocked(id host.WindowID) host.Window {
	w := host.Window{ID: id}
	for _, t := range h.windows[id] {
		w.Tabs = append(w.Tabs, *t)
	}
	return w
}

func (h *Host) findLocked(id host.TabID) *host.Tab {
	for _, tabs := range h.windows {
		for _, t := range tabs {
			if t.ID == id {
				return t
			}
		}
	}
	return nil
}

func (h *Host) removeOrderLocked(win host.WindowID) {
	for i, id := range h.order {
		if id == win {
			h.order = append(h.order[:i], h.order[i+1:]...)
			return
		}
	}
}

func reindex(tabs []*host.Tab) {
	for i, t := range tabs {
		t.Index = i
	}
}
