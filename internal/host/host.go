// Package host describes the browser capabilities the engine consumes:
// window and tab enumeration, creation and removal, and the tab lifecycle
// event stream. Identifiers are assigned by the host and are only unique
// for the lifetime of the host process.
package host

import "context"

// TabID identifies a tab for the lifetime of the host process.
type TabID int

// WindowID identifies a window for the lifetime of the host process.
type WindowID int

// AllWindows asks ListTabs for the tabs of every window.
const AllWindows WindowID = -1

// BlankURL seeds windows and tabs whose recorded URL is missing.
const BlankURL = "about:blank"

// Window is a host window handle.
type Window struct {
	ID WindowID `json:"id"`
	// Tabs is populated by CreateWindow with the tab the window was seeded with.
	Tabs []Tab `json:"tabs,omitempty"`
}

// Tab is a host tab handle.
type Tab struct {
	ID       TabID    `json:"id"`
	WindowID WindowID `json:"windowId"`
	Index    int      `json:"index"`
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Pinned   bool     `json:"pinned"`
	Active   bool     `json:"active"`
	// OpenerID is the tab this one was opened from, zero when unknown.
	OpenerID TabID `json:"openerTabId,omitempty"`
}

// WindowOptions control CreateWindow.
type WindowOptions struct {
	// Pinned pins the seed tab.
	Pinned bool
	// Focused brings the new window to the front.
	Focused bool
}

// TabOptions control CreateTab.
type TabOptions struct {
	Pinned bool
	Active bool
}

// Host is the windowing capability the engine is built over.
type Host interface {
	ListWindows(ctx context.Context) ([]Window, error)
	// ListTabs returns the tabs of windowID, or of every window for AllWindows.
	ListTabs(ctx context.Context, windowID WindowID) ([]Tab, error)
	CreateWindow(ctx context.Context, url string, opts WindowOptions) (Window, error)
	CreateTab(ctx context.Context, windowID WindowID, url string, opts TabOptions) (Tab, error)
	CloseTabs(ctx context.Context, ids []TabID) error
}

// Instancer is implemented by hosts that can tell one browser process from
// the next. Tab and window ids recorded under one instance mean nothing
// under another.
type Instancer interface {
	Instance() string
}
