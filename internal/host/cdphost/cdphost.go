// Package cdphost drives a running Chromium over the DevTools protocol and
// exposes it as a host.Host with a tab event stream.
//
// The protocol has no integer tab ids, no pinned state and no way to open a
// tab in a given window, so the adapter derives tab ids from target ids,
// reports every tab unpinned and focuses a tab of the wanted window before
// opening a new one. Derived ids are the same for every attach to one
// browser process, so a daemon and a one-shot command agree on them.
package cdphost

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/systeminfo"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/fakeyudi/tabdock/internal/host"
	"github.com/fakeyudi/tabdock/internal/logging"
)

// Host is a browser attached through a remote debugging endpoint.
type Host struct {
	ctx     context.Context
	cancel  context.CancelFunc
	log     *logrus.Entry
	control target.ID
	// instance names the browser process; empty when it cannot be told.
	instance string

	mu      sync.Mutex
	ids     map[target.ID]host.TabID
	known   map[host.TabID]host.Tab
	targets map[host.TabID]target.ID

	// preexisting holds targets open at Dial; discovery replays their
	// creation, which is not a new tab.
	preexisting map[target.ID]bool

	raw    chan interface{}
	events chan host.Event
	done   chan struct{}
}

// Dial attaches to the browser whose DevTools endpoint is remoteURL, for
// example ws://127.0.0.1:9222/ or http://127.0.0.1:9222.
func Dial(ctx context.Context, remoteURL string, log *logrus.Entry) (*Host, error) {
	if log == nil {
		log = logging.NewLogger("cdphost")
	}
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, remoteURL)
	cctx, cancelCtx := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelCtx()
		cancelAlloc()
	}

	// The first Run connects and opens the blank control tab chromedp
	// drives; it is hidden from every listing.
	if err := chromedp.Run(cctx); err != nil {
		cancel()
		return nil, fmt.Errorf("connect to %s: %w", remoteURL, err)
	}

	h := &Host{
		ctx:     cctx,
		cancel:  cancel,
		log:     log,
		control: chromedp.FromContext(cctx).Target.TargetID,
		ids:     make(map[target.ID]host.TabID),
		known:   make(map[host.TabID]host.Tab),
		targets: make(map[host.TabID]target.ID),
		raw:     make(chan interface{}, 256),
		events:  make(chan host.Event, 256),
		done:    make(chan struct{}),
	}

	chromedp.ListenBrowser(cctx, func(ev interface{}) {
		switch ev.(type) {
		case *target.EventTargetCreated, *target.EventTargetDestroyed, *target.EventTargetInfoChanged:
			select {
			case h.raw <- ev:
			default:
				h.log.Warn("dropping target event, consumer is behind")
			}
		}
	})
	if err := target.SetDiscoverTargets(true).Do(h.browser(ctx)); err != nil {
		cancel()
		return nil, fmt.Errorf("enable target discovery: %w", err)
	}

	h.instance = h.identify(ctx)

	// Number the tabs that are already open so their first event does not
	// read as a creation.
	if _, err := h.ListTabs(ctx, host.AllWindows); err != nil {
		cancel()
		return nil, err
	}
	h.preexisting = make(map[target.ID]bool, len(h.ids))
	for tid := range h.ids {
		h.preexisting[tid] = true
	}

	go h.loop()
	return h, nil
}

// Close detaches from the browser and ends the event stream.
func (h *Host) Close() {
	h.cancel()
	<-h.done
}

// Events implements host.EventSource.
func (h *Host) Events() <-chan host.Event { return h.events }

// Instance implements host.Instancer: the browser product and the pid of
// its browser process.
func (h *Host) Instance() string { return h.instance }

func (h *Host) identify(ctx context.Context) string {
	bctx := h.browser(ctx)
	_, product, _, _, _, err := browser.GetVersion().Do(bctx)
	if err != nil {
		h.log.WithError(err).Warn("browser version unavailable, group state will not carry over")
		return ""
	}
	procs, err := systeminfo.GetProcessInfo().Do(bctx)
	if err != nil {
		h.log.WithError(err).Warn("browser process info unavailable, group state will not carry over")
		return ""
	}
	for _, p := range procs {
		if p.Type == "browser" {
			return product + "/" + strconv.FormatInt(p.ID, 10)
		}
	}
	return ""
}

// browser returns ctx bound to the browser-level session.
func (h *Host) browser(ctx context.Context) context.Context {
	return cdp.WithExecutor(ctx, chromedp.FromContext(h.ctx).Browser)
}

func (h *Host) ListWindows(ctx context.Context) ([]host.Window, error) {
	tabs, err := h.ListTabs(ctx, host.AllWindows)
	if err != nil {
		return nil, err
	}
	var out []host.Window
	seen := map[host.WindowID]bool{}
	for _, t := range tabs {
		if !seen[t.WindowID] {
			seen[t.WindowID] = true
			out = append(out, host.Window{ID: t.WindowID})
		}
	}
	return out, nil
}

func (h *Host) ListTabs(ctx context.Context, windowID host.WindowID) ([]host.Tab, error) {
	infos, err := chromedp.Targets(h.ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	tabs, err := assemble(infos, h.control, func(id target.ID) (host.WindowID, error) {
		return h.windowOf(ctx, id)
	}, h.idFor)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	for _, t := range tabs {
		h.known[t.ID] = t
	}
	h.mu.Unlock()

	if windowID == host.AllWindows {
		return tabs, nil
	}
	var out []host.Tab
	for _, t := range tabs {
		if t.WindowID == windowID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (h *Host) CreateWindow(ctx context.Context, url string, opts host.WindowOptions) (host.Window, error) {
	tid, err := target.CreateTarget(url).WithNewWindow(true).WithBackground(!opts.Focused).Do(h.browser(ctx))
	if err != nil {
		return host.Window{}, fmt.Errorf("create window %q: %w", url, err)
	}
	wid, err := h.windowOf(ctx, tid)
	if err != nil {
		return host.Window{}, err
	}
	tab := h.remember(tid, wid, url, "")
	return host.Window{ID: wid, Tabs: []host.Tab{tab}}, nil
}

func (h *Host) CreateTab(ctx context.Context, windowID host.WindowID, url string, opts host.TabOptions) (host.Tab, error) {
	peers, err := h.ListTabs(ctx, windowID)
	if err != nil {
		return host.Tab{}, err
	}
	if len(peers) == 0 {
		return host.Tab{}, fmt.Errorf("no window %d", windowID)
	}

	// New targets open in the focused window.
	anchor := h.targetOf(peers[len(peers)-1].ID)
	if err := target.ActivateTarget(anchor).Do(h.browser(ctx)); err != nil {
		return host.Tab{}, fmt.Errorf("focus window %d: %w", windowID, err)
	}
	tid, err := target.CreateTarget(url).WithBackground(!opts.Active).Do(h.browser(ctx))
	if err != nil {
		return host.Tab{}, fmt.Errorf("create tab %q: %w", url, err)
	}
	wid, err := h.windowOf(ctx, tid)
	if err != nil {
		return host.Tab{}, err
	}
	if wid != windowID {
		h.log.WithFields(logrus.Fields{"want": windowID, "got": wid}).Warn("tab opened in another window")
	}
	return h.remember(tid, wid, url, ""), nil
}

func (h *Host) CloseTabs(ctx context.Context, ids []host.TabID) error {
	for _, id := range ids {
		tid := h.targetOf(id)
		if tid == "" {
			return fmt.Errorf("no tab %d", id)
		}
		if err := target.CloseTarget(tid).Do(h.browser(ctx)); err != nil {
			return fmt.Errorf("close tab %d: %w", id, err)
		}
	}
	return nil
}

func (h *Host) windowOf(ctx context.Context, id target.ID) (host.WindowID, error) {
	wid, _, err := browser.GetWindowForTarget().WithTargetID(id).Do(h.browser(ctx))
	if err != nil {
		return 0, fmt.Errorf("window for target %s: %w", id, err)
	}
	return host.WindowID(wid), nil
}

// idFor returns the tab id of a target.
func (h *Host) idFor(tid target.ID) host.TabID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.idForLocked(tid)
}

func (h *Host) idForLocked(tid target.ID) host.TabID {
	if id, ok := h.ids[tid]; ok {
		return id
	}
	id := stableID(tid)
	for {
		other, taken := h.targets[id]
		if !taken || other == tid {
			break
		}
		id++
	}
	h.ids[tid] = id
	h.targets[id] = tid
	return id
}

func (h *Host) targetOf(id host.TabID) target.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.targets[id]
}

func (h *Host) remember(tid target.ID, wid host.WindowID, url, title string) host.Tab {
	h.mu.Lock()
	defer h.mu.Unlock()
	tab := host.Tab{ID: h.idForLocked(tid), WindowID: wid, URL: url, Title: title}
	if prev, ok := h.known[tab.ID]; ok {
		tab.Index = prev.Index
	}
	h.known[tab.ID] = tab
	return tab
}

// stableID hashes a target id into a positive tab id that stays exact as a
// JSON number in the extension.
func stableID(tid target.ID) host.TabID {
	f := fnv.New64a()
	f.Write([]byte(tid))
	id := host.TabID(f.Sum64() & (1<<53 - 1))
	if id == 0 {
		id = 1
	}
	return id
}

// assemble turns page targets into tabs, indexed by position per window.
func assemble(infos []*target.Info, control target.ID, windowOf func(target.ID) (host.WindowID, error), idFor func(target.ID) host.TabID) ([]host.Tab, error) {
	var tabs []host.Tab
	index := map[host.WindowID]int{}
	for _, info := range infos {
		if !isTab(info, control) {
			continue
		}
		wid, err := windowOf(info.TargetID)
		if err != nil {
			return nil, err
		}
		t := host.Tab{
			ID:       idFor(info.TargetID),
			WindowID: wid,
			Index:    index[wid],
			URL:      info.URL,
			Title:    info.Title,
		}
		if info.OpenerID != "" {
			t.OpenerID = idFor(info.OpenerID)
		}
		index[wid]++
		tabs = append(tabs, t)
	}
	return tabs, nil
}

func isTab(info *target.Info, control target.ID) bool {
	return info != nil && info.Type == "page" && info.TargetID != control
}
