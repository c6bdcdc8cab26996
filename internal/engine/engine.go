// Package engine ties the state store, collector, repository, scheduler and
// restorer together. It reacts to host tab events and answers control
// requests, and it is the only writer of the group state.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fakeyudi/tabdock/internal/autosave"
	"github.com/fakeyudi/tabdock/internal/collector"
	"github.com/fakeyudi/tabdock/internal/host"
	"github.com/fakeyudi/tabdock/internal/kv"
	"github.com/fakeyudi/tabdock/internal/logging"
	"github.com/fakeyudi/tabdock/internal/restore"
	"github.com/fakeyudi/tabdock/internal/session"
	"github.com/fakeyudi/tabdock/internal/state"
)

// Options configure an Engine. Host, Ephemeral and Durable are required.
type Options struct {
	Host      host.Host
	Ephemeral kv.Store
	Durable   kv.Store

	// Delay is the auto-save quiet period; zero means autosave.DefaultDelay.
	Delay time.Duration
	// Policy decides fresh starts; the zero value means the default policy.
	Policy autosave.FreshStartPolicy
	Now    func() time.Time
	Log    *logrus.Entry
}

// Engine serialises every event and request through one lock.
type Engine struct {
	mu sync.Mutex

	host      host.Host
	durable   kv.Store
	state     *state.Store
	sessions  *session.Repository
	collector *collector.Collector
	restorer  *restore.Restorer
	saver     *autosave.Saver
	scheduler *autosave.Scheduler
	policy    autosave.FreshStartPolicy
	now       func() time.Time
	log       *logrus.Entry

	// restored holds tabs opened by a restore whose creation event is
	// still to come.
	restored map[host.TabID]struct{}
}

// New wires an Engine. ctx is handed to background saves.
func New(ctx context.Context, opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = logging.NewLogger("engine")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	policy := opts.Policy
	if policy == (autosave.FreshStartPolicy{}) {
		policy = autosave.DefaultFreshStartPolicy()
	}

	e := &Engine{
		host:     opts.Host,
		durable:  opts.Durable,
		state:    state.New(opts.Ephemeral),
		policy:   policy,
		restored: make(map[host.TabID]struct{}),
		now:      now,
		log:      log,
	}
	e.sessions = session.NewRepository(opts.Durable, session.WithClock(now), session.WithLogger(log.WithField("component", "sessions")))
	e.collector = collector.New(opts.Host, e.state)
	e.collector.Now = now
	e.restorer = restore.New(opts.Host, e.state, log.WithField("component", "restore"))
	e.saver = autosave.NewSaver(e.collector, e.sessions, log.WithField("component", "autosave"))
	e.scheduler = autosave.NewScheduler(ctx, opts.Delay, e.autoSave, log.WithField("component", "autosave"))
	return e
}

// Sessions exposes the session repository.
func (e *Engine) Sessions() *session.Repository { return e.sessions }

// State exposes the group state store.
func (e *Engine) State() *state.Store { return e.state }

// Start runs the legacy migration and reconciles the group state with the
// attached browser. It is safe to call on every launch.
func (e *Engine) Start(ctx context.Context) (session.MigrationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	res, err := session.Migrate(ctx, e.durable, e.now, e.log.WithField("component", "migrate"))
	if err != nil {
		return res, err
	}
	return res, e.reconcileLocked(ctx)
}

// reconcileLocked drops group state recorded against another browser
// process, then forgets tabs and windows that are no longer open.
func (e *Engine) reconcileLocked(ctx context.Context) error {
	instance := ""
	if in, ok := e.host.(host.Instancer); ok {
		instance = in.Instance()
	}
	dropped, err := e.state.Bind(ctx, instance)
	if err != nil {
		return err
	}
	if dropped {
		e.log.WithField("instance", instance).Info("browser changed, group state cleared")
		return nil
	}

	tabs, err := e.host.ListTabs(ctx, host.AllWindows)
	if err != nil {
		return err
	}
	openTabs := make(map[host.TabID]bool, len(tabs))
	openWindows := make(map[host.WindowID]bool)
	for _, t := range tabs {
		openTabs[t.ID] = true
		openWindows[t.WindowID] = true
	}

	st, err := e.state.Get(ctx)
	if err != nil {
		return err
	}
	stale := 0
	for id := range st.TabGroupMap {
		if !openTabs[id] {
			delete(st.TabGroupMap, id)
			stale++
		}
	}
	for id := range st.WindowData {
		if !openWindows[id] {
			delete(st.WindowData, id)
			stale++
		}
	}
	if stale == 0 {
		return nil
	}
	e.log.WithField("entries", stale).Debug("pruned closed tabs and windows")
	return e.state.Set(ctx, state.Update{TabGroupMap: st.TabGroupMap, WindowData: st.WindowData})
}

// Run applies events until ctx ends or the stream closes, then stops the
// scheduler. A pending save is dropped; a running one is waited for.
func (e *Engine) Run(ctx context.Context, events <-chan host.Event) error {
	defer e.scheduler.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				e.log.Info("host event stream closed")
				return nil
			}
			if err := e.HandleEvent(ctx, ev); err != nil {
				e.log.WithError(err).Warn("failed to handle tab event")
			}
		}
	}
}

// Close stops background saves.
func (e *Engine) Close() {
	e.scheduler.Stop()
}

// SavePending reports whether an auto-save is armed.
func (e *Engine) SavePending() bool {
	return e.scheduler.Pending()
}

func (e *Engine) autoSave(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saver.Save(ctx)
}
