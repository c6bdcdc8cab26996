package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fakeyudi/tabdock/internal/autosave"
	"github.com/fakeyudi/tabdock/internal/config"
	"github.com/fakeyudi/tabdock/internal/engine"
	"github.com/fakeyudi/tabdock/internal/host"
	"github.com/fakeyudi/tabdock/internal/host/cdphost"
	"github.com/fakeyudi/tabdock/internal/kv"
	"github.com/fakeyudi/tabdock/internal/logging"
	"github.com/fakeyudi/tabdock/internal/session"
)

// Backing files under the data and state directories.
const (
	sqliteFile    = "tabdock.db"
	sessionsFile  = "sessions.json"
	ephemeralFile = "state.json"
)

// stores are the two persistence tiers opened from config.
type stores struct {
	durable   kv.Store
	ephemeral kv.Store
	close     func()
}

func openStores(c config.Config) (*stores, error) {
	ephemeral, err := kv.NewFileStore(filepath.Join(c.StateDir, ephemeralFile))
	if err != nil {
		return nil, err
	}

	switch c.DurableBackend {
	case config.BackendSQLite, "":
		db, err := kv.OpenSQLite(filepath.Join(c.DataDir, sqliteFile))
		if err != nil {
			return nil, err
		}
		return &stores{durable: db, ephemeral: ephemeral, close: func() { db.Close() }}, nil
	case config.BackendJSON:
		fs, err := kv.NewFileStore(filepath.Join(c.DataDir, sessionsFile))
		if err != nil {
			return nil, err
		}
		return &stores{durable: fs, ephemeral: ephemeral, close: func() {}}, nil
	default:
		return nil, fmt.Errorf("unknown durable backend %q (want %s or %s)", c.DurableBackend, config.BackendSQLite, config.BackendJSON)
	}
}

// openRepository opens the durable tier and runs the legacy migration so
// offline commands see the same history the daemon would.
func openRepository(ctx context.Context, c config.Config) (*session.Repository, func(), error) {
	st, err := openStores(c)
	if err != nil {
		return nil, nil, err
	}
	if _, err := session.Migrate(ctx, st.durable, nil, logging.NewLogger("migrate")); err != nil {
		st.close()
		return nil, nil, err
	}
	return session.NewRepository(st.durable, session.WithLogger(logging.NewLogger("sessions"))), st.close, nil
}

func policyFrom(c config.Config) autosave.FreshStartPolicy {
	return autosave.FreshStartPolicy{
		Windows:      c.FreshStartWindows,
		MaxOpenTabs:  c.FreshStartMaxTabs,
		MinPriorTabs: c.FreshStartMinPriorTabs,
	}
}

// attached is an engine bound to a live browser.
type attached struct {
	engine *engine.Engine
	host   *cdphost.Host
	close  func()
}

// attach dials the browser and wires an engine over it.
func attach(ctx context.Context, c config.Config) (*attached, error) {
	if c.RemoteURL == "" {
		return nil, errors.New("no browser endpoint: set remote_url or pass --remote")
	}
	st, err := openStores(c)
	if err != nil {
		return nil, err
	}
	h, err := cdphost.Dial(ctx, c.RemoteURL, logging.NewLogger("cdphost"))
	if err != nil {
		st.close()
		return nil, err
	}
	e := newEngine(ctx, c, h, st)
	if _, err := e.Start(ctx); err != nil {
		e.Close()
		h.Close()
		st.close()
		return nil, err
	}
	return &attached{
		engine: e,
		host:   h,
		close: func() {
			e.Close()
			h.Close()
			st.close()
		},
	}, nil
}

func newEngine(ctx context.Context, c config.Config, h host.Host, st *stores) *engine.Engine {
	return engine.New(ctx, engine.Options{
		Host:      h,
		Ephemeral: st.ephemeral,
		Durable:   st.durable,
		Delay:     c.AutosaveDelay(),
		Policy:    policyFrom(c),
		Log:       logging.NewLogger("engine"),
	})
}
