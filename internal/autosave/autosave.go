package autosave

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fakeyudi/tabdock/internal/logging"
	"github.com/fakeyudi/tabdock/internal/session"
)

// Collector produces a draft snapshot of the open tabs.
type Collector interface {
	Collect(ctx context.Context) (session.Snapshot, error)
}

// Updater writes the current session.
type Updater interface {
	UpdateCurrent(ctx context.Context, snap session.Snapshot) (session.Snapshot, error)
}

// Saver is the debounced save pipeline: collect, then update the current session.
type Saver struct {
	Collector Collector
	Sessions  Updater
	Log       *logrus.Entry
}

// NewSaver returns a Saver wired to c and sessions.
func NewSaver(c Collector, sessions Updater, log *logrus.Entry) *Saver {
	if log == nil {
		log = logging.NewLogger("autosave")
	}
	return &Saver{Collector: c, Sessions: sessions, Log: log}
}

// Save runs one auto-save. An empty collection is skipped so a good session
// is never overwritten with nothing. Auto-save only updates the current
// session; it never starts a new one.
func (s *Saver) Save(ctx context.Context) error {
	snap, err := s.Collector.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collecting session: %w", err)
	}
	if snap.TotalTabs == 0 {
		s.Log.Debug("no restorable tabs, skipping auto-save")
		return nil
	}
	stored, err := s.Sessions.UpdateCurrent(ctx, snap)
	if err != nil {
		return fmt.Errorf("updating current session: %w", err)
	}
	s.Log.WithFields(logrus.Fields{
		"id":      stored.ID,
		"tabs":    stored.TotalTabs,
		"windows": stored.WindowCount,
	}).Debug("auto-saved session")
	return nil
}
