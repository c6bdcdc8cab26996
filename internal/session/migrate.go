package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fakeyudi/tabdock/internal/kv"
	"github.com/fakeyudi/tabdock/internal/logging"
)

// Keys of the single-session format that predates the session history.
const (
	KeyLegacySavedSession = "savedSession"
	KeyLegacyLastSaved    = "lastSaved"
)

// legacySession is the old single-session record. Older writers stored the
// window list directly; newer ones wrapped it in an object.
type legacySession struct {
	Windows    []WindowSnapshot  `json:"windows"`
	GroupNames map[string]string `json:"groupNames"`
}

// MigrationResult reports what Migrate did.
type MigrationResult struct {
	Migrated bool
	Session  Snapshot
}

// Migrate upgrades a legacy single-session record into the session history.
// It only acts when legacy data exists and no history has been written yet,
// so running it on every start is safe.
func Migrate(ctx context.Context, durable kv.Store, now func() time.Time, log *logrus.Entry) (MigrationResult, error) {
	if log == nil {
		log = logging.NewLogger("migrate")
	}
	if now == nil {
		now = time.Now
	}

	items, err := durable.Get(ctx, KeySessions, KeyLegacySavedSession, KeyLegacyLastSaved)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("reading legacy session: %w", err)
	}
	if _, ok := items[KeySessions]; ok {
		log.Debug("session history present, nothing to migrate")
		return MigrationResult{}, nil
	}
	raw, ok := items[KeyLegacySavedSession]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return MigrationResult{}, nil
	}

	legacy, err := decodeLegacy(raw)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("parsing legacy session: %w", err)
	}

	ts := now().UnixMilli()
	if last, ok := items[KeyLegacyLastSaved]; ok {
		if parsed, ok := parseLastSaved(last); ok {
			ts = parsed
		}
	}

	snap := Snapshot{
		ID:         "session-" + strconv.FormatInt(ts, 10),
		Timestamp:  ts,
		Windows:    make([]WindowSnapshot, 0, len(legacy.Windows)),
		GroupNames: map[string]string{},
	}
	for _, w := range legacy.Windows {
		if len(w.Tabs) == 0 {
			continue
		}
		ws := WindowSnapshot{Tabs: make([]TabSnapshot, len(w.Tabs)), GroupNames: cloneNames(w.GroupNames)}
		for i, t := range w.Tabs {
			if t.GroupID == "" {
				t.GroupID = "ungrouped"
			}
			ws.Tabs[i] = t
		}
		snap.Windows = append(snap.Windows, ws)
	}
	for k, v := range legacy.GroupNames {
		snap.GroupNames[k] = v
	}
	snap.TotalTabs = snap.CountTabs()
	snap.WindowCount = len(snap.Windows)

	if snap.TotalTabs == 0 {
		if err := durable.Remove(ctx, KeyLegacySavedSession, KeyLegacyLastSaved); err != nil {
			return MigrationResult{}, fmt.Errorf("removing legacy session: %w", err)
		}
		log.Info("legacy session had no tabs, discarded")
		return MigrationResult{}, nil
	}

	put, err := kv.Encode(map[string]any{KeySessions: []Snapshot{snap}})
	if err != nil {
		return MigrationResult{}, err
	}
	if err := durable.Set(ctx, put); err != nil {
		return MigrationResult{}, fmt.Errorf("writing migrated session: %w", err)
	}
	if err := durable.Remove(ctx, KeyLegacySavedSession, KeyLegacyLastSaved); err != nil {
		return MigrationResult{}, fmt.Errorf("removing legacy session: %w", err)
	}

	log.WithFields(logrus.Fields{"id": snap.ID, "tabs": snap.TotalTabs}).Info("migrated legacy session")
	return MigrationResult{Migrated: true, Session: snap}, nil
}

func decodeLegacy(raw json.RawMessage) (legacySession, error) {
	var legacy legacySession
	trimmed := firstByte(raw)
	if trimmed == '[' {
		err := json.Unmarshal(raw, &legacy.Windows)
		return legacy, err
	}
	err := json.Unmarshal(raw, &legacy)
	return legacy, err
}

// parseLastSaved accepts epoch millis as a number or string, or an RFC 3339 time.
func parseLastSaved(raw json.RawMessage) (int64, bool) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		return n, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), true
	}
	return 0, false
}

func firstByte(raw []byte) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}
