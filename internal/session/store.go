package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperr "github.com/fakeyudi/tabdock/internal/errors"
	"github.com/fakeyudi/tabdock/internal/kv"
	"github.com/fakeyudi/tabdock/internal/logging"
)

// Durable tier keys.
const (
	KeySessions      = "sessions"
	KeySessionConfig = "sessionConfig"
)

// Repository is the bounded, most-recent-first history of snapshots.
// Index 0 is the current session.
type Repository struct {
	mu    sync.Mutex
	kv    kv.Store
	log   *logrus.Entry
	now   func() time.Time
	newID func() string
}

// Option customises a Repository.
type Option func(*Repository)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithIDGenerator overrides how new session ids are produced.
func WithIDGenerator(fn func() string) Option {
	return func(r *Repository) { r.newID = fn }
}

// WithLogger sets the repository logger.
func WithLogger(log *logrus.Entry) Option {
	return func(r *Repository) { r.log = log }
}

// NewRepository returns a Repository persisting to the durable tier.
func NewRepository(durable kv.Store, opts ...Option) *Repository {
	r := &Repository{
		kv:    durable,
		now:   time.Now,
		newID: func() string { return "session-" + uuid.NewString() },
	}
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		r.log = logging.NewLogger("sessions")
	}
	return r
}

// GetAll returns every stored session, newest first.
func (r *Repository) GetAll(ctx context.Context) ([]Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Get returns the session with id.
func (r *Repository) Get(ctx context.Context, id string) (Snapshot, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	for _, s := range all {
		if s.ID == id {
			return s, nil
		}
	}
	return Snapshot{}, apperr.NotFound("session", id)
}

// CreateNew stamps snap, prepends it and trims to the retention limit.
func (r *Repository) CreateNew(ctx context.Context, snap Snapshot) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return r.createLocked(ctx, all, snap)
}

func (r *Repository) createLocked(ctx context.Context, all []Snapshot, snap Snapshot) (Snapshot, error) {
	cfg, err := r.config(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	stored := r.stamp(snap, r.newID())
	all = append([]Snapshot{stored}, all...)
	if err := r.save(ctx, trim(all, cfg.MaxSessions)); err != nil {
		return Snapshot{}, err
	}
	r.log.WithFields(logrus.Fields{"id": stored.ID, "tabs": stored.TotalTabs}).Debug("session created")
	return stored, nil
}

// UpdateCurrent replaces index 0 in place, keeping its id. With no stored
// sessions it behaves as CreateNew.
func (r *Repository) UpdateCurrent(ctx context.Context, snap Snapshot) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if len(all) == 0 {
		return r.createLocked(ctx, all, snap)
	}

	cfg, err := r.config(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	stored := r.stamp(snap, all[0].ID)
	all[0] = stored
	if err := r.save(ctx, trim(all, cfg.MaxSessions)); err != nil {
		return Snapshot{}, err
	}
	r.log.WithFields(logrus.Fields{"id": stored.ID, "tabs": stored.TotalTabs}).Debug("session updated")
	return stored, nil
}

// Delete removes one stored session.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return err
	}
	kept := all[:0]
	found := false
	for _, s := range all {
		if s.ID == id {
			found = true
			continue
		}
		kept = append(kept, s)
	}
	if !found {
		return apperr.NotFound("session", id)
	}
	return r.save(ctx, kept)
}

// Config returns the stored retention config, defaults applied.
func (r *Repository) Config(ctx context.Context) (Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config(ctx)
}

// SetConfig validates and persists cfg, trimming stored sessions to the
// new bound straight away.
func (r *Repository) SetConfig(ctx context.Context, cfg Config) (Config, error) {
	if cfg.MaxSessions < MinMaxSessions || cfg.MaxSessions > MaxMaxSessions {
		return Config{}, apperr.InvalidParameters(
			fmt.Sprintf("maxSessions must be between %d and %d, got %d", MinMaxSessions, MaxMaxSessions, cfg.MaxSessions)).
			WithDetail("maxSessions", cfg.MaxSessions)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := kv.Encode(map[string]any{KeySessionConfig: cfg})
	if err != nil {
		return Config{}, err
	}
	if err := r.kv.Set(ctx, items); err != nil {
		return Config{}, fmt.Errorf("failed to persist session config: %w", err)
	}

	all, err := r.load(ctx)
	if err != nil {
		return Config{}, err
	}
	if len(all) > cfg.MaxSessions {
		if err := r.save(ctx, trim(all, cfg.MaxSessions)); err != nil {
			return Config{}, err
		}
		r.log.WithFields(logrus.Fields{"dropped": len(all) - cfg.MaxSessions, "max": cfg.MaxSessions}).Info("trimmed sessions")
	}
	return cfg, nil
}

// stamp fills the derived fields of snap for storage.
func (r *Repository) stamp(snap Snapshot, id string) Snapshot {
	out := snap.Clone()
	out.ID = id
	out.Timestamp = r.now().UnixMilli()
	out.TotalTabs = out.CountTabs()
	out.WindowCount = len(out.Windows)
	return out
}

func (r *Repository) load(ctx context.Context) ([]Snapshot, error) {
	var all []Snapshot
	if _, err := kv.Load(ctx, r.kv, KeySessions, &all); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	return all, nil
}

func (r *Repository) save(ctx context.Context, all []Snapshot) error {
	if all == nil {
		all = []Snapshot{}
	}
	items, err := kv.Encode(map[string]any{KeySessions: all})
	if err != nil {
		return err
	}
	if err := r.kv.Set(ctx, items); err != nil {
		return fmt.Errorf("failed to persist sessions: %w", err)
	}
	return nil
}

func (r *Repository) config(ctx context.Context) (Config, error) {
	cfg := DefaultConfig()
	if _, err := kv.Load(ctx, r.kv, KeySessionConfig, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read session config: %w", err)
	}
	if cfg.MaxSessions < MinMaxSessions || cfg.MaxSessions > MaxMaxSessions {
		cfg.MaxSessions = DefaultMaxSessions
	}
	return cfg, nil
}

// trim drops the oldest sessions beyond limit.
func trim(all []Snapshot, limit int) []Snapshot {
	if len(all) > limit {
		return all[:limit]
	}
	return all
}
