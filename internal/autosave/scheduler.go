// Package autosave coalesces bursts of tab events into a single session save
// and decides when a tab event marks a fresh browser launch.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fakeyudi/tabdock/internal/logging"
)

// DefaultDelay is the quiet period before a save fires.
const DefaultDelay = 1000 * time.Millisecond

// SaveFunc performs one save. Errors are logged by the scheduler.
type SaveFunc func(ctx context.Context) error

// Scheduler keeps at most one pending save. Arming cancels any pending,
// unfired save; a save that already started is never cancelled and saves
// never run concurrently.
type Scheduler struct {
	delay time.Duration
	save  SaveFunc
	log   *logrus.Entry
	ctx   context.Context

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	stopped bool

	running sync.Mutex // held while a save executes
	wg      sync.WaitGroup
}

// NewScheduler returns a scheduler running save after delay of quiet.
// ctx is handed to every save; cancelling it does not stop the scheduler.
func NewScheduler(ctx context.Context, delay time.Duration, save SaveFunc, log *logrus.Entry) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if log == nil {
		log = logging.NewLogger("autosave")
	}
	return &Scheduler{ctx: ctx, delay: delay, save: save, log: log}
}

// Notify (re)arms the timer. Only the last Notify of a burst leads to a save.
func (s *Scheduler) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
}

// Pending reports whether a save is armed and has not fired yet.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Stop cancels any pending save and waits for a running one to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	// A later Notify superseded this timer, or Stop ran.
	if gen != s.gen || s.stopped {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.running.Lock()
	defer s.running.Unlock()

	if err := s.save(s.ctx); err != nil {
		s.log.WithError(err).Warn("auto-save failed")
	}
}
