package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/fakeyudi/tabdock/internal/logging"
)

// DefaultWatchDebounce is the quiet period before a change is reported.
const DefaultWatchDebounce = 100 * time.Millisecond

// Watch calls onChange with the path each time the file at path is written,
// created or replaced. Bursts within debounce are reported once. It blocks
// until ctx is cancelled.
//
// The parent directory is watched rather than the file, since editors
// usually save by renaming a temp file over the original.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(path string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	log := logging.NewLogger("config-watcher").WithField("path", path)
	target := filepath.Clean(path)
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.WithField("op", ev.Op.String()).Debug("config file event")
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			log.Info("config changed")
			onChange(path)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watcher error")
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		}
	}
}

// ReloadFunc returns an onChange callback that re-reads the merged config
// and hands it to apply. Unreadable files are logged and skipped.
func ReloadFunc(log *logrus.Entry, apply func(Config)) func(string) {
	return func(path string) {
		cfg, err := Load()
		if err != nil {
			log.WithError(err).Warn("ignoring unreadable config")
			return
		}
		apply(cfg)
	}
}
