// Package logging hands out per-component logrus entries.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	base = newBase()
)

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(os.Getenv("TABDOCK_LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

// NewLogger returns the logger for a component. Entries are cached per
// component and share one underlying logger.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}
	entry := base.WithField("component", component)
	loggers[component] = entry
	return entry
}

// Configure applies the level and format from config. The env var
// TABDOCK_LOG_LEVEL wins over levelStr when set.
func Configure(levelStr, format string) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if env := os.Getenv("TABDOCK_LOG_LEVEL"); env != "" {
		levelStr = env
	}
	if levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			base.SetLevel(level)
		} else {
			base.Warnf("Unknown log level %q, keeping %s", levelStr, base.GetLevel())
		}
	}

	switch format {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// SetOutput redirects every component logger.
func SetOutput(w io.Writer) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	base.SetOutput(w)
}

// Discard returns an entry that drops everything. Used by tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
