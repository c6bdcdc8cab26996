package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Config holds all configurable tabdock settings.
type Config struct {
	DataDir        string `json:"data_dir"`  // durable tier location
	StateDir       string `json:"state_dir"` // ephemeral tier location
	DurableBackend string `json:"durable_backend"`
	RemoteURL      string `json:"remote_url"` // DevTools endpoint of the browser
	Listen         string `json:"listen"`

	AutosaveDelayMS int `json:"autosave_delay_ms"`
	MaxSessions     int `json:"max_sessions"` // 0 leaves the stored setting alone

	FreshStartWindows      int `json:"fresh_start_windows"`
	FreshStartMaxTabs      int `json:"fresh_start_max_tabs"`
	FreshStartMinPriorTabs int `json:"fresh_start_min_prior_tabs"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// Durable backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// ProjectFile is the per-directory override file.
const ProjectFile = ".tabdockconfig"

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		DataDir:                defaultDataDir(),
		StateDir:               defaultStateDir(),
		DurableBackend:         BackendSQLite,
		Listen:                 "127.0.0.1:7878",
		AutosaveDelayMS:        1000,
		FreshStartWindows:      1,
		FreshStartMaxTabs:      2,
		FreshStartMinPriorTabs: 3,
		LogLevel:               "info",
		LogFormat:              "text",
	}
}

// AutosaveDelay is the debounce delay as a duration.
func (c Config) AutosaveDelay() time.Duration {
	return time.Duration(c.AutosaveDelayMS) * time.Millisecond
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "tabdock")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "tabdock")
	}
	return filepath.Join(os.TempDir(), "tabdock-data")
}

// The ephemeral tier lives in the runtime dir so it is gone after a reboot.
func defaultStateDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "tabdock")
	}
	return filepath.Join(os.TempDir(), "tabdock")
}

// GlobalPath returns ~/.config/tabdock/config.json.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tabdock", "config.json"), nil
}

// LoadGlobal reads ~/.config/tabdock/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .tabdockconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(ProjectFile, false)
}

// Load reads both files and merges them.
func Load() (Config, error) {
	global, err := LoadGlobal()
	if err != nil {
		return Config{}, err
	}
	project, err := LoadProject()
	if err != nil {
		return Config{}, err
	}
	return Merge(global, project), nil
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	apply(&result, global)
	apply(&result, project)
	return result
}

// apply copies every set field of src over dst.
func apply(dst, src *Config) {
	if src == nil {
		return
	}
	setString(&dst.DataDir, src.DataDir)
	setString(&dst.StateDir, src.StateDir)
	setString(&dst.DurableBackend, src.DurableBackend)
	setString(&dst.RemoteURL, src.RemoteURL)
	setString(&dst.Listen, src.Listen)
	setString(&dst.LogLevel, src.LogLevel)
	setString(&dst.LogFormat, src.LogFormat)

	setInt(&dst.AutosaveDelayMS, src.AutosaveDelayMS)
	setInt(&dst.MaxSessions, src.MaxSessions)
	setInt(&dst.FreshStartWindows, src.FreshStartWindows)
	setInt(&dst.FreshStartMaxTabs, src.FreshStartMaxTabs)
	setInt(&dst.FreshStartMinPriorTabs, src.FreshStartMinPriorTabs)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
