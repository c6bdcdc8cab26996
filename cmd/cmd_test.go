package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fakeyudi/tabdock/internal/bundle"
	"github.com/fakeyudi/tabdock/internal/config"
	"github.com/fakeyudi/tabdock/internal/kv"
	"github.com/fakeyudi/tabdock/internal/session"
)

// executeCommand runs root with args and returns combined stdout/stderr.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// isolate points every data, state and config location at a temp dir and
// returns the resulting defaults.
func isolate(t *testing.T, backend string) config.Config {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(tmp, "run"))
	t.Setenv("TABDOCK_LOG_LEVEL", "")

	if backend != "" {
		path, err := config.GlobalPath()
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(`{"durable_backend":"`+backend+`"}`), 0o644))
	}
	c, err := config.Load()
	require.NoError(t, err)
	return c
}

func seed(t *testing.T, c config.Config, urls ...string) session.Snapshot {
	t.Helper()
	st, err := openStores(c)
	require.NoError(t, err)
	defer st.close()

	tabs := make([]session.TabSnapshot, len(urls))
	for i, u := range urls {
		tabs[i] = session.TabSnapshot{URL: u, Title: u, GroupID: "ungrouped"}
	}
	saved, err := session.NewRepository(st.durable).CreateNew(context.Background(), session.Snapshot{
		Windows:    []session.WindowSnapshot{{Tabs: tabs, GroupNames: map[string]string{}}},
		GroupNames: map[string]string{},
	})
	require.NoError(t, err)
	return saved
}

func TestSessionsListEmpty(t *testing.T) {
	isolate(t, "")
	out, err := executeCommand(rootCmd, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "no stored sessions")
}

func TestSessionsListAndDelete(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendJSON} {
		t.Run(backend, func(t *testing.T) {
			c := isolate(t, backend)
			first := seed(t, c, "https://a.example")
			second := seed(t, c, "https://b.example", "https://c.example")

			out, err := executeCommand(rootCmd, "sessions", "list")
			require.NoError(t, err)
			assert.Contains(t, out, first.ID)
			assert.Contains(t, out, second.ID+"  ")
			assert.Contains(t, out, "2 tabs")
			assert.Less(t, strings.Index(out, second.ID), strings.Index(out, first.ID), "newest first")

			_, err = executeCommand(rootCmd, "sessions", "rm", first.ID)
			require.NoError(t, err)

			out, err = executeCommand(rootCmd, "sessions", "list")
			require.NoError(t, err)
			assert.NotContains(t, out, first.ID)
			assert.Contains(t, out, second.ID)

			_, err = executeCommand(rootCmd, "sessions", "rm", "session-missing")
			assert.Error(t, err)
		})
	}
}

func TestSessionsExportAndImport(t *testing.T) {
	c := isolate(t, config.BackendJSON)
	saved := seed(t, c, "https://a.example")

	out, err := executeCommand(rootCmd, "sessions", "export", "--format", "json")
	require.NoError(t, err)
	var got bundle.Bundle
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Sessions, 1)
	assert.Equal(t, saved.ID, got.Sessions[0].ID)

	out, err = executeCommand(rootCmd, "sessions", "export", "--format", "yaml", saved.ID)
	require.NoError(t, err)
	var one bundle.Bundle
	require.NoError(t, yaml.Unmarshal([]byte(out), &one))
	require.Len(t, one.Sessions, 1)
	assert.Equal(t, "https://a.example", one.Sessions[0].Windows[0].Tabs[0].URL)

	out, err = executeCommand(rootCmd, "sessions", "export", "--format", "md")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "tabs.md")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))

	out, err = executeCommand(rootCmd, "sessions", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported "+saved.ID+" as session-")

	out, err = executeCommand(rootCmd, "sessions", "list")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "1 tabs"))

	_, err = executeCommand(rootCmd, "sessions", "export", "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")

	_, err = executeCommand(rootCmd, "sessions", "import", filepath.Join(t.TempDir(), "missing.md"))
	assert.ErrorContains(t, err, "file not found")
}

func TestConfigSetTrimsHistory(t *testing.T) {
	c := isolate(t, config.BackendJSON)
	seed(t, c, "https://a.example")
	newest := seed(t, c, "https://b.example")

	out, err := executeCommand(rootCmd, "config", "set", "--max-sessions", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Max sessions: 1")

	out, err = executeCommand(rootCmd, "sessions", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "session-"))
	assert.Contains(t, out, newest.ID)

	out, err = executeCommand(rootCmd, "config", "get")
	require.NoError(t, err)
	assert.Contains(t, out, `"durable_backend": "json"`)
	assert.Contains(t, out, "Max sessions: 1")

	_, err = executeCommand(rootCmd, "config", "set", "--max-sessions", "11")
	assert.ErrorContains(t, err, "between 1 and 10")
}

func TestMigrateCommand(t *testing.T) {
	c := isolate(t, config.BackendJSON)
	st, err := openStores(c)
	require.NoError(t, err)
	items, err := kv.Encode(map[string]any{
		session.KeyLegacySavedSession: map[string]any{
			"windows": []map[string]any{{
				"tabs": []map[string]any{{"url": "https://old.example", "title": "Old", "groupId": "g1"}},
			}},
			"groupNames": map[string]string{"g1": "Legacy"},
		},
		session.KeyLegacyLastSaved: 1700000000000,
	})
	require.NoError(t, err)
	require.NoError(t, st.durable.Set(context.Background(), items))
	st.close()

	out, err := executeCommand(rootCmd, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated session-1700000000000")

	out, err = executeCommand(rootCmd, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to migrate")
}

func TestViewPlain(t *testing.T) {
	c := isolate(t, "")
	seed(t, c, "https://a.example", "https://b.example")

	out, err := executeCommand(rootCmd, "view", "--plain")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 3 sessions kept")
	assert.Contains(t, out, "https://b.example")
}

func TestBrowserCommandsNeedEndpoint(t *testing.T) {
	isolate(t, "")
	for _, args := range [][]string{{"save"}, {"restore"}, {"serve"}} {
		_, err := executeCommand(rootCmd, args...)
		assert.ErrorContains(t, err, "no browser endpoint", args)
	}
}

func TestUnknownBackend(t *testing.T) {
	isolate(t, "tape")
	_, err := executeCommand(rootCmd, "sessions", "list")
	assert.ErrorContains(t, err, `unknown durable backend "tape"`)
}
