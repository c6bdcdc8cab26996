package bundle

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Markdown sentinels. The payload comment carries the whole bundle so a
// rendered file can be imported again.
const (
	versionSentinel = "<!-- tabdock-bundle-version: 1 -->"
	dataPrefix      = "<!-- tabdock-data: "
	dataSuffix      = " -->"
)

// Renderer serializes a Bundle to bytes.
type Renderer interface {
	Render(b *Bundle) ([]byte, error)
}

// JSONRenderer renders a Bundle as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(b *Bundle) ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// YAMLRenderer renders a Bundle as YAML.
type YAMLRenderer struct{}

func (r *YAMLRenderer) Render(b *Bundle) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarkdownRenderer renders a Bundle as a readable tab list with an embedded
// base64 JSON payload for lossless import.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(b *Bundle) ([]byte, error) {
	jsonBytes, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(jsonBytes)

	var sb strings.Builder
	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, encoded, dataSuffix)

	fmt.Fprintf(&sb, "# Tab sessions exported %s\n\n", formatMillis(b.ExportedAt))
	if len(b.Sessions) == 0 {
		sb.WriteString("_No sessions stored._\n")
		return []byte(sb.String()), nil
	}

	for _, s := range b.Sessions {
		fmt.Fprintf(&sb, "## %s\n\n", s.ID)
		fmt.Fprintf(&sb, "- Saved: %s\n", formatMillis(s.Timestamp))
		fmt.Fprintf(&sb, "- Tabs: %d in %d windows\n\n", s.TotalTabs, s.WindowCount)

		for wi, w := range s.Windows {
			fmt.Fprintf(&sb, "### Window %d\n\n", wi+1)
			sb.WriteString("| | Title | URL | Group |\n")
			sb.WriteString("|-|-------|-----|-------|\n")
			for _, t := range w.Tabs {
				pin := ""
				if t.Pinned {
					pin = "📌"
				}
				fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", pin, cell(t.Title), cell(t.URL), cell(groupLabel(w.GroupNames, s.GroupNames, t.GroupID)))
			}
			sb.WriteString("\n")
		}
	}
	return []byte(sb.String()), nil
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "unknown"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05 MST")
}

// cell escapes table separators.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func groupLabel(window, all map[string]string, id string) string {
	if id == "" || id == "ungrouped" {
		return ""
	}
	if n, ok := window[id]; ok {
		return n
	}
	if n, ok := all[id]; ok {
		return n
	}
	return id
}
