// Package bundle writes stored sessions to portable files and reads them
// back.
package bundle

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fakeyudi/tabdock/internal/session"
)

// Version is the current bundle layout.
const Version = 1

// Bundle is an exported slice of session history.
type Bundle struct {
	Version    int                `json:"version" yaml:"version"`
	ExportedAt int64              `json:"exportedAt" yaml:"exportedAt"` // epoch millis
	Sessions   []session.Snapshot `json:"sessions" yaml:"sessions"`
}

// Formats accepted by RendererFor and ParserFor.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "md"
)

func normalize(format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported format %q (supported: json, yaml, md)", format)
	}
}

// RendererFor returns the renderer for format.
func RendererFor(format string) (Renderer, error) {
	f, err := normalize(format)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatJSON:
		return &JSONRenderer{}, nil
	case FormatYAML:
		return &YAMLRenderer{}, nil
	default:
		return &MarkdownRenderer{}, nil
	}
}

// ParserFor picks a parser from the file extension. Unknown extensions are
// read as Markdown.
func ParserFor(path string) Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return &JSONParser{}
	case ".yaml", ".yml":
		return &YAMLParser{}
	default:
		return &MarkdownParser{}
	}
}
