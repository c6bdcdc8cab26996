package bundle

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parser deserializes a bundle file back into structured data.
type Parser interface {
	Parse(data []byte) (*Bundle, error)
}

// JSONParser parses a JSON-encoded Bundle.
type JSONParser struct{}

func (p *JSONParser) Parse(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse JSON bundle: %w", err)
	}
	return checkVersion(&b)
}

// YAMLParser parses a YAML-encoded Bundle.
type YAMLParser struct{}

func (p *YAMLParser) Parse(data []byte) (*Bundle, error) {
	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse YAML bundle: %w", err)
	}
	return checkVersion(&b)
}

// MarkdownParser extracts the embedded payload of a rendered Markdown bundle.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(data []byte) (*Bundle, error) {
	content := string(data)

	if !strings.Contains(content, versionSentinel) {
		return nil, fmt.Errorf("not a valid tabdock bundle: missing version sentinel")
	}

	start := strings.Index(content, dataPrefix)
	if start == -1 {
		return nil, fmt.Errorf("not a valid tabdock bundle: missing data payload")
	}
	start += len(dataPrefix)
	end := strings.Index(content[start:], dataSuffix)
	if end == -1 {
		return nil, fmt.Errorf("not a valid tabdock bundle: malformed data payload")
	}

	jsonBytes, err := base64.StdEncoding.DecodeString(content[start : start+end])
	if err != nil {
		return nil, fmt.Errorf("not a valid tabdock bundle: corrupted base64 payload: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(jsonBytes, &b); err != nil {
		return nil, fmt.Errorf("not a valid tabdock bundle: failed to parse embedded JSON: %w", err)
	}
	return checkVersion(&b)
}

func checkVersion(b *Bundle) (*Bundle, error) {
	if b.Version != Version {
		return nil, fmt.Errorf("unsupported bundle version %d", b.Version)
	}
	return b, nil
}
