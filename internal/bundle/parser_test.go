package bundle

import (
	"encoding/base64"
	"strings"
	"testing"
)

// Unit tests for parser error conditions.

func TestMarkdownParser_PlainMarkdownWithoutSentinel(t *testing.T) {
	p := &MarkdownParser{}

	plainMarkdown := `# Some Document

This is just a regular Markdown file with no tabdock sentinel.

- https://a.example
`
	_, err := p.Parse([]byte(plainMarkdown))
	if err == nil {
		t.Fatal("expected error for plain Markdown without sentinel, got nil")
	}
	if !strings.Contains(err.Error(), "not a valid tabdock bundle") {
		t.Errorf("expected error to contain 'not a valid tabdock bundle', got: %q", err.Error())
	}
}

func TestMarkdownParser_CorruptedBase64Payload(t *testing.T) {
	p := &MarkdownParser{}

	corrupted := versionSentinel + "\n" + dataPrefix + "!!!not-valid-base64!!!" + dataSuffix + "\n\n# Tab sessions\n"
	_, err := p.Parse([]byte(corrupted))
	if err == nil {
		t.Fatal("expected error for corrupted base64 payload, got nil")
	}
	if !strings.Contains(err.Error(), "corrupted base64 payload") {
		t.Errorf("expected error to mention corrupted base64, got: %q", err.Error())
	}
}

func TestMarkdownParser_MissingDataPayload(t *testing.T) {
	p := &MarkdownParser{}

	_, err := p.Parse([]byte(versionSentinel + "\n\n# Tab sessions\n"))
	if err == nil {
		t.Fatal("expected error when data payload is missing, got nil")
	}
	if !strings.Contains(err.Error(), "missing data payload") {
		t.Errorf("expected error to mention missing payload, got: %q", err.Error())
	}
}

func TestMarkdownParser_UnterminatedPayload(t *testing.T) {
	p := &MarkdownParser{}

	_, err := p.Parse([]byte(versionSentinel + "\n" + dataPrefix + "e30="))
	if err == nil || !strings.Contains(err.Error(), "malformed data payload") {
		t.Fatalf("expected malformed payload error, got %v", err)
	}
}

func TestMarkdownParser_ValidBase64ButInvalidJSON(t *testing.T) {
	p := &MarkdownParser{}

	badJSON := base64.StdEncoding.EncodeToString([]byte("this is not json {{{"))
	content := versionSentinel + "\n" + dataPrefix + badJSON + dataSuffix + "\n"

	_, err := p.Parse([]byte(content))
	if err == nil {
		t.Fatal("expected error for valid base64 but invalid embedded JSON, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse embedded JSON") {
		t.Errorf("expected embedded JSON error, got: %q", err.Error())
	}
}

func TestJSONParser_MalformedJSON(t *testing.T) {
	p := &JSONParser{}

	cases := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"truncated object", `{"sessions": [`},
		{"plain text", "not json at all"},
		{"array instead of object", `[1, 2, 3]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Parse([]byte(tc.input))
			if err == nil {
				t.Fatalf("expected error for malformed JSON input %q, got nil", tc.input)
			}
			if !strings.Contains(err.Error(), "failed to parse JSON bundle") {
				t.Errorf("expected descriptive error containing 'failed to parse JSON bundle', got: %q", err.Error())
			}
		})
	}
}
