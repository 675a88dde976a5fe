// internal/llmutil/extract_test.go
package llmutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	testCases := []struct {
		name         string
		raw          string
		expectedText string
		expectedOK   bool
	}{
		{
			name:         "Chat completions with string content",
			raw:          `{"choices":[{"message":{"content":"hello there"}}]}`,
			expectedText: "hello there",
			expectedOK:   true,
		},
		{
			name:         "Chat completions with content part list",
			raw:          `{"choices":[{"message":{"content":[{"type":"text","text":"part one"},{"type":"text","text":"part two"}]}}]}`,
			expectedText: "part one\npart two",
			expectedOK:   true,
		},
		{
			name:         "Content part list skips empty text entries",
			raw:          `{"choices":[{"message":{"content":[{"type":"image_url"},{"type":"text","text":"only this"}]}}]}`,
			expectedText: "only this",
			expectedOK:   true,
		},
		{
			name:         "Object content is stringified",
			raw:          `{"choices":[{"message":{"content":{"reply":"nested"}}}]}`,
			expectedText: `{"reply":"nested"}`,
			expectedOK:   true,
		},
		{
			name:         "Flat output_text field",
			raw:          `{"output_text":"direct output"}`,
			expectedText: "direct output",
			expectedOK:   true,
		},
		{
			name:         "Flat text field",
			raw:          `{"text":"plain text field"}`,
			expectedText: "plain text field",
			expectedOK:   true,
		},
		{
			name:         "choices takes priority over flat fields",
			raw:          `{"choices":[{"message":{"content":"from choices"}}],"text":"from text"}`,
			expectedText: "from choices",
			expectedOK:   true,
		},
		{
			name:         "Bare JSON string",
			raw:          `"just a string"`,
			expectedText: "just a string",
			expectedOK:   true,
		},
		{
			name:         "Unrecognized object falls back to stringification",
			raw:          `{"unexpected":"shape"}`,
			expectedText: `{"unexpected":"shape"}`,
			expectedOK:   false,
		},
		{
			name:         "Empty choices with no flat fields",
			raw:          `{"choices":[]}`,
			expectedText: `{"choices":[]}`,
			expectedOK:   false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text, ok := ExtractText(json.RawMessage(tc.raw))
			assert.Equal(t, tc.expectedOK, ok)
			assert.Equal(t, tc.expectedText, text)
		})
	}
}

func TestExtractStructuredReply(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Plain text passes through",
			input:    "  a plain reply  ",
			expected: "a plain reply",
		},
		{
			name:     "JSON object with reply field",
			input:    `{"reply": "the actual reply"}`,
			expected: "the actual reply",
		},
		{
			name:     "JSON array of strings takes the first",
			input:    `["first option", "second option"]`,
			expected: "first option",
		},
		{
			name:     "JSON array of reply objects",
			input:    `[{"reply": "from array object"}]`,
			expected: "from array object",
		},
		{
			name:     "Fenced JSON object",
			input:    "```json\n{\"reply\": \"fenced reply\"}\n```",
			expected: "fenced reply",
		},
		{
			name:     "Fenced plain text",
			input:    "```\njust some text\n```",
			expected: "just some text",
		},
		{
			name:     "Object without reply field returns the object text",
			input:    `{"other": "field"}`,
			expected: `{"other": "field"}`,
		},
		{
			name:     "Malformed JSON returns trimmed original",
			input:    `{"reply": broken`,
			expected: `{"reply": broken`,
		},
		{
			name:     "Empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractStructuredReply(tc.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 10))
	require.Equal(t, "abc...", Truncate("abcdefgh", 3))
	require.Equal(t, "", Truncate("anything", 0))
}
