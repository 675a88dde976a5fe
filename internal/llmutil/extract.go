// internal/llmutil/extract.go
package llmutil

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	// Regex definitions use \x60 (hex representation) for backticks because Go raw strings cannot contain backticks.

	// codeBlockRegex extracts content wrapped in markdown fences, supporting language tags (json, text, etc.).
	codeBlockRegex = regexp.MustCompile("(?s)\x60\x60\x60[a-zA-Z]*\\s*(.*?)\\s*\x60\x60\x60")
)

// completionEnvelope covers the response shapes the supported providers are
// known to emit. Unknown fields are ignored on purpose.
type completionEnvelope struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	OutputText string `json:"output_text"`
	Text       string `json:"text"`
}

// contentPart is one element of a multi-part message content list.
type contentPart struct {
	Text string `json:"text"`
}

// ExtractText pulls the generated text out of a raw provider response body.
// It understands the chat-completions shape (choices[0].message.content),
// flat "output_text" / "text" fields, and falls back to stringifying the
// whole payload. The boolean reports whether a known shape was recognized.
func ExtractText(raw json.RawMessage) (string, bool) {
	var env completionEnvelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if len(env.Choices) > 0 && len(env.Choices[0].Message.Content) > 0 {
			if text, ok := decodeContent(env.Choices[0].Message.Content); ok {
				return text, true
			}
		}
		if env.OutputText != "" {
			return env.OutputText, true
		}
		if env.Text != "" {
			return env.Text, true
		}
	}

	// Unrecognized shape. A bare JSON string still counts as usable text;
	// anything else is stringified for the caller to log or discard.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(raw), false
}

// decodeContent handles the three forms message content arrives in: a plain
// string, a list of typed parts (joined by newlines), or an object (returned
// as compact JSON).
func decodeContent(content json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s, true
	}

	var parts []contentPart
	if err := json.Unmarshal(content, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		return strings.Join(texts, "\n"), true
	}

	var obj map[string]any
	if err := json.Unmarshal(content, &obj); err == nil {
		compact, err := json.Marshal(obj)
		if err == nil {
			return string(compact), true
		}
	}
	return "", false
}

// ExtractStructuredReply unwraps a generated reply that the model may have
// wrapped in markdown fences or a JSON structure. A JSON array yields its
// first string element, a JSON object yields its "reply" field; anything
// else is returned as-is with surrounding whitespace trimmed.
func ExtractStructuredReply(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		if matches := codeBlockRegex.FindStringSubmatch(cleaned); len(matches) > 1 {
			cleaned = strings.TrimSpace(matches[1])
		}
	}

	switch {
	case strings.HasPrefix(cleaned, "["):
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(cleaned), &arr); err == nil && len(arr) > 0 {
			if s := stringOrReply(arr[0]); s != "" {
				return s
			}
		}
	case strings.HasPrefix(cleaned, "{"):
		if s := stringOrReply(json.RawMessage(cleaned)); s != "" {
			return s
		}
	}
	return cleaned
}

// stringOrReply decodes a JSON value that is either a string or an object
// carrying a "reply" field. Returns "" when neither applies.
func stringOrReply(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Reply != "" {
		return strings.TrimSpace(obj.Reply)
	}
	return ""
}

// Truncate shortens a string to a maximum length for log output.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
