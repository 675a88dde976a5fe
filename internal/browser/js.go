// internal/browser/js.go
package browser

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsString renders a Go string as a safe JS string literal.
func jsString(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		// Marshalling a string cannot realistically fail; keep the
		// fallback inert rather than panicking inside page scripts.
		return `""`
	}
	return string(encoded)
}

// jsStringArray renders a Go string slice as a JS array literal.
func jsStringArray(items []string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = jsString(item)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
