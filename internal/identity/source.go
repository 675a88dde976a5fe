// File: internal/identity/source.go
// Package identity loads account credentials and tracks per-account
// session metadata.
package identity

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

// Source reads auth tokens from a flat file, one token per line. Blank
// lines and lines starting with '#' are skipped.
type Source struct {
	path   string
	tokens []string
	logger *zap.Logger
}

// NewSource loads the token file at path. The path may start with '~'.
func NewSource(path string, logger *zap.Logger) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand token file path %q: %w", path, err)
	}

	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	logger.Info("Loaded auth tokens.",
		zap.String("path", expanded),
		zap.Int("count", len(tokens)),
	)
	return &Source{path: expanded, tokens: tokens, logger: logger.Named("identity")}, nil
}

// Count returns the number of loaded tokens.
func (s *Source) Count() int {
	return len(s.tokens)
}

// TokenAt returns the token at the given zero-based index.
func (s *Source) TokenAt(index int) (string, error) {
	if index < 0 || index >= len(s.tokens) {
		return "", fmt.Errorf("token index %d out of range (have %d)", index, len(s.tokens))
	}
	return s.tokens[index], nil
}

// MaskToken renders a token safe for logging: first and last four
// characters with the middle elided. Short tokens are fully redacted.
func MaskToken(token string) string {
	if len(token) < 12 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
