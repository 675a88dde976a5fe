// internal/llmclient/prompt.go
package llmclient

import (
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

// placeholder marks where the post text is substituted into the template.
const placeholder = "{tweet}"

// defaultTemplate is used when no prompt file is configured or readable.
const defaultTemplate = "You are a casual social media user scrolling your feed. " +
	"Write a short, natural-sounding reply to the following post. " +
	"Keep it under 280 characters, no hashtags, no emojis unless the post uses them.\n\n" +
	"Post: {tweet}"

// PromptBuilder renders the reply-generation prompt from a template file.
type PromptBuilder struct {
	template string
	logger   *zap.Logger
}

// NewPromptBuilder loads the template at path. A missing or unreadable
// file falls back to the built-in template rather than failing the run.
func NewPromptBuilder(path string, logger *zap.Logger) *PromptBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("prompt")

	template := defaultTemplate
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err == nil {
			if data, readErr := os.ReadFile(expanded); readErr == nil && len(strings.TrimSpace(string(data))) > 0 {
				template = string(data)
			} else if readErr != nil {
				logger.Warn("Prompt file unreadable; using built-in template.",
					zap.String("path", expanded),
					zap.Error(readErr),
				)
			}
		}
	}

	return &PromptBuilder{template: template, logger: logger}
}

// Build substitutes the post text into the template. Templates without
// the placeholder get the post text appended instead, so a hand-written
// template never silently drops the post.
func (p *PromptBuilder) Build(postText string) string {
	if strings.Contains(p.template, placeholder) {
		return strings.ReplaceAll(p.template, placeholder, postText)
	}
	return strings.TrimRight(p.template, "\n") + "\n\n" + postText
}
