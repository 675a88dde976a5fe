// internal/llmclient/composer.go
package llmclient

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nvyx0/drifter-cli/internal/llmutil"
)

// maxPostLength is the platform's character limit for a single post.
const maxPostLength = 280

// ReplyComposer turns a post into generated response text via the
// configured provider. It implements simulation.Composer.
type ReplyComposer struct {
	client  Client
	prompts *PromptBuilder
	logger  *zap.Logger
}

// NewReplyComposer wires a composer.
func NewReplyComposer(client Client, prompts *PromptBuilder, logger *zap.Logger) *ReplyComposer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplyComposer{
		client:  client,
		prompts: prompts,
		logger:  logger.Named("composer"),
	}
}

// Compose generates reply text for the given post.
func (c *ReplyComposer) Compose(ctx context.Context, postText string) (string, error) {
	raw, err := c.client.Complete(ctx, c.prompts.Build(postText))
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	text, ok := llmutil.ExtractText(raw)
	if !ok {
		c.logger.Warn("Provider response had an unexpected shape; using stringified body.",
			zap.String("body", llmutil.Truncate(text, 200)),
		)
	}

	reply := strings.TrimSpace(llmutil.ExtractStructuredReply(text))
	if reply == "" {
		return "", fmt.Errorf("provider returned no usable text")
	}
	if len(reply) > maxPostLength {
		reply = truncateAtWord(reply, maxPostLength)
	}
	return reply, nil
}

// truncateAtWord cuts text to at most max bytes, preferring a word
// boundary near the cut.
func truncateAtWord(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := text[:max]
	if idx := strings.LastIndexByte(cut, ' '); idx > max/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
