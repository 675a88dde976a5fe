// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nvyx0/drifter-cli/internal/config"
)

// NewClient constructs the configured provider client, wrapped with the
// request throttle.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	var (
		client Client
		err    error
	)

	switch cfg.Provider {
	case config.ProviderMistral:
		client, err = NewMistralClient(cfg, logger)
	case config.ProviderGemini:
		client, err = NewGeminiClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return Throttle(client, cfg.RequestsPerMinute), nil
}
