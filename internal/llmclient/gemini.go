// internal/llmclient/gemini.go
package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/nvyx0/drifter-cli/internal/config"
)

// GeminiClient implements Client via the official Gemini SDK.
type GeminiClient struct {
	client *genai.Client
	logger *zap.Logger
	config config.LLMConfig
}

// NewGeminiClient initializes the SDK-backed client.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: cfg,
		logger: logger.Named("llm_client.gemini"),
	}, nil
}

// Complete sends the prompt to the Gemini API with retries. The generated
// text is re-wrapped as a {"text": ...} body so the shared extraction path
// applies to this provider too.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (json.RawMessage, error) {
	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.config.Temperature),
		MaxOutputTokens: int32(c.config.MaxTokens),
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	b.MaxInterval = 30 * time.Second

	var text string

	operation := func() error {
		startTime := time.Now()
		resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, genai.Text(prompt), genConfig)
		duration := time.Since(startTime)

		if err != nil {
			c.logger.Warn("Gemini request failed, retrying...", zap.Error(err))
			return fmt.Errorf("failed to generate content: %w", err)
		}

		out := resp.Text()
		if out == "" {
			return backoff.Permanent(fmt.Errorf("gemini API returned no text"))
		}

		c.logger.Debug("Completion request succeeded.",
			zap.Duration("duration", duration),
		)

		text = out
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to wrap gemini response: %w", err)
	}
	return body, nil
}
