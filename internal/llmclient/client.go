// internal/llmclient/client.go
// Package llmclient provides text-generation clients used to compose
// replies and quote posts.
package llmclient

import (
	"context"
	"encoding/json"

	"golang.org/x/time/rate"
)

// Client generates a completion for a prompt. Implementations return the
// provider's raw response body; callers recover the text with
// llmutil.ExtractText so one extraction path serves every provider.
type Client interface {
	Complete(ctx context.Context, prompt string) (json.RawMessage, error)
}

// throttledClient caps outbound completion calls with a token bucket.
type throttledClient struct {
	inner   Client
	limiter *rate.Limiter
}

// Throttle wraps a client so calls never exceed requestsPerMinute. A
// non-positive rate disables throttling.
func Throttle(inner Client, requestsPerMinute float64) Client {
	if requestsPerMinute <= 0 {
		return inner
	}
	return &throttledClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), 1),
	}
}

func (t *throttledClient) Complete(ctx context.Context, prompt string) (json.RawMessage, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Complete(ctx, prompt)
}
