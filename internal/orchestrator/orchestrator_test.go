// File: internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/nvyx0/drifter-cli/internal/config"
	"github.com/nvyx0/drifter-cli/internal/identity"
	"github.com/nvyx0/drifter-cli/internal/netrotate"
	"github.com/nvyx0/drifter-cli/internal/simulation"
)

func newTestOrchestrator(t *testing.T, tokens []string) *Orchestrator {
	t.Helper()
	dir := t.TempDir()

	tokensFile := filepath.Join(dir, "tokens.txt")
	content := ""
	for _, tok := range tokens {
		content += tok + "\n"
	}
	require.NoError(t, os.WriteFile(tokensFile, []byte(content), 0o600))

	logger := zaptest.NewLogger(t)
	source, err := identity.NewSource(tokensFile, logger)
	require.NoError(t, err)
	store, err := identity.NewStore(filepath.Join(dir, "accounts.json"), logger)
	require.NoError(t, err)

	cfg := config.NewDefaultConfig()
	rotator := netrotate.NewRotator(cfg.VPN, nil, logger)

	return New(cfg, source, store, rotator, nil, nil, nil, logger)
}

func sessionTokens(n int) []string {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("token-%02d-abcdefghijklmnop", i)
	}
	return tokens
}

func TestRun_NoTokensIsAnError(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	require.Error(t, o.Run(context.Background()))
}

func TestRun_OneFailureDoesNotStopTheRest(t *testing.T) {
	o := newTestOrchestrator(t, sessionTokens(3))

	var ran []string
	o.runSessionFn = func(_ context.Context, token string, _ *zap.Logger) error {
		ran = append(ran, token)
		if len(ran) == 2 {
			return fmt.Errorf("feed never loaded")
		}
		return nil
	}

	require.NoError(t, o.Run(context.Background()))
	assert.Len(t, ran, 3)
}

func TestRun_PanicIsContainedToOneAccount(t *testing.T) {
	o := newTestOrchestrator(t, sessionTokens(3))

	var ran int
	o.runSessionFn = func(_ context.Context, _ string, _ *zap.Logger) error {
		ran++
		if ran == 1 {
			panic("page layer exploded")
		}
		return nil
	}

	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, 3, ran)
}

func TestRun_AllFailuresSurface(t *testing.T) {
	o := newTestOrchestrator(t, sessionTokens(2))
	o.runSessionFn = func(_ context.Context, _ string, _ *zap.Logger) error {
		return fmt.Errorf("nothing works")
	}
	require.Error(t, o.Run(context.Background()))
}

func TestRun_CancellationStopsBetweenAccounts(t *testing.T) {
	o := newTestOrchestrator(t, sessionTokens(5))

	ctx, cancel := context.WithCancel(context.Background())
	var ran int
	o.runSessionFn = func(_ context.Context, _ string, _ *zap.Logger) error {
		ran++
		if ran == 2 {
			cancel()
		}
		return nil
	}

	err := o.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, ran)
}

func TestMetricName(t *testing.T) {
	assert.Equal(t, "likes", metricName(simulation.ActionLike))
	assert.Equal(t, "reposts", metricName(simulation.ActionRepost))
	assert.Equal(t, "replies", metricName(simulation.ActionReply))
	assert.Equal(t, "quotes", metricName(simulation.ActionQuote))
	assert.Equal(t, "follows", metricName(simulation.ActionFollow))
	assert.Equal(t, "comments", metricName(simulation.ActionLikeComment))
	assert.Equal(t, "", metricName(simulation.ActionNone))
}
