// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nvyx0/drifter-cli/internal/config"
	"github.com/nvyx0/drifter-cli/internal/humanoid"
	"github.com/nvyx0/drifter-cli/internal/identity"
)

// Manager launches one browser per account session. Each session gets a
// fresh process with its own randomized fingerprint, so sessions never
// share cookies, cache, or window geometry.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
	rng    *rand.Rand
}

// NewManager creates a browser manager. A nil rng gets a time-seeded one.
func NewManager(cfg config.BrowserConfig, rng *rand.Rand, logger *zap.Logger) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		logger: logger.Named("browser_manager"),
		rng:    rng,
	}
}

// NewSession launches a browser, installs the auth cookie, and returns
// the driveable page. The returned cleanup tears the whole process down
// and must be called even when an error occurred mid-session.
func (m *Manager) NewSession(ctx context.Context, token string) (*FeedPage, func(), error) {
	sessionID := uuid.New().String()
	log := m.logger.With(
		zap.String("session_id", sessionID),
		zap.String("token", identity.MaskToken(token)),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOptions(m.cfg, m.rng)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	cleanup := func() {
		browserCancel()
		allocCancel()
	}

	// Starting with an empty task list forces the browser process to
	// launch now, so startup failures surface here and not mid-feed.
	if err := chromedp.Run(browserCtx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	if err := setAuthCookie(browserCtx, token); err != nil {
		cleanup()
		return nil, nil, err
	}

	log.Info("Browser session started.")
	pacer := humanoid.NewPacer(rand.New(rand.NewSource(m.rng.Int63())))
	page := newFeedPage(browserCtx, m.cfg, pacer, rand.New(rand.NewSource(m.rng.Int63())), log)
	return page, cleanup, nil
}
