// File: internal/orchestrator/orchestrator.go
// Package orchestrator runs one browsing session per stored account,
// rotating egress between sessions and keeping failures isolated.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/nvyx0/drifter-cli/internal/browser"
	"github.com/nvyx0/drifter-cli/internal/config"
	"github.com/nvyx0/drifter-cli/internal/humanoid"
	"github.com/nvyx0/drifter-cli/internal/identity"
	"github.com/nvyx0/drifter-cli/internal/netrotate"
	"github.com/nvyx0/drifter-cli/internal/simulation"
)

// ErrRotationFailed marks a session skipped because egress could not be
// rotated and the config forbids proceeding unrotated.
var ErrRotationFailed = errors.New("egress rotation failed")

// Orchestrator owns the full run: identities in, sessions out.
type Orchestrator struct {
	cfg      *config.Config
	source   *identity.Source
	store    *identity.Store
	rotator  *netrotate.Rotator
	browsers *browser.Manager
	composer simulation.Composer
	rng      *rand.Rand
	logger   *zap.Logger

	// runSessionFn is swappable in tests; production uses runSession.
	runSessionFn func(ctx context.Context, token string, log *zap.Logger) error
}

// New wires an orchestrator from its already-constructed parts.
func New(
	cfg *config.Config,
	source *identity.Source,
	store *identity.Store,
	rotator *netrotate.Rotator,
	browsers *browser.Manager,
	composer simulation.Composer,
	rng *rand.Rand,
	logger *zap.Logger,
) *Orchestrator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	o := &Orchestrator{
		cfg:      cfg,
		source:   source,
		store:    store,
		rotator:  rotator,
		browsers: browsers,
		composer: composer,
		rng:      rng,
		logger:   logger.Named("orchestrator"),
	}
	o.runSessionFn = o.runSession
	return o
}

// Run processes every loaded identity in order. One account's failure
// never stops the rest; cancellation does.
func (o *Orchestrator) Run(ctx context.Context) error {
	total := o.source.Count()
	if total == 0 {
		return fmt.Errorf("no auth tokens loaded")
	}
	o.logger.Info("Starting run.", zap.Int("accounts", total))

	failures := 0
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			o.logger.Info("Run cancelled.", zap.Int("completed", i))
			return err
		}

		if err := o.runIdentity(ctx, i); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			o.logger.Error("Account session failed.",
				zap.Int("index", i),
				zap.Error(err),
			)
		}
	}

	o.logger.Info("Run complete.",
		zap.Int("accounts", total),
		zap.Int("failures", failures),
	)
	if failures == total {
		return fmt.Errorf("all %d account sessions failed", total)
	}
	return nil
}

// runIdentity executes one account's session end to end. Panics from the
// page layer are contained here so they read as one failed account.
func (o *Orchestrator) runIdentity(ctx context.Context, index int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session panicked: %v", r)
		}
	}()

	token, err := o.source.TokenAt(index)
	if err != nil {
		return err
	}
	log := o.logger.With(
		zap.Int("index", index),
		zap.String("token", identity.MaskToken(token)),
	)

	if !o.rotator.Rotate(ctx) {
		if o.cfg.VPN.AbortOnFailure {
			return ErrRotationFailed
		}
		log.Warn("Proceeding without egress rotation.")
	}

	return o.runSessionFn(ctx, token, log)
}

// runSession launches the browser and drives the full browsing loop for
// one authenticated account.
func (o *Orchestrator) runSession(ctx context.Context, token string, log *zap.Logger) error {
	page, cleanup, err := o.browsers.NewSession(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	defer cleanup()

	if err := page.Navigate(ctx); err != nil {
		return err
	}

	handle, err := page.AccountHandle(ctx)
	if err != nil {
		return err
	}
	log = log.With(zap.String("handle", handle))

	if err := o.store.TouchSession(handle, token); err != nil {
		return err
	}

	loop := simulation.NewLoop(
		page,
		o.composer,
		humanoid.NewPacer(rand.New(rand.NewSource(o.rng.Int63()))),
		o.cfg.Simulation,
		rand.New(rand.NewSource(o.rng.Int63())),
		log,
	)
	loop.OnPerformed = func(action simulation.ActionKind) {
		if metric := metricName(action); metric != "" {
			if err := o.store.IncrementMetric(handle, metric); err != nil {
				log.Warn("Failed to persist metric.",
					zap.String("metric", metric),
					zap.Error(err),
				)
			}
		}
	}

	result, err := loop.Run(ctx)
	log.Info("Session finished.",
		zap.Int("actions", result.ActionsPerformed),
		zap.Int("items_considered", result.ItemsConsidered),
	)
	return err
}

// metricName maps a performed action onto its stored counter.
func metricName(action simulation.ActionKind) string {
	switch action {
	case simulation.ActionLike:
		return "likes"
	case simulation.ActionRepost:
		return "reposts"
	case simulation.ActionReply:
		return "replies"
	case simulation.ActionQuote:
		return "quotes"
	case simulation.ActionFollow:
		return "follows"
	case simulation.ActionLikeComment:
		return "comments"
	default:
		return ""
	}
}
