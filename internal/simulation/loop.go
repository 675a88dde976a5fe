// File: internal/simulation/loop.go
package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/nvyx0/drifter-cli/internal/config"
)

// Result summarizes one session.
type Result struct {
	ActionsPerformed int
	ItemsConsidered  int
	ByAction         map[ActionKind]int
}

// Loop runs one account's browsing session: scroll the feed, open posts,
// skim their threads, and occasionally interact, until the action budget
// is spent or the context is cancelled.
type Loop struct {
	page     Page
	composer Composer
	pacer    Pacing
	policy   *Policy
	cfg      config.SimulationConfig
	seen     *SeenSet
	rng      *rand.Rand
	logger   *zap.Logger

	// OnPerformed is called after each completed interaction, including
	// in-thread comment likes and follows. Used for metrics persistence.
	OnPerformed func(ActionKind)
}

// NewLoop wires a session loop. A nil rng gets a time-seeded one.
func NewLoop(page Page, composer Composer, pacer Pacing, cfg config.SimulationConfig, rng *rand.Rand, logger *zap.Logger) *Loop {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		page:     page,
		composer: composer,
		pacer:    pacer,
		policy:   NewPolicy(cfg.Probabilities),
		cfg:      cfg,
		seen:     NewSeenSet(),
		rng:      rng,
		logger:   logger.Named("simulation"),
	}
}

// Run executes the session. The returned Result is valid even when the
// error is non-nil; cancellation mid-session is reported as the context's
// error with everything performed so far counted. Individual page
// failures do not end the session; only cancellation and an unrecoverable
// navigation do.
func (l *Loop) Run(ctx context.Context) (*Result, error) {
	result := &Result{ByAction: make(map[ActionKind]int)}

	if err := l.page.Navigate(ctx); err != nil {
		return result, fmt.Errorf("failed to open timeline: %w", err)
	}

	emptyScrolls := 0
	for result.ActionsPerformed < l.cfg.MaxActions {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		state, err := l.page.DetectViewState(ctx)
		if err != nil {
			if cerr := l.degrade(ctx, "read view state", err); cerr != nil {
				return result, cerr
			}
			if err := l.pacer.ScrollPause(ctx); err != nil {
				return result, err
			}
			continue
		}

		switch state {
		case ViewDetail:
			// A stray detail view, e.g. from a misfired click. Head home.
			l.returnToFeed(ctx)
			continue
		case ViewUnknown:
			l.logger.Debug("Unrecognized page; navigating home.")
			if err := l.page.Navigate(ctx); err != nil {
				return result, fmt.Errorf("failed to recover to timeline: %w", err)
			}
			continue
		}

		items, err := l.page.VisibleFeedItems(ctx)
		if err != nil {
			if cerr := l.degrade(ctx, "collect feed items", err); cerr != nil {
				return result, cerr
			}
			if err := l.pacer.ScrollPause(ctx); err != nil {
				return result, err
			}
			continue
		}

		fresh := l.freshItems(items)
		if len(fresh) == 0 {
			if err := l.page.Scroll(ctx); err != nil {
				if cerr := l.degrade(ctx, "scroll", err); cerr != nil {
					return result, cerr
				}
			}
			emptyScrolls++
			if emptyScrolls >= l.cfg.EmptyScrollThreshold {
				l.logger.Debug("Feed went stale; refreshing.",
					zap.Int("empty_scrolls", emptyScrolls),
				)
				if err := l.page.Reload(ctx); err != nil {
					if cerr := l.degrade(ctx, "refresh timeline", err); cerr != nil {
						return result, cerr
					}
				}
				emptyScrolls = 0
			}
			if err := l.pacer.ScrollPause(ctx); err != nil {
				return result, err
			}
			continue
		}
		emptyScrolls = 0

		item := fresh[0]
		// Mark before interacting: a post gets at most one attempt even
		// if opening it fails.
		l.seen.Mark(item.Text)
		result.ItemsConsidered++

		if err := l.pacer.ReadingPause(ctx, len(item.Text)); err != nil {
			return result, err
		}

		outcome := l.processItem(ctx, item, result)

		// Whatever happened in there, try to get back to the timeline.
		l.returnToFeed(ctx)
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if outcome != OutcomePerformed {
			// A short breather and a nudge so the next pass does not
			// reread the same viewport.
			if err := l.pacer.ScrollPause(ctx); err != nil {
				return result, err
			}
			if err := l.page.Scroll(ctx); err != nil {
				if cerr := l.degrade(ctx, "scroll", err); cerr != nil {
					return result, cerr
				}
			}
			continue
		}

		if err := l.pacer.Cooldown(ctx, l.cfg.CooldownMin, l.cfg.CooldownMax); err != nil {
			return result, err
		}
	}

	return result, nil
}

// degrade logs a failed page sub-step. Cancellation is the only thing
// that still ends the session; everything else is retried on a later
// iteration.
func (l *Loop) degrade(ctx context.Context, step string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	l.logger.Warn("Page operation failed; continuing.",
		zap.String("step", step),
		zap.Error(err),
	)
	return nil
}

// freshItems filters out posts that are too short to be worth reading
// and posts this session has already considered.
func (l *Loop) freshItems(items []FeedItem) []FeedItem {
	fresh := make([]FeedItem, 0, len(items))
	for _, item := range items {
		if len(item.Text) < l.cfg.MinItemLength {
			continue
		}
		if l.seen.Contains(item.Text) {
			continue
		}
		fresh = append(fresh, item)
	}
	return fresh
}

// processItem opens the post, confirms the detail view actually loaded,
// skims its thread, then rolls for an action and performs it in place.
// The item is already marked seen, so any failure here simply forfeits
// this post.
func (l *Loop) processItem(ctx context.Context, item FeedItem, result *Result) Outcome {
	if err := l.page.OpenItem(ctx, item); err != nil {
		if ctx.Err() != nil {
			return OutcomeFailed
		}
		l.logger.Warn("Could not open post; forfeiting it.",
			zap.String("author", item.Author),
			zap.Error(err),
		)
		return OutcomeFailed
	}

	state, err := l.page.DetectViewState(ctx)
	if err != nil || state != ViewDetail {
		l.logger.Warn("Post never reached its detail view; forfeiting it.",
			zap.Stringer("state", state),
			zap.Error(err),
		)
		return OutcomeFailed
	}

	l.browseThread(ctx, result)
	if ctx.Err() != nil {
		return OutcomeFailed
	}

	action := l.policy.Choose(l.rng.Float64())
	if action == ActionNone {
		return OutcomeSkipped
	}

	outcome, err := l.perform(ctx, action, item)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeFailed
		}
		l.logger.Warn("Interaction failed; moving on.",
			zap.String("action", string(action)),
			zap.String("author", item.Author),
			zap.Error(err),
		)
		return OutcomeFailed
	}
	if outcome != OutcomePerformed {
		l.logger.Debug("Interaction not performed.",
			zap.String("action", string(action)),
			zap.Stringer("outcome", outcome),
		)
		return outcome
	}

	result.ActionsPerformed++
	result.ByAction[action]++
	l.notify(action)
	l.logger.Info("Interaction performed.",
		zap.String("action", string(action)),
		zap.String("author", item.Author),
		zap.Int("session_total", result.ActionsPerformed),
	)
	return OutcomePerformed
}

// perform executes one chosen interaction against the open detail view.
// A completion call that yields no text degrades the action to skipped
// rather than failed.
func (l *Loop) perform(ctx context.Context, action ActionKind, item FeedItem) (Outcome, error) {
	switch action {
	case ActionLike:
		if err := l.page.Like(ctx, item); err != nil {
			return OutcomeFailed, err
		}
	case ActionRepost:
		if err := l.page.Repost(ctx, item); err != nil {
			return OutcomeFailed, err
		}
	case ActionReply:
		text, ok, err := l.composeText(ctx, item)
		if err != nil {
			return OutcomeFailed, err
		}
		if !ok {
			return OutcomeSkipped, nil
		}
		if err := l.page.Reply(ctx, text); err != nil {
			return OutcomeFailed, err
		}
	case ActionQuote:
		text, ok, err := l.composeText(ctx, item)
		if err != nil {
			return OutcomeFailed, err
		}
		if !ok {
			return OutcomeSkipped, nil
		}
		if err := l.page.Quote(ctx, item, text); err != nil {
			return OutcomeFailed, err
		}
	case ActionFollow:
		if err := l.page.FollowFromSidebar(ctx); err != nil {
			return OutcomeFailed, err
		}
	default:
		return OutcomeFailed, fmt.Errorf("unhandled action %q", action)
	}
	return OutcomePerformed, nil
}

// browseThread skims the open thread: a few comment scrolls with the
// occasional like or follow along the way, capped per thread. Thread
// interactions do not count against the session action budget.
func (l *Loop) browseThread(ctx context.Context, result *Result) {
	interactions := 0
	scrolls := l.cfg.ThreadScrollsMin
	if span := l.cfg.ThreadScrollsMax - l.cfg.ThreadScrollsMin; span > 0 {
		scrolls += l.rng.Intn(span + 1)
	}

	for i := 0; i < scrolls; i++ {
		if ctx.Err() != nil {
			return
		}
		if err := l.page.ScrollThread(ctx); err != nil {
			l.logger.Debug("Thread scroll failed.", zap.Error(err))
		}
		if err := l.pacer.ScrollPause(ctx); err != nil {
			return
		}
		if interactions >= l.cfg.MaxThreadInteractions {
			continue
		}

		if l.policy.ShouldLikeComment(l.rng.Float64()) {
			if err := l.page.LikeVisibleComment(ctx); err != nil {
				l.logger.Debug("Comment like failed.", zap.Error(err))
			} else {
				interactions++
				result.ByAction[ActionLikeComment]++
				l.notify(ActionLikeComment)
				continue
			}
		}

		if l.policy.ShouldFollowCommentAuthor(l.rng.Float64()) {
			if err := l.page.FollowCommentAuthor(ctx); err != nil {
				l.logger.Debug("Comment author follow failed.", zap.Error(err))
			} else {
				interactions++
				result.ByAction[ActionFollow]++
				l.notify(ActionFollow)
			}
		}
	}
}

// returnToFeed gets the page back to the timeline no matter where the
// previous interaction left it.
func (l *Loop) returnToFeed(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	state, err := l.page.DetectViewState(ctx)
	if err == nil && state == ViewFeed {
		return
	}
	if err := l.page.Back(ctx); err != nil {
		l.logger.Debug("History back failed.", zap.Error(err))
	}
	state, err = l.page.DetectViewState(ctx)
	if err == nil && state == ViewFeed {
		return
	}
	if err := l.page.Navigate(ctx); err != nil {
		l.logger.Debug("Home navigation failed.", zap.Error(err))
	}
}

// composeText asks the composer for reply or quote text. No text without
// an error means the completion had nothing usable.
func (l *Loop) composeText(ctx context.Context, item FeedItem) (string, bool, error) {
	text, err := l.composer.Compose(ctx, item.Text)
	if err != nil {
		return "", false, fmt.Errorf("failed to compose text: %w", err)
	}
	if text == "" {
		return "", false, nil
	}
	return text, true, nil
}

func (l *Loop) notify(action ActionKind) {
	if l.OnPerformed != nil {
		l.OnPerformed(action)
	}
}
