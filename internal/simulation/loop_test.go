// File: internal/simulation/loop_test.go
package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/nvyx0/drifter-cli/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakePage is a scripted Page implementation. Feed batches are served in
// order, with the last batch repeated once exhausted.
type fakePage struct {
	batches  [][]FeedItem
	batchAt  int
	state    ViewState
	calls    []string
	likeErr  error
	replyErr error
	cancelOn string
	cancelFn context.CancelFunc
	// itemsFailures fails the first N VisibleFeedItems calls.
	itemsFailures int
	// openNoDetail leaves the view on the feed for the first N opens.
	openNoDetail int
	// detailViews forces DetectViewState to report the detail view for
	// the next N calls regardless of navigation.
	detailViews int
}

func (p *fakePage) record(ctx context.Context, name string) error {
	p.calls = append(p.calls, name)
	if p.cancelOn == name && p.cancelFn != nil {
		p.cancelFn()
	}
	return ctx.Err()
}

func (p *fakePage) Navigate(ctx context.Context) error {
	p.state = ViewFeed
	return p.record(ctx, "navigate")
}
func (p *fakePage) Reload(ctx context.Context) error { return p.record(ctx, "reload") }
func (p *fakePage) Back(ctx context.Context) error {
	p.state = ViewFeed
	return p.record(ctx, "back")
}
func (p *fakePage) DetectViewState(ctx context.Context) (ViewState, error) {
	if p.detailViews > 0 {
		p.detailViews--
		return ViewDetail, ctx.Err()
	}
	return p.state, ctx.Err()
}
func (p *fakePage) VisibleFeedItems(ctx context.Context) ([]FeedItem, error) {
	if err := p.record(ctx, "items"); err != nil {
		return nil, err
	}
	if p.itemsFailures > 0 {
		p.itemsFailures--
		return nil, fmt.Errorf("element not found: timeout")
	}
	if len(p.batches) == 0 {
		return nil, nil
	}
	batch := p.batches[p.batchAt]
	if p.batchAt < len(p.batches)-1 {
		p.batchAt++
	}
	return batch, nil
}
func (p *fakePage) OpenItem(ctx context.Context, _ FeedItem) error {
	if p.openNoDetail > 0 {
		p.openNoDetail--
	} else {
		p.state = ViewDetail
	}
	return p.record(ctx, "open")
}
func (p *fakePage) Scroll(ctx context.Context) error       { return p.record(ctx, "scroll") }
func (p *fakePage) ScrollThread(ctx context.Context) error { return p.record(ctx, "thread_scroll") }
func (p *fakePage) Like(ctx context.Context, _ FeedItem) error {
	if err := p.record(ctx, "like"); err != nil {
		return err
	}
	return p.likeErr
}
func (p *fakePage) Repost(ctx context.Context, _ FeedItem) error { return p.record(ctx, "repost") }
func (p *fakePage) Reply(ctx context.Context, _ string) error {
	if err := p.record(ctx, "reply"); err != nil {
		return err
	}
	return p.replyErr
}
func (p *fakePage) Quote(ctx context.Context, _ FeedItem, _ string) error {
	return p.record(ctx, "quote")
}
func (p *fakePage) FollowFromSidebar(ctx context.Context) error { return p.record(ctx, "follow") }
func (p *fakePage) LikeVisibleComment(ctx context.Context) error {
	return p.record(ctx, "like_comment")
}
func (p *fakePage) FollowCommentAuthor(ctx context.Context) error {
	return p.record(ctx, "comment_follow")
}
func (p *fakePage) AccountHandle(ctx context.Context) (string, error) { return "@tester", ctx.Err() }

func (p *fakePage) count(name string) int {
	n := 0
	for _, c := range p.calls {
		if c == name {
			n++
		}
	}
	return n
}

// fakeComposer returns canned text.
type fakeComposer struct {
	text string
	err  error
	n    int
}

func (c *fakeComposer) Compose(_ context.Context, _ string) (string, error) {
	c.n++
	return c.text, c.err
}

// instantPacer waits for nothing but still honors cancellation.
type instantPacer struct{}

func (instantPacer) ReadingPause(ctx context.Context, _ int) error { return ctx.Err() }
func (instantPacer) ScrollPause(ctx context.Context) error         { return ctx.Err() }
func (instantPacer) Cooldown(ctx context.Context, _, _ time.Duration) error {
	return ctx.Err()
}

func testSimConfig(weights config.ActionWeights) config.SimulationConfig {
	return config.SimulationConfig{
		MaxActions:            2,
		MinItemLength:         20,
		EmptyScrollThreshold:  5,
		MaxThreadInteractions: 3,
		ThreadScrollsMin:      3,
		ThreadScrollsMax:      3,
		CooldownMin:           time.Millisecond,
		CooldownMax:           2 * time.Millisecond,
		Probabilities:         weights,
	}
}

func longItem(i int) FeedItem {
	return FeedItem{
		Ref:    fmt.Sprintf("ref-%d", i),
		Text:   fmt.Sprintf("this is a sufficiently long test post number %d", i),
		Author: fmt.Sprintf("@author%d", i),
	}
}

func newTestLoop(t *testing.T, page Page, composer Composer, cfg config.SimulationConfig) *Loop {
	t.Helper()
	return NewLoop(page, composer, instantPacer{}, cfg, rand.New(rand.NewSource(42)), zaptest.NewLogger(t))
}

func TestLoop_LikesUntilBudgetSpent(t *testing.T) {
	page := &fakePage{batches: [][]FeedItem{{longItem(1), longItem(2), longItem(3)}}}
	cfg := testSimConfig(config.ActionWeights{Like: 1.0})
	cfg.MaxActions = 2

	var performed []ActionKind
	loop := newTestLoop(t, page, &fakeComposer{text: "unused"}, cfg)
	loop.OnPerformed = func(a ActionKind) { performed = append(performed, a) }

	result, err := loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.ActionsPerformed)
	assert.Equal(t, 2, result.ByAction[ActionLike])
	assert.Equal(t, 2, page.count("like"))
	// Every interaction goes through the post's detail view.
	assert.Equal(t, 2, page.count("open"))
	assert.GreaterOrEqual(t, page.count("back"), 2)
	assert.Equal(t, []ActionKind{ActionLike, ActionLike}, performed)
}

func TestLoop_SeenItemsAreNotRevisited(t *testing.T) {
	// One interactable item, served forever. After it is consumed the
	// feed reads as stale; the fifth empty pass scrolls and then
	// triggers a refresh.
	page := &fakePage{batches: [][]FeedItem{{longItem(1)}}}
	cfg := testSimConfig(config.ActionWeights{Like: 1.0})
	cfg.MaxActions = 3

	loop := newTestLoop(t, page, &fakeComposer{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	page.cancelFn = cancel
	page.cancelOn = "reload"

	result, err := loop.Run(ctx)
	require.Error(t, err)

	assert.Equal(t, 1, result.ActionsPerformed)
	assert.Equal(t, 1, page.count("like"))
	assert.Equal(t, 1, page.count("reload"))
	// Threshold is 5: each empty pass scrolls, the fifth also refreshes.
	assert.Equal(t, 5, page.count("scroll"))
}

func TestLoop_ShortItemsAreIgnored(t *testing.T) {
	short := FeedItem{Ref: "s", Text: "too short"}
	page := &fakePage{batches: [][]FeedItem{{short, longItem(1)}}}
	cfg := testSimConfig(config.ActionWeights{Like: 1.0})
	cfg.MaxActions = 1

	loop := newTestLoop(t, page, &fakeComposer{}, cfg)
	result, err := loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ItemsConsidered)
	assert.Equal(t, 1, result.ByAction[ActionLike])
}

func TestLoop_ZeroWeightsNeverInteract(t *testing.T) {
	page := &fakePage{batches: [][]FeedItem{{longItem(1), longItem(2)}}}
	cfg := testSimConfig(config.ActionWeights{})
	cfg.MaxActions = 1

	loop := newTestLoop(t, page, &fakeComposer{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	page.cancelFn = cancel
	page.cancelOn = "reload"

	result, err := loop.Run(ctx)
	require.Error(t, err)
	assert.Zero(t, result.ActionsPerformed)
	assert.Equal(t, 2, result.ItemsConsidered)
	// The no-action remainder still reads the post's detail view.
	assert.Equal(t, 2, page.count("open"))
}

func TestLoop_FailedInteractionDoesNotSpendBudget(t *testing.T) {
	page := &fakePage{
		batches: [][]FeedItem{{longItem(1), longItem(2)}},
		likeErr: fmt.Errorf("button never appeared"),
	}
	cfg := testSimConfig(config.ActionWeights{Like: 1.0})
	cfg.MaxActions = 1

	loop := newTestLoop(t, page, &fakeComposer{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	page.cancelFn = cancel
	page.cancelOn = "reload"

	result, err := loop.Run(ctx)
	require.Error(t, err)

	assert.Zero(t, result.ActionsPerformed)
	// Both items were attempted exactly once despite the failures.
	assert.Equal(t, 2, page.count("like"))
}

func TestLoop_UnconfirmedOpenForfeitsItem(t *testing.T) {
	// The first open never lands on the detail view; the item is
	// forfeited without an interaction and the next item gets its turn.
	page := &fakePage{
		batches:      [][]FeedItem{{longItem(1), longItem(2)}},
		openNoDetail: 1,
	}
	cfg := testSimConfig(config.ActionWeights{Like: 1.0})
	cfg.MaxActions = 1

	loop := newTestLoop(t, page, &fakeComposer{}, cfg)
	result, err := loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ActionsPerformed)
	assert.Equal(t, 2, result.ItemsConsidered)
	assert.Equal(t, 2, page.count("open"))
	assert.Equal(t, 1, page.count("like"))
}

func TestLoop_TransientFeedReadFailureContinues(t *testing.T) {
	page := &fakePage{
		batches:       [][]FeedItem{{longItem(1)}},
		itemsFailures: 1,
	}
	cfg := testSimConfig(config.ActionWeights{Like: 1.0})
	cfg.MaxActions = 1

	loop := newTestLoop(t, page, &fakeComposer{}, cfg)
	result, err := loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ActionsPerformed)
	// The failed read was retried on the next pass.
	assert.Equal(t, 2, page.count("items"))
}

func TestLoop_ReplyFlow(t *testing.T) {
	page := &fakePage{batches: [][]FeedItem{{longItem(1)}}}
	cfg := testSimConfig(config.ActionWeights{Reply: 1.0, LikeComment: 1.0})
	cfg.MaxActions = 1

	composer := &fakeComposer{text: "thoughtful response"}
	loop := newTestLoop(t, page, composer, cfg)

	result, err := loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ByAction[ActionReply])
	assert.Equal(t, 1, composer.n)
	assert.Equal(t, 1, page.count("open"))
	assert.Equal(t, 1, page.count("reply"))
	assert.Equal(t, cfg.ThreadScrollsMin, page.count("thread_scroll"))
	// like_comment=1.0 likes a comment on every thread scroll.
	assert.Equal(t, cfg.MaxThreadInteractions, result.ByAction[ActionLikeComment])
	assert.GreaterOrEqual(t, page.count("back"), 1)
}

func TestLoop_ThreadFollowsCommentAuthorsUpToCap(t *testing.T) {
	// Like always wins the main draw; the follow weight drives the
	// in-thread hover follows, capped by max_thread_interactions.
	page := &fakePage{batches: [][]FeedItem{{longItem(1)}}}
	cfg := testSimConfig(config.ActionWeights{Like: 1.0, Follow: 1.0})
	cfg.MaxActions = 1
	cfg.MaxThreadInteractions = 2

	loop := newTestLoop(t, page, &fakeComposer{}, cfg)
	result, err := loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ByAction[ActionLike])
	assert.Equal(t, 2, result.ByAction[ActionFollow])
	assert.Equal(t, 2, page.count("comment_follow"))
	assert.Equal(t, 3, page.count("thread_scroll"))
}

func TestLoop_EmptyCompletionDegradesToSkipped(t *testing.T) {
	page := &fakePage{}
	loop := newTestLoop(t, page, &fakeComposer{text: ""}, testSimConfig(config.ActionWeights{Reply: 1.0}))

	outcome, err := loop.perform(context.Background(), ActionReply, longItem(1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Zero(t, page.count("reply"))

	outcome, err = loop.perform(context.Background(), ActionQuote, longItem(1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Zero(t, page.count("quote"))
}

func TestLoop_ComposerErrorFailsInteraction(t *testing.T) {
	page := &fakePage{}
	loop := newTestLoop(t, page, &fakeComposer{err: fmt.Errorf("provider down")}, testSimConfig(config.ActionWeights{Quote: 1.0}))

	outcome, err := loop.perform(context.Background(), ActionQuote, longItem(1))
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Zero(t, page.count("quote"))
}

func TestLoop_ComposerFailureSkipsInteraction(t *testing.T) {
	page := &fakePage{batches: [][]FeedItem{{longItem(1)}}}
	cfg := testSimConfig(config.ActionWeights{Quote: 1.0})
	cfg.MaxActions = 1

	loop := newTestLoop(t, page, &fakeComposer{err: fmt.Errorf("provider down")}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	page.cancelFn = cancel
	page.cancelOn = "reload"

	result, err := loop.Run(ctx)
	require.Error(t, err)
	assert.Zero(t, result.ActionsPerformed)
	assert.Zero(t, page.count("quote"))
}

func TestLoop_CancelledContextStopsPromptly(t *testing.T) {
	page := &fakePage{batches: [][]FeedItem{{longItem(1)}}}
	cfg := testSimConfig(config.ActionWeights{Like: 1.0})

	loop := newTestLoop(t, page, &fakeComposer{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loop.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoop_DetailViewIsDrainedBackToFeed(t *testing.T) {
	page := &fakePage{batches: [][]FeedItem{{longItem(1)}}}
	// Two forced detail reads: one for the state check, one for the
	// recovery's own look before it backs out.
	page.detailViews = 2
	cfg := testSimConfig(config.ActionWeights{Like: 1.0})
	cfg.MaxActions = 1

	loop := newTestLoop(t, page, &fakeComposer{}, cfg)

	result, err := loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ActionsPerformed)
	assert.GreaterOrEqual(t, page.count("back"), 1)
}
