// File: internal/simulation/types.go
// Package simulation contains the browsing state machine: it decides what
// a session looks at, what it interacts with, and when it stops.
package simulation

import (
	"context"
	"time"
)

// ViewState classifies where the page currently is.
type ViewState int

const (
	// ViewUnknown means the page is somewhere we do not recognize.
	ViewUnknown ViewState = iota
	// ViewFeed is the main timeline.
	ViewFeed
	// ViewDetail is a single post opened with its thread.
	ViewDetail
)

func (v ViewState) String() string {
	switch v {
	case ViewFeed:
		return "feed"
	case ViewDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// ActionKind names one interaction type.
type ActionKind string

const (
	ActionNone        ActionKind = "none"
	ActionLike        ActionKind = "like"
	ActionRepost      ActionKind = "repost"
	ActionReply       ActionKind = "reply"
	ActionQuote       ActionKind = "quote"
	ActionFollow      ActionKind = "follow"
	ActionLikeComment ActionKind = "like_comment"
)

// FeedItem is one post as surfaced by the page layer.
type FeedItem struct {
	// Ref is an opaque handle the page layer uses to find the post again.
	Ref string
	// Text is the visible post text.
	Text string
	// Author is the post author's handle, when it could be read.
	Author string
}

// Outcome reports how one item's processing ended. Only Performed spends
// the session's action budget.
type Outcome int

const (
	// OutcomePerformed means the interaction visibly completed.
	OutcomePerformed Outcome = iota
	// OutcomeSkipped means the loop decided not to act on this item, or
	// the completion call produced no usable text.
	OutcomeSkipped
	// OutcomeFailed means the interaction was attempted but did not land.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePerformed:
		return "performed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Page is the surface the loop drives. The browser package provides the
// production implementation; tests use a scripted fake.
type Page interface {
	// Navigate loads the home timeline.
	Navigate(ctx context.Context) error
	// Reload refreshes the current page.
	Reload(ctx context.Context) error
	// Back returns to the previous page.
	Back(ctx context.Context) error
	// DetectViewState classifies the current URL.
	DetectViewState(ctx context.Context) (ViewState, error)
	// VisibleFeedItems lists the posts currently in the viewport.
	VisibleFeedItems(ctx context.Context) ([]FeedItem, error)
	// OpenItem clicks through to the item's detail view.
	OpenItem(ctx context.Context, item FeedItem) error
	// Scroll advances the timeline by roughly one viewport.
	Scroll(ctx context.Context) error
	// ScrollThread advances the comments of the open detail view.
	ScrollThread(ctx context.Context) error

	Like(ctx context.Context, item FeedItem) error
	Repost(ctx context.Context, item FeedItem) error
	// Reply posts text under the currently open detail view.
	Reply(ctx context.Context, text string) error
	// Quote reposts the item with the given commentary.
	Quote(ctx context.Context, item FeedItem, text string) error
	// FollowFromSidebar follows one suggested account, if any is shown.
	FollowFromSidebar(ctx context.Context) error
	// LikeVisibleComment likes one comment in the open detail view.
	LikeVisibleComment(ctx context.Context) error
	// FollowCommentAuthor follows the author of a visible comment in the
	// open detail view, via the profile hover card.
	FollowCommentAuthor(ctx context.Context) error
	// AccountHandle reads the logged-in account's handle.
	AccountHandle(ctx context.Context) (string, error)
}

// Composer produces the text for replies and quote posts.
type Composer interface {
	Compose(ctx context.Context, postText string) (string, error)
}

// Pacing covers the delays the loop inserts between page operations.
type Pacing interface {
	ReadingPause(ctx context.Context, textLen int) error
	ScrollPause(ctx context.Context) error
	Cooldown(ctx context.Context, min, max time.Duration) error
}
