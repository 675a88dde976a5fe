// File: internal/simulation/policy.go
package simulation

import (
	"github.com/nvyx0/drifter-cli/internal/config"
)

// Policy maps a uniform random draw onto an action via fixed cumulative
// buckets. The bucket order never changes: like, repost, reply, quote,
// follow. Any remaining probability mass means no action, so most posts
// are just read and scrolled past.
type Policy struct {
	weights config.ActionWeights
}

// NewPolicy creates a policy from the configured weights. The weights
// are assumed to have passed config validation.
func NewPolicy(weights config.ActionWeights) *Policy {
	return &Policy{weights: weights}
}

// Choose maps a draw in [0, 1) to an action.
func (p *Policy) Choose(draw float64) ActionKind {
	cumulative := 0.0
	for _, bucket := range []struct {
		weight float64
		action ActionKind
	}{
		{p.weights.Like, ActionLike},
		{p.weights.Repost, ActionRepost},
		{p.weights.Reply, ActionReply},
		{p.weights.Quote, ActionQuote},
		{p.weights.Follow, ActionFollow},
	} {
		cumulative += bucket.weight
		if draw < cumulative {
			return bucket.action
		}
	}
	return ActionNone
}

// ShouldLikeComment decides whether to like a comment inside an open
// thread, using its own independent draw.
func (p *Policy) ShouldLikeComment(draw float64) bool {
	return draw < p.weights.LikeComment
}

// ShouldFollowCommentAuthor decides whether a thread pass follows the
// author of a visible comment. It reuses the follow weight.
func (p *Policy) ShouldFollowCommentAuthor(draw float64) bool {
	return draw < p.weights.Follow
}
