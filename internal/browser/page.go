// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/nvyx0/drifter-cli/internal/config"
	"github.com/nvyx0/drifter-cli/internal/humanoid"
	"github.com/nvyx0/drifter-cli/internal/simulation"
)

// refPrefixLen is how much post text is kept as the matching key when an
// interaction has to find its article again.
const refPrefixLen = 80

// FeedPage drives the timeline of one logged-in browser session. It
// implements simulation.Page.
type FeedPage struct {
	ctx    context.Context
	cfg    config.BrowserConfig
	pacer  *humanoid.Pacer
	rng    *rand.Rand
	logger *zap.Logger
}

var _ simulation.Page = (*FeedPage)(nil)

// newFeedPage wires a page over an established chromedp context.
func newFeedPage(ctx context.Context, cfg config.BrowserConfig, pacer *humanoid.Pacer, rng *rand.Rand, logger *zap.Logger) *FeedPage {
	return &FeedPage{
		ctx:    ctx,
		cfg:    cfg,
		pacer:  pacer,
		rng:    rng,
		logger: logger.Named("page"),
	}
}

// run executes chromedp actions against the session context, bounded by
// both the caller's context and the given timeout.
func (p *FeedPage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	combined, cancel := combineContext(p.ctx, ctx)
	defer cancel()
	tctx, tcancel := context.WithTimeout(combined, timeout)
	defer tcancel()
	return chromedp.Run(tctx, actions...)
}

// Navigate loads the home timeline and waits for the primary column.
func (p *FeedPage) Navigate(ctx context.Context) error {
	p.logger.Debug("Navigating to timeline.", zap.String("url", p.cfg.TargetURL))
	err := p.run(ctx, p.cfg.NavigationTimeout,
		chromedp.Navigate(p.cfg.TargetURL),
		chromedp.WaitVisible(`div[data-testid="primaryColumn"]`, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to load timeline: %w", err)
	}
	return nil
}

// Reload refreshes the current page.
func (p *FeedPage) Reload(ctx context.Context) error {
	return p.run(ctx, p.cfg.NavigationTimeout,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Back walks one step back in history.
func (p *FeedPage) Back(ctx context.Context) error {
	return p.run(ctx, p.cfg.NavigationTimeout,
		chromedp.NavigateBack(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// DetectViewState classifies the current location.
func (p *FeedPage) DetectViewState(ctx context.Context) (simulation.ViewState, error) {
	var loc string
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.Location(&loc)); err != nil {
		return simulation.ViewUnknown, fmt.Errorf("failed to read location: %w", err)
	}
	return classifyLocation(loc), nil
}

// classifyLocation maps a URL to a view state. Post permalinks carry a
// "/status/" segment; the timeline lives under "/home".
func classifyLocation(loc string) simulation.ViewState {
	switch {
	case strings.Contains(loc, "/status/"):
		return simulation.ViewDetail
	case strings.Contains(loc, "/home"):
		return simulation.ViewFeed
	default:
		return simulation.ViewUnknown
	}
}

// collectItemsJS gathers the posts currently rendered in the timeline.
const collectItemsJS = `(() => {
	const out = [];
	for (const article of document.querySelectorAll('article[data-testid="tweet"]')) {
		const textNode = article.querySelector('div[data-testid="tweetText"]');
		if (!textNode) continue;
		const userLink = article.querySelector('div[data-testid="User-Name"] a[href^="/"]');
		out.push({
			text: textNode.innerText,
			author: userLink ? '@' + userLink.getAttribute('href').slice(1) : '',
		});
	}
	return out;
})()`

type rawItem struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// VisibleFeedItems lists the posts in the viewport.
func (p *FeedPage) VisibleFeedItems(ctx context.Context) ([]simulation.FeedItem, error) {
	var raw []rawItem
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.Evaluate(collectItemsJS, &raw)); err != nil {
		return nil, fmt.Errorf("failed to collect feed items: %w", err)
	}

	items := make([]simulation.FeedItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, simulation.FeedItem{
			Ref:    refPrefix(r.Text),
			Text:   r.Text,
			Author: r.Author,
		})
	}
	return items, nil
}

func refPrefix(text string) string {
	if len(text) > refPrefixLen {
		return text[:refPrefixLen]
	}
	return text
}

// clickInArticleJS finds the article whose text starts with the given
// prefix and clicks the first of the candidate selectors inside it.
// Returns which selector was clicked, or an empty string when nothing
// matched.
const clickInArticleJS = `((prefix, selectors) => {
	for (const article of document.querySelectorAll('article[data-testid="tweet"]')) {
		const textNode = article.querySelector('div[data-testid="tweetText"]');
		if (!textNode || !textNode.innerText.startsWith(prefix)) continue;
		for (const sel of selectors) {
			const el = article.querySelector(sel);
			if (!el) continue;
			el.scrollIntoView({block: 'center'});
			el.click();
			return sel;
		}
		return '';
	}
	return '';
})`

// clickInArticle runs the matcher above. An empty clicked selector means
// the article or control was not on the page.
func (p *FeedPage) clickInArticle(ctx context.Context, item simulation.FeedItem, selectors ...string) (string, error) {
	script := fmt.Sprintf("%s(%s, %s)", clickInArticleJS, jsString(item.Ref), jsStringArray(selectors))
	var clicked string
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.Evaluate(script, &clicked)); err != nil {
		return "", err
	}
	return clicked, nil
}

// clickFirstJS clicks the first element matching any of the selectors,
// anywhere on the page.
const clickFirstJS = `((selectors) => {
	for (const sel of selectors) {
		const el = document.querySelector(sel);
		if (!el) continue;
		el.scrollIntoView({block: 'center'});
		el.click();
		return sel;
	}
	return '';
})`

func (p *FeedPage) clickFirst(ctx context.Context, selectors ...string) (string, error) {
	script := fmt.Sprintf("%s(%s)", clickFirstJS, jsStringArray(selectors))
	var clicked string
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.Evaluate(script, &clicked)); err != nil {
		return "", err
	}
	return clicked, nil
}

// OpenItem clicks through to an item's detail view.
func (p *FeedPage) OpenItem(ctx context.Context, item simulation.FeedItem) error {
	clicked, err := p.clickInArticle(ctx, item, `div[data-testid="tweetText"]`)
	if err != nil {
		return fmt.Errorf("failed to open post: %w", err)
	}
	if clicked == "" {
		return fmt.Errorf("post is no longer on the page")
	}
	return p.run(ctx, p.cfg.NavigationTimeout,
		chromedp.WaitVisible(`article[data-testid="tweet"]`, chromedp.ByQuery),
	)
}

// Scroll advances the timeline by most of a viewport, with jitter so no
// two scrolls cover the same distance.
func (p *FeedPage) Scroll(ctx context.Context) error {
	fraction := 0.65 + p.rng.Float64()*0.3
	script := fmt.Sprintf("window.scrollBy(0, window.innerHeight * %.3f)", fraction)
	return p.run(ctx, p.cfg.ActionTimeout, chromedp.Evaluate(script, nil))
}

// ScrollThread advances the comments of the open detail view. Smaller
// steps than the timeline scroll, so individual comments stay readable.
func (p *FeedPage) ScrollThread(ctx context.Context) error {
	fraction := 0.35 + p.rng.Float64()*0.3
	script := fmt.Sprintf("window.scrollBy(0, window.innerHeight * %.3f)", fraction)
	return p.run(ctx, p.cfg.ActionTimeout, chromedp.Evaluate(script, nil))
}

// likeArticleJS likes the article matching the prefix. An already-liked
// post (its button reads "unlike") is left alone and reported as done.
const likeArticleJS = `((prefix) => {
	for (const article of document.querySelectorAll('article[data-testid="tweet"]')) {
		const textNode = article.querySelector('div[data-testid="tweetText"]');
		if (!textNode || !textNode.innerText.startsWith(prefix)) continue;
		if (article.querySelector('button[data-testid="unlike"]')) return 'already';
		const btn = article.querySelector('button[data-testid="like"]');
		if (!btn) return '';
		btn.scrollIntoView({block: 'center'});
		btn.click();
		return 'liked';
	}
	return '';
})`

// Like presses the like button on the item. An already-liked post counts
// as done.
func (p *FeedPage) Like(ctx context.Context, item simulation.FeedItem) error {
	script := fmt.Sprintf("%s(%s)", likeArticleJS, jsString(item.Ref))
	var outcome string
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.Evaluate(script, &outcome)); err != nil {
		return fmt.Errorf("failed to like post: %w", err)
	}
	if outcome == "" {
		return fmt.Errorf("like button not found")
	}
	return nil
}

// Repost opens the retweet menu on the item and confirms.
func (p *FeedPage) Repost(ctx context.Context, item simulation.FeedItem) error {
	clicked, err := p.clickInArticle(ctx, item, `button[data-testid="retweet"]`)
	if err != nil {
		return fmt.Errorf("failed to open repost menu: %w", err)
	}
	if clicked == "" {
		return fmt.Errorf("repost button not found")
	}
	if err := p.pacer.Sleep(ctx, p.menuDelay()); err != nil {
		return err
	}

	confirmed, err := p.clickFirst(ctx, `div[data-testid="retweetConfirm"]`)
	if err != nil {
		return fmt.Errorf("failed to confirm repost: %w", err)
	}
	if confirmed == "" {
		return fmt.Errorf("repost confirmation not found")
	}
	return nil
}

// Quote opens the retweet menu, picks the quote option, types the
// commentary, and posts.
func (p *FeedPage) Quote(ctx context.Context, item simulation.FeedItem, text string) error {
	clicked, err := p.clickInArticle(ctx, item, `button[data-testid="retweet"]`)
	if err != nil {
		return fmt.Errorf("failed to open repost menu: %w", err)
	}
	if clicked == "" {
		return fmt.Errorf("repost button not found")
	}
	if err := p.pacer.Sleep(ctx, p.menuDelay()); err != nil {
		return err
	}

	quoted, err := p.clickFirst(ctx,
		`a[href="/compose/post"]`,
		`a[href="/compose/tweet"]`,
	)
	if err != nil {
		return fmt.Errorf("failed to pick quote option: %w", err)
	}
	if quoted == "" {
		return fmt.Errorf("quote option not found")
	}

	if err := p.typeText(ctx, text); err != nil {
		return err
	}
	return p.submitComposer(ctx)
}

// Reply types the text into the inline composer of the open detail view
// and posts it.
func (p *FeedPage) Reply(ctx context.Context, text string) error {
	if err := p.typeText(ctx, text); err != nil {
		return err
	}
	return p.submitComposer(ctx)
}

// typeText focuses the composer and types rune by rune with human pacing.
func (p *FeedPage) typeText(ctx context.Context, text string) error {
	const composer = `div[data-testid="tweetTextarea_0"]`
	if err := p.run(ctx, p.cfg.ActionTimeout,
		chromedp.WaitVisible(composer, chromedp.ByQuery),
		chromedp.Click(composer, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("composer not available: %w", err)
	}

	for _, r := range text {
		if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.KeyEvent(string(r))); err != nil {
			return fmt.Errorf("failed to type: %w", err)
		}
		if err := p.pacer.Sleep(ctx, p.pacer.TypingDelay()); err != nil {
			return err
		}
	}
	return nil
}

// submitComposer presses whichever post button the current composer has.
func (p *FeedPage) submitComposer(ctx context.Context) error {
	clicked, err := p.clickFirst(ctx,
		`button[data-testid="tweetButtonInline"]`,
		`button[data-testid="tweetButton"]`,
	)
	if err != nil {
		return fmt.Errorf("failed to post: %w", err)
	}
	if clicked == "" {
		return fmt.Errorf("post button not found")
	}
	return nil
}

// FollowFromSidebar follows the first suggested account in the "who to
// follow" rail, if one is shown.
func (p *FeedPage) FollowFromSidebar(ctx context.Context) error {
	clicked, err := p.clickFirst(ctx,
		`div[data-testid="sidebarColumn"] button[data-testid$="-follow"]`,
	)
	if err != nil {
		return fmt.Errorf("failed to follow from sidebar: %w", err)
	}
	if clicked == "" {
		return fmt.Errorf("no follow suggestion visible")
	}
	return nil
}

// hoverCommentAuthorJS hovers the author link of the first comment below
// the opened post, which makes the profile hover card appear.
const hoverCommentAuthorJS = `(() => {
	const articles = document.querySelectorAll('article[data-testid="tweet"]');
	for (let i = 1; i < articles.length; i++) {
		const link = articles[i].querySelector('div[data-testid="User-Name"] a[href^="/"]');
		if (!link) continue;
		link.scrollIntoView({block: 'center'});
		link.dispatchEvent(new MouseEvent('mouseover', {bubbles: true}));
		return true;
	}
	return false;
})()`

// FollowCommentAuthor hovers a comment author's name and follows them
// through the hover card.
func (p *FeedPage) FollowCommentAuthor(ctx context.Context) error {
	var hovered bool
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.Evaluate(hoverCommentAuthorJS, &hovered)); err != nil {
		return fmt.Errorf("failed to hover comment author: %w", err)
	}
	if !hovered {
		return fmt.Errorf("no comment author visible")
	}
	if err := p.pacer.Sleep(ctx, p.menuDelay()); err != nil {
		return err
	}

	clicked, err := p.clickFirst(ctx,
		`div[data-testid="HoverCard"] button[data-testid$="-follow"]`,
	)
	if err != nil {
		return fmt.Errorf("failed to follow comment author: %w", err)
	}
	if clicked == "" {
		return fmt.Errorf("hover card follow control did not appear")
	}
	return nil
}

// likeCommentJS likes the first unliked comment below the opened post.
// The first article on a detail page is the post itself.
const likeCommentJS = `(() => {
	const articles = document.querySelectorAll('article[data-testid="tweet"]');
	for (let i = 1; i < articles.length; i++) {
		const btn = articles[i].querySelector('button[data-testid="like"]');
		if (!btn) continue;
		btn.scrollIntoView({block: 'center'});
		btn.click();
		return true;
	}
	return false;
})()`

// LikeVisibleComment likes one unliked comment in the open thread.
func (p *FeedPage) LikeVisibleComment(ctx context.Context) error {
	var liked bool
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.Evaluate(likeCommentJS, &liked)); err != nil {
		return fmt.Errorf("failed to like comment: %w", err)
	}
	if !liked {
		return fmt.Errorf("no likeable comment visible")
	}
	return nil
}

// accountHandleJS reads the logged-in handle from the account switcher.
const accountHandleJS = `(() => {
	const btn = document.querySelector('button[data-testid="SideNav_AccountSwitcher_Button"]');
	if (!btn) return '';
	const m = btn.innerText.match(/@[A-Za-z0-9_]+/);
	return m ? m[0] : '';
})()`

// AccountHandle reads the logged-in account's handle, e.g. "@someone".
func (p *FeedPage) AccountHandle(ctx context.Context) (string, error) {
	var handle string
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.Evaluate(accountHandleJS, &handle)); err != nil {
		return "", fmt.Errorf("failed to read account handle: %w", err)
	}
	if handle == "" {
		return "", fmt.Errorf("account handle not visible; session may be logged out")
	}
	return handle, nil
}

// menuDelay is the short human pause between opening a menu and picking
// an entry.
func (p *FeedPage) menuDelay() time.Duration {
	return time.Duration(400+p.rng.Intn(500)) * time.Millisecond
}
