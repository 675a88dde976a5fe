// internal/browser/cookies.go
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// authCookieName is the session cookie the platform authenticates with.
const authCookieName = "auth_token"

// authCookieDomains covers both hostnames the platform still serves;
// logins set on one are honored on the other.
var authCookieDomains = []string{".x.com", ".twitter.com"}

// setAuthCookie installs the auth token for every platform domain before
// the first navigation. The token value itself is never logged.
func setAuthCookie(ctx context.Context, token string) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, domain := range authCookieDomains {
			err := network.SetCookie(authCookieName, token).
				WithDomain(domain).
				WithPath("/").
				WithSecure(true).
				WithHTTPOnly(true).
				WithSameSite(network.CookieSameSiteNone).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to set auth cookie for %s: %w", domain, err)
			}
		}
		return nil
	}))
}
