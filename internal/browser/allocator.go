// internal/browser/allocator.go
// Package browser drives a Chrome instance through the DevTools protocol
// and exposes the feed as plain Go operations.
package browser

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/nvyx0/drifter-cli/internal/config"
)

// userAgents is the pool a session's fingerprint is drawn from. All are
// recent desktop Chrome builds so the UA never contradicts the engine.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

// acceptLanguages is the matching pool of language headers.
var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.8,de;q=0.5",
}

// baseResolutions are common desktop sizes; each gets up to 20px of
// jitter per axis so no two sessions share an exact window size.
var baseResolutions = [][2]int{
	{1920, 1080},
	{1600, 900},
	{1536, 864},
	{1440, 900},
	{1366, 768},
}

// execOptions translates the browser config into chromedp allocator
// options, with a per-session randomized fingerprint.
func execOptions(cfg config.BrowserConfig, rng *rand.Rand) []chromedp.ExecAllocatorOption {
	// Start with chromedp defaults.
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		// Recommended for stability in containers/headless envs.
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)

	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}

	// -- Fingerprint randomization --
	res := baseResolutions[rng.Intn(len(baseResolutions))]
	width := res[0] + rng.Intn(41) - 20
	height := res[1] + rng.Intn(41) - 20
	opts = append(opts,
		chromedp.WindowSize(width, height),
		chromedp.UserAgent(userAgents[rng.Intn(len(userAgents))]),
		chromedp.Flag("lang", acceptLanguages[rng.Intn(len(acceptLanguages))]),
		chromedp.Flag("force-device-scale-factor", fmt.Sprintf("%.2f", 1.0+float64(rng.Intn(3))*0.25)),
	)

	// Add additional flags from the config file's 'args' slice.
	for _, arg := range cfg.Args {
		if !strings.Contains(arg, "=") {
			if !strings.HasPrefix(arg, "--") {
				arg = "--" + arg
			}
			opts = append(opts, chromedp.Flag(strings.TrimPrefix(arg, "--"), true))
			continue
		}

		parts := strings.SplitN(arg, "=", 2)
		key := strings.TrimPrefix(parts[0], "--")
		opts = append(opts, chromedp.Flag(key, parts[1]))
	}
	return opts
}
