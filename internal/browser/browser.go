// internal/browser/browser.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/sizieks/parsers/internal/config"
	"github.com/sizieks/parsers/internal/proxy"
	"github.com/sizieks/parsers/pkg/models"
)

// Browser launches headless Chrome tabs with session cookies injected
// before navigation. Each Open call gets its own allocator so shutdown
// is a plain context cancel.
type Browser struct {
	headless    bool
	userAgent   string
	proxies     *proxy.Pool
	chromePath  string
	settleDelay time.Duration
	navTimeout  time.Duration
}

// New creates a Browser from application configuration.
func New(cfg *config.Config) *Browser {
	path := cfg.ChromePath
	if path == "" {
		path = "/usr/bin/google-chrome-stable"
	}
	return &Browser{
		headless:    cfg.BrowserHeadless,
		userAgent:   cfg.UserAgent,
		proxies:     proxy.NewPool(cfg.Proxies),
		chromePath:  path,
		settleDelay: cfg.SettleDelay,
		navTimeout:  cfg.NavigationTimeout,
	}
}

// Tab is an open browser tab positioned on a rendered page. Its Context
// drives further CDP calls; Close tears down the whole browser.
type Tab struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

// Context returns the chromedp tab context.
func (t *Tab) Context() context.Context {
	return t.ctx
}

// Close shuts the tab and its browser down.
func (t *Tab) Close() {
	for i := len(t.cancels) - 1; i >= 0; i-- {
		t.cancels[i]()
	}
}

// Open navigates to url in a fresh tab, injecting cookies first so
// authenticated pages render on the initial load.
func (b *Browser) Open(ctx context.Context, url string, cookies map[string]models.Cookie) (*Tab, error) {
	start := time.Now()

	log.Debug().
		Str("url", url).
		Bool("headless", b.headless).
		Int("cookies", len(cookies)).
		Msg("Opening tab")

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.ExecPath(b.chromePath),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-ipc-flooding-protection", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("force-color-profile", "srgb"),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("safebrowsing-disable-auto-update", true),
		chromedp.Flag("single-process", true), // Critical for fast shutdown
		chromedp.UserAgent(b.userAgent),
	}

	upstream := b.proxies.GetNext()
	if upstream != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(upstream))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	tab := &Tab{ctx: browserCtx, cancels: []context.CancelFunc{allocCancel, browserCancel}}

	tasks := []chromedp.Action{network.Enable()}
	if params := cookieParams(cookies); len(params) > 0 {
		tasks = append(tasks, network.SetCookies(params))
	}
	tasks = append(tasks,
		chromedp.Navigate(url),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Let the initial render settle before the page is handed over.
			select {
			case <-time.After(b.settleDelay):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}),
	)

	navCtx, navCancel := context.WithTimeout(browserCtx, b.navTimeout)
	defer navCancel()

	if err := chromedp.Run(navCtx, tasks...); err != nil {
		tab.Close()
		if upstream != "" {
			b.proxies.MarkFailed(upstream)
		}
		return nil, fmt.Errorf("navigation failed: %w", err)
	}
	if upstream != "" {
		b.proxies.MarkHealthy(upstream)
	}

	log.Debug().
		Str("url", url).
		Dur("elapsed_ms", time.Since(start)).
		Msg("Tab ready")

	return tab, nil
}

// cookieParams converts stored cookies to CDP cookie parameters. A
// cookie whose expires field reads "Session" gets no explicit expiry.
func cookieParams(cookies map[string]models.Cookie) []*network.CookieParam {
	var params []*network.CookieParam
	for name, c := range cookies {
		param := &network.CookieParam{
			Name:   name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		}
		if c.Expires != "" && c.Expires != "Session" {
			if t, err := time.Parse(time.RFC3339, c.Expires); err == nil {
				expires := cdp.TimeSinceEpoch(t)
				param.Expires = &expires
			}
		}
		params = append(params, param)
	}
	return params
}
