// internal/auth/capture.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/sizieks/parsers/pkg/models"
)

// CaptureOptions configures the interactive cookie capture behavior
type CaptureOptions struct {
	// SessionName is the name to save the cookie set as
	SessionName string
	// URL to navigate to for login
	URL string
	// WaitSelector is the CSS selector to wait for after login (e.g., "#dashboard")
	WaitSelector string
	// Timeout for the entire capture process
	Timeout time.Duration
	// ChromePath overrides the browser binary location
	ChromePath string
}

// InteractiveCapture launches a visible browser, lets the operator log in
// manually, and returns the resulting cookie set.
func InteractiveCapture(opts CaptureOptions) (*SessionData, error) {
	if opts.SessionName == "" {
		return nil, fmt.Errorf("session name is required")
	}
	if opts.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.ChromePath == "" {
		opts.ChromePath = "/usr/bin/google-chrome-stable"
	}

	// A visible browser needs a display server.
	if os.Getenv("DISPLAY") == "" {
		return nil, fmt.Errorf("interactive capture requires a display server (DISPLAY not set)\n\n" +
			"In headless environments, use:\n" +
			"   parsers sessions import <name> --file=<cookies.json>")
	}

	log.Info().
		Str("session", opts.SessionName).
		Str("url", opts.URL).
		Msg("Starting interactive capture")

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.ExecPath(opts.ChromePath),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-gpu", false),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("log-level", "3"),
		chromedp.WindowSize(1280, 720),
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Printf))
	defer browserCancel()

	fmt.Println("\nBrowser opened. Please complete the login process manually.")

	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate(opts.URL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	if opts.WaitSelector != "" {
		log.Info().Str("selector", opts.WaitSelector).Msg("Waiting for login completion...")
		err = chromedp.Run(browserCtx,
			chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery),
		)
		if err != nil {
			return nil, fmt.Errorf("login timeout or failed: %w", err)
		}
	} else {
		fmt.Println("   Press Enter once you have completed login...")
		fmt.Scanln()
	}

	log.Info().Msg("Login completed, extracting cookies...")

	err = chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to extract cookies: %w", err)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies found, login may have failed")
	}

	log.Info().Int("cookie_count", len(cookies)).Msg("Cookies extracted")

	set := make(map[string]models.Cookie, len(cookies))
	maxExpires := 0.0
	for _, c := range cookies {
		expires := "Session"
		if c.Expires > 0 {
			expires = time.Unix(int64(c.Expires), 0).UTC().Format(time.RFC3339)
			if c.Expires > maxExpires {
				maxExpires = c.Expires
			}
		}
		set[c.Name] = models.Cookie{
			Value:   c.Value,
			Domain:  c.Domain,
			Path:    c.Path,
			Expires: expires,
		}
	}

	session := &SessionData{
		Name:      opts.SessionName,
		URL:       opts.URL,
		Cookies:   set,
		CreatedAt: time.Now(),
	}
	if maxExpires > 0 {
		session.ExpiresAt = time.Unix(int64(maxExpires), 0)
	}

	return session, nil
}

// ImportFromFile reads a cookie set exported from the browser's DevTools.
// The file maps cookie names to their value, domain, path and expires fields.
func ImportFromFile(name, path string) (*SessionData, error) {
	if name == "" {
		return nil, fmt.Errorf("session name is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}

	var set map[string]models.Cookie
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse cookie file: %w", err)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("cookie file contains no cookies")
	}

	session := &SessionData{
		Name:      name,
		Cookies:   set,
		CreatedAt: time.Now(),
	}

	// Expiration of the set follows the latest concrete cookie expiry.
	for _, c := range set {
		if c.Expires == "" || c.Expires == "Session" {
			continue
		}
		t, err := time.Parse(time.RFC3339, c.Expires)
		if err != nil {
			continue
		}
		if t.After(session.ExpiresAt) {
			session.ExpiresAt = t
		}
	}

	return session, nil
}
