package fetcher

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/extractmd/internal/logger"
)

// DynamicFetcher uses chromedp for JavaScript-rendered pages. One browser
// allocator is shared; every Fetch opens its own tab.
type DynamicFetcher struct {
	config    Config
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// NewDynamic creates a new dynamic fetcher with a browser allocator.
// The browser itself starts lazily on the first Fetch.
func NewDynamic(cfg Config) (*DynamicFetcher, error) {
	cfg = cfg.withDefaults()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
	)

	// chromedp's default lookup may miss some installs
	if chromePath := FindChromePath(); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	opts = append(opts, chromedp.UserAgent(cfg.UserAgent))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug("dynamic fetcher created", "timeout", cfg.Timeout)

	return &DynamicFetcher{
		config:    cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancelAlloc,
	}, nil
}

// Fetch retrieves the rendered page HTML using a headless browser.
func (f *DynamicFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (Content, error) {
	result := Content{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	browserCtx, cancelBrowser := chromedp.NewContext(f.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	defer cancelBrowser()

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	// Stop the browser tab when the caller gives up.
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html, title, location string
	actions := []chromedp.Action{chromedp.Navigate(targetURL)}

	if opts.WaitForSelector != "" {
		actions = append(actions, chromedp.WaitReady(opts.WaitForSelector))
	} else {
		// WaitVisible can poll forever on some pages
		actions = append(actions, chromedp.WaitReady("body"))
	}
	if opts.WaitDuration > 0 {
		actions = append(actions, chromedp.Sleep(opts.WaitDuration))
	}
	actions = append(actions,
		chromedp.OuterHTML("html", &html),
		chromedp.Title(&title),
		chromedp.Location(&location),
	)

	logger.Debug("chromedp executing actions",
		"url", targetURL,
		"action_count", len(actions),
		"timeout", timeout)

	if err := chromedp.Run(timeoutCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if timeoutCtx.Err() != nil || strings.Contains(err.Error(), "deadline exceeded") {
			logger.Warn("browser timeout - possible anti-bot protection", "url", targetURL)
			return result, fmt.Errorf("%w: %v", ErrChallengeTimeout, err)
		}
		return result, fmt.Errorf("browser automation failed: %w", err)
	}

	result.HTML = html
	result.Title = strings.TrimSpace(title)
	result.StatusCode = 200 // chromedp doesn't easily expose status codes
	if location != "" {
		result.URL = location
	}

	if challenge := detectChallengePage(title, html); challenge != "" {
		logger.Warn("challenge page detected", "url", targetURL, "type", challenge)
		return result, fmt.Errorf("%w: %s", ErrAntiBot, challenge)
	}

	logger.Debug("dynamic fetch complete",
		"url", result.URL,
		"title", result.Title,
		"html_size", len(html))

	return result, nil
}

// detectChallengePage checks if the page content indicates a challenge/CAPTCHA page.
func detectChallengePage(title, html string) string {
	titleLower := strings.ToLower(title)
	htmlLower := strings.ToLower(html)

	switch {
	case strings.Contains(titleLower, "just a moment"),
		strings.Contains(titleLower, "attention required"),
		strings.Contains(htmlLower, "cf-challenge"),
		strings.Contains(htmlLower, "cf_chl_opt"):
		return "cloudflare"
	case strings.Contains(htmlLower, "challenges.cloudflare.com/turnstile"),
		strings.Contains(htmlLower, "cf-turnstile"):
		return "cloudflare-turnstile"
	case strings.Contains(htmlLower, "hcaptcha.com"),
		strings.Contains(htmlLower, "h-captcha"):
		return "hcaptcha"
	case strings.Contains(htmlLower, "google.com/recaptcha"),
		strings.Contains(htmlLower, "g-recaptcha"):
		return "recaptcha"
	case strings.Contains(titleLower, "access denied"),
		strings.Contains(titleLower, "bot detection"),
		strings.Contains(htmlLower, "robot or human"):
		return "anti-bot"
	}
	return ""
}

// Close releases browser resources.
func (f *DynamicFetcher) Close() error {
	if f.cancelCtx != nil {
		f.cancelCtx()
	}
	return nil
}

// Type returns the fetcher type.
func (f *DynamicFetcher) Type() string {
	return "dynamic"
}

// Common Chrome/Chromium binary names across different systems
var chromeBinaryNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/snap/bin/chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// FindChromePath searches PATH and common install locations for a
// Chrome/Chromium binary. It returns "" when none is found.
func FindChromePath() string {
	for _, name := range chromeBinaryNames {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("found Chrome binary", "name", name, "path", path)
			return path
		}
	}
	logger.Debug("no Chrome binary found, relying on chromedp defaults")
	return ""
}
