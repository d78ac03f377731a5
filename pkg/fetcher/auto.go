package fetcher

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/extractmd/internal/logger"
)

// AutoFetcher fetches statically and retries in a browser when the page
// looks like a JavaScript application shell. The browser is only started
// when first needed.
type AutoFetcher struct {
	static *StaticFetcher
	config Config

	once       sync.Once
	dynamic    *DynamicFetcher
	dynamicErr error
}

// NewAuto creates a fetcher that auto-detects JS requirements.
func NewAuto(cfg Config) (*AutoFetcher, error) {
	cfg = cfg.withDefaults()
	return &AutoFetcher{
		static: NewStatic(cfg),
		config: cfg,
	}, nil
}

func (f *AutoFetcher) browser() (*DynamicFetcher, error) {
	f.once.Do(func() {
		f.dynamic, f.dynamicErr = NewDynamic(f.config)
	})
	return f.dynamic, f.dynamicErr
}

// Fetch tries static first, then falls back to dynamic if needed.
func (f *AutoFetcher) Fetch(ctx context.Context, url string, opts Options) (Content, error) {
	content, err := f.static.Fetch(ctx, url, opts)
	if err == nil && !NeedsJavaScript(content.HTML) {
		return content, nil
	}
	if ctx.Err() != nil {
		return content, ctx.Err()
	}
	if err != nil && !errors.Is(err, ErrEmptyResponse) {
		logger.Debug("static fetch failed, retrying in browser", "url", url, "error", err)
	} else {
		logger.Debug("page needs JavaScript, retrying in browser", "url", url)
	}

	dynamic, derr := f.browser()
	if derr != nil {
		if err != nil {
			return content, err
		}
		return content, derr
	}
	return dynamic.Fetch(ctx, url, opts)
}

// NeedsJavaScript reports whether a statically fetched page appears to
// require JS rendering: SPA mount points, a noscript warning or a near-empty
// body with a loading message.
func NeedsJavaScript(htmlContent string) bool {
	lower := strings.ToLower(htmlContent)

	spaMarkers := []string{
		`<div id="root"></div>`,   // React
		`<div id="app"></div>`,    // Vue
		`<app-root></app-root>`,   // Angular
		`<div id="__next"></div>`, // Next.js
		`<div id="__nuxt"></div>`, // Nuxt.js
		`ng-app`,
		`v-cloak`,
	}
	for _, marker := range spaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return false
	}

	noscript := strings.ToLower(doc.Find("noscript").Text())
	if strings.Contains(noscript, "javascript") &&
		(strings.Contains(noscript, "enable") || strings.Contains(noscript, "required")) {
		return true
	}

	doc.Find("script, style, noscript, template").Remove()
	text := strings.ToLower(strings.Join(strings.Fields(doc.Find("body").Text()), " "))
	if len(text) < 100 {
		for _, indicator := range []string{"loading", "please wait", "javascript required", "enable javascript"} {
			if strings.Contains(text, indicator) {
				return true
			}
		}
	}
	return false
}

// Close releases all fetcher resources.
func (f *AutoFetcher) Close() error {
	if f.dynamic != nil {
		return f.dynamic.Close()
	}
	return nil
}

// Type returns the fetcher type.
func (f *AutoFetcher) Type() string {
	return "auto"
}
