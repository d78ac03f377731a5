// Package fetcher retrieves page HTML for extraction.
//
// StaticFetcher uses Colly for plain HTTP fetches, DynamicFetcher drives a
// headless Chrome through chromedp for JavaScript-rendered pages, and
// AutoFetcher tries static first and escalates when the page looks like it
// needs a browser.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Fetcher abstracts page fetching strategies.
type Fetcher interface {
	// Fetch retrieves page content from a URL.
	Fetch(ctx context.Context, url string, opts Options) (Content, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns a string identifying the fetcher type (e.g., "static", "dynamic").
	Type() string
}

// Options controls fetching behavior.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	WaitForSelector string        // CSS selector to wait for (dynamic fetchers)
	WaitDuration    time.Duration // Additional wait after load
	Headers         map[string]string
}

// Content represents fetched page data.
type Content struct {
	URL         string    `json:"url"`
	HTML        string    `json:"-"`
	Title       string    `json:"title"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Error types for distinguishing failure reasons.
// Check with errors.Is(err, fetcher.ErrAntiBot).
var (
	// ErrAntiBot indicates the site's anti-bot protection blocked the request.
	ErrAntiBot = errors.New("anti-bot protection detected")
	// ErrChallengeTimeout indicates a timeout while waiting for the page, often a challenge.
	ErrChallengeTimeout = errors.New("challenge timeout")
	// ErrEmptyResponse indicates the server answered without a body.
	ErrEmptyResponse = errors.New("empty response body")
)

// Mode determines how pages are fetched.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeStatic  Mode = "static"
	ModeDynamic Mode = "dynamic"
)

// ParseMode converts a string to a Mode. The empty string means ModeStatic.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeStatic:
		return ModeStatic, nil
	case ModeDynamic:
		return ModeDynamic, nil
	case ModeAuto:
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("unknown fetch mode: %s", s)
	}
}

// Config holds settings shared by every fetcher.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: defaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultConfig().Timeout
	}
	return c
}

// New creates a fetcher for mode.
func New(mode Mode, cfg Config) (Fetcher, error) {
	switch mode {
	case ModeStatic, "":
		return NewStatic(cfg), nil
	case ModeDynamic:
		return NewDynamic(cfg)
	case ModeAuto:
		return NewAuto(cfg)
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s", mode)
	}
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
