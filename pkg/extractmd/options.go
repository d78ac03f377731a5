// Package extractmd provides the public API for converting web pages to
// Markdown.
//
// An Extractor fetches a page (or takes HTML the caller already has), picks
// the content region, cleans it and serializes it with one of three
// pipelines: page, article or universal.
package extractmd

import (
	"time"

	"github.com/jmylchreest/extractmd/pkg/cleaner"
	"github.com/jmylchreest/extractmd/pkg/fetcher"
)

// Config holds all Extractor configuration.
type Config struct {
	// Fetching settings
	FetchMode fetcher.Mode
	UserAgent string
	Timeout   time.Duration

	// Fetcher overrides FetchMode when set.
	Fetcher fetcher.Fetcher

	// Readability is the main-content extractor behind the page pipeline's
	// "only main section" option. It must return HTML.
	Readability cleaner.Cleaner

	// Concurrency bounds ExtractMany.
	Concurrency int
}

// Chrome user agent for better compatibility with bot-protected sites
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FetchMode:   fetcher.ModeStatic,
		UserAgent:   defaultUserAgent,
		Timeout:     30 * time.Second,
		Concurrency: 3,
	}
}

// Option configures an Extractor.
type Option func(*Config)

// WithFetchMode sets the fetch mode (auto, static, dynamic).
func WithFetchMode(mode fetcher.Mode) Option {
	return func(c *Config) {
		c.FetchMode = mode
	}
}

// WithFetcher injects a fetcher, replacing the one built from FetchMode.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

// WithUserAgent sets the HTTP user agent.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithReadability sets the main-content extractor. Pass nil to always use
// the heuristic selector.
func WithReadability(c cleaner.Cleaner) Option {
	return func(cfg *Config) {
		cfg.Readability = c
	}
}

// WithConcurrency sets the number of concurrent extractions in ExtractMany.
func WithConcurrency(n int) Option {
	return func(c *Config) {
		c.Concurrency = n
	}
}
