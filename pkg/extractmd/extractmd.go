package extractmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/extractmd/internal/logger"
	"github.com/jmylchreest/extractmd/pkg/cleaner"
	"github.com/jmylchreest/extractmd/pkg/fetcher"
)

// Extractor is the main entry point for page to Markdown conversion.
type Extractor struct {
	fetcher fetcher.Fetcher
	config  Config
}

// New creates a new Extractor. Without options it fetches statically and
// uses go-readability for the page pipeline's main-section mode.
func New(opts ...Option) (*Extractor, error) {
	cfg := DefaultConfig()
	cfg.Readability = cleaner.NewReadability(nil)
	for _, opt := range opts {
		opt(&cfg)
	}

	// Use injected fetcher or create one for the fetch mode
	f := cfg.Fetcher
	if f == nil {
		var err error
		f, err = fetcher.New(cfg.FetchMode, fetcher.Config{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create fetcher: %w", err)
		}
	}

	return &Extractor{
		fetcher: f,
		config:  cfg,
	}, nil
}

// Extract fetches req.URL (unless req.HTML is set) and converts it.
func (e *Extractor) Extract(ctx context.Context, req Request) (*Result, error) {
	pipeline, err := ParsePipeline(string(req.Pipeline))
	if err != nil {
		return nil, err
	}
	req.Pipeline = pipeline

	var (
		fetchedAt     time.Time
		fetchDuration time.Duration
	)

	if req.HTML == "" {
		if req.URL == "" {
			return nil, errors.New("either a URL or HTML content is required")
		}

		fetchStart := time.Now()
		content, err := e.fetcher.Fetch(ctx, req.URL, fetcher.Options{
			UserAgent: e.config.UserAgent,
			Timeout:   e.config.Timeout,
		})
		fetchDuration = time.Since(fetchStart)
		if err != nil {
			return nil, fmt.Errorf("fetch failed: %w", err)
		}

		logger.Debug("page fetched",
			"url", content.URL,
			"fetcher", e.fetcher.Type(),
			"html_size", len(content.HTML),
			"duration", fetchDuration)

		req.HTML = content.HTML
		req.URL = content.URL
		fetchedAt = content.FetchedAt
		if req.Title == "" {
			req.Title = content.Title
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(req.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	result, err := e.Convert(doc, req)
	if err != nil {
		return nil, err
	}
	result.FetchedAt = fetchedAt
	result.FetchDuration = fetchDuration
	return result, nil
}

// Convert runs req's pipeline over an already parsed document. The document
// is never modified.
func (e *Extractor) Convert(doc *goquery.Document, req Request) (*Result, error) {
	pipeline, err := ParsePipeline(string(req.Pipeline))
	if err != nil {
		return nil, err
	}
	req.Pipeline = pipeline
	if req.Markdown.BaseURL == "" {
		req.Markdown.BaseURL = req.URL
	}

	start := time.Now()
	var out converted
	switch pipeline {
	case PipelineArticle:
		out, err = convertArticles(doc, req)
	case PipelineUniversal:
		out, err = convertUniversal(doc, req)
	default:
		out, err = convertPage(doc, req, e.config.Readability)
	}
	if err != nil {
		var nce *NoContentError
		if errors.As(err, &nce) {
			nce.URL = req.URL
		}
		return nil, err
	}

	title := req.Title
	if title == "" {
		title = documentTitle(doc)
	}

	md := out.markdown
	if header := pipelineHeader(req, title); header != "" {
		md = header + md
	}

	result := &Result{
		URL:             req.URL,
		Title:           title,
		Pipeline:        pipeline,
		Markdown:        md,
		Root:            out.root,
		TextLength:      out.textLength,
		Articles:        out.articles,
		Filename:        SanitizeFilename(title),
		ConvertDuration: time.Since(start),
	}
	result.Download = req.ForceDownload ||
		(req.DownloadIfLarger > 0 && len(md) >= req.DownloadIfLarger)

	logger.Debug("page converted",
		"url", req.URL,
		"pipeline", pipeline,
		"root", out.root,
		"text_length", out.textLength,
		"markdown_size", len(md),
		"duration", result.ConvertDuration)

	return result, nil
}

// ExtractMany extracts multiple requests concurrently. Results arrive in
// completion order; failures are reported through Result.Error.
func (e *Extractor) ExtractMany(ctx context.Context, reqs []Request) <-chan *Result {
	concurrency := e.config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	results := make(chan *Result, len(reqs))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, req := range reqs {
		wg.Add(1)
		go func(r Request) {
			defer wg.Done()
			fail := func(err error) {
				results <- &Result{URL: r.URL, Pipeline: r.Pipeline, Error: err, ErrorMessage: err.Error()}
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				fail(ctx.Err())
				return
			}
			defer func() { <-sem }()
			// A slot may be free at the moment of cancellation.
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}

			result, err := e.Extract(ctx, r)
			if err != nil {
				fail(err)
				return
			}
			results <- result
		}(req)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// Close releases all resources.
func (e *Extractor) Close() error {
	if e.fetcher != nil {
		return e.fetcher.Close()
	}
	return nil
}

// FetcherType returns the fetcher name.
func (e *Extractor) FetcherType() string {
	return e.fetcher.Type()
}

func documentTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}
