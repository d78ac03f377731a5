package cleaner

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/yosssi/gohtml"
	"golang.org/x/net/html"

	"github.com/jmylchreest/extractmd/internal/logger"
)

// ReadabilityConfig configures the Readability cleaner.
type ReadabilityConfig struct {
	// Output format: OutputHTML (default) or OutputText
	Output OutputFormat
	// MaxElemsToParse limits the number of nodes to parse (0 = no limit).
	MaxElemsToParse int
	// NTopCandidates is the number of top candidates to consider (default: 5).
	NTopCandidates int
	// CharThreshold is the minimum character count for valid content (default: 500).
	CharThreshold int
	// KeepClasses preserves CSS classes on elements when true.
	KeepClasses bool
	// ClassesToPreserve lists classes kept even when KeepClasses is false.
	ClassesToPreserve []string
	// BaseURL is used for resolving relative URLs. If empty, URLs remain relative.
	BaseURL string
	// Pretty formats HTML output with gohtml.
	Pretty bool
}

// ReadabilityCleaner extracts the main content of a page with go-readability,
// a port of Mozilla's Readability.js. It backs the "only main section"
// content mode.
type ReadabilityCleaner struct {
	cfg    ReadabilityConfig
	parser readability.Parser
}

// NewReadability creates a new Readability cleaner.
// Pass nil for default configuration.
func NewReadability(cfg *ReadabilityConfig) *ReadabilityCleaner {
	if cfg == nil {
		cfg = &ReadabilityConfig{}
	}

	parser := readability.NewParser()
	if cfg.MaxElemsToParse > 0 {
		parser.MaxElemsToParse = cfg.MaxElemsToParse
	}
	if cfg.NTopCandidates > 0 {
		parser.NTopCandidates = cfg.NTopCandidates
	}
	if cfg.CharThreshold > 0 {
		parser.CharThresholds = cfg.CharThreshold
	}
	if cfg.KeepClasses {
		parser.KeepClasses = true
	}
	if len(cfg.ClassesToPreserve) > 0 {
		parser.ClassesToPreserve = cfg.ClassesToPreserve
	}

	return &ReadabilityCleaner{
		cfg:    *cfg,
		parser: parser,
	}
}

// Clean extracts the main content from HTML. It returns ErrNoContent when
// Readability finds no article.
func (c *ReadabilityCleaner) Clean(htmlContent string) (string, error) {
	var baseURL *url.URL
	if c.cfg.BaseURL != "" {
		u, err := url.Parse(c.cfg.BaseURL)
		if err != nil {
			logger.Debug("readability ignoring invalid base URL", "url", c.cfg.BaseURL, "error", err)
		} else {
			baseURL = u
		}
	}

	// The parser keeps per-document state; work on a copy so Clean can run
	// concurrently.
	parser := c.parser
	article, err := parser.Parse(strings.NewReader(htmlContent), baseURL)
	if err != nil {
		return "", fmt.Errorf("readability parse failed: %w", err)
	}
	if article.Node == nil {
		return "", ErrNoContent
	}

	var buf bytes.Buffer
	switch c.cfg.Output {
	case OutputText:
		if err := article.RenderText(&buf); err != nil {
			return "", fmt.Errorf("readability text render failed: %w", err)
		}
	default:
		if err := article.RenderHTML(&buf); err != nil {
			buf.Reset()
			if err := html.Render(&buf, article.Node); err != nil {
				return "", fmt.Errorf("readability render failed: %w", err)
			}
		}
	}

	out := buf.String()
	if strings.TrimSpace(out) == "" {
		return "", ErrNoContent
	}
	if c.cfg.Output == OutputHTML && c.cfg.Pretty {
		out = gohtml.Format(out)
	}

	logger.Debug("readability extracted content",
		"input_size", len(htmlContent),
		"output_size", len(out))

	return out, nil
}

// Name returns the cleaner type.
func (c *ReadabilityCleaner) Name() string {
	return "readability"
}
