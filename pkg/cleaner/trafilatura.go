package cleaner

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/markusmobius/go-trafilatura"
	"github.com/yosssi/gohtml"
	"golang.org/x/net/html"
)

// Toggle specifies include/exclude behavior.
type Toggle int

const (
	// Default uses the default behavior for the field.
	Default Toggle = iota
	// Include explicitly includes the content.
	Include
	// Exclude explicitly excludes the content.
	Exclude
)

// TrafilaturaConfig configures the Trafilatura cleaner.
type TrafilaturaConfig struct {
	// Output format: OutputHTML (default) or OutputText
	Output OutputFormat
	// Comments: Include or Exclude (default: Exclude)
	Comments Toggle
	// Tables: Include or Exclude (default: Include)
	Tables Toggle
	// Links: Include or Exclude (default: Include)
	Links Toggle
	// Images: Include or Exclude (default: Include)
	Images Toggle
	// Fallback to Readability/DomDistiller: Include or Exclude (default: Include)
	Fallback Toggle
	// Pretty formats HTML output with gohtml.
	Pretty bool
}

// TrafilaturaCleaner extracts main content with go-trafilatura. It is the
// alternative main-content boundary and the comparison baseline in
// "extractmd compare".
type TrafilaturaCleaner struct {
	opts   trafilatura.Options
	output OutputFormat
	pretty bool
}

// NewTrafilatura creates a new Trafilatura cleaner.
// Pass nil for default configuration.
func NewTrafilatura(cfg *TrafilaturaConfig) *TrafilaturaCleaner {
	if cfg == nil {
		cfg = &TrafilaturaConfig{}
	}

	return &TrafilaturaCleaner{
		opts: trafilatura.Options{
			ExcludeComments: cfg.Comments != Include,
			ExcludeTables:   cfg.Tables == Exclude,
			IncludeLinks:    cfg.Links != Exclude,
			IncludeImages:   cfg.Images != Exclude,
			EnableFallback:  cfg.Fallback != Exclude,
		},
		output: cfg.Output,
		pretty: cfg.Pretty,
	}
}

// Clean extracts the main content from HTML. It returns ErrNoContent when
// nothing was extracted.
func (c *TrafilaturaCleaner) Clean(htmlContent string) (string, error) {
	result, err := trafilatura.Extract(strings.NewReader(htmlContent), c.opts)
	if err != nil {
		return "", fmt.Errorf("trafilatura extract failed: %w", err)
	}
	if result == nil {
		return "", ErrNoContent
	}

	if c.output == OutputText || result.ContentNode == nil {
		if strings.TrimSpace(result.ContentText) == "" {
			return "", ErrNoContent
		}
		return result.ContentText, nil
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, result.ContentNode); err != nil {
		return "", fmt.Errorf("trafilatura render failed: %w", err)
	}
	if c.pretty {
		return gohtml.Format(buf.String()), nil
	}
	return buf.String(), nil
}

// Name returns the cleaner type.
func (c *TrafilaturaCleaner) Name() string {
	return "trafilatura"
}
