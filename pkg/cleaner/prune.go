package cleaner

import (
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/jmylchreest/extractmd/internal/logger"
	"github.com/jmylchreest/extractmd/pkg/markdown"
)

// AlwaysRemove lists elements that never carry readable content.
var AlwaysRemove = []string{"script", "style", "noscript", "iframe", "svg", "canvas"}

// OwnUISelectors match the floating buttons injected into pages by the
// browser extension, so a capture never includes them.
var OwnUISelectors = []string{"#yt-transcript-floating-button", "#extractmd-floating-button"}

// AggressiveRemove lists chrome, widgets and boilerplate removed in
// aggressive mode.
var AggressiveRemove = []string{
	"form", "button", "input", "textarea", "select",
	"nav", "header", "footer", "aside",
	".sidebar", `[role="complementary"]`,
	".advert", ".advertisement", ".ad", ".ads", `[class*="ad-"]`, `[id*="ad-"]`,
	".share", ".sharing", ".social",
	".comments", "#comments", ".related",
	".newsletter", ".subscribe", ".cookie", ".gdpr",
	".modal", ".popover", ".tooltip",
	`[aria-hidden="true"]`,
	`[role="navigation"]`, `[role="banner"]`, `[role="contentinfo"]`,
}

// PruneConfig defines which descendants a prune pass removes.
type PruneConfig struct {
	// OwnUISelectors are removed first, regardless of mode.
	OwnUISelectors []string `json:"own_ui_selectors" yaml:"own_ui_selectors" mapstructure:"own_ui_selectors"`

	// RemoveSelectors are removed in order after OwnUISelectors.
	RemoveSelectors []string `json:"remove_selectors" yaml:"remove_selectors" mapstructure:"remove_selectors"`

	// KeepSelectors spare matching elements from removal.
	KeepSelectors []string `json:"keep_selectors" yaml:"keep_selectors" mapstructure:"keep_selectors"`
}

// PresetStandard removes scripts, styles, embeds and the extension's own UI.
func PresetStandard() *PruneConfig {
	return &PruneConfig{
		OwnUISelectors:  append([]string(nil), OwnUISelectors...),
		RemoveSelectors: append([]string(nil), AlwaysRemove...),
	}
}

// PresetAggressive also removes navigation, forms, ads, social widgets,
// comments and other page chrome.
func PresetAggressive() *PruneConfig {
	cfg := PresetStandard()
	cfg.RemoveSelectors = append(append([]string(nil), AggressiveRemove...), AlwaysRemove...)
	return cfg
}

type compiledSelector struct {
	source string
	sel    cascadia.Selector
}

// Pruner removes matching descendants from a deep clone of a subtree.
// A Pruner is immutable after construction and safe for concurrent use.
type Pruner struct {
	remove   []compiledSelector
	keep     []compiledSelector
	warnings []Warning
}

// NewPruner compiles the selectors of cfg. Invalid selectors are skipped and
// reported as warnings on every result. If cfg is nil, PresetStandard is used.
func NewPruner(cfg *PruneConfig) *Pruner {
	if cfg == nil {
		cfg = PresetStandard()
	}

	p := &Pruner{}
	p.remove = p.compile(cfg.OwnUISelectors, p.remove)
	p.remove = p.compile(cfg.RemoveSelectors, p.remove)
	p.keep = p.compile(cfg.KeepSelectors, p.keep)
	return p
}

func (p *Pruner) compile(selectors []string, into []compiledSelector) []compiledSelector {
	for _, s := range selectors {
		sel, err := cascadia.Compile(s)
		if err != nil {
			logger.Debug("skipping invalid selector", "selector", s, "error", err)
			p.warnings = append(p.warnings, Warning{
				Phase:   "compile",
				Message: "invalid selector skipped: " + err.Error(),
				Context: s,
			})
			continue
		}
		into = append(into, compiledSelector{source: s, sel: sel})
	}
	return into
}

// CloneAndClean returns a pruned deep clone of n. Only descendants are
// removed; n itself is kept even if it matches. The input is never mutated.
func (p *Pruner) CloneAndClean(n *html.Node) *PruneResult {
	start := time.Now()
	result := &PruneResult{Stats: NewStats()}
	result.Warnings = append(result.Warnings, p.warnings...)
	if n == nil {
		return result
	}

	clone := cloneNode(n)
	result.Node = clone
	result.Stats.InputTextLength = markdown.TextLength(n)

	doc := goquery.NewDocumentFromNode(clone)
	for _, rs := range p.remove {
		matches := doc.FindMatcher(rs.sel)
		if matches.Length() == 0 {
			continue
		}
		result.Stats.RecordSelectorMatch(rs.source, matches.Length())
		matches.Each(func(_ int, s *goquery.Selection) {
			if p.shouldKeep(s.Get(0)) {
				result.Stats.ElementsKept++
				return
			}
			result.Stats.RecordRemoval(goquery.NodeName(s))
			s.Remove()
		})
	}

	result.Stats.OutputTextLength = markdown.TextLength(clone)
	result.Stats.Duration = time.Since(start)
	return result
}

// shouldKeep checks if an element matches any keep selectors.
func (p *Pruner) shouldKeep(n *html.Node) bool {
	for _, k := range p.keep {
		if k.sel.Match(n) {
			return true
		}
	}
	return false
}

var (
	standardPruner   = NewPruner(PresetStandard())
	aggressivePruner = NewPruner(PresetAggressive())
)

// CleanClone returns a deep clone of n with non-content descendants removed.
// Scripts, styles, embeds and the extension's own UI always go; aggressive
// mode also drops navigation, forms, ads and similar chrome.
func CleanClone(n *html.Node, aggressive bool) *html.Node {
	if aggressive {
		return aggressivePruner.CloneAndClean(n).Node
	}
	return standardPruner.CloneAndClean(n).Node
}

// cloneNode deep-copies n into a detached tree.
func cloneNode(n *html.Node) *html.Node {
	return goquery.NewDocumentFromNode(n).Selection.Clone().Get(0)
}
