package cleaner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Stats captures what a prune pass did.
type Stats struct {
	// Text length (runes, whitespace collapsed) before and after pruning.
	InputTextLength  int `json:"input_text_length"`
	OutputTextLength int `json:"output_text_length"`

	// ElementsRemoved counts removed elements by tag.
	ElementsRemoved map[string]int `json:"elements_removed"`

	// ElementsKept counts matches spared by a keep selector.
	ElementsKept int `json:"elements_kept"`

	// SelectorMatches counts matches per remove selector.
	SelectorMatches map[string]int `json:"selector_matches"`

	Duration time.Duration `json:"duration_ns"`
}

// NewStats creates a new Stats instance with initialized maps.
func NewStats() *Stats {
	return &Stats{
		ElementsRemoved: make(map[string]int),
		SelectorMatches: make(map[string]int),
	}
}

// ReductionPercent returns the percentage of text removed.
func (s *Stats) ReductionPercent() float64 {
	if s.InputTextLength == 0 {
		return 0
	}
	return float64(s.InputTextLength-s.OutputTextLength) / float64(s.InputTextLength) * 100
}

// TotalElementsRemoved returns the sum of all removed elements.
func (s *Stats) TotalElementsRemoved() int {
	total := 0
	for _, count := range s.ElementsRemoved {
		total += count
	}
	return total
}

// RecordRemoval records that an element was removed.
func (s *Stats) RecordRemoval(tag string) {
	s.ElementsRemoved[strings.ToLower(tag)]++
}

// RecordSelectorMatch records that a selector matched elements.
func (s *Stats) RecordSelectorMatch(selector string, count int) {
	s.SelectorMatches[selector] += count
}

// String returns a human-readable summary of the stats.
func (s *Stats) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Text: %d -> %d chars (%.1f%% reduction)\n",
		s.InputTextLength, s.OutputTextLength, s.ReductionPercent()))

	sb.WriteString(fmt.Sprintf("Elements: %d removed, %d kept\n",
		s.TotalElementsRemoved(), s.ElementsKept))

	if len(s.ElementsRemoved) > 0 {
		sb.WriteString("Removed by tag: ")
		sb.WriteString(joinCounts(s.ElementsRemoved))
		sb.WriteString("\n")
	}

	if len(s.SelectorMatches) > 0 {
		sb.WriteString("Selector matches: ")
		sb.WriteString(joinCounts(s.SelectorMatches))
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Duration: %v\n", s.Duration.Round(time.Microsecond)))

	return sb.String()
}

// joinCounts renders a count map as "k=v" pairs in key order.
func joinCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, ", ")
}

// Warning represents a non-fatal issue encountered during pruning.
type Warning struct {
	Phase   string `json:"phase"`   // "compile", "prune"
	Message string `json:"message"` // Human-readable description
	Context string `json:"context"` // Selector that caused the issue
}

// String returns a formatted warning message.
func (w Warning) String() string {
	if w.Context != "" {
		return fmt.Sprintf("[%s] %s (context: %s)", w.Phase, w.Message, w.Context)
	}
	return fmt.Sprintf("[%s] %s", w.Phase, w.Message)
}

// PruneResult contains the output of a prune pass.
type PruneResult struct {
	// Node is the pruned deep clone. It is nil only when the input was nil.
	Node *html.Node `json:"-"`

	// Stats contains metrics about what was done.
	Stats *Stats `json:"stats"`

	// Warnings contains non-fatal issues encountered.
	Warnings []Warning `json:"warnings,omitempty"`
}

// AddWarning adds a warning to the result.
func (r *PruneResult) AddWarning(phase, message, context string) {
	r.Warnings = append(r.Warnings, Warning{
		Phase:   phase,
		Message: message,
		Context: context,
	})
}

// HasWarnings returns true if any warnings were recorded.
func (r *PruneResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}
