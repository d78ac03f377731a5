package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yosssi/gohtml"
	"golang.org/x/net/html"

	"github.com/jmylchreest/extractmd/internal/output"
	"github.com/jmylchreest/extractmd/pkg/cleaner"
	"github.com/jmylchreest/extractmd/pkg/selector"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [url-or-file]",
	Short: "Show the cleaned content region as HTML",
	Long: `Select the content region, run the cleaning pass over a copy of it and
print the result as HTML, followed by what was removed.

Examples:
  # Clean the auto-selected region
  extractmd clean https://example.com/article

  # Only strip scripts and styles
  extractmd clean --gentle page.html

  # Extra selectors to remove, and some to keep
  extractmd clean --remove ".promo,.related" --keep ".post-nav" page.html

  # Stats only, as JSON
  extractmd clean --stats-only --json https://example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	flags := cleanCmd.Flags()
	flags.StringP("mode", "m", "auto", "content region: auto, main, full, selector")
	flags.StringP("selector", "s", "", "CSS selector for the content region (implies --mode selector)")
	flags.Bool("gentle", false, "only strip scripts, styles and embeds")
	flags.String("remove", "", "comma-separated extra selectors to remove")
	flags.String("keep", "", "comma-separated selectors to keep")
	flags.Bool("raw", false, "print the HTML without reformatting")
	flags.StringP("output", "o", "", "write cleaned HTML to file")
	flags.Bool("stats-only", false, "only show stats, don't output content")
	flags.Bool("json", false, "print stats as JSON on stdout")
	flags.BoolP("verbose", "v", false, "show warnings")
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := loadSettings()
	if err != nil {
		return err
	}

	input := "-"
	if len(args) > 0 {
		input = args[0]
	}
	doc, _, err := loadDocument(ctx, input, "", st)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	modeStr, _ := flags.GetString("mode")
	mode, err := selector.ParseMode(modeStr)
	if err != nil {
		return err
	}
	custom, _ := flags.GetString("selector")
	if custom != "" {
		mode = selector.ModeSelector
	}
	gentle, _ := flags.GetBool("gentle")

	root := selector.Select(doc, mode, selector.Options{
		Aggressive:     !gentle,
		CustomSelector: custom,
	})

	cfg := cleaner.PresetAggressive()
	if gentle {
		cfg = cleaner.PresetStandard()
	}
	remove, _ := flags.GetString("remove")
	cfg.RemoveSelectors = append(cfg.RemoveSelectors, splitSelectors(remove)...)
	keep, _ := flags.GetString("keep")
	cfg.KeepSelectors = append(cfg.KeepSelectors, splitSelectors(keep)...)

	result := cleaner.NewPruner(cfg).CloneAndClean(root)

	// Output stats
	jsonStats, _ := flags.GetBool("json")
	if jsonStats {
		if err := writeCleanStats(inputName(input), root, result); err != nil {
			return err
		}
	} else if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, "%s\n", color.CyanString("=== Cleaning Stats ==="))
		fmt.Fprintf(os.Stderr, "Source: %s\n", inputName(input))
		fmt.Fprintf(os.Stderr, "Region: %s\n", selector.Describe(root))
		fmt.Fprint(os.Stderr, result.Stats.String())
	}

	// Output warnings
	if verbose, _ := flags.GetBool("verbose"); verbose && result.HasWarnings() {
		fmt.Fprintf(os.Stderr, "\n%s\n", color.YellowString("Warnings:"))
		for _, w := range result.Warnings {
			fmt.Fprintf(os.Stderr, "  %s\n", w.String())
		}
	}

	if statsOnly, _ := flags.GetBool("stats-only"); statsOnly || jsonStats {
		return nil
	}

	// Output content
	var buf bytes.Buffer
	if err := html.Render(&buf, result.Node); err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}
	content := buf.String()
	if raw, _ := flags.GetBool("raw"); !raw {
		content = gohtml.Format(content)
	}

	if outPath, _ := flags.GetString("output"); outPath != "" {
		if err := os.WriteFile(outPath, []byte(content+"\n"), 0o644); err != nil { //#nosec G306 -- cleaned HTML is meant to be readable
			return fmt.Errorf("failed to write output file: %w", err)
		}
		logSuccess("Written to %s", outPath)
		return nil
	}
	fmt.Println(content)
	return nil
}

// splitSelectors splits a comma-separated selector list. Commas inside
// brackets or parentheses do not split.
func splitSelectors(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				out = appendTrimmed(out, s[start:i])
				start = i + 1
			}
		}
	}
	return appendTrimmed(out, s[start:])
}

func appendTrimmed(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}

func writeCleanStats(source string, root *html.Node, result *cleaner.PruneResult) error {
	stats := struct {
		Source   string            `json:"source" yaml:"source"`
		Region   string            `json:"region" yaml:"region"`
		Stats    *cleaner.Stats    `json:"stats" yaml:"stats"`
		Reduced  float64           `json:"reduction_percent" yaml:"reduction_percent"`
		Warnings []cleaner.Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	}{
		Source:   source,
		Region:   selector.Describe(root),
		Stats:    result.Stats,
		Reduced:  result.Stats.ReductionPercent(),
		Warnings: result.Warnings,
	}

	w := output.NewJSONWriter(os.Stdout, true, "  ")
	if err := w.Write(stats); err != nil {
		return err
	}
	return w.Close()
}
