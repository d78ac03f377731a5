package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/extractmd/pkg/cleaner"
	"github.com/jmylchreest/extractmd/pkg/extractmd"
	"github.com/jmylchreest/extractmd/pkg/markdown"
)

var compareCmd = &cobra.Command{
	Use:   "compare [url-or-file]",
	Short: "Compare pipelines and main-content extractors on one page",
	Long: `Run every pipeline and main-content extractor on the same input and
report output size, reduction and time for each.

Examples:
  extractmd compare https://example.com/article
  extractmd compare --show trafilatura-markdown page.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().String("show", "", "print the output of the named strategy after the table")
}

// strategy is one row of the comparison.
type strategy struct {
	name string
	run  func() (string, error)
}

func runCompare(cmd *cobra.Command, args []string) error {
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
	doc, pageURL, err := loadDocument(ctx, input, "", st)
	if err != nil {
		return err
	}
	source, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}

	ext, err := extractmd.New()
	if err != nil {
		return err
	}
	defer func() { _ = ext.Close() }()

	opts := markdown.DefaultOptions()
	opts.BaseURL = pageURL
	universalOpts := opts
	universalOpts.StripNav = true

	strategies := []strategy{
		{"page pipeline", pipelineStrategy(ext, doc, st.Request(extractmd.PipelinePage, pageURL))},
		{"article pipeline", pipelineStrategy(ext, doc, st.Request(extractmd.PipelineArticle, pageURL))},
		{"universal pipeline", pipelineStrategy(ext, doc, st.Request(extractmd.PipelineUniversal, pageURL))},
	}
	for _, c := range []struct {
		name    string
		cleaner cleaner.Cleaner
	}{
		{"noop", cleaner.NewNoop()},
		{"readability (html)", cleaner.NewReadability(&cleaner.ReadabilityConfig{BaseURL: pageURL})},
		{"readability (text)", cleaner.NewReadability(&cleaner.ReadabilityConfig{Output: cleaner.OutputText})},
		{"trafilatura (html)", cleaner.NewTrafilatura(&cleaner.TrafilaturaConfig{
			Tables: cleaner.Include,
			Links:  cleaner.Include,
		})},
		{"trafilatura (text)", cleaner.NewTrafilatura(&cleaner.TrafilaturaConfig{Output: cleaner.OutputText})},
		{"page markdown", cleaner.NewMarkdown(markdown.NewPage(opts))},
		{"universal markdown", cleaner.NewMarkdown(markdown.NewUniversal(universalOpts))},
		// Chains
		{"readability-markdown", cleaner.NewChain(
			cleaner.NewReadability(&cleaner.ReadabilityConfig{BaseURL: pageURL}),
			cleaner.NewMarkdown(markdown.NewPage(opts)),
		)},
		{"trafilatura-markdown", cleaner.NewChain(
			cleaner.NewTrafilatura(&cleaner.TrafilaturaConfig{
				Tables: cleaner.Include,
				Links:  cleaner.Include,
			}),
			cleaner.NewMarkdown(markdown.NewPage(opts)),
		)},
	} {
		strategies = append(strategies, strategy{c.name, cleanerStrategy(c.cleaner, source)})
	}

	show, _ := cmd.Flags().GetString("show")
	var shown string

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s (%s)", inputName(input), humanize.Bytes(uint64(len(source)))))
	t.AppendHeader(table.Row{"Strategy", "Output", "Reduce %", "Time", ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	for _, s := range strategies {
		start := time.Now()
		out, err := s.run()
		duration := time.Since(start).Round(time.Millisecond)

		if err != nil {
			t.AppendRow(table.Row{s.name, "-", "-", duration, color.RedString("%v", err)})
			continue
		}
		if s.name == show {
			shown = out
		}

		reduction := float64(len(source)-len(out)) / float64(len(source)) * 100
		t.AppendRow(table.Row{
			s.name,
			humanize.Bytes(uint64(len(out))),
			fmt.Sprintf("%.1f%%", reduction),
			duration,
			"",
		})
	}
	t.Render()

	if show != "" {
		if shown == "" {
			return fmt.Errorf("no output for strategy %q", show)
		}
		fmt.Printf("\n--- %s ---\n%s\n", show, shown)
	}
	return nil
}

func pipelineStrategy(ext *extractmd.Extractor, doc *goquery.Document, req extractmd.Request) func() (string, error) {
	return func() (string, error) {
		result, err := ext.Convert(doc, req)
		if err != nil {
			return "", err
		}
		return result.Markdown, nil
	}
}

func cleanerStrategy(c cleaner.Cleaner, source string) func() (string, error) {
	return func() (string, error) {
		return c.Clean(source)
	}
}
