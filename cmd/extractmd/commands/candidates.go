package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/extractmd/internal/output"
	"github.com/jmylchreest/extractmd/pkg/cleaner"
	"github.com/jmylchreest/extractmd/pkg/selector"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates [url-or-file]",
	Short: "Show the content-region candidates and their scores",
	Long: `List every element the page pipeline considers as the content region,
in evaluation order, with the length of its cleaned text. The winner is the
first candidate with the highest score; the body is used when every score
is zero.

Examples:
  extractmd candidates https://example.com/post
  extractmd candidates --gentle page.html
  extractmd candidates --selector ".story" --selector "#main" page.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCandidates,
}

func init() {
	rootCmd.AddCommand(candidatesCmd)

	flags := candidatesCmd.Flags()
	flags.Bool("gentle", false, "score with the standard cleaning pass instead of the aggressive one")
	flags.StringSlice("selector", nil, "candidate selectors to use instead of the defaults (can be repeated)")
	flags.Bool("readability", true, "also report the region readability picks")
	flags.String("format", "table", "output format: table, json, jsonl, yaml")
}

// candidateRow is the structured form of one table row.
type candidateRow struct {
	Rank     int    `json:"rank" yaml:"rank"`
	Selector string `json:"selector" yaml:"selector"`
	Element  string `json:"element" yaml:"element"`
	Score    int    `json:"score" yaml:"score"`
	Winner   bool   `json:"winner" yaml:"winner"`
}

func runCandidates(cmd *cobra.Command, args []string) error {
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

	gentle, _ := cmd.Flags().GetBool("gentle")
	selectors, _ := cmd.Flags().GetStringSlice("selector")
	if len(selectors) == 0 {
		selectors = selector.DefaultCandidateSelectors
	}

	scored := selector.Score(selector.Candidates(doc, selectors), !gentle)
	best := selector.Best(scored)

	rows := make([]candidateRow, len(scored))
	for i, c := range scored {
		rows[i] = candidateRow{
			Rank:     i + 1,
			Selector: c.Selector,
			Element:  selector.Describe(c.Node),
			Score:    c.Score,
			Winner:   i == best,
		}
	}

	format, _ := cmd.Flags().GetString("format")
	if format != "table" {
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		if f == output.FormatMarkdown {
			return fmt.Errorf("unsupported candidates format: %s (use table, json, jsonl, or yaml)", format)
		}
		w, err := output.NewWriter(os.Stdout, f)
		if err != nil {
			return err
		}
		items := make([]any, len(rows))
		for i := range rows {
			items[i] = rows[i]
		}
		if err := w.WriteAll(items); err != nil {
			return err
		}
		return w.Close()
	}

	renderCandidates(rows)

	if best < 0 {
		logInfo("%s", color.YellowString("No candidate has content; the body is used."))
	}

	if useReadability, _ := cmd.Flags().GetBool("readability"); useReadability {
		root := selector.SelectMain(doc, selector.Options{
			Aggressive:         !gentle,
			CandidateSelectors: selectors,
			Readability:        cleaner.NewReadability(nil),
		})
		fmt.Printf("\nMain section (readability): %s, %s characters\n",
			selector.Describe(root), humanize.Comma(int64(selector.TextLength(root))))
	}
	return nil
}

func renderCandidates(rows []candidateRow) {
	winner := color.New(color.FgGreen, color.Bold).SprintFunc()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Selector", "Element", "Score", ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignLeft, WidthMax: 40},
		{Number: 3, Align: text.AlignLeft, WidthMax: 40},
		{Number: 4, Align: text.AlignRight},
	})

	for _, r := range rows {
		score := humanize.Comma(int64(r.Score))
		mark := ""
		if r.Winner {
			score = winner(score)
			mark = winner("✔ selected")
		}
		t.AppendRow(table.Row{r.Rank, r.Selector, r.Element, score, mark})
	}
	t.Render()
}
