package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/extractmd/internal/logger"
	"github.com/jmylchreest/extractmd/internal/output"
	"github.com/jmylchreest/extractmd/internal/settings"
	"github.com/jmylchreest/extractmd/pkg/extractmd"
	"github.com/jmylchreest/extractmd/pkg/fetcher"
	"github.com/jmylchreest/extractmd/pkg/selector"
)

var extractCmd = &cobra.Command{
	Use:   "extract [url-or-file...]",
	Short: "Convert pages to Markdown",
	Long: `Convert one or more pages to Markdown.

Inputs starting with http:// or https:// are fetched; anything else is read
as a file, and "-" (or no input) reads HTML from stdin. Several URLs are
fetched concurrently.

Results go to stdout, or to --output. With --download, or when the Markdown
reaches --max-size, each result is written to a file named after the page
title in the download directory instead.

Examples:
  # Page pipeline with defaults
  extractmd extract https://example.com/post

  # Only the longest article, saved to a file
  extractmd extract -p article --longest --download https://example.com/

  # Universal pipeline restricted to a selector
  extractmd extract -p universal --selector "#content" page.html

  # Keep navigation and other chrome, skip readability
  extractmd extract --whole-page --gentle https://example.com/post`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addRequestFlags(extractCmd)

	flags := extractCmd.Flags()

	// Output settings
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.StringP("format", "f", "markdown", "output format: markdown, json, jsonl, yaml")
	flags.Bool("download", false, "write each result to a file named after its title")
	flags.String("download-dir", "", "directory for downloaded files (default from config: .)")
	flags.String("max-size", "", "download results at least this large instead of printing (e.g. 64KB, 0=never)")
	flags.IntP("concurrency", "c", 0, "concurrent fetches (default from config: 3)")

	_ = viper.BindPFlag("download.instead_of_copy", flags.Lookup("download"))
	_ = viper.BindPFlag("download.dir", flags.Lookup("download-dir"))
	_ = viper.BindPFlag("download.if_larger", flags.Lookup("max-size"))
	_ = viper.BindPFlag("fetch.concurrency", flags.Lookup("concurrency"))
}

// addRequestFlags registers the flags read by applyRequestFlags.
func addRequestFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	// Pipeline selection
	flags.StringP("pipeline", "p", "page", "pipeline: page, article, universal")
	flags.StringP("mode", "m", "", "content region: auto, main, full, selector (universal default from config)")
	flags.StringP("selector", "s", "", "CSS selector for the content region (implies --mode selector)")
	flags.String("base-url", "", "base URL for resolving links in file or stdin input")
	flags.String("title", "", "title to use instead of the page's <title>")

	// Content options
	flags.Bool("no-images", false, "drop images")
	flags.Bool("no-links", false, "render links as plain text")
	flags.Bool("no-tables", false, "drop tables (page pipeline)")
	flags.Bool("no-title", false, "omit the title header")
	flags.Bool("no-url", false, "omit the URL header")
	flags.Bool("whole-page", false, "convert the whole body instead of the main section (page pipeline)")
	flags.Bool("gentle", false, "only strip scripts, styles and embeds (page pipeline)")
	flags.Bool("longest", false, "keep only the longest article (article pipeline)")
	flags.Int("min-length", 0, "minimum content length in characters (0=pipeline default, -1=disabled)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := loadSettings()
	if err != nil {
		return err
	}

	pipelineStr, _ := cmd.Flags().GetString("pipeline")
	pipeline, err := extractmd.ParsePipeline(pipelineStr)
	if err != nil {
		return err
	}

	template := st.Request(pipeline, "")
	if err := applyRequestFlags(cmd, &template); err != nil {
		return err
	}

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	fetchMode, err := fetcher.ParseMode(st.Fetch.Mode)
	if err != nil {
		return err
	}

	ext, err := extractmd.New(
		extractmd.WithFetchMode(fetchMode),
		extractmd.WithUserAgent(st.Fetch.UserAgent),
		extractmd.WithTimeout(st.Fetch.Timeout),
		extractmd.WithConcurrency(st.Fetch.Concurrency),
	)
	if err != nil {
		return err
	}
	defer func() { _ = ext.Close() }()

	// Setup output
	outFile := os.Stdout
	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		outFile = f
	}

	writer, err := output.NewWriter(outFile, format)
	if err != nil {
		return err
	}
	defer func() { _ = writer.Close() }()

	if len(args) == 0 {
		args = []string{"-"}
	}

	logger.Debug("extract command starting",
		"inputs", len(args),
		"pipeline", pipeline,
		"fetcher", ext.FetcherType(),
		"format", format)

	sink := &resultSink{
		writer:   writer,
		format:   format,
		settings: st,
	}

	var urlReqs []extractmd.Request
	for _, input := range args {
		if isURL(input) {
			req := template
			req.URL = input
			urlReqs = append(urlReqs, req)
			continue
		}
		sink.handle(convertLocal(ext, input, template))
	}

	if len(urlReqs) == 1 {
		result, err := ext.Extract(ctx, urlReqs[0])
		if err != nil {
			result = &extractmd.Result{URL: urlReqs[0].URL, Pipeline: pipeline, Error: err, ErrorMessage: err.Error()}
		}
		sink.handle(result)
	} else if len(urlReqs) > 1 {
		logInfo("Fetching %d pages (concurrency %d)", len(urlReqs), st.Fetch.Concurrency)
		for result := range ext.ExtractMany(ctx, urlReqs) {
			sink.handle(result)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	logger.Info("extraction complete", "converted", sink.converted, "downloaded", sink.downloaded, "errors", sink.failed)
	if sink.writeErr != nil {
		return fmt.Errorf("failed to write output: %w", sink.writeErr)
	}
	if sink.failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", sink.failed, len(args))
	}
	return nil
}

// applyRequestFlags overrides the settings-derived request with any flags
// given on the command line.
func applyRequestFlags(cmd *cobra.Command, req *extractmd.Request) error {
	flags := cmd.Flags()

	if modeStr, _ := flags.GetString("mode"); modeStr != "" {
		mode, err := selector.ParseMode(modeStr)
		if err != nil {
			return err
		}
		req.Mode = mode
		// An explicit region replaces readability in the page pipeline.
		req.OnlyMainSection = false
	}
	if sel, _ := flags.GetString("selector"); sel != "" {
		req.CustomSelector = sel
		req.Mode = selector.ModeSelector
		req.OnlyMainSection = false
	}
	if base, _ := flags.GetString("base-url"); base != "" {
		req.URL = base
	}
	if title, _ := flags.GetString("title"); title != "" {
		req.Title = title
	}

	if v, _ := flags.GetBool("no-images"); v {
		req.Markdown.IncludeImages = false
	}
	if v, _ := flags.GetBool("no-links"); v {
		req.Markdown.IncludeLinks = false
	}
	if v, _ := flags.GetBool("no-tables"); v {
		req.Markdown.IncludeTables = false
	}
	if v, _ := flags.GetBool("no-title"); v {
		req.IncludeTitle = false
	}
	if v, _ := flags.GetBool("no-url"); v {
		req.IncludeURL = false
	}
	if v, _ := flags.GetBool("whole-page"); v {
		req.OnlyMainSection = false
	}
	if v, _ := flags.GetBool("gentle"); v {
		req.Aggressive = false
	}
	if v, _ := flags.GetBool("longest"); v {
		req.OnlyLongest = true
	}
	if flags.Changed("min-length") {
		req.MinContentLength, _ = flags.GetInt("min-length")
	}
	return nil
}

// convertLocal converts a file or stdin. Failures are returned inside the
// result, as ExtractMany does.
func convertLocal(ext *extractmd.Extractor, input string, req extractmd.Request) *extractmd.Result {
	failed := func(err error) *extractmd.Result {
		return &extractmd.Result{
			URL:          inputName(input),
			Pipeline:     req.Pipeline,
			Error:        err,
			ErrorMessage: err.Error(),
		}
	}

	doc, err := readLocal(input)
	if err != nil {
		return failed(err)
	}
	result, err := ext.Convert(doc, req)
	if err != nil {
		return failed(err)
	}
	if result.URL == "" {
		result.URL = inputName(input)
	}
	return result
}

// resultSink routes results to the writer or to download files and keeps
// the counts for the summary.
type resultSink struct {
	writer   output.Writer
	format   output.Format
	settings *settings.Settings

	converted  int
	downloaded int
	failed     int
	writeErr   error
}

func (s *resultSink) handle(r *extractmd.Result) {
	if r.Error != nil {
		s.failed++
		var nce *extractmd.NoContentError
		if errors.As(r.Error, &nce) {
			logError("%s: no content found (%d characters, need %d)", r.URL, nce.Length, nce.Min)
		} else {
			logError("%s: %v", r.URL, r.Error)
		}
		return
	}

	s.converted++
	if r.Pipeline == extractmd.PipelineArticle && s.settings.Article.ShowInfo {
		logInfo("%s: found %d article(s)", r.URL, r.Articles)
	}

	if r.Download {
		path, err := saveUnique(s.settings.Download.Dir, r.Filename, []byte(r.Markdown))
		if err != nil {
			s.failed++
			logError("%s: failed to save %s: %v", r.URL, r.Filename, err)
			return
		}
		s.downloaded++
		logSuccess("Saved %s (%s)", path, humanize.Bytes(uint64(len(r.Markdown))))
		// Markdown already went to the file; structured formats still
		// record the result.
		if s.format == output.FormatMarkdown {
			return
		}
	}

	if err := s.writer.Write(r); err != nil && s.writeErr == nil {
		s.writeErr = err
	}
	logger.Debug("result written", "url", r.URL, "root", r.Root, "bytes", len(r.Markdown))
}

// saveUnique writes data to filename in dir. When the name is taken, by an
// earlier result or an existing file, " (2)", " (3)" and so on are inserted
// before the extension.
func saveUnique(dir, filename string, data []byte) (string, error) {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	for i := 1; ; i++ {
		name := filename
		if i > 1 {
			name = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //#nosec G302 G304 -- Markdown output is meant to be readable
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", err
		}
		return path, f.Close()
	}
}
