package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/extractmd/internal/settings"
	"github.com/jmylchreest/extractmd/pkg/extractmd"
	"github.com/jmylchreest/extractmd/pkg/fetcher"
)

// isURL reports whether input should be fetched rather than read from disk.
func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// readLocal parses a file, or stdin when path is "-".
func readLocal(path string) (*goquery.Document, error) {
	if path == "-" {
		doc, err := extractmd.ParseReader(os.Stdin, "")
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return doc, nil
	}

	f, err := os.Open(path) //#nosec G304 -- CLI tool reads user-specified input file
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	doc, err := extractmd.ParseReader(f, "")
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return doc, nil
}

// loadDocument fetches or reads input and returns the parsed document with
// the URL it was loaded from. Local inputs report baseURL as their URL.
func loadDocument(ctx context.Context, input, baseURL string, st *settings.Settings) (*goquery.Document, string, error) {
	if !isURL(input) {
		doc, err := readLocal(input)
		return doc, baseURL, err
	}

	mode, err := fetcher.ParseMode(st.Fetch.Mode)
	if err != nil {
		return nil, "", err
	}
	f, err := fetcher.New(mode, fetcher.Config{
		UserAgent: st.Fetch.UserAgent,
		Timeout:   st.Fetch.Timeout,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create fetcher: %w", err)
	}
	defer func() { _ = f.Close() }()

	content, err := f.Fetch(ctx, input, fetcher.Options{})
	if err != nil {
		return nil, "", fmt.Errorf("fetch failed: %w", err)
	}

	doc, err := extractmd.ParseReader(strings.NewReader(content.HTML), "text/html; charset=utf-8")
	if err != nil {
		return nil, "", err
	}
	return doc, content.URL, nil
}

// inputName labels an input in status lines.
func inputName(input string) string {
	if input == "-" {
		return "stdin"
	}
	return input
}
