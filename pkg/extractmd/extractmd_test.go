package extractmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/extractmd/pkg/fetcher"
	"github.com/jmylchreest/extractmd/pkg/markdown"
	"github.com/jmylchreest/extractmd/pkg/selector"
)

const fixtureURL = "https://example.com/posts/channels"

// readTestdata reads a file from the testdata directory
func readTestdata(t *testing.T, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("failed to read testdata %s: %v", filename, err)
	}
	return string(data)
}

func parseDoc(t *testing.T, input string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

// stubFetcher serves canned pages keyed by URL.
type stubFetcher struct {
	pages map[string]fetcher.Content
	err   error
	calls atomic.Int32
}

func (f *stubFetcher) Fetch(_ context.Context, url string, _ fetcher.Options) (fetcher.Content, error) {
	f.calls.Add(1)
	if f.err != nil {
		return fetcher.Content{URL: url}, f.err
	}
	page, ok := f.pages[url]
	if !ok {
		return fetcher.Content{URL: url}, fmt.Errorf("no page for %s", url)
	}
	return page, nil
}

func (f *stubFetcher) Close() error { return nil }
func (f *stubFetcher) Type() string { return "stub" }

func newTestExtractor(t *testing.T, opts ...Option) *Extractor {
	t.Helper()
	opts = append([]Option{WithFetcher(&stubFetcher{}), WithReadability(nil)}, opts...)
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func assertContains(t *testing.T, md string, contains, excludes []string) {
	t.Helper()
	for _, want := range contains {
		if !strings.Contains(md, want) {
			t.Errorf("expected output to contain %q\ngot:\n%s", want, md)
		}
	}
	for _, unwanted := range excludes {
		if strings.Contains(md, unwanted) {
			t.Errorf("expected output NOT to contain %q\ngot:\n%s", unwanted, md)
		}
	}
}

func TestParsePipeline(t *testing.T) {
	tests := []struct {
		input   string
		want    Pipeline
		wantErr bool
	}{
		{"", PipelinePage, false},
		{"page", PipelinePage, false},
		{"Article", PipelineArticle, false},
		{" universal ", PipelineUniversal, false},
		{"youtube", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePipeline(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePipeline() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePipeline() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConvert_Page(t *testing.T) {
	e := newTestExtractor(t)
	req := DefaultRequest(fixtureURL)

	result, err := e.Convert(parseDoc(t, readTestdata(t, "article.html")), req)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	wantHeader := "# Understanding Go Channels | Example Blog\n\n**URL:** " + fixtureURL + "\n\n---\n\n"
	if !strings.HasPrefix(result.Markdown, wantHeader) {
		t.Errorf("Markdown header =\n%q\nwant prefix\n%q", result.Markdown[:min(len(result.Markdown), len(wantHeader))], wantHeader)
	}

	assertContains(t, result.Markdown,
		[]string{
			"\n# Understanding Go Channels\n",
			"## Buffered channels",
			"```go\nch := make(chan int, 2)",
			"- Only the sender should close a channel.",
			"| Operation | Nil channel | Closed channel |\n| --- | --- | --- |",
			"![Diagram of two goroutines connected by a channel](https://example.com/posts/images/channels.png)",
			"> Do not communicate by sharing memory",
			"`make`",
		},
		[]string{
			"Great post",
			"Share this post",
			"Related posts",
			"Copyright 2024",
			"window.analytics",
			"Copy as Markdown",
			"\n\n\n",
		})

	if result.Root != "main" {
		t.Errorf("Root = %q, want main", result.Root)
	}
	if result.Title != "Understanding Go Channels | Example Blog" {
		t.Errorf("Title = %q", result.Title)
	}
	if result.Filename != "Understanding Go Channels Example Blog.md" {
		t.Errorf("Filename = %q", result.Filename)
	}
	if result.Pipeline != PipelinePage {
		t.Errorf("Pipeline = %q", result.Pipeline)
	}
	if result.TextLength < selector.DefaultMinContentLength {
		t.Errorf("TextLength = %d", result.TextLength)
	}
	if result.Download {
		t.Error("Download set without being requested")
	}
}

func TestConvert_PageWholeBody(t *testing.T) {
	e := newTestExtractor(t)
	req := DefaultRequest(fixtureURL)
	req.OnlyMainSection = false
	req.Aggressive = false

	result, err := e.Convert(parseDoc(t, readTestdata(t, "article.html")), req)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	assertContains(t, result.Markdown,
		[]string{"Channels are the pipes", "Great post", "Related posts", "Copyright 2024"},
		[]string{"window.analytics", "Copy as Markdown", "font-family"})

	if result.Root != "body" {
		t.Errorf("Root = %q, want body", result.Root)
	}
}

func TestConvert_PageReadability(t *testing.T) {
	e, err := New(WithFetcher(&stubFetcher{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Close()

	result, err := e.Convert(parseDoc(t, readTestdata(t, "article.html")), DefaultRequest(fixtureURL))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	assertContains(t, result.Markdown,
		[]string{"Channels are the pipes", "Buffered channels"},
		[]string{"window.analytics", "Copyright 2024"})
}

func TestConvert_Header(t *testing.T) {
	const titled = `<html><head><title>T</title></head><body><p>Body text.</p></body></html>`
	const untitled = `<html><body><p>Body text.</p></body></html>`

	tests := []struct {
		name     string
		input    string
		pipeline Pipeline
		url      string
		title    bool
		withURL  bool
		want     string
	}{
		{"title and url", titled, PipelinePage, "https://example.com/", true, true,
			"# T\n\n**URL:** https://example.com/\n\n---\n\nBody text."},
		{"title only", titled, PipelinePage, "https://example.com/", true, false,
			"# T\n\n---\n\nBody text."},
		{"url only", titled, PipelinePage, "https://example.com/", false, true,
			"**URL:** https://example.com/\n\n---\n\nBody text."},
		{"neither", titled, PipelinePage, "https://example.com/", false, false,
			"Body text."},
		{"title fallback", untitled, PipelinePage, "https://example.com/", true, false,
			"# Page\n\n---\n\nBody text."},
		{"no url to show", titled, PipelinePage, "", false, true,
			"Body text."},
		{"universal url implies title", titled, PipelineUniversal, "https://example.com/", false, true,
			"# T\n\n**URL:** https://example.com/\n\n---\n\nBody text."},
		{"universal ignores title flag", titled, PipelineUniversal, "https://example.com/", true, false,
			"Body text."},
	}

	e := newTestExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{
				URL:              tt.url,
				Pipeline:         tt.pipeline,
				IncludeTitle:     tt.title,
				IncludeURL:       tt.withURL,
				MinContentLength: -1,
			}
			result, err := e.Convert(parseDoc(t, tt.input), req)
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if result.Markdown != tt.want {
				t.Errorf("Markdown =\n%q\nwant\n%q", result.Markdown, tt.want)
			}
		})
	}
}

func TestConvert_NoContent(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name     string
		input    string
		pipeline Pipeline
		wantLen  int
		wantMin  int
	}{
		{"page too short", `<body><main><p>Too short.</p></main></body>`, PipelinePage, 10, selector.DefaultMinContentLength},
		{"no articles", `<body><main><p>Text</p></main></body>`, PipelineArticle, 0, 1},
		{"empty articles", `<body><article><script>x()</script></article></body>`, PipelineArticle, 0, 1},
		{"universal empty", `<body><main>   </main></body>`, PipelineUniversal, 0, selector.UniversalMinContentLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := DefaultRequest("https://example.com/empty")
			req.Pipeline = tt.pipeline

			_, err := e.Convert(parseDoc(t, tt.input), req)
			if !errors.Is(err, ErrNoContent) {
				t.Fatalf("Convert() error = %v, want ErrNoContent", err)
			}
			var nce *NoContentError
			if !errors.As(err, &nce) {
				t.Fatalf("error %T is not a *NoContentError", err)
			}
			if nce.Length != tt.wantLen || nce.Min != tt.wantMin {
				t.Errorf("NoContentError = %+v, want length %d min %d", nce, tt.wantLen, tt.wantMin)
			}
			if nce.URL != "https://example.com/empty" {
				t.Errorf("NoContentError.URL = %q", nce.URL)
			}
		})
	}
}

func TestConvert_MinContentLengthDisabled(t *testing.T) {
	e := newTestExtractor(t)
	req := DefaultRequest("")
	req.MinContentLength = -1
	req.IncludeTitle = false

	result, err := e.Convert(parseDoc(t, `<body><main><p>Too short.</p></main></body>`), req)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if result.Markdown != "Too short." {
		t.Errorf("Markdown = %q", result.Markdown)
	}
}

const twoArticles = `<body>
<article><h2>First</h2><p>Short one.</p></article>
<article><h2>Second</h2><p>This second article is clearly longer than the first.</p></article>
</body>`

func TestConvert_Articles(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		onlyLongest bool
		want        string
	}{
		{
			name:  "joined",
			input: twoArticles,
			want: "## Article 1\n\n## First\n\nShort one.\n\n---\n\n" +
				"## Article 2\n\n## Second\n\nThis second article is clearly longer than the first.",
		},
		{
			name:        "only longest",
			input:       twoArticles,
			onlyLongest: true,
			want:        "## Second\n\nThis second article is clearly longer than the first.",
		},
		{
			name:        "longest tie keeps first",
			input:       `<body><article><p>aaaa</p></article><article><p>bbbb</p></article></body>`,
			onlyLongest: true,
			want:        "aaaa",
		},
		{
			name:  "single article has no section heading",
			input: `<body><article><h1>Only</h1><p>Alone.</p></article></body>`,
			want:  "# Only\n\nAlone.",
		},
		{
			name:  "scripts cleaned",
			input: `<body><article><p>Kept.</p><script>dropped()</script></article></body>`,
			want:  "Kept.",
		},
	}

	e := newTestExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{Pipeline: PipelineArticle, OnlyLongest: tt.onlyLongest}
			result, err := e.Convert(parseDoc(t, tt.input), req)
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if result.Markdown != tt.want {
				t.Errorf("Markdown =\n%q\nwant\n%q", result.Markdown, tt.want)
			}
		})
	}
}

func TestConvert_ArticlesCount(t *testing.T) {
	e := newTestExtractor(t)
	result, err := e.Convert(parseDoc(t, twoArticles), Request{Pipeline: PipelineArticle, OnlyLongest: true})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if result.Articles != 2 {
		t.Errorf("Articles = %d, want 2", result.Articles)
	}
}

func TestConvert_ArticlesImages(t *testing.T) {
	input := `<body><article><p>Text</p><img src="/a.png" alt="A"></article></body>`
	e := newTestExtractor(t)

	with, err := e.Convert(parseDoc(t, input), Request{
		URL:      "https://example.com/x/y",
		Pipeline: PipelineArticle,
		Markdown: markdown.Options{IncludeImages: true},
	})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !strings.Contains(with.Markdown, "![A](https://example.com/a.png)") {
		t.Errorf("Markdown = %q, want resolved image", with.Markdown)
	}

	without, err := e.Convert(parseDoc(t, input), Request{Pipeline: PipelineArticle})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if strings.Contains(without.Markdown, "![") {
		t.Errorf("Markdown = %q, want no image", without.Markdown)
	}
}

func TestConvert_ArticlesImageOnly(t *testing.T) {
	input := `<body><article><img src="/chart.png" alt="Chart"></article></body>`
	e := newTestExtractor(t)

	result, err := e.Convert(parseDoc(t, input), Request{
		URL:      "https://example.com/p",
		Pipeline: PipelineArticle,
		Markdown: markdown.Options{IncludeImages: true},
	})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if result.Markdown != "![Chart](https://example.com/chart.png)" {
		t.Errorf("Markdown = %q", result.Markdown)
	}

	// Without images nothing is rendered.
	_, err = e.Convert(parseDoc(t, input), Request{URL: "https://example.com/p", Pipeline: PipelineArticle})
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("Convert() without images error = %v, want ErrNoContent", err)
	}
}

func TestConvert_Universal(t *testing.T) {
	e := newTestExtractor(t)
	req := DefaultRequest(fixtureURL)
	req.Pipeline = PipelineUniversal

	result, err := e.Convert(parseDoc(t, readTestdata(t, "article.html")), req)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	wantHeader := "# Understanding Go Channels | Example Blog\n\n**URL:** " + fixtureURL + "\n\n---\n\n"
	if !strings.HasPrefix(result.Markdown, wantHeader) {
		t.Errorf("Markdown does not start with the universal header:\n%s", result.Markdown)
	}
	assertContains(t, result.Markdown,
		[]string{"Understanding Go Channels", "Channels are the pipes", "ch := make(chan int, 2)", "Great post"},
		[]string{"Related posts", "window.analytics", "Copyright 2024"})

	if result.Root != "main" {
		t.Errorf("Root = %q, want main", result.Root)
	}
}

func TestConvert_UniversalTextFallback(t *testing.T) {
	hidden := strings.Repeat("x", 120)
	input := `<body><main><textarea>` + hidden + `</textarea><p>Hi</p></main></body>`

	e := newTestExtractor(t)
	result, err := e.Convert(parseDoc(t, input), Request{Pipeline: PipelineUniversal})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if result.Markdown != hidden+"Hi" {
		t.Errorf("Markdown = %q, want the collapsed region text", result.Markdown)
	}
}

func TestConvert_UniversalModes(t *testing.T) {
	input := `<body><div id="custom"><p>Custom region text.</p></div><article><p>Article region text.</p></article></body>`

	tests := []struct {
		name     string
		mode     selector.Mode
		selector string
		want     string
	}{
		{"auto", selector.ModeAuto, "", "Article region text."},
		{"selector", selector.ModeSelector, "#custom", "Custom region text."},
		{"full", selector.ModeFull, "", "Custom region text.\n\nArticle region text."},
	}

	e := newTestExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.Convert(parseDoc(t, input), Request{
				Pipeline:         PipelineUniversal,
				Mode:             tt.mode,
				CustomSelector:   tt.selector,
				MinContentLength: -1,
			})
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if result.Markdown != tt.want {
				t.Errorf("Markdown = %q, want %q", result.Markdown, tt.want)
			}
		})
	}
}

func TestConvert_Download(t *testing.T) {
	input := `<html><head><title>Download Me</title></head><body><p>Some body text.</p></body></html>`

	tests := []struct {
		name   string
		force  bool
		larger int
		want   bool
	}{
		{"default", false, 0, false},
		{"forced", true, 0, true},
		{"over threshold", false, 5, true},
		{"under threshold", false, 1 << 20, false},
	}

	e := newTestExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.Convert(parseDoc(t, input), Request{
				ForceDownload:    tt.force,
				DownloadIfLarger: tt.larger,
				MinContentLength: -1,
			})
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if result.Download != tt.want {
				t.Errorf("Download = %v, want %v", result.Download, tt.want)
			}
			if result.Filename != "Download Me.md" {
				t.Errorf("Filename = %q", result.Filename)
			}
		})
	}
}

func TestConvert_DoesNotMutateDocument(t *testing.T) {
	doc := parseDoc(t, readTestdata(t, "article.html"))
	before, _ := doc.Html()

	e := newTestExtractor(t)
	for _, p := range Pipelines {
		req := DefaultRequest(fixtureURL)
		req.Pipeline = p
		if _, err := e.Convert(doc, req); err != nil {
			t.Fatalf("Convert(%s) error = %v", p, err)
		}
	}

	after, _ := doc.Html()
	if before != after {
		t.Error("Convert() modified the document")
	}
}

func TestExtract_Fetches(t *testing.T) {
	stub := &stubFetcher{pages: map[string]fetcher.Content{
		"https://example.com/start": {
			URL:   "https://example.com/final",
			HTML:  `<html><head><title>Ignored</title></head><body><p>Fetched body.</p></body></html>`,
			Title: "Fetched Title",
		},
	}}
	e := newTestExtractor(t, WithFetcher(stub))

	req := DefaultRequest("https://example.com/start")
	req.MinContentLength = -1
	result, err := e.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if result.URL != "https://example.com/final" {
		t.Errorf("URL = %q, want final URL", result.URL)
	}
	if result.Title != "Fetched Title" {
		t.Errorf("Title = %q", result.Title)
	}
	want := "# Fetched Title\n\n**URL:** https://example.com/final\n\n---\n\nFetched body."
	if result.Markdown != want {
		t.Errorf("Markdown =\n%q\nwant\n%q", result.Markdown, want)
	}
}

func TestExtract_HTMLSkipsFetch(t *testing.T) {
	e := newTestExtractor(t, WithFetcher(&stubFetcher{err: errors.New("must not fetch")}))

	result, err := e.Extract(context.Background(), Request{
		URL:              "https://example.com/",
		HTML:             `<body><p>Inline.</p></body>`,
		MinContentLength: -1,
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.Markdown != "Inline." {
		t.Errorf("Markdown = %q", result.Markdown)
	}
}

func TestExtract_Errors(t *testing.T) {
	e := newTestExtractor(t, WithFetcher(&stubFetcher{err: fetcher.ErrAntiBot}))

	if _, err := e.Extract(context.Background(), Request{}); err == nil {
		t.Error("Extract() without URL or HTML should fail")
	}

	_, err := e.Extract(context.Background(), Request{URL: "https://example.com/"})
	if !errors.Is(err, fetcher.ErrAntiBot) {
		t.Errorf("Extract() error = %v, want wrapped ErrAntiBot", err)
	}

	_, err = e.Extract(context.Background(), Request{HTML: "<p>x</p>", Pipeline: "youtube"})
	if err == nil || !strings.Contains(err.Error(), "unknown pipeline") {
		t.Errorf("Extract() error = %v, want unknown pipeline", err)
	}
}

func TestExtractMany(t *testing.T) {
	body := `<html><head><title>%s</title></head><body><p>Body of %s.</p></body></html>`
	stub := &stubFetcher{pages: map[string]fetcher.Content{
		"https://example.com/a": {URL: "https://example.com/a", HTML: fmt.Sprintf(body, "A", "A")},
		"https://example.com/b": {URL: "https://example.com/b", HTML: fmt.Sprintf(body, "B", "B")},
	}}
	e := newTestExtractor(t, WithFetcher(stub), WithConcurrency(2))

	var reqs []Request
	for _, u := range []string{"https://example.com/a", "https://example.com/b", "https://example.com/missing"} {
		req := DefaultRequest(u)
		req.MinContentLength = -1
		reqs = append(reqs, req)
	}

	got := map[string]*Result{}
	for r := range e.ExtractMany(context.Background(), reqs) {
		got[r.URL] = r
	}

	if len(got) != 3 {
		t.Fatalf("ExtractMany() returned %d results, want 3", len(got))
	}
	for _, u := range []string{"https://example.com/a", "https://example.com/b"} {
		if got[u].Error != nil {
			t.Errorf("%s: unexpected error %v", u, got[u].Error)
		}
	}
	if !strings.Contains(got["https://example.com/a"].Markdown, "Body of A.") {
		t.Errorf("a: Markdown = %q", got["https://example.com/a"].Markdown)
	}
	missing := got["https://example.com/missing"]
	if missing.Error == nil || missing.ErrorMessage == "" {
		t.Errorf("missing: Error = %v, ErrorMessage = %q", missing.Error, missing.ErrorMessage)
	}
}

func TestExtractMany_Cancelled(t *testing.T) {
	stub := &stubFetcher{}
	e := newTestExtractor(t, WithFetcher(stub), WithConcurrency(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reqs := []Request{
		DefaultRequest("https://example.com/a"),
		DefaultRequest("https://example.com/b"),
		DefaultRequest("https://example.com/c"),
	}

	n := 0
	for r := range e.ExtractMany(ctx, reqs) {
		n++
		if !errors.Is(r.Error, context.Canceled) {
			t.Errorf("%s: Error = %v, want context.Canceled", r.URL, r.Error)
		}
	}
	if n != len(reqs) {
		t.Errorf("ExtractMany() returned %d results, want %d", n, len(reqs))
	}
	if calls := stub.calls.Load(); calls != 0 {
		t.Errorf("fetcher called %d times after cancellation", calls)
	}
}

func TestNew_FetchModes(t *testing.T) {
	e, err := New(WithFetchMode(fetcher.ModeStatic))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Close()
	if e.FetcherType() != "static" {
		t.Errorf("FetcherType() = %q", e.FetcherType())
	}

	if _, err := New(WithFetchMode("bogus")); err == nil {
		t.Error("New() with unknown fetch mode should fail")
	}
}
