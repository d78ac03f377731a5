package markdown

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// parseBody parses a fragment and returns the <body> element.
func parseBody(t *testing.T, fragment string) *html.Node {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	body := doc.Find("body").Get(0)
	if body == nil {
		t.Fatal("document has no body")
	}
	return body
}

// firstElement returns the first element child of the body of fragment.
func firstElement(t *testing.T, fragment string) *html.Node {
	t.Helper()
	body := parseBody(t, fragment)
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	t.Fatalf("no element in %q", fragment)
	return nil
}

func pageOpts(base string) Options {
	opts := DefaultOptions()
	opts.BaseURL = base
	return opts
}

func TestPageSerializer_ConcreteScenario(t *testing.T) {
	n := firstElement(t, `<article><h1>Title</h1><p>Hello <b>world</b></p><ul><li>A</li><li>B</li></ul></article>`)
	s := NewPage(pageOpts("https://ex.com/"))

	got := Normalize(s.Serialize(n))
	want := "# Title\n\nHello **world**\n\n- A\n- B"
	if got != want {
		t.Errorf("Serialize() = %q, want %q", got, want)
	}
}

func TestPageSerializer_EmptyParagraph(t *testing.T) {
	s := NewPage(DefaultOptions())

	if got := Normalize(s.Serialize(firstElement(t, `<p></p>`))); got != "" {
		t.Errorf("empty paragraph = %q, want empty", got)
	}

	body := parseBody(t, `<p>one</p><p></p><p>  </p><p>two</p>`)
	got := Normalize(s.Serialize(body))
	if got != "one\n\ntwo" {
		t.Errorf("Serialize() = %q, want %q", got, "one\n\ntwo")
	}
}

func TestPageSerializer_Headings(t *testing.T) {
	s := NewPage(DefaultOptions())

	for level := 1; level <= 6; level++ {
		tag := "h" + string(rune('0'+level))
		t.Run(tag, func(t *testing.T) {
			got := s.Serialize(firstElement(t, "<"+tag+">  Some <em>heading</em> </"+tag+">"))
			prefix := strings.Repeat("#", level) + " "
			if !strings.HasPrefix(got, prefix) {
				t.Fatalf("Serialize() = %q, want prefix %q", got, prefix)
			}
			if strings.HasPrefix(got, prefix+" ") || strings.HasPrefix(got, strings.Repeat("#", level+1)) {
				t.Errorf("Serialize() = %q has wrong marker", got)
			}
			if got != prefix+"Some heading\n\n" {
				t.Errorf("Serialize() = %q", got)
			}
		})
	}
}

func TestPageSerializer_Lists(t *testing.T) {
	s := NewPage(DefaultOptions())

	tests := []struct {
		name   string
		input  string
		prefix func(i int) string
		count  int
	}{
		{
			name:   "unordered",
			input:  `<ul><li>one</li><li>two</li><li>three</li></ul>`,
			prefix: func(int) string { return "- " },
			count:  3,
		},
		{
			name:   "ordered",
			input:  `<ol><li>one</li><li>two</li><li>three</li><li>four</li></ol>`,
			prefix: func(i int) string { return string(rune('1'+i)) + ". " },
			count:  4,
		},
		{
			name:   "ordered skips non-li children",
			input:  "<ol>\n<li>one</li>\n<li>two</li>\n</ol>",
			prefix: func(i int) string { return string(rune('1'+i)) + ". " },
			count:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(s.Serialize(firstElement(t, tt.input)))
			lines := strings.Split(got, "\n")
			if len(lines) != tt.count {
				t.Fatalf("got %d lines, want %d: %q", len(lines), tt.count, got)
			}
			for i, line := range lines {
				if !strings.HasPrefix(line, tt.prefix(i)) {
					t.Errorf("line %d = %q, want prefix %q", i, line, tt.prefix(i))
				}
			}
		})
	}
}

func TestPageSerializer_NestedList(t *testing.T) {
	s := NewPage(DefaultOptions())
	got := Normalize(s.Serialize(firstElement(t, `<ul><li>A<ul><li>x</li></ul></li><li>B</li></ul>`)))
	want := "- A\n  - x\n- B"
	if got != want {
		t.Errorf("Serialize() = %q, want %q", got, want)
	}
}

func TestPageSerializer_Links(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		includeLinks bool
		base         string
		want         string
	}{
		{"links off", `<a href="/x">T</a>`, false, "https://example.com/", "T"},
		{"root relative", `<a href="/x">T</a>`, true, "https://example.com/", "[T](https://example.com/x)"},
		{"absolute", `<a href="https://other.org/p">T</a>`, true, "https://example.com/", "[T](https://other.org/p)"},
		{"empty text uses url", `<a href="/x"> </a>`, true, "https://example.com/", "[https://example.com/x](https://example.com/x)"},
		{"no href", `<a>T</a>`, true, "https://example.com/", "T"},
		{"nested markup flattened", `<a href="/x"><b>bold</b> text</a>`, true, "https://example.com/", "[bold text](https://example.com/x)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := pageOpts(tt.base)
			opts.IncludeLinks = tt.includeLinks
			got := NewPage(opts).Serialize(firstElement(t, tt.input))
			if got != tt.want {
				t.Errorf("Serialize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPageSerializer_Images(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		includeImages bool
		want          string
	}{
		{"images off", `<img src="y.png" alt="Y">`, false, ""},
		{"directory relative", `<img src="y.png" alt="Y">`, true, "![Y](https://example.com/a/y.png)\n\n"},
		{"root relative", `<img src="/img/y.png">`, true, "![](https://example.com/img/y.png)\n\n"},
		{"missing src", `<img alt="Y">`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := pageOpts("https://example.com/a/b")
			opts.IncludeImages = tt.includeImages
			got := NewPage(opts).Serialize(firstElement(t, tt.input))
			if got != tt.want {
				t.Errorf("Serialize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPageSerializer_Tables(t *testing.T) {
	input := `<table><thead><tr><th>Name</th><th>Value</th></tr></thead>` +
		`<tbody><tr><td>pipe</td><td>a|b</td></tr></tbody></table>`

	t.Run("rendered", func(t *testing.T) {
		got := NewPage(DefaultOptions()).Serialize(firstElement(t, input))
		want := "| Name | Value |\n| --- | --- |\n| pipe | a\\|b |\n\n"
		if got != want {
			t.Errorf("Serialize() = %q, want %q", got, want)
		}
	})

	t.Run("disabled flattens", func(t *testing.T) {
		opts := DefaultOptions()
		opts.IncludeTables = false
		got := NewPage(opts).Serialize(firstElement(t, input))
		if strings.Contains(got, "|") && !strings.Contains(got, "a|b") {
			t.Errorf("Serialize() = %q, want flattened text", got)
		}
		if strings.Contains(got, "---") {
			t.Errorf("Serialize() = %q, want no separator row", got)
		}
	})
}

func TestPageSerializer_Code(t *testing.T) {
	s := NewPage(DefaultOptions())

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "fenced with language class",
			input: `<pre><code class="language-go">fmt.Println("hi")</code></pre>`,
			want:  "```go\nfmt.Println(\"hi\")\n```\n\n",
		},
		{
			name:  "data-lang on pre",
			input: `<pre data-lang="sh">ls -la</pre>`,
			want:  "```sh\nls -la\n```\n\n",
		},
		{
			name:  "no language",
			input: `<pre>plain</pre>`,
			want:  "```\nplain\n```\n\n",
		},
		{
			name:  "inline",
			input: `<p>Use <code>go test</code> here</p>`,
			want:  "Use `go test` here\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Serialize(firstElement(t, tt.input)); got != tt.want {
				t.Errorf("Serialize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPageSerializer_InlineAndBlocks(t *testing.T) {
	s := NewPage(DefaultOptions())

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"strong", `<strong>x</strong>`, "**x**"},
		{"em", `<em>x</em>`, "*x*"},
		{"italic", `<i>x</i>`, "*x*"},
		{"blockquote", `<blockquote>  quoted <b>text</b>  </blockquote>`, "> quoted text\n\n"},
		{"hr", `<hr>`, "---\n\n"},
		{"unknown element recurses", `<div><span>a</span><span>b</span></div>`, "ab"},
		{"no escaping", `<p>2 * 3 _x_</p>`, "2 * 3 _x_\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Serialize(firstElement(t, tt.input)); got != tt.want {
				t.Errorf("Serialize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPageSerializer_Purity(t *testing.T) {
	n := firstElement(t, `<div><h2>T</h2><p>a <a href="x">b</a></p><img src="i.png"><table><tr><td>1</td></tr></table></div>`)
	s := NewPage(pageOpts("https://example.com/dir/page"))

	first := s.Serialize(n)
	second := s.Serialize(n)
	if first != second {
		t.Errorf("Serialize() not deterministic:\n%q\n%q", first, second)
	}
}

func TestSerializeHTML(t *testing.T) {
	got, err := SerializeHTML(NewPage(DefaultOptions()), `<html><body><h2>Hi</h2><p>there</p></body></html>`)
	if err != nil {
		t.Fatalf("SerializeHTML() error = %v", err)
	}
	if got != "## Hi\n\nthere" {
		t.Errorf("SerializeHTML() = %q", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"\n\n\n", ""},
		{"a\n\n\n\nb", "a\n\nb"},
		{"  a\n\nb  ", "a\n\nb"},
		{"a\nb", "a\nb"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
