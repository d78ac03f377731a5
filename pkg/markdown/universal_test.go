package markdown

import (
	"strings"
	"testing"
)

func TestUniversalSerializer(t *testing.T) {
	input := `<div>
		<nav><a href="/home">Home</a></nav>
		<h1>Title</h1>
		<p>Hello <strong>world</strong> and <a href="https://example.com/docs">docs</a>.</p>
		<script>var tracking = 1;</script>
		<form><input name="q"><button>Go</button></form>
		<img src="https://example.com/pic.png" alt="Pic">
		<ul><li>one</li><li>two</li></ul>
	</div>`

	tests := []struct {
		name     string
		opts     Options
		contains []string
		excludes []string
	}{
		{
			name:     "defaults with nav stripped",
			opts:     Options{IncludeImages: true, IncludeLinks: true, StripNav: true},
			contains: []string{"# Title", "**world**", "[docs](https://example.com/docs)", "![Pic](https://example.com/pic.png)", "- one"},
			excludes: []string{"Home", "tracking", "Go"},
		},
		{
			name:     "links unwrapped",
			opts:     Options{IncludeImages: true, IncludeLinks: false, StripNav: true},
			contains: []string{"docs"},
			excludes: []string{"](https://example.com/docs)"},
		},
		{
			name:     "images removed",
			opts:     Options{IncludeImages: false, IncludeLinks: true, StripNav: true},
			contains: []string{"# Title"},
			excludes: []string{"![", "pic.png"},
		},
		{
			name:     "nav kept",
			opts:     Options{IncludeImages: true, IncludeLinks: true, StripNav: false},
			contains: []string{"Home"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := firstElement(t, input)
			got := NewUniversal(tt.opts).Serialize(n)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("output contains %q:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestUniversalSerializer_DoesNotMutateInput(t *testing.T) {
	n := firstElement(t, `<div><script>x()</script><a href="/y">y</a><p>text</p></div>`)
	NewUniversal(Options{}).Serialize(n)

	if firstDescendant(n, "script") == nil {
		t.Error("script removed from input")
	}
	if firstDescendant(n, "a") == nil {
		t.Error("anchor unwrapped in input")
	}
}

func TestUniversalSerializer_Name(t *testing.T) {
	if got := NewUniversal(DefaultOptions()).Name(); got != "universal" {
		t.Errorf("Name() = %q, want %q", got, "universal")
	}
}
