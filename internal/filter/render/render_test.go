package render

import (
	"strings"
	"testing"
)

func TestRender_EscapeFallback(t *testing.T) {
	got := Render(Document{Input: "<script>alert(1)</script>"})
	want := "<pre>&lt;script&gt;alert(1)&lt;/script&gt;</pre>"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRender_Paragraphs(t *testing.T) {
	got := Render(Document{
		Input:   "first line\ncontinues here\n\nsecond para",
		Options: Options{Markup: true},
	})
	if !strings.Contains(got, "<p>first line continues here</p>") {
		t.Errorf("missing joined first paragraph in %q", got)
	}
	if !strings.Contains(got, "<p>second para</p>") {
		t.Errorf("missing second paragraph in %q", got)
	}
}

func TestRender_FencedCode(t *testing.T) {
	got := Render(Document{
		Input:   "intro\n\n```\nx := <-ch\n```\noutro",
		Options: Options{Markup: true},
	})
	if !strings.Contains(got, "<pre><code>x := &lt;-ch</code></pre>") {
		t.Errorf("code block not escaped/fenced in %q", got)
	}
	if !strings.Contains(got, "<p>outro</p>") {
		t.Errorf("trailing paragraph missing in %q", got)
	}
}

func TestRender_UnterminatedFence(t *testing.T) {
	got := Render(Document{
		Input:   "```\ndangling",
		Options: Options{Markup: true},
	})
	if !strings.Contains(got, "<pre><code>dangling</code></pre>") {
		t.Errorf("unterminated fence content dropped: %q", got)
	}
}
