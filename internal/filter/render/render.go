// Package render holds the document-transformation job the host's document
// view offloads through the pool: lightweight markup to HTML, with plain
// escaping as the fallback so worker failures never reach the UI as errors.
package render

import (
	"html"
	"strings"
)

// Options selects how a document is transformed.
type Options struct {
	// Markup enables paragraph and fenced-code-block conversion. When false
	// the input is escaped verbatim into a <pre> block.
	Markup bool
}

// Document is a render job payload: a self-contained value that crosses the
// pool boundary by copy.
type Document struct {
	Input   string
	Options Options
}

// Render transforms the document into HTML. It never fails for text input;
// the escaping fallback covers anything the markup pass cannot handle.
func Render(doc Document) string {
	if !doc.Options.Markup {
		return "<pre>" + html.EscapeString(doc.Input) + "</pre>"
	}
	return renderMarkup(doc.Input)
}

// renderMarkup converts fenced code blocks and blank-line-separated
// paragraphs. Anything fancier belongs to the host's full renderer.
func renderMarkup(input string) string {
	var b strings.Builder
	var para []string
	inCode := false
	var code []string

	flushPara := func() {
		if len(para) == 0 {
			return
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(strings.Join(para, " ")))
		b.WriteString("</p>\n")
		para = para[:0]
	}

	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				b.WriteString("<pre><code>")
				b.WriteString(html.EscapeString(strings.Join(code, "\n")))
				b.WriteString("</code></pre>\n")
				code = code[:0]
				inCode = false
			} else {
				flushPara()
				inCode = true
			}
			continue
		}
		if inCode {
			code = append(code, line)
			continue
		}
		if trimmed == "" {
			flushPara()
			continue
		}
		para = append(para, trimmed)
	}
	// Unterminated code fence: emit what we have rather than dropping it.
	if inCode {
		b.WriteString("<pre><code>")
		b.WriteString(html.EscapeString(strings.Join(code, "\n")))
		b.WriteString("</code></pre>\n")
	}
	flushPara()
	return b.String()
}
