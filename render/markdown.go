// Package render turns record text into display forms. It is stateless and
// safe for concurrent use.
package render

import (
	"bytes"
	"html/template"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Ellipsis terminates truncated summaries.
const Ellipsis = "..."

var (
	markdownOnce sync.Once
	markdownConv goldmark.Markdown
)

// converter returns the shared GFM converter. Raw HTML in the source is
// omitted from the output.
func converter() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownConv = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})

	return markdownConv
}

// Markdown renders GitHub flavored markdown to HTML. Empty input yields empty
// output.
func Markdown(text string) (template.HTML, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := converter().Convert([]byte(text), &buf); err != nil {
		return "", err
	}

	// goldmark escapes text and drops raw HTML, so the output is safe to embed.
	return template.HTML(buf.String()), nil
}

// MustMarkdown is Markdown for templates: on failure it falls back to the
// escaped source.
func MustMarkdown(text string) template.HTML {
	out, err := Markdown(text)
	if err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}

	return out
}

// Summary returns the first line of text, cut to at most limit runes
// including Ellipsis. A limit below 1 returns the whole first line.
func Summary(text string, limit int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.TrimSpace(line)

	runes := []rune(line)
	if limit < 1 || len(runes) <= limit {
		return line
	}

	if limit <= len(Ellipsis) {
		return string(runes[:limit])
	}

	return string(runes[:limit-len(Ellipsis)]) + Ellipsis
}
