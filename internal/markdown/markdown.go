// Package markdown renders Markdown pages to HTML while keeping embedded TeX
// intact for the formula extractor.
//
// Goldmark would otherwise treat TeX syntax as Markdown (underscores become
// emphasis, backslashes escapes). Math spans are swapped for Private Use Area
// placeholders before rendering and restored afterwards.
package markdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"slices"
	"strconv"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/alnah/go-mathpage/internal/extract"
)

// ErrConversion indicates Markdown rendering failed.
var ErrConversion = errors.New("markdown conversion failed")

// Math placeholders use Unicode Private Use Area characters.
// They pass through Goldmark unchanged and never occur in real text.
const (
	placeholderStart = "\uE000"
	placeholderEnd   = "\uE001"
)

var (
	crlfOrCR           = regexp.MustCompile(`\r\n?`)
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
	placeholderPattern = regexp.MustCompile(placeholderStart + `(\d+)` + placeholderEnd)
)

// htmlTemplate wraps Goldmark's fragment output in a complete HTML5 document.
const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
</head>
<body>
%s
</body>
</html>`

// Converter renders Markdown to HTML using goldmark.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter creates a Converter with GFM, footnotes and class-based
// syntax highlighting.
func NewConverter() *Converter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithXHTML(),
			// WithUnsafe is not used: math is restored after rendering.
		),
	)
	return &Converter{md: md}
}

// ToHTML renders content to a standalone HTML5 document. TeX spans matching
// tex are protected from Markdown processing.
// Goldmark has no context support, so rendering runs in a goroutine.
func (c *Converter) ToHTML(ctx context.Context, content string, tex extract.TeXConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content = crlfOrCR.ReplaceAllString(content, "\n")
	content = multipleBlankLines.ReplaceAllString(content, "\n\n")
	protected, spans := Protect(content, tex)

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(protected), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrConversion, err)}
			return
		}
		done <- result{html: fmt.Sprintf(htmlTemplate, Restore(buf.String(), spans))}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// Protect replaces every delimited TeX span and environment (delimiters
// included) with a numbered placeholder. With escapes on, \$ is protected too so Goldmark
// does not strip its backslash.
func Protect(content string, tex extract.TeXConfig) (string, []string) {
	delims := slices.Concat(tex.DisplayMath, tex.InlineMath)
	// Longest opener first so "$$" wins over "$".
	slices.SortStableFunc(delims, func(a, b extract.Delimiter) int {
		return len(b.Open) - len(a.Open)
	})

	var spans []string
	var b strings.Builder
	protect := func(span string) {
		b.WriteString(placeholderStart + strconv.Itoa(len(spans)) + placeholderEnd)
		spans = append(spans, span)
	}

	i := 0
outer:
	for i < len(content) {
		if tex.ProcessEscapes && strings.HasPrefix(content[i:], `\$`) {
			protect(`\$`)
			i += 2
			continue
		}
		if tex.ProcessEnvironments {
			if next, ok := extract.EnvironmentAt(content, i); ok {
				protect(content[i:next])
				i = next
				continue
			}
		}
		for _, d := range delims {
			if d.Open == "" || d.Close == "" || !strings.HasPrefix(content[i:], d.Open) {
				continue
			}
			start := i + len(d.Open)
			end := strings.Index(content[start:], d.Close)
			if end < 0 {
				break
			}
			next := start + end + len(d.Close)
			protect(content[i:next])
			i = next
			continue outer
		}
		b.WriteByte(content[i])
		i++
	}
	return b.String(), spans
}

// Restore puts the protected spans back, HTML-escaped, in place of their
// placeholders.
func Restore(rendered string, spans []string) string {
	if len(spans) == 0 {
		return rendered
	}
	return placeholderPattern.ReplaceAllStringFunc(rendered, func(m string) string {
		sub := placeholderPattern.FindStringSubmatch(m)
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx >= len(spans) {
			return m
		}
		return html.EscapeString(spans[idx])
	})
}
