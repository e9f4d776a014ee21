package mathpage

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"github.com/alnah/go-mathpage/internal/dom"
)

// SVGStylesheet replaces the engine's stylesheet for SVG output. Engines
// disagree on SVG CSS; this set only handles wrapper layout and links.
const SVGStylesheet = `.mathpage .MJX-monospace { font-family: monospace }
.mathpage .MJX-sans-serif { font-family: sans-serif }
.mathpage {
  display: inline;
  font-style: normal;
  font-weight: normal;
  line-height: normal;
  font-size: 100%;
  font-size-adjust: none;
  text-indent: 0;
  text-align: left;
  text-transform: none;
  letter-spacing: normal;
  word-spacing: normal;
  word-wrap: normal;
  white-space: nowrap;
  float: none;
  direction: ltr;
  max-width: none;
  max-height: none;
  min-width: 0;
  min-height: 0;
  border: 0;
  padding: 0;
  margin: 0
}
.mathpage * { transition: none }
.mjx-svg-href { fill: blue; stroke: blue }
.MathJax_SVG_LineBox { display: table!important }
.MathJax_SVG_LineBox span {
  display: table-cell!important;
  width: 10000em!important;
  min-width: 0;
  max-width: none;
  padding: 0;
  border: 0;
  margin: 0
}
.mathpage__block {
  text-align: center;
  margin: 1em 0em;
  position: relative;
  display: block!important;
  text-indent: 0;
  max-width: none;
  max-height: none;
  min-width: 0;
  min-height: 0;
  width: 100%
}
`

// finish injects the shared stylesheet and glyph container, lets the
// BeforeSerialization hook run and serializes the page.
func (j *Job) finish(ctx context.Context, doc *html.Node) (string, error) {
	css := j.stylesheet(ctx)

	if j.page.CSSInline && css != "" {
		style := dom.NewElement("style", html.Attribute{Key: "type", Val: "text/css"})
		style.AppendChild(dom.NewText(css))
		appendTo(doc, dom.Head(doc), style)
	}

	if j.typeset.UseGlobalCache && j.formulas > 0 {
		svg := dom.NewSVG(html.Attribute{Key: "style", Val: "display: none"})
		if j.glyphs != nil {
			if err := dom.SetInnerHTML(svg, j.glyphs.Markup()); err != nil {
				j.logf("glyph cache: %v", err)
			}
		}
		appendTo(doc, dom.Body(doc), svg)
	}

	if j.hooks.BeforeSerialization != nil {
		j.hooks.BeforeSerialization(doc, css)
	}

	return serialize(doc, j.page.Fragment)
}

// stylesheet returns the stylesheet for the page. Pages with formulas make
// one extra, empty TeX call so the engine reports its CSS and defs state
// after all real calls.
func (j *Job) stylesheet(ctx context.Context) string {
	if j.formulas == 0 {
		return ""
	}

	var css string
	req := newRequest(j.typeset, j.kinds, "", FormatTeX)
	res, err := j.engine.Typeset(ctx, req)
	switch {
	case err != nil:
		j.logf("stylesheet: %v", err)
	case res != nil:
		css = res.CSS
		if j.glyphs != nil {
			if err := j.glyphs.Add(res.Defs); err != nil {
				j.logf("glyph cache: %v", err)
			}
		}
	}

	if j.typeset.Outputs[OutputSVG] && !j.typeset.Outputs[OutputPNG] {
		css = SVGStylesheet
	}
	return css
}

// appendTo appends child to parent, or to doc when parent is missing.
func appendTo(doc, parent, child *html.Node) {
	if parent == nil {
		parent = doc
	}
	parent.AppendChild(child)
}

// serialize renders the full document, or only the body's inner markup in
// fragment mode.
func serialize(doc *html.Node, fragment bool) (string, error) {
	var (
		out string
		err error
	)
	if fragment {
		body := dom.Body(doc)
		if body == nil {
			return "", nil
		}
		out, err = dom.InnerHTML(body)
	} else {
		out, err = dom.Render(doc)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderHTML, err)
	}
	return out, nil
}
