// Package extract finds math in an HTML tree and wraps each formula in a
// typed marker element, <script type="math/...">, for the dispatcher.
//
// Three preprocessors exist, one per input format. TeX and AsciiMath work on
// text nodes only, so a delimiter pair never spans element boundaries.
package extract

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/alnah/go-mathpage/internal/dom"
)

// Marker types written by the preprocessors.
const (
	TypeTeX         = "math/TeX"
	TypeInlineTeX   = "math/inline-TeX"
	TypeAsciiMath   = "math/AsciiMath"
	TypeMathML      = "math/MathML"
	TypeMathMLBlock = "math/MathML-block"
)

// IgnoreClass marks a subtree the TeX and AsciiMath preprocessors skip.
const IgnoreClass = "tex2jax_ignore"

// skipTags never have their text scanned for delimiters.
var skipTags = map[string]bool{
	"script":         true,
	"noscript":       true,
	"style":          true,
	"textarea":       true,
	"pre":            true,
	"code":           true,
	"annotation":     true,
	"annotation-xml": true,
}

// legacyTypes maps MathJax v2 script types to marker types.
var legacyTypes = map[string]string{
	"math/tex":               TypeInlineTeX,
	"math/tex; mode=display": TypeTeX,
	"math/asciimath":         TypeAsciiMath,
}

// Delimiter is an opening/closing pair.
type Delimiter struct {
	Open  string
	Close string
}

// TeXConfig configures the TeX preprocessor.
type TeXConfig struct {
	InlineMath          []Delimiter
	DisplayMath         []Delimiter
	ProcessEscapes      bool // \$ stands for a literal dollar sign
	ProcessEnvironments bool // \begin{name}...\end{name} is display math
}

// Config selects and configures the preprocessors.
type Config struct {
	MathML    bool
	TeX       bool
	AsciiMath bool

	TeXConfig       TeXConfig
	AsciiDelimiters []Delimiter
}

// Run rewrites legacy script types, then runs the enabled preprocessors in
// the order MathML, TeX, AsciiMath.
func Run(doc *html.Node, cfg Config) error {
	RewriteLegacyScripts(doc)

	if cfg.MathML {
		if _, err := MathML(doc); err != nil {
			return err
		}
	}
	if cfg.TeX {
		TeX(doc, cfg.TeXConfig)
	}
	if cfg.AsciiMath {
		AsciiMath(doc, cfg.AsciiDelimiters)
	}
	return nil
}

// RewriteLegacyScripts renames MathJax v2 script types (math/tex,
// math/tex; mode=display, math/asciimath) to marker types.
// Returns the number of scripts rewritten.
func RewriteLegacyScripts(doc *html.Node) int {
	count := 0
	for _, n := range dom.FindAll(doc, func(n *html.Node) bool { return dom.IsElement(n, "script") }) {
		typ, ok := dom.Attr(n, "type")
		if !ok {
			continue
		}
		key := strings.ToLower(strings.Join(strings.Fields(typ), " "))
		if repl, ok := legacyTypes[key]; ok {
			dom.SetAttr(n, "type", repl)
			count++
		}
	}
	return count
}

// MathML wraps each outermost <math> element in a marker holding its
// serialized markup. display="block" yields a MathML-block marker.
func MathML(doc *html.Node) (int, error) {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "math" {
			found = append(found, n)
			return
		}
		if n.Type == html.ElementNode && n.Data == "script" {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, n := range found {
		src, err := dom.Render(n)
		if err != nil {
			return 0, fmt.Errorf("serializing math element: %w", err)
		}
		typ := TypeMathML
		if display, _ := dom.Attr(n, "display"); strings.EqualFold(display, "block") {
			typ = TypeMathMLBlock
		}
		dom.Replace(n, newMarker(typ, src))
	}
	return len(found), nil
}

// TeX replaces delimited TeX spans in text nodes with markers.
// Display delimiters produce math/TeX, inline ones math/inline-TeX.
// Environments, when enabled, produce math/TeX with both delimiters kept.
func TeX(doc *html.Node, cfg TeXConfig) int {
	var delims []delimiter
	for _, d := range cfg.DisplayMath {
		delims = append(delims, delimiter{Delimiter: d, typ: TypeTeX})
	}
	for _, d := range cfg.InlineMath {
		delims = append(delims, delimiter{Delimiter: d, typ: TypeInlineTeX})
	}
	s := scanner{
		delims:       sortByOpenLength(delims),
		escapes:      cfg.ProcessEscapes,
		environments: cfg.ProcessEnvironments,
	}
	return s.run(doc)
}

// AsciiMath replaces delimited AsciiMath spans in text nodes with markers.
func AsciiMath(doc *html.Node, delimiters []Delimiter) int {
	var delims []delimiter
	for _, d := range delimiters {
		delims = append(delims, delimiter{Delimiter: d, typ: TypeAsciiMath})
	}
	s := scanner{delims: sortByOpenLength(delims)}
	return s.run(doc)
}

func newMarker(typ, src string) *html.Node {
	n := dom.NewElement("script", html.Attribute{Key: "type", Val: typ})
	n.AppendChild(dom.NewText(src))
	return n
}
