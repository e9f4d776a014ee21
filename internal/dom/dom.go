// Package dom wraps golang.org/x/net/html with the small set of tree
// operations the conversion pipeline needs: parse, query, replace, set inner
// markup and render.
package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses a full HTML document. The parser always synthesizes the
// html, head and body elements, so fragments come back wrapped.
func Parse(content string) (*html.Node, error) {
	return html.Parse(strings.NewReader(content))
}

// Render serializes n and its subtree.
func Render(n *html.Node) (string, error) {
	var buf strings.Builder
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) (string, error) {
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// SetInnerHTML replaces the children of n with markup parsed in the context
// of n. The markup is inserted as nodes, never escaped.
func SetInnerHTML(n *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		return err
	}
	RemoveChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

// RemoveChildren detaches every child of n.
func RemoveChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

// FindAll returns every node under root (root included) matching pred,
// in document order.
func FindAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if pred(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// FindFirst returns the first node in document order matching pred, or nil.
func FindFirst(root *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := FindFirst(c, pred); n != nil {
			return n
		}
	}
	return nil
}

// Replace puts repl at old's position and detaches old.
// Does nothing if old has no parent.
func Replace(old, repl *html.Node) {
	parent := old.Parent
	if parent == nil {
		return
	}
	parent.InsertBefore(repl, old)
	parent.RemoveChild(old)
}

// TextContent concatenates the text nodes under n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// IsElement reports whether n is an element named tag.
func IsElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == tag
}

// Attr returns the value of the attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets the attribute key on n, adding it if absent.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// NewElement creates a detached HTML element.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tag)),
		Data:     tag,
		Attr:     attrs,
	}
}

// NewText creates a detached text node.
func NewText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// Head returns the document's head element, or nil.
func Head(doc *html.Node) *html.Node {
	return FindFirst(doc, func(n *html.Node) bool { return IsElement(n, "head") })
}

// Body returns the document's body element, or nil.
func Body(doc *html.Node) *html.Node {
	return FindFirst(doc, func(n *html.Node) bool { return IsElement(n, "body") })
}

// NewSVG creates a detached <svg> element in the SVG namespace, so markup
// set on it is parsed as foreign content.
func NewSVG(attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:      html.ElementNode,
		DataAtom:  atom.Svg,
		Data:      "svg",
		Namespace: "svg",
		Attr:      attrs,
	}
}
