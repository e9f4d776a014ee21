// Package glyphs accumulates reusable SVG glyph definitions for a page.
//
// With the global cache on, every formula's <defs> are hoisted out of its
// SVG and merged here, deduplicated by id. The finishing pass then emits one
// hidden <svg> holding them all, which the formulas reference via <use>.
package glyphs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/beevik/etree"
)

// ErrNotSVG is returned by Hoist when the payload has no root element.
var ErrNotSVG = errors.New("payload has no root element")

// Cache is a deduplicated, ordered set of glyph definitions.
// It is safe for concurrent use.
type Cache struct {
	mu   sync.Mutex
	seen map[string]bool
	defs []*etree.Element
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{seen: make(map[string]bool)}
}

// Hoist moves every <defs> child of the svg payload into the cache and
// returns the payload without its <defs> elements.
func (c *Cache) Hoist(svg string) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(svg); err != nil {
		return "", fmt.Errorf("parsing svg: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return "", ErrNotSVG
	}

	c.mu.Lock()
	for _, defs := range root.FindElements("//defs") {
		for _, child := range defs.ChildElements() {
			c.addLocked(child)
		}
		if parent := defs.Parent(); parent != nil {
			parent.RemoveChild(defs)
		}
	}
	c.mu.Unlock()

	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("writing svg: %w", err)
	}
	return out, nil
}

// Add merges definitions markup, either a <defs> element or its bare
// children, into the cache.
func (c *Cache) Add(markup string) error {
	if markup == "" {
		return nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString("<g>" + markup + "</g>"); err != nil {
		return fmt.Errorf("parsing defs: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, el := range doc.Root().ChildElements() {
		if el.Tag == "defs" {
			for _, child := range el.ChildElements() {
				c.addLocked(child)
			}
			continue
		}
		c.addLocked(el)
	}
	return nil
}

func (c *Cache) addLocked(el *etree.Element) {
	key := el.SelectAttrValue("id", "")
	if key == "" {
		key = serialize(el)
	}
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.defs = append(c.defs, el.Copy())
}

// Len returns the number of distinct definitions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.defs)
}

// Markup returns the accumulated definitions as a single <defs> element,
// or "" when the cache is empty.
func (c *Cache) Markup() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.defs) == 0 {
		return ""
	}
	defs := etree.NewElement("defs")
	for _, el := range c.defs {
		defs.AddChild(el.Copy())
	}
	return serialize(defs)
}

// Reset empties the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = make(map[string]bool)
	c.defs = nil
}

func serialize(el *etree.Element) string {
	doc := etree.NewDocument()
	doc.AddChild(el.Copy())
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}
