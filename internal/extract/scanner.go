package extract

import (
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/alnah/go-mathpage/internal/dom"
)

type delimiter struct {
	Delimiter
	typ string
}

// segment is a run of plain text (typ == "") or a formula.
type segment struct {
	text string
	typ  string
}

// sortByOpenLength orders delimiters so "$$" is tried before "$".
func sortByOpenLength(ds []delimiter) []delimiter {
	out := slices.Clone(ds)
	slices.SortStableFunc(out, func(a, b delimiter) int {
		return len(b.Open) - len(a.Open)
	})
	return out
}

type scanner struct {
	delims       []delimiter
	escapes      bool
	environments bool
}

// run splits every eligible text node under doc and returns the number of
// markers inserted.
func (s scanner) run(doc *html.Node) int {
	if len(s.delims) == 0 && !s.environments {
		return 0
	}

	var texts []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (skipTags[n.Data] || hasClass(n, IgnoreClass)) {
			return
		}
		if n.Type == html.TextNode {
			texts = append(texts, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	count := 0
	for _, t := range texts {
		count += s.split(t)
	}
	return count
}

func (s scanner) split(t *html.Node) int {
	segs := s.scan(t.Data)

	markers := 0
	for _, seg := range segs {
		if seg.typ != "" {
			markers++
		}
	}
	if markers == 0 {
		// Escapes may still have rewritten the text.
		if len(segs) == 1 {
			t.Data = segs[0].text
		}
		return 0
	}

	parent := t.Parent
	for _, seg := range segs {
		if seg.typ == "" {
			parent.InsertBefore(dom.NewText(seg.text), t)
			continue
		}
		parent.InsertBefore(newMarker(seg.typ, seg.text), t)
	}
	parent.RemoveChild(t)
	return markers
}

func (s scanner) scan(text string) []segment {
	var segs []segment
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			segs = append(segs, segment{text: buf.String()})
			buf.Reset()
		}
	}

	i := 0
	for i < len(text) {
		if s.escapes && strings.HasPrefix(text[i:], `\$`) {
			buf.WriteByte('$')
			i += 2
			continue
		}

		if s.environments {
			if next, ok := EnvironmentAt(text, i); ok {
				flush()
				segs = append(segs, segment{text: text[i:next], typ: TypeTeX})
				i = next
				continue
			}
		}

		d, ok := s.openAt(text, i)
		if !ok {
			buf.WriteByte(text[i])
			i++
			continue
		}

		start := i + len(d.Open)
		end := s.findClose(text, start, d.Close)
		if end < 0 {
			buf.WriteString(d.Open)
			i = start
			continue
		}

		next := end + len(d.Close)
		math := text[start:end]
		if strings.TrimSpace(math) == "" {
			buf.WriteString(text[i:next])
			i = next
			continue
		}

		flush()
		segs = append(segs, segment{text: math, typ: d.typ})
		i = next
	}
	flush()
	return segs
}

// EnvironmentAt matches \begin{name} at i and its closing \end{name},
// counting nested environments of the same name. It returns the index just
// past the closing delimiter.
func EnvironmentAt(text string, i int) (int, bool) {
	const begin = `\begin{`
	if !strings.HasPrefix(text[i:], begin) {
		return 0, false
	}
	nameStart := i + len(begin)
	n := strings.IndexByte(text[nameStart:], '}')
	if n <= 0 {
		return 0, false
	}
	name := text[nameStart : nameStart+n]
	if strings.ContainsAny(name, " \t\n{\\") {
		return 0, false
	}

	open := begin + name + "}"
	closing := `\end{` + name + "}"
	depth := 1
	pos := nameStart + n + 1
	for {
		e := strings.Index(text[pos:], closing)
		if e < 0 {
			return 0, false
		}
		if o := strings.Index(text[pos:], open); o >= 0 && o < e {
			depth++
			pos += o + len(open)
			continue
		}
		pos += e + len(closing)
		depth--
		if depth == 0 {
			return pos, true
		}
	}
}

func (s scanner) openAt(text string, i int) (delimiter, bool) {
	for _, d := range s.delims {
		if strings.HasPrefix(text[i:], d.Open) {
			return d, true
		}
	}
	return delimiter{}, false
}

// findClose returns the index of the closing delimiter at or after pos, or -1.
// With escapes on, an escaped dollar does not close a dollar delimiter.
func (s scanner) findClose(text string, pos int, closing string) int {
	for pos <= len(text) {
		idx := strings.Index(text[pos:], closing)
		if idx < 0 {
			return -1
		}
		abs := pos + idx
		if s.escapes && strings.HasPrefix(closing, "$") && abs > 0 && text[abs-1] == '\\' {
			pos = abs + 1
			continue
		}
		return abs
	}
	return -1
}

func hasClass(n *html.Node, class string) bool {
	v, ok := dom.Attr(n, "class")
	if !ok {
		return false
	}
	return slices.Contains(strings.Fields(v), class)
}
