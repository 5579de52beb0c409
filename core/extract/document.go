// Package extract decodes the per-region snapshot out of the source page.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a read-only handle on a parsed HTML page.
type Document struct {
	root *html.Node
}

// ParseDocument parses an HTML page. The reader must yield UTF-8.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseBytes parses an in-memory HTML page.
func ParseBytes(b []byte) (*Document, error) {
	return ParseDocument(bytes.NewReader(b))
}

// Elements yields every element with the given tag in document order.
func (d *Document) Elements(a atom.Atom) iter.Seq[*html.Node] {
	return descendants(d.root, a)
}

// descendants walks the subtree under n in pre-order and yields matching elements.
func descendants(n *html.Node, a atom.Atom) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		var walk func(*html.Node) bool
		walk = func(n *html.Node) bool {
			if n.Type == html.ElementNode && n.DataAtom == a {
				if !yield(n) {
					return false
				}
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		walk(n)
	}
}

// NodeText returns the rendered text of a subtree with whitespace collapsed.
// Text nodes are concatenated as-is before collapsing, so markup inside a
// phrase (e.g. a bold date) does not introduce spaces.
func NodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			case atom.Br:
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
