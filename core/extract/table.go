package extract

import (
	"strings"

	"github.com/huangsam/casetrend/schema"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LocateTable returns the first table whose rendered text contains marker.
// The page embeds several unrelated tables and the marker is the only
// signal that survives layout changes.
func LocateTable(doc *Document, marker string) (*html.Node, error) {
	seen := 0
	for t := range doc.Elements(atom.Table) {
		seen++
		if strings.Contains(NodeText(t), marker) {
			return t, nil
		}
	}
	return nil, &TableNotFoundError{Marker: marker, Tables: seen}
}

// FlattenCells returns the text of every td under table in document order.
func FlattenCells(table *html.Node) []string {
	var cells []string
	for td := range descendants(table, atom.Td) {
		cells = append(cells, NodeText(td))
	}
	return cells
}

// RowWidths returns the number of td cells of every row that has any, up to
// and including the first row whose name cell contains layout.TotalMarker.
// Header rows made only of th cells and footnote rows past the total are
// left out.
func RowWidths(table *html.Node, layout schema.Layout) []int {
	var widths []int
	for tr := range descendants(table, atom.Tr) {
		var cells []*html.Node
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Td {
				cells = append(cells, c)
			}
		}
		if len(cells) == 0 {
			continue
		}
		widths = append(widths, len(cells))
		if layout.NameOffset < len(cells) && strings.Contains(NodeText(cells[layout.NameOffset]), layout.TotalMarker) {
			break
		}
	}
	return widths
}
