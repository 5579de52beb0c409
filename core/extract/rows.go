package extract

import (
	"fmt"
	"strings"

	"github.com/huangsam/casetrend/schema"
	"golang.org/x/net/html"
)

// DecodeRows consumes cells in chunks of layout.Stride and returns the
// region counts. Decoding stops for good at the first row whose name
// contains layout.TotalMarker, before that row's count is read.
// A bad count aborts the whole decode so a partial snapshot never escapes.
func DecodeRows(cells []string, layout schema.Layout) (schema.RegionCounts, error) {
	if err := layout.Validate(); err != nil {
		return schema.RegionCounts{}, err
	}
	counts := schema.NewRegionCounts()
	for start := 0; start < len(cells); start += layout.Stride {
		row := cells[start:min(start+layout.Stride, len(cells))]
		if layout.NameOffset >= len(row) {
			return schema.RegionCounts{}, &LayoutDriftError{
				Layout: layout.Name,
				Cell:   start,
				Reason: fmt.Sprintf("trailing row has %d cells, name offset is %d", len(row), layout.NameOffset),
			}
		}

		rawName := row[layout.NameOffset]
		region, err := schema.NewRegion(rawName)
		if err != nil {
			return schema.RegionCounts{}, &LayoutDriftError{Layout: layout.Name, Cell: start, Reason: "row has no region name", Err: err}
		}
		if strings.Contains(string(region), layout.TotalMarker) {
			break
		}

		if layout.CountOffset >= len(row) {
			return schema.RegionCounts{}, &LayoutDriftError{
				Layout: layout.Name,
				Cell:   start,
				Reason: fmt.Sprintf("row %q has %d cells, count offset is %d", region, len(row), layout.CountOffset),
			}
		}
		n, err := ParseCount(row[layout.CountOffset])
		if err != nil {
			return schema.RegionCounts{}, fmt.Errorf("region %s: %w", region, err)
		}
		counts.Set(region, n)
	}
	if counts.Len() == 0 {
		return schema.RegionCounts{}, ErrNoRegions
	}
	return counts, nil
}

// CheckLayout fails when a table row up to the total row does not have
// exactly layout.Stride cells. Tables without row structure are accepted as-is.
func CheckLayout(table *html.Node, layout schema.Layout) error {
	for i, w := range RowWidths(table, layout) {
		if w != layout.Stride {
			return &LayoutDriftError{
				Layout: layout.Name,
				Cell:   -1,
				Reason: fmt.Sprintf("data row %d has %d cells, layout expects %d", i+1, w, layout.Stride),
			}
		}
	}
	return nil
}

// DetectLayout picks the one registered layout whose stride equals the
// table's uniform row width. Each layout is measured up to its own total row.
func DetectLayout(table *html.Node, reg schema.LayoutRegistry) (schema.Layout, error) {
	var candidates []schema.Layout
	reason := ""
	for _, l := range reg.Layouts() {
		width, why := uniformWidth(RowWidths(table, l))
		switch {
		case why != "":
			if reason == "" {
				reason = why
			}
		case width == l.Stride:
			candidates = append(candidates, l)
		default:
			reason = fmt.Sprintf("no known layout has stride %d", width)
		}
	}

	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		if reason == "" {
			reason = "no layouts are registered"
		}
		return schema.Layout{}, &LayoutDriftError{Layout: schema.AutoLayout, Cell: -1, Reason: reason}
	default:
		names := make([]string, len(candidates))
		for i, l := range candidates {
			names[i] = l.Name
		}
		return schema.Layout{}, &LayoutDriftError{
			Layout: schema.AutoLayout,
			Cell:   -1,
			Reason: fmt.Sprintf("stride %d is ambiguous between %s", candidates[0].Stride, strings.Join(names, ", ")),
		}
	}
}

// uniformWidth returns the shared row width, or why there is none.
func uniformWidth(widths []int) (int, string) {
	if len(widths) == 0 {
		return 0, "table has no rows with data cells"
	}
	for i, w := range widths {
		if w != widths[0] {
			return 0, fmt.Sprintf("row widths are not uniform: row 1 has %d cells, row %d has %d", widths[0], i+1, w)
		}
	}
	return widths[0], ""
}
