package schema

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// AutoLayout is the layout name that asks the decoder to detect the stride.
const AutoLayout = "auto"

// DefaultLayoutName is the layout pinned when nothing is configured.
const DefaultLayoutName = "v1"

// Layout is one versioned decode configuration for the per-region table.
// The page has changed its column grouping over time, so each observed
// epoch gets its own named entry.
type Layout struct {
	Name        string `mapstructure:"name" json:"name"`
	Stride      int    `mapstructure:"stride" json:"stride"`             // Cells per logical row
	NameOffset  int    `mapstructure:"name_offset" json:"name_offset"`   // Offset of the region name in a row
	CountOffset int    `mapstructure:"count_offset" json:"count_offset"` // Offset of the raw count in a row
	TableMarker string `mapstructure:"table_marker" json:"table_marker"` // Substring identifying the data table
	TotalMarker string `mapstructure:"total_marker" json:"total_marker"` // Substring of the terminal total row name
	Description string `mapstructure:"description" json:"description"`
}

// Default markers observed on the source page.
const (
	DefaultTableMarker = "Bundesland"
	DefaultTotalMarker = "Gesamt"
)

// KnownLayouts are the layout epochs observed on the source page.
var KnownLayouts = map[string]Layout{
	"v1": {
		Name:        "v1",
		Stride:      3,
		NameOffset:  0,
		CountOffset: 1,
		TableMarker: DefaultTableMarker,
		TotalMarker: DefaultTotalMarker,
		Description: "state, cases, remarks",
	},
	"v2": {
		Name:        "v2",
		Stride:      4,
		NameOffset:  0,
		CountOffset: 1,
		TableMarker: DefaultTableMarker,
		TotalMarker: DefaultTotalMarker,
		Description: "state, cases, deaths, remarks",
	},
	"v3": {
		Name:        "v3",
		Stride:      6,
		NameOffset:  0,
		CountOffset: 1,
		TableMarker: DefaultTableMarker,
		TotalMarker: DefaultTotalMarker,
		Description: "state, cases, difference, per 100k, deaths, remarks",
	},
}

// Validate checks that the offsets fit inside the stride and markers are set.
func (l Layout) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("layout name is empty")
	}
	if l.Stride < 2 {
		return fmt.Errorf("layout %s: stride must be at least 2 (received %d)", l.Name, l.Stride)
	}
	if l.NameOffset < 0 || l.NameOffset >= l.Stride {
		return fmt.Errorf("layout %s: name offset %d outside stride %d", l.Name, l.NameOffset, l.Stride)
	}
	if l.CountOffset < 0 || l.CountOffset >= l.Stride {
		return fmt.Errorf("layout %s: count offset %d outside stride %d", l.Name, l.CountOffset, l.Stride)
	}
	if l.NameOffset == l.CountOffset {
		return fmt.Errorf("layout %s: name and count share offset %d", l.Name, l.NameOffset)
	}
	if l.TableMarker == "" || l.TotalMarker == "" {
		return fmt.Errorf("layout %s: table and total markers are required", l.Name)
	}
	return nil
}

// WithDefaults fills empty markers with the observed defaults.
func (l Layout) WithDefaults() Layout {
	if l.TableMarker == "" {
		l.TableMarker = DefaultTableMarker
	}
	if l.TotalMarker == "" {
		l.TotalMarker = DefaultTotalMarker
	}
	return l
}

// NormalizeLayoutName folds a layout name to its registry key.
func NormalizeLayoutName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// LayoutRegistry holds the known layouts plus any configured ones, keyed
// by normalized name. Lookups are case-insensitive.
type LayoutRegistry map[string]Layout

// NewLayoutRegistry returns the built-in layouts merged with custom ones.
// A custom layout with a built-in name replaces the built-in entry.
func NewLayoutRegistry(custom ...Layout) (LayoutRegistry, error) {
	reg := make(LayoutRegistry, len(KnownLayouts)+len(custom))
	for name, l := range KnownLayouts {
		reg[name] = l
	}
	for _, l := range custom {
		l = l.WithDefaults()
		if err := l.Validate(); err != nil {
			return nil, err
		}
		key := NormalizeLayoutName(l.Name)
		if key == AutoLayout {
			return nil, fmt.Errorf("layout name %q is reserved", AutoLayout)
		}
		reg[key] = l
	}
	return reg, nil
}

// Lookup returns the layout registered under name.
func (r LayoutRegistry) Lookup(name string) (Layout, error) {
	l, ok := r[NormalizeLayoutName(name)]
	if !ok {
		return Layout{}, fmt.Errorf("unknown layout '%s'. must be one of %s or %s", name, strings.Join(r.Names(), ", "), AutoLayout)
	}
	return l, nil
}

// Names returns the registered layout names in sorted order.
func (r LayoutRegistry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Layouts returns the registered layouts sorted by name.
func (r LayoutRegistry) Layouts() []Layout {
	out := make([]Layout, 0, len(r))
	for _, name := range r.Names() {
		out = append(out, r[name])
	}
	return out
}

// WithStride returns the layouts whose stride equals n.
func (r LayoutRegistry) WithStride(n int) []Layout {
	var out []Layout
	for _, l := range r.Layouts() {
		if l.Stride == n {
			out = append(out, l)
		}
	}
	return slices.Clip(out)
}
