package extract

import (
	"fmt"

	"github.com/huangsam/casetrend/schema"
)

// Decoder turns a parsed page into a snapshot using a pinned or detected layout.
type Decoder struct {
	registry schema.LayoutRegistry
	layout   string // layout name or schema.AutoLayout
	matchers []TimestampMatcher
}

// Decoded is a snapshot together with the layout that produced it.
type Decoded struct {
	Snapshot schema.Snapshot
	Layout   schema.Layout
}

// NewDecoder validates the layout selection up front.
func NewDecoder(reg schema.LayoutRegistry, layout string, matchers []TimestampMatcher) (*Decoder, error) {
	if reg == nil {
		reg = schema.LayoutRegistry(schema.KnownLayouts)
	}
	layout = schema.NormalizeLayoutName(layout)
	if layout == "" {
		layout = schema.DefaultLayoutName
	}
	if layout != schema.AutoLayout {
		if _, err := reg.Lookup(layout); err != nil {
			return nil, err
		}
	}
	if len(matchers) == 0 {
		matchers = DefaultTimestampMatchers()
	}
	return &Decoder{registry: reg, layout: layout, matchers: matchers}, nil
}

// tableMarker is the marker used to find the table before the layout is known.
func (d *Decoder) tableMarker() string {
	if d.layout == schema.AutoLayout {
		return schema.DefaultTableMarker
	}
	return d.registry[d.layout].TableMarker
}

// Decode runs timestamp extraction, table location and row decoding on doc.
// Any failure leaves no snapshot behind.
func (d *Decoder) Decode(doc *Document) (Decoded, error) {
	ts, err := ExtractTimestamp(doc, d.matchers)
	if err != nil {
		return Decoded{}, err
	}
	key := schema.SnapshotKey(ts)

	table, err := LocateTable(doc, d.tableMarker())
	if err != nil {
		return Decoded{}, fmt.Errorf("snapshot %s: %w", key, err)
	}

	var layout schema.Layout
	if d.layout == schema.AutoLayout {
		layout, err = DetectLayout(table, d.registry)
		if err != nil {
			return Decoded{}, fmt.Errorf("snapshot %s: %w", key, err)
		}
	} else {
		layout = d.registry[d.layout]
		if err := CheckLayout(table, layout); err != nil {
			return Decoded{}, fmt.Errorf("snapshot %s: %w", key, err)
		}
	}

	counts, err := DecodeRows(FlattenCells(table), layout)
	if err != nil {
		return Decoded{}, fmt.Errorf("snapshot %s: %w", key, err)
	}
	return Decoded{Snapshot: schema.NewSnapshot(ts, counts), Layout: layout}, nil
}

// DecodeBytes parses raw HTML and decodes it.
func (d *Decoder) DecodeBytes(body []byte) (Decoded, error) {
	doc, err := ParseBytes(body)
	if err != nil {
		return Decoded{}, err
	}
	return d.Decode(doc)
}
