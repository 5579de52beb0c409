// Package schema has configs, models and global variables for all parts of casetrend.
package schema

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// SnapshotKeyFormat is the sortable key layout for snapshots: year first so
// that lexical order equals chronological order.
const SnapshotKeyFormat = "2006-01-02-15-04"

// ErrEmptyRegion is returned when a region label is empty after normalization.
var ErrEmptyRegion = errors.New("region name is empty")

// invisibleRunes are dropped from labels; the page uses soft hyphens to break
// long state names and they vary between page versions.
var invisibleRunes = strings.NewReplacer(
	"\u00ad", "", // soft hyphen
	"\u200b", "", // zero width space
	"\u200c", "", // zero width non-joiner
	"\u200d", "", // zero width joiner
	"\ufeff", "", // byte order mark
)

// Region is the join key for a tracked administrative subdivision.
// It is opaque: two regions are the same when their normalized labels are equal.
type Region string

// NewRegion normalizes a raw table label into a Region.
func NewRegion(raw string) (Region, error) {
	s := invisibleRunes.Replace(raw)
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "", ErrEmptyRegion
	}
	return Region(s), nil
}

// String implements fmt.Stringer.
func (r Region) String() string {
	return string(r)
}

// RegionCounts maps regions to non-negative case counts.
// A repeated Set overwrites the count (last write wins) but keeps the
// position of the first occurrence, so iteration follows decode order.
type RegionCounts struct {
	order  []Region
	counts map[Region]int
}

// NewRegionCounts creates an empty mapping.
func NewRegionCounts() RegionCounts {
	return RegionCounts{counts: make(map[Region]int)}
}

// Set records the count for a region.
func (rc *RegionCounts) Set(region Region, count int) {
	if rc.counts == nil {
		rc.counts = make(map[Region]int)
	}
	if _, ok := rc.counts[region]; !ok {
		rc.order = append(rc.order, region)
	}
	rc.counts[region] = count
}

// Get returns the count for a region and whether it is present.
func (rc RegionCounts) Get(region Region) (int, bool) {
	n, ok := rc.counts[region]
	return n, ok
}

// Len returns the number of regions.
func (rc RegionCounts) Len() int {
	return len(rc.order)
}

// Regions returns the regions in insertion order.
func (rc RegionCounts) Regions() []Region {
	out := make([]Region, len(rc.order))
	copy(out, rc.order)
	return out
}

// All iterates over regions and counts in insertion order.
func (rc RegionCounts) All() iter.Seq2[Region, int] {
	return func(yield func(Region, int) bool) {
		for _, r := range rc.order {
			if !yield(r, rc.counts[r]) {
				return
			}
		}
	}
}

// Total returns the sum of all counts.
func (rc RegionCounts) Total() int {
	total := 0
	for _, n := range rc.counts {
		total += n
	}
	return total
}

// Map returns a copy of the counts as a plain map.
func (rc RegionCounts) Map() map[string]int {
	out := make(map[string]int, len(rc.counts))
	for r, n := range rc.counts {
		out[string(r)] = n
	}
	return out
}

// Snapshot is one timestamped decode of the source page's per-region table.
type Snapshot struct {
	Timestamp time.Time    // Data-standing time as written on the page, minute precision
	Counts    RegionCounts // Per-region counts in decode order
}

// NewSnapshot builds a snapshot, truncating the timestamp to the minute.
func NewSnapshot(ts time.Time, counts RegionCounts) Snapshot {
	return Snapshot{Timestamp: ts.Truncate(time.Minute), Counts: counts}
}

// Key returns the sortable storage key of the snapshot.
func (s Snapshot) Key() string {
	return SnapshotKey(s.Timestamp)
}

// SnapshotKey formats a timestamp as a snapshot key.
func SnapshotKey(ts time.Time) string {
	return ts.Format(SnapshotKeyFormat)
}

// ParseSnapshotKey converts a snapshot key back into its timestamp.
func ParseSnapshotKey(key string) (time.Time, error) {
	ts, err := time.Parse(SnapshotKeyFormat, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid snapshot key %q: %w", key, err)
	}
	return ts, nil
}

// FetchResult is the raw outcome of fetching the source page.
type FetchResult struct {
	URL         string    // Requested URL
	Body        []byte    // Document bytes, decoded to UTF-8
	ContentType string    // Content-Type header of the response
	FetchedAt   time.Time // Wall-clock time of the fetch
}
