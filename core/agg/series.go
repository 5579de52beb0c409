// Package agg builds per-region time series out of stored snapshots.
package agg

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"time"

	"github.com/huangsam/casetrend/schema"
)

// CollectSnapshots drains a store listing. The first error stops the drain.
func CollectSnapshots(seq iter.Seq2[schema.Snapshot, error]) ([]schema.Snapshot, error) {
	var snaps []schema.Snapshot
	for snap, err := range seq {
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// BuildSeries merges snapshots into one ascending series per region plus a
// synthesized total series labelled totalLabel. A region missing from a
// snapshot gets no point for that timestamp. When two snapshots share a
// timestamp the later one in input order wins.
// Regions are returned sorted by name with the total last.
func BuildSeries(snaps []schema.Snapshot, totalLabel string) ([]schema.TimeSeries, error) {
	if totalLabel == "" {
		totalLabel = schema.DefaultTotalLabel
	}
	total := schema.Region(totalLabel)

	byRegion := make(map[schema.Region]map[int64]int)
	totals := make(map[int64]int)
	stamps := make(map[int64]time.Time)

	for _, snap := range snaps {
		key := snap.Timestamp.Unix()
		stamps[key] = snap.Timestamp
		for region, n := range snap.Counts.All() {
			if region == total {
				return nil, fmt.Errorf("snapshot %s has a region named %q which clashes with the total label", snap.Key(), totalLabel)
			}
			points, ok := byRegion[region]
			if !ok {
				points = make(map[int64]int)
				byRegion[region] = points
			}
			points[key] = n
		}
		totals[key] = snap.Counts.Total()
	}

	regions := make([]schema.Region, 0, len(byRegion))
	for r := range byRegion {
		regions = append(regions, r)
	}
	slices.Sort(regions)

	out := make([]schema.TimeSeries, 0, len(regions)+1)
	for _, r := range regions {
		out = append(out, newSeries(r, byRegion[r], stamps, false))
	}
	if len(totals) > 0 {
		out = append(out, newSeries(total, totals, stamps, true))
	}
	return out, nil
}

// newSeries sorts one region's points and fills in the derived fields.
func newSeries(region schema.Region, points map[int64]int, stamps map[int64]time.Time, synthetic bool) schema.TimeSeries {
	keys := make([]int64, 0, len(points))
	for k := range points {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	ts := schema.TimeSeries{Region: region, Synthetic: synthetic, Points: make([]schema.SeriesPoint, 0, len(keys))}
	for i, k := range keys {
		n := points[k]
		ts.Points = append(ts.Points, schema.SeriesPoint{Timestamp: stamps[k], Count: n})
		if i > 0 && n < points[keys[i-1]] {
			ts.Decreases++
		}
		ts.LastCount = n
	}
	return ts
}

// Summarize builds the series and records the covered time range.
func Summarize(snaps []schema.Snapshot, totalLabel string) (schema.SeriesResult, error) {
	series, err := BuildSeries(snaps, totalLabel)
	if err != nil {
		return schema.SeriesResult{}, err
	}
	result := schema.SeriesResult{Snapshots: len(snaps), Series: series}
	for i, snap := range snaps {
		if i == 0 || snap.Timestamp.Before(result.First) {
			result.First = snap.Timestamp
		}
		if i == 0 || snap.Timestamp.After(result.Last) {
			result.Last = snap.Timestamp
		}
	}
	return result, nil
}

// FilterRegions keeps only the given regions. An empty filter keeps all.
func FilterRegions(series []schema.TimeSeries, regions []schema.Region) []schema.TimeSeries {
	if len(regions) == 0 {
		return series
	}
	wanted := make(map[schema.Region]struct{}, len(regions))
	for _, r := range regions {
		wanted[r] = struct{}{}
	}
	var out []schema.TimeSeries
	for _, ts := range series {
		if _, ok := wanted[ts.Region]; ok {
			out = append(out, ts)
		}
	}
	return out
}

// NonMonotonic returns the regions whose cumulative series ever goes down.
func NonMonotonic(series []schema.TimeSeries) []schema.Region {
	var out []schema.Region
	for _, ts := range series {
		if !ts.IsMonotonic() {
			out = append(out, ts.Region)
		}
	}
	return out
}

// SortSnapshots orders snapshots by timestamp, oldest first.
func SortSnapshots(snaps []schema.Snapshot) {
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Timestamp.Before(snaps[j].Timestamp)
	})
}
