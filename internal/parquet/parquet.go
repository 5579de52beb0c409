// Package parquet provides data structures and functions for exporting casetrend
// snapshots, series and trends to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/schema"
	"github.com/parquet-go/parquet-go"
)

// SnapshotRow is one region count of one stored snapshot.
// This struct maps to the casetrend_snapshot_counts database table.
type SnapshotRow struct {
	// SnapshotKey is the sortable key YYYY-MM-DD-HH-MM of the snapshot
	SnapshotKey string `parquet:"snapshot_key,snappy"`

	// SnapshotTime is the data-standing time written on the page
	SnapshotTime time.Time `parquet:"snapshot_time,snappy"`

	// Position is the decode order of the region inside the snapshot
	Position int32 `parquet:"position,snappy"`

	// Region is the normalized region label
	Region string `parquet:"region,snappy"`

	// CaseCount is the cumulative case count
	CaseCount int64 `parquet:"case_count,snappy"`
}

// SeriesRow is one point of an aggregated per-region series.
type SeriesRow struct {
	Region    string    `parquet:"region,snappy"`
	Timestamp time.Time `parquet:"timestamp,snappy"`
	CaseCount int64     `parquet:"case_count,snappy"`

	// Synthetic marks the aggregator's own total series
	Synthetic bool `parquet:"synthetic"`
}

// TrendRow is the fitted growth curve of one region.
type TrendRow struct {
	Region string  `parquet:"region,snappy"`
	T0     float64 `parquet:"t0,snappy"`
	Rate   float64 `parquet:"rate,snappy"`

	// DoublingDays is null when the fitted rate is zero
	DoublingDays *float64 `parquet:"doubling_days,optional,snappy"`

	DomainStart   time.Time `parquet:"domain_start,snappy"`
	DomainEnd     time.Time `parquet:"domain_end,snappy"`
	LastObserved  int64     `parquet:"last_observed,snappy"`
	Extrapolated  float64   `parquet:"extrapolated,snappy"`
	ExtrapolateTo time.Time `parquet:"extrapolate_to,snappy"`
	Monotonic     bool      `parquet:"monotonic"`
	Residual      float64   `parquet:"residual,snappy"`
	Iterations    int32     `parquet:"iterations,snappy"`
	GrowthLabel   string    `parquet:"growth_label,snappy"`
}

// ConvertSnapshots flattens snapshots into one row per region count.
func ConvertSnapshots(snaps []schema.Snapshot) []SnapshotRow {
	var rows []SnapshotRow
	for _, snap := range snaps {
		position := int32(0)
		for region, count := range snap.Counts.All() {
			rows = append(rows, SnapshotRow{
				SnapshotKey:  snap.Key(),
				SnapshotTime: snap.Timestamp,
				Position:     position,
				Region:       string(region),
				CaseCount:    int64(count),
			})
			position++
		}
	}
	return rows
}

// ConvertSeries flattens series into one row per point.
func ConvertSeries(series []schema.TimeSeries) []SeriesRow {
	var rows []SeriesRow
	for _, ts := range series {
		for _, p := range ts.Points {
			rows = append(rows, SeriesRow{
				Region:    string(ts.Region),
				Timestamp: p.Timestamp,
				CaseCount: int64(p.Count),
				Synthetic: ts.Synthetic,
			})
		}
	}
	return rows
}

// ConvertTrends converts fitted trends into rows.
func ConvertTrends(trends []schema.RegionTrend) []TrendRow {
	rows := make([]TrendRow, 0, len(trends))
	for _, tr := range trends {
		row := TrendRow{
			Region:        string(tr.Fit.Region),
			T0:            tr.Fit.T0,
			Rate:          tr.Fit.Rate,
			DomainStart:   schema.FromOrdinal(tr.Fit.DomainMin),
			DomainEnd:     schema.FromOrdinal(tr.Fit.DomainMax),
			LastObserved:  int64(tr.LastObserved),
			Extrapolated:  tr.Extrapolated,
			ExtrapolateTo: tr.ExtrapolateTo,
			Monotonic:     tr.Monotonic,
			Residual:      tr.Fit.Residual,
			Iterations:    int32(tr.Fit.Iterations),
			GrowthLabel:   contract.GetPlainLabel(tr.Fit.DoublingDays()),
		}
		if d := tr.Fit.DoublingDays(); !math.IsInf(d, 0) && !math.IsNaN(d) {
			row.DoublingDays = &d
		}
		rows = append(rows, row)
	}
	return rows
}

// Write writes rows to w. The schema is derived from the struct tags of T.
func Write[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// WriteFile writes rows to a new Parquet file at outputPath.
func WriteFile[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(file, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteSnapshotsParquet writes snapshot rows to a Parquet file.
func WriteSnapshotsParquet(rows []SnapshotRow, outputPath string) error {
	return WriteFile(rows, outputPath)
}
