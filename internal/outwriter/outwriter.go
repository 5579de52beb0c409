// Package outwriter has output and writer logic.
package outwriter

import (
	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteSeries prints aggregated series using the configured output format.
func (ow *OutWriter) WriteSeries(result schema.SeriesResult, cfg *contract.Config) error {
	return PrintSeriesResults(result, cfg)
}

// WriteTrends prints fitted trends using the configured output format.
func (ow *OutWriter) WriteTrends(result schema.TrendResult, cfg *contract.Config) error {
	return PrintTrendResults(result, cfg)
}

// WriteSnapshots prints the stored snapshot list using the configured output format.
func (ow *OutWriter) WriteSnapshots(summaries []schema.SnapshotSummary, cfg *contract.Config) error {
	return PrintSnapshotSummaries(summaries, cfg)
}

// WriteLayouts prints the registered layouts using the configured output format.
func (ow *OutWriter) WriteLayouts(layouts []schema.Layout, cfg *contract.Config) error {
	return PrintLayouts(layouts, cfg)
}

// WritePlot renders the chart to path.
func (ow *OutWriter) WritePlot(path string, series []schema.TimeSeries, trends []schema.RegionTrend, opts PlotOptions) error {
	return PlotFile(path, series, trends, opts)
}
