package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/casetrend/core/agg"
	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/internal/parquet"
	"github.com/huangsam/casetrend/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// errParquetNeedsFile is returned when parquet output would go to a terminal.
var errParquetNeedsFile = errors.New("parquet output requires --output-file")

// PrintSeriesResults writes the series to the configured output file or stdout.
func PrintSeriesResults(result schema.SeriesResult, cfg *contract.Config) error {
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return errParquetNeedsFile
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteSeriesResults(w, result, cfg)
	}, fmt.Sprintf("Wrote %s series results", cfg.Output))
}

// WriteSeriesResults outputs the series, dispatching based on the output format configured.
func WriteSeriesResults(w io.Writer, result schema.SeriesResult, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, result); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVResultsForSeries(w, result); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := parquet.Write(w, parquet.ConvertSeries(result.Series)); err != nil {
			return fmt.Errorf("error writing parquet output: %w", err)
		}
	default:
		// Default to human-readable table
		if err := writeSeriesTable(w, result, cfg); err != nil {
			return fmt.Errorf("error writing series table output: %w", err)
		}
	}
	return nil
}

// writeCSVResultsForSeries writes one row per series point.
func writeCSVResultsForSeries(w io.Writer, result schema.SeriesResult) error {
	header := []string{"region", "timestamp", "count", "synthetic"}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for _, ts := range result.Series {
			for _, p := range ts.Points {
				row := []string{
					string(ts.Region),
					p.Timestamp.Format(contract.DateTimeFormat),
					strconv.Itoa(p.Count),
					strconv.FormatBool(ts.Synthetic),
				}
				if err := csvWriter.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// writeSeriesTable prints the series in long format with the change since the previous point.
func writeSeriesTable(w io.Writer, result schema.SeriesResult, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Region", "Time", "Cases", "Change"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	maxWidth := GetMaxRegionWidth(cfg)
	var data [][]string
	for _, ts := range result.Series {
		label := contract.TruncateLabel(string(ts.Region), maxWidth)
		for i, p := range ts.Points {
			change := "-"
			if i > 0 {
				change = fmt.Sprintf("%+d", p.Count-ts.Points[i-1].Count)
			}
			data = append(data, []string{label, formatTime(p.Timestamp), strconv.Itoa(p.Count), change})
		}
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "Aggregated %d snapshots from %s to %s into %d series.\n",
		result.Snapshots, formatTime(result.First), formatTime(result.Last), len(result.Series))
	if decreasing := agg.NonMonotonic(result.Series); len(decreasing) > 0 {
		_, _ = fmt.Fprintf(w, "Counts are cumulative but decrease for: %s\n", joinRegions(decreasing))
	}
	return nil
}

// joinRegions renders a region list for footers.
func joinRegions(regions []schema.Region) string {
	names := make([]string, len(regions))
	for i, r := range regions {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
