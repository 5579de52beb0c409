package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/schema"
	"github.com/olekukonko/tablewriter"
)

// PrintSnapshotSummaries lists stored snapshots to the configured output.
func PrintSnapshotSummaries(summaries []schema.SnapshotSummary, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteSnapshotSummaries(w, summaries, cfg)
	}, "Wrote snapshot list")
}

// WriteSnapshotSummaries writes one entry per snapshot. Parquet is not offered
// here; use the store export command for a columnar copy.
func WriteSnapshotSummaries(w io.Writer, summaries []schema.SnapshotSummary, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeJSON(w, summaries)
	case schema.CSVOut:
		return writeCSVWithHeader(w, []string{"key", "timestamp", "regions", "total"}, func(csvWriter *csv.Writer) error {
			for _, s := range summaries {
				row := []string{s.Key, s.Timestamp.Format(contract.DateTimeFormat), strconv.Itoa(s.Regions), strconv.Itoa(s.Total)}
				if err := csvWriter.Write(row); err != nil {
					return err
				}
			}
			return nil
		})
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is not supported for snapshot listings; use 'store export'")
	default:
		table := tablewriter.NewWriter(w)
		table.Header([]string{"Key", "Data As Of", "Regions", "Total"})
		var data [][]string
		for _, s := range summaries {
			data = append(data, []string{s.Key, formatTime(s.Timestamp), strconv.Itoa(s.Regions), strconv.Itoa(s.Total)})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		return table.Render()
	}
}
