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

// PrintLayouts lists the registered table layouts.
func PrintLayouts(layouts []schema.Layout, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteLayouts(w, layouts, cfg)
	}, "Wrote layouts")
}

// WriteLayouts writes the layouts, marking the one pinned by the config.
func WriteLayouts(w io.Writer, layouts []schema.Layout, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeJSON(w, layouts)
	case schema.CSVOut:
		header := []string{"name", "stride", "name_offset", "count_offset", "table_marker", "total_marker", "description"}
		return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
			for _, l := range layouts {
				row := []string{
					l.Name,
					strconv.Itoa(l.Stride),
					strconv.Itoa(l.NameOffset),
					strconv.Itoa(l.CountOffset),
					l.TableMarker,
					l.TotalMarker,
					l.Description,
				}
				if err := csvWriter.Write(row); err != nil {
					return err
				}
			}
			return nil
		})
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is not supported for layouts")
	default:
		table := tablewriter.NewWriter(w)
		table.Header([]string{"Name", "Stride", "Name Col", "Count Col", "Description"})
		var data [][]string
		for _, l := range layouts {
			name := l.Name
			if schema.NormalizeLayoutName(name) == cfg.LayoutName {
				name += " *"
			}
			data = append(data, []string{name, strconv.Itoa(l.Stride), strconv.Itoa(l.NameOffset), strconv.Itoa(l.CountOffset), l.Description})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
		if cfg.LayoutName == schema.AutoLayout {
			_, _ = fmt.Fprintln(w, "Layout is detected from the table's row width.")
		}
		return nil
	}
}
