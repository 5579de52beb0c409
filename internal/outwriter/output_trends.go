package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/internal/parquet"
	"github.com/huangsam/casetrend/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// trendView is the JSON shape of one fitted region.
type trendView struct {
	schema.RegionTrend
	DoublingDays *float64 `json:"doubling_days"`
	Growth       string   `json:"growth"`
}

// trendResultView is the JSON shape of a trend run.
type trendResultView struct {
	Trends   []trendView            `json:"trends"`
	Excluded []schema.Region        `json:"excluded"`
	Skipped  []schema.SkippedRegion `json:"skipped"`
}

// PrintTrendResults writes the trends to the configured output file or stdout.
func PrintTrendResults(result schema.TrendResult, cfg *contract.Config) error {
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return errParquetNeedsFile
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteTrendResults(w, result, cfg)
	}, fmt.Sprintf("Wrote %s trend results", cfg.Output))
}

// WriteTrendResults outputs the trends, dispatching based on the output format configured.
func WriteTrendResults(w io.Writer, result schema.TrendResult, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, newTrendResultView(result)); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVResultsForTrends(w, result, fmtFloat); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := parquet.Write(w, parquet.ConvertTrends(result.Trends)); err != nil {
			return fmt.Errorf("error writing parquet output: %w", err)
		}
	default:
		if err := writeTrendTable(w, result, cfg, fmtFloat); err != nil {
			return fmt.Errorf("error writing trend table output: %w", err)
		}
	}
	return nil
}

// newTrendResultView adds the derived doubling time and label to every trend.
// Curves stay in the output so callers can plot them.
func newTrendResultView(result schema.TrendResult) trendResultView {
	view := trendResultView{
		Trends:   make([]trendView, 0, len(result.Trends)),
		Excluded: result.Excluded,
		Skipped:  result.Skipped,
	}
	for _, tr := range result.Trends {
		tv := trendView{RegionTrend: tr, Growth: contract.GetPlainLabel(tr.Fit.DoublingDays())}
		if tr.Fit.Rate > 0 {
			d := tr.Fit.DoublingDays()
			tv.DoublingDays = &d
		}
		view.Trends = append(view.Trends, tv)
	}
	return view
}

// writeCSVResultsForTrends writes one row per fitted region.
func writeCSVResultsForTrends(w io.Writer, result schema.TrendResult, fmtFloat func(float64) string) error {
	header := []string{
		"region",
		"rate",
		"t0",
		"doubling_days",
		"growth",
		"domain_start",
		"domain_end",
		"last_observed",
		"extrapolated",
		"extrapolate_to",
		"monotonic",
		"residual",
	}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for _, tr := range result.Trends {
			doubling := ""
			if tr.Fit.Rate > 0 {
				doubling = fmtFloat(tr.Fit.DoublingDays())
			}
			row := []string{
				string(tr.Fit.Region),
				strconv.FormatFloat(tr.Fit.Rate, 'g', 10, 64),
				schema.FromOrdinal(tr.Fit.T0).Format(contract.DateTimeFormat),
				doubling,
				contract.GetPlainLabel(tr.Fit.DoublingDays()),
				schema.FromOrdinal(tr.Fit.DomainMin).Format(contract.DateTimeFormat),
				schema.FromOrdinal(tr.Fit.DomainMax).Format(contract.DateTimeFormat),
				strconv.Itoa(tr.LastObserved),
				fmtFloat(tr.Extrapolated),
				tr.ExtrapolateTo.Format(contract.DateTimeFormat),
				strconv.FormatBool(tr.Monotonic),
				fmtFloat(tr.Fit.Residual),
			}
			if err := csvWriter.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeTrendTable prints one row per fitted region followed by the regions left out.
func writeTrendTable(w io.Writer, result schema.TrendResult, cfg *contract.Config, fmtFloat func(float64) string) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Region", "Rate/Day", "Doubling", "Growth", "Last", "Projected", "Projected At"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	maxWidth := GetMaxRegionWidth(cfg)
	var data [][]string
	for _, tr := range result.Trends {
		doubling := tr.Fit.DoublingDays()
		data = append(data, []string{
			contract.TruncateLabel(string(tr.Fit.Region), maxWidth),
			fmtFloat(tr.Fit.Rate),
			formatDoubling(doubling, fmtFloat),
			growthLabel(doubling, cfg.UseColors),
			strconv.Itoa(tr.LastObserved),
			fmtFloat(tr.Extrapolated),
			formatTime(tr.ExtrapolateTo),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "Fitted %d regions.", len(result.Trends))
	if len(result.Excluded) > 0 {
		_, _ = fmt.Fprintf(w, " Below %d cases: %s.", cfg.MinCount, joinRegions(result.Excluded))
	}
	_, _ = fmt.Fprintln(w)
	for _, s := range result.Skipped {
		_, _ = fmt.Fprintf(w, "Skipped %s: %s\n", s.Region, s.Reason)
	}
	return nil
}
