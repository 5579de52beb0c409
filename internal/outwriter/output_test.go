package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"image/png"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ctparquet "github.com/huangsam/casetrend/internal/parquet"
)

var (
	day1 = time.Date(2020, 3, 20, 9, 15, 0, 0, time.UTC)
	day2 = time.Date(2020, 3, 21, 9, 15, 0, 0, time.UTC)
	day3 = time.Date(2020, 3, 22, 9, 15, 0, 0, time.UTC)
)

func testConfig(output schema.OutputMode) *contract.Config {
	cfg := contract.DefaultConfig()
	cfg.Output = output
	cfg.UseColors = false
	cfg.Width = 120
	return cfg
}

func sampleSeriesResult() schema.SeriesResult {
	return schema.SeriesResult{
		Snapshots: 2,
		First:     day1,
		Last:      day2,
		Series: []schema.TimeSeries{
			{
				Region:    "Bayern",
				Points:    []schema.SeriesPoint{{Timestamp: day1, Count: 10}, {Timestamp: day2, Count: 20}},
				LastCount: 20,
			},
			{
				Region:    "Berlin",
				Points:    []schema.SeriesPoint{{Timestamp: day1, Count: 5}, {Timestamp: day2, Count: 4}},
				Decreases: 1,
				LastCount: 4,
			},
			{
				Region:    "Gesamt",
				Points:    []schema.SeriesPoint{{Timestamp: day1, Count: 15}, {Timestamp: day2, Count: 24}},
				Synthetic: true,
				LastCount: 24,
			},
		},
	}
}

func sampleTrendResult() schema.TrendResult {
	x1, x3 := schema.Ordinal(day1), schema.Ordinal(day3)
	return schema.TrendResult{
		Trends: []schema.RegionTrend{
			{
				Fit:           schema.TrendFit{Region: "Bayern", T0: x1 - 20, Rate: math.Ln2 / 2, DomainMin: x1, DomainMax: x3},
				LastObserved:  1200,
				Extrapolated:  1500.5,
				ExtrapolateTo: day3,
				Monotonic:     true,
			},
		},
		Excluded: []schema.Region{"Bremen"},
		Skipped:  []schema.SkippedRegion{{Region: "Berlin", Reason: "series is flat"}},
	}
}

func TestWriteSeriesResultsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSeriesResults(&buf, sampleSeriesResult(), testConfig(schema.TextOut)))

	output := buf.String()
	assert.Contains(t, output, "Bayern")
	assert.Contains(t, output, "2020-03-21 09:15")
	assert.Contains(t, output, "+10")
	assert.Contains(t, output, "-1")
	assert.Contains(t, output, "Aggregated 2 snapshots from 2020-03-20 09:15 to 2020-03-21 09:15 into 3 series.")
	assert.Contains(t, output, "decrease for: Berlin")
}

func TestWriteSeriesResultsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSeriesResults(&buf, sampleSeriesResult(), testConfig(schema.CSVOut)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 7)
	assert.Equal(t, []string{"region", "timestamp", "count", "synthetic"}, records[0])
	assert.Equal(t, []string{"Bayern", "2020-03-20T09:15:00Z", "10", "false"}, records[1])
	assert.Equal(t, []string{"Gesamt", "2020-03-21T09:15:00Z", "24", "true"}, records[6])
}

func TestWriteSeriesResultsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSeriesResults(&buf, sampleSeriesResult(), testConfig(schema.JSONOut)))

	var decoded schema.SeriesResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.Snapshots)
	require.Len(t, decoded.Series, 3)
	assert.True(t, decoded.Series[2].Synthetic)
	assert.Equal(t, 1, decoded.Series[1].Decreases)
}

func TestWriteSeriesResultsParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSeriesResults(&buf, sampleSeriesResult(), testConfig(schema.ParquetOut)))

	reader := parquet.NewGenericReader[ctparquet.SeriesRow](bytes.NewReader(buf.Bytes()))
	defer func() { _ = reader.Close() }()
	assert.Equal(t, int64(6), reader.NumRows())
}

func TestPrintSeriesResultsParquetNeedsFile(t *testing.T) {
	err := PrintSeriesResults(sampleSeriesResult(), testConfig(schema.ParquetOut))
	assert.ErrorIs(t, err, errParquetNeedsFile)

	cfg := testConfig(schema.ParquetOut)
	cfg.OutputFile = filepath.Join(t.TempDir(), "series.parquet")
	require.NoError(t, PrintSeriesResults(sampleSeriesResult(), cfg))
	assert.FileExists(t, cfg.OutputFile)
}

func TestWriteTrendResultsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrendResults(&buf, sampleTrendResult(), testConfig(schema.TextOut)))

	output := buf.String()
	assert.Contains(t, output, "Bayern")
	assert.Contains(t, output, "0.35")
	assert.Contains(t, output, "2.00")
	assert.Contains(t, output, "Critical")
	assert.Contains(t, output, "1200")
	assert.Contains(t, output, "1500.50")
	assert.Contains(t, output, "Fitted 1 regions. Below 50 cases: Bremen.")
	assert.Contains(t, output, "Skipped Berlin: series is flat")
}

func TestWriteTrendResultsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrendResults(&buf, sampleTrendResult(), testConfig(schema.CSVOut)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "region", records[0][0])
	row := records[1]
	assert.Equal(t, "Bayern", row[0])
	assert.Equal(t, "2.00", row[3])
	assert.Equal(t, "Critical", row[4])
	assert.Equal(t, "2020-03-20T09:15:00Z", row[5])
	assert.Equal(t, "1200", row[7])
	assert.Equal(t, "true", row[10])
}

func TestWriteTrendResultsJSON(t *testing.T) {
	result := sampleTrendResult()
	result.Trends = append(result.Trends, schema.RegionTrend{Fit: schema.TrendFit{Region: "Hamburg", Rate: 0}})

	var buf bytes.Buffer
	require.NoError(t, WriteTrendResults(&buf, result, testConfig(schema.JSONOut)))

	var decoded struct {
		Trends []struct {
			Fit          schema.TrendFit `json:"fit"`
			DoublingDays *float64        `json:"doubling_days"`
			Growth       string          `json:"growth"`
		} `json:"trends"`
		Excluded []string `json:"excluded"`
		Skipped  []struct {
			Region string `json:"region"`
			Reason string `json:"reason"`
		} `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Trends, 2)
	require.NotNil(t, decoded.Trends[0].DoublingDays)
	assert.InDelta(t, 2.0, *decoded.Trends[0].DoublingDays, 1e-9)
	assert.Equal(t, "Critical", decoded.Trends[0].Growth)
	assert.Nil(t, decoded.Trends[1].DoublingDays, "zero rate never doubles")
	assert.Equal(t, []string{"Bremen"}, decoded.Excluded)
	assert.Equal(t, "series is flat", decoded.Skipped[0].Reason)
}

func TestWriteTrendResultsParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrendResults(&buf, sampleTrendResult(), testConfig(schema.ParquetOut)))

	reader := parquet.NewGenericReader[ctparquet.TrendRow](bytes.NewReader(buf.Bytes()))
	defer func() { _ = reader.Close() }()
	rows := make([]ctparquet.TrendRow, 1)
	n, _ := reader.Read(rows)
	require.Equal(t, 1, n)
	assert.Equal(t, "Bayern", rows[0].Region)
	assert.Equal(t, "Critical", rows[0].GrowthLabel)
}

func TestWriteSnapshotSummaries(t *testing.T) {
	counts := schema.NewRegionCounts()
	counts.Set("Bayern", 10)
	counts.Set("Berlin", 5)
	summaries := []schema.SnapshotSummary{schema.NewSnapshot(day1, counts).Summary()}

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteSnapshotSummaries(&buf, summaries, testConfig(schema.TextOut)))
		assert.Contains(t, buf.String(), "2020-03-20-09-15")
		assert.Contains(t, buf.String(), "15")
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteSnapshotSummaries(&buf, summaries, testConfig(schema.CSVOut)))
		assert.Equal(t, "key,timestamp,regions,total\n2020-03-20-09-15,2020-03-20T09:15:00Z,2,15\n", buf.String())
	})

	t.Run("parquet", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, WriteSnapshotSummaries(&buf, summaries, testConfig(schema.ParquetOut)))
	})
}

func TestWriteLayouts(t *testing.T) {
	reg, err := schema.NewLayoutRegistry()
	require.NoError(t, err)

	t.Run("table marks pinned layout", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := testConfig(schema.TextOut)
		cfg.LayoutName = "v2"
		require.NoError(t, WriteLayouts(&buf, reg.Layouts(), cfg))
		assert.Contains(t, buf.String(), "v2 *")
		assert.Contains(t, buf.String(), "state, cases, deaths, remarks")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteLayouts(&buf, reg.Layouts(), testConfig(schema.JSONOut)))
		var decoded []schema.Layout
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		require.Len(t, decoded, 3)
		assert.Equal(t, 6, decoded[2].Stride)
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteLayouts(&buf, reg.Layouts(), testConfig(schema.CSVOut)))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		assert.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[1], "v1,3,0,1,"))
	})
}

func TestGetMaxRegionWidth(t *testing.T) {
	tests := []struct {
		width    int
		expected int
	}{
		{width: 60, expected: 12},
		{width: 100, expected: 20},
		{width: 200, expected: 40},
	}
	for _, tt := range tests {
		cfg := testConfig(schema.TextOut)
		cfg.Width = tt.width
		assert.Equal(t, tt.expected, GetMaxRegionWidth(cfg))
	}
}

func TestRenderPlot(t *testing.T) {
	series := sampleSeriesResult().Series
	x1, x2 := schema.Ordinal(day1), schema.Ordinal(day2)
	trends := []schema.RegionTrend{{
		Fit: schema.TrendFit{Region: "Bayern"},
		Curve: []schema.CurvePoint{
			{Ordinal: x1, Timestamp: day1, Value: 10},
			{Ordinal: x2, Timestamp: day2, Value: 20},
		},
	}}

	t.Run("png", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RenderPlot(&buf, series, trends, DefaultPlotOptions()))
		img, err := png.Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, 1280, img.Bounds().Dx())
	})

	t.Run("log scale", func(t *testing.T) {
		opts := DefaultPlotOptions()
		opts.LogScale = true
		var buf bytes.Buffer
		require.NoError(t, RenderPlot(&buf, series, trends, opts))
		assert.NotZero(t, buf.Len())
	})

	t.Run("single point", func(t *testing.T) {
		single := []schema.TimeSeries{{Region: "Bayern", Points: []schema.SeriesPoint{{Timestamp: day1, Count: 10}}}}
		var buf bytes.Buffer
		assert.NoError(t, RenderPlot(&buf, single, nil, DefaultPlotOptions()))
	})

	t.Run("nothing above threshold", func(t *testing.T) {
		opts := DefaultPlotOptions()
		opts.MinCount = 1000
		var buf bytes.Buffer
		assert.ErrorIs(t, RenderPlot(&buf, series, trends, opts), ErrNothingToPlot)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cases.png")
		require.NoError(t, NewOutWriter().WritePlot(path, series, trends, DefaultPlotOptions()))
		assert.FileExists(t, path)
	})
}
