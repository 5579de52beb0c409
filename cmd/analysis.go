package cmd

import (
	"github.com/huangsam/casetrend/core"
	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/internal/outwriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// seriesCmd prints the merged per-region series.
var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Show the case count series per region.",
	Long: `Series merges every stored snapshot into one time series per region.
Regions that do not appear in every snapshot are kept with the points they
have. A synthesized total (see --total-label) sums all regions per snapshot.

Examples:
  # All regions as a table
  casetrend series

  # Two regions since the start of April as CSV
  casetrend series -r "Bayern,Berlin" --start 2020-04-01 --output csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteSeries(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot build series", err)
		}
	},
}

// trendCmd fits the exponential trend of every series.
var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Fit an exponential growth curve per region.",
	Long: `Trend fits count(t) = a * exp(b * (t - t0)) to each region's series
with Levenberg-Marquardt and reports the growth rate b and the doubling time.

Regions whose largest count stays below --min-count are listed as excluded.
With --points above 0 the fitted curve is sampled and extrapolated by
--extend times the observed span.

Examples:
  # Fit every region with at least 50 cases
  casetrend trend

  # Fit Bayern only and emit JSON with a 100 point curve
  casetrend trend -r Bayern --points 100 --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteTrend(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot fit trends", err)
		}
	},
}

// plotCmd renders the series and fitted curves to a PNG chart.
var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render the series and fitted curves to a PNG chart.",
	Long: `Plot draws each region's observed counts as points and its fitted
curve as a line, then writes the chart to --output-file (casetrend.png by
default).

Examples:
  # Default chart
  casetrend plot

  # Log scale, larger regions only
  casetrend plot --log-scale --plot-min 100 --output-file growth.png`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		opts := outwriter.DefaultPlotOptions()
		opts.LogScale = viper.GetBool("log-scale")
		opts.MinCount = viper.GetInt("plot-min")
		opts.Title = viper.GetString("title")
		if err := core.ExecutePlot(rootCtx, cfg, storeManager, opts); err != nil {
			contract.LogFatal("Cannot render plot", err)
		}
	},
}

// layoutsCmd lists the page layouts the decoder knows about.
var layoutsCmd = &cobra.Command{
	Use:   "layouts",
	Short: "List the registered page layouts.",
	Long: `Layouts prints every page layout the decoder can use, including those
added under 'layouts:' in the config file. Use --layout to pick one or
--layout auto to pick the single layout whose stride matches the table.`,
	PreRunE: configOnlyWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteLayouts(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot list layouts", err)
		}
	},
}
