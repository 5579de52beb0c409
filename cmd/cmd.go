// Package cmd defines the command-line interface for casetrend.
package cmd

import (
	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/internal/outwriter"
	"github.com/huangsam/casetrend/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(seriesCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(layoutsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(storeCmd)

	// Add the store subcommands to the parent store command
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeExportCmd)
	storeCmd.AddCommand(storeMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("url", schema.DefaultSourceURL, "URL of the case count page")
	rootCmd.PersistentFlags().String("timeout", contract.DefaultTimeout.String(), "HTTP timeout for fetching the page (e.g. 30s)")
	rootCmd.PersistentFlags().String("user-agent", contract.DefaultUserAgent, "User-Agent header sent with the request")
	rootCmd.PersistentFlags().String("layout", schema.DefaultLayoutName, "Page layout to decode with, or 'auto' to try each registered layout")
	rootCmd.PersistentFlags().String("data-dir", contract.DefaultDataDir, "Directory holding snapshot files for the file backend")
	rootCmd.PersistentFlags().String("audit-dir", "", "Directory to keep raw page captures in (empty disables it)")
	rootCmd.PersistentFlags().String("store-backend", string(schema.FileBackend), "Snapshot store: file or sqlite or mysql or postgresql")
	rootCmd.PersistentFlags().String("store-db-connect", "", "Database connection string for sqlite/mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().StringP("region", "r", "", "Comma-separated list of regions to keep")
	rootCmd.PersistentFlags().String("start", "", "Earliest snapshot in ISO8601 or time ago")
	rootCmd.PersistentFlags().String("end", "", "Latest snapshot in ISO8601 or time ago")
	rootCmd.PersistentFlags().Int("min-count", schema.DefaultMinCount, "Regions whose maximum count stays below this are not fitted")
	rootCmd.PersistentFlags().Int("points", schema.DefaultPoints, "Number of samples on each fitted curve (0 omits curves)")
	rootCmd.PersistentFlags().Float64("extend", schema.DefaultExtend, "Fraction of the observed span to extrapolate the curves by")
	rootCmd.PersistentFlags().String("total-label", schema.DefaultTotalLabel, "Region name of the synthesized total")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of plotCmd to Viper
	defaults := outwriter.DefaultPlotOptions()
	plotCmd.Flags().Bool("log-scale", false, "Plot log10 of the counts")
	plotCmd.Flags().Int("plot-min", defaults.MinCount, "Leave out regions whose maximum count stays below this")
	plotCmd.Flags().String("title", defaults.Title, "Chart title")
	if err := viper.BindPFlags(plotCmd.Flags()); err != nil {
		contract.LogFatal("Error binding plot flags", err)
	}

	// Bind all flags of decodeCmd to Viper
	decodeCmd.Flags().Bool("store", false, "Store the decoded snapshot instead of printing it")
	if err := viper.BindPFlags(decodeCmd.Flags()); err != nil {
		contract.LogFatal("Error binding decode flags", err)
	}

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding store migrate flags", err)
	}
}
