package cmd

import (
	"github.com/huangsam/casetrend/core"
	"github.com/huangsam/casetrend/internal/contract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// fetchCmd downloads the page once and stores the decoded snapshot.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the case count page and store a snapshot.",
	Long: `Fetch downloads the configured page, decodes the per-region case count
table and stores it as a snapshot keyed by the page's publication time.

A snapshot that is already stored is left untouched, so running fetch
repeatedly (for example from cron) only records new publications.
When --audit-dir is set the raw page is kept there as well.

Examples:
  # Fetch into ./data
  casetrend fetch

  # Fetch into a SQLite database and keep raw captures
  casetrend fetch --store-backend sqlite --audit-dir raw`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteFetch(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot fetch snapshot", err)
		}
	},
}

// decodeCmd decodes a page that was saved to disk.
var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Decode a saved case count page.",
	Long: `Decode reads an HTML page from disk and prints the per-region counts it
contains. The page is converted to UTF-8 using its declared charset.

With --store the decoded snapshot is written to the snapshot store exactly
like fetch would, which is useful for backfilling raw captures.

Examples:
  # Check that an old capture still decodes with the v1 layout
  casetrend decode raw/2020-03-21-00-00-00.html

  # Try every registered layout and store the result
  casetrend decode page.html --layout auto --store`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if !storeFlag() {
			return configOnlyWrapper(cmd, args)
		}
		return sharedSetupWrapper(cmd, args)
	},
	Run: func(_ *cobra.Command, args []string) {
		if err := core.ExecuteDecode(rootCtx, cfg, storeManager, args[0], storeFlag()); err != nil {
			contract.LogFatal("Cannot decode page", err)
		}
	},
}

// storeFlag reports whether decode should write to the snapshot store.
func storeFlag() bool {
	return viper.GetBool("store")
}
