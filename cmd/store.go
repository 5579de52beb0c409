package cmd

import (
	"fmt"

	"github.com/huangsam/casetrend/core"
	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/internal/iostore"
	"github.com/huangsam/casetrend/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeSetup loads minimal configuration needed for store operations.
// This is used by commands that need store access without full shared setup.
func storeSetup(openStores bool) error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get store-related config values
	backend := schema.StoreBackend(viper.GetString("store-backend"))
	connStr := viper.GetString("store-db-connect")
	dataDir := viper.GetString("data-dir")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.StoreBackend = backend
	cfg.StoreDBConnect = connStr
	cfg.DataDir = dataDir
	cfg.OutputFile = viper.GetString("output-file")

	if !openStores {
		return nil
	}
	if err := iostore.InitStores(cfg); err != nil {
		return fmt.Errorf("failed to initialize snapshot store: %w", err)
	}
	return nil
}

// storeSetupWrapper wraps storeSetup to provide PreRunE for store commands.
func storeSetupWrapper(_ *cobra.Command, _ []string) error {
	return storeSetup(true)
}

// storeCmd focused on snapshot store management.
//
// Note: Store subcommands use minimal initialization (storeSetup) instead of
// the full sharedSetup used by the analysis commands, except for list which
// honors --start, --end and --output.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the snapshot store",
	Long: `Manage the store that holds the decoded snapshots.

Supported backends: file (default), SQLite, MySQL, PostgreSQL

Subcommands:
  list    - List stored snapshots with their totals
  status  - Show store statistics and connection info
  clear   - Remove all stored snapshots
  export  - Export all snapshots to Parquet
  migrate - Run schema migrations for the SQL backends

Examples:
  # Check store status
  casetrend store status

  # Export every snapshot for DuckDB
  casetrend store export --output-file casetrend`,
}

// storeListCmd lists stored snapshots.
var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	Long: `Print one line per stored snapshot, oldest first, with the number of
regions and the sum of their counts. --start and --end limit the listing.`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteSnapshotList(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot list snapshots", err)
		}
	},
}

// storeStatusCmd shows store status.
var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show snapshot store status and statistics",
	Long: `Display information about the snapshot store.

Shows:
- Backend type and location
- Connection status
- Number of snapshots and region rows
- Oldest and newest snapshot
- Storage size`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := storeManager.GetSnapshotStore()
		if store == nil {
			contract.LogFatal("Cannot get store status", fmt.Errorf("snapshot store is not initialized"))
		}
		status, err := store.Status()
		if err != nil {
			contract.LogFatal("Cannot get store status", err)
		}
		iostore.PrintStoreStatus(status)
	},
}

// storeClearCmd clears the store.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored snapshots",
	Long: `Delete every stored snapshot from the configured backend.

For the file backend only snapshot files are removed from --data-dir.
Raw captures under --audit-dir are never touched.

Warning: this cannot be undone. Fetching again only recovers the page
that is currently published.`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return storeSetup(false)
	},
	Run: func(_ *cobra.Command, _ []string) {
		if err := iostore.ClearStore(cfg.StoreBackend, cfg.DataDir, cfg.StoreDBConnect); err != nil {
			contract.LogFatal("Cannot clear store", err)
		}
		fmt.Println("Snapshot store cleared successfully")
	},
}

// storeExportCmd exports all snapshots to Parquet.
var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all snapshots to Parquet",
	Long: `Write every stored snapshot as one row per region to
<output-file>.snapshots.parquet for use in Pandas or DuckDB.

Examples:
  casetrend store export --output-file casetrend`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iostore.ExecuteSnapshotExport(rootCtx, cfg.OutputFile); err != nil {
			contract.LogFatal("Cannot export snapshots", err)
		}
	},
}

// storeMigrateCmd runs schema migrations.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run schema migrations for the SQL snapshot store",
	Long: `Apply or roll back the schema migrations of the SQL backends.

The file backend has no schema and is rejected.

Examples:
  # Migrate to the latest version
  casetrend store migrate --store-backend sqlite

  # Roll back everything
  casetrend store migrate --store-backend sqlite --target-version 0`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return storeSetup(false)
	},
	Run: func(_ *cobra.Command, _ []string) {
		connStr := cfg.StoreDBConnect
		if cfg.StoreBackend == schema.SQLiteBackend && connStr == "" {
			connStr = contract.GetSnapshotDBFilePath()
		}
		version, err := iostore.MigrateStore(cfg.StoreBackend, connStr, viper.GetInt("target-version"))
		if err != nil {
			contract.LogFatal("Cannot migrate store", err)
		}
		fmt.Printf("Schema version: %d\n", version)
	},
}
