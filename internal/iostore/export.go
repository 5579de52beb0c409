package iostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/internal/parquet"
	"github.com/huangsam/casetrend/schema"
)

// ExecuteSnapshotExport exports every stored snapshot of the global store to a Parquet file.
func ExecuteSnapshotExport(ctx context.Context, outputFile string) error {
	return ExportSnapshots(ctx, Manager.GetSnapshotStore(), outputFile)
}

// ExportSnapshots writes the snapshots of store to <outputFile>.snapshots.parquet.
func ExportSnapshots(ctx context.Context, store contract.SnapshotStore, outputFile string) error {
	// Validate that output file is specified
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("snapshot store is not initialized")
	}

	// Check if there's any data to export
	status, err := store.Status()
	if err != nil {
		return fmt.Errorf("failed to get store status: %w", err)
	}
	if status.TotalSnapshots == 0 {
		return errors.New("no snapshots found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total snapshots: %d\n", status.TotalSnapshots)

	var snaps []schema.Snapshot
	for snap, err := range store.List(ctx) {
		if err != nil {
			return fmt.Errorf("failed to retrieve snapshots: %w", err)
		}
		snaps = append(snaps, snap)
	}

	rows := parquet.ConvertSnapshots(snaps)
	snapshotsFile := outputFile + ".snapshots.parquet"
	if err := parquet.WriteSnapshotsParquet(rows, snapshotsFile); err != nil {
		return fmt.Errorf("failed to write snapshots: %w", err)
	}
	fmt.Printf("Exported %d region counts from %d snapshots to: %s\n", len(rows), len(snaps), snapshotsFile)

	fmt.Println("\nExport complete! The Parquet file can be used with:")
	fmt.Println("  - Pandas (via pyarrow)")
	fmt.Println("  - DuckDB")
	fmt.Println("  - Any other Parquet-compatible tool")

	return nil
}
