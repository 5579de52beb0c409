// Package core has the orchestration logic for ingesting pages, building series and fitting trends.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/internal/fetcher"
	"github.com/huangsam/casetrend/internal/outwriter"
	"github.com/huangsam/casetrend/schema"
)

// ExecutorFunc defines the function signature for the store-backed commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

// DefaultPlotFile is used by the plot command when no output file is given.
const DefaultPlotFile = "casetrend.png"

// progressTimeFormat mimics the wall clock stamp of the progress lines.
const progressTimeFormat = "2006-01-02 15:04:05.000000"

var errStoreNotInitialized = errors.New("snapshot store is not initialized")

// writer is the shared output writer used by all Execute functions.
var writer = outwriter.NewOutWriter()

// ExecuteFetch downloads the configured page, decodes it and stores the snapshot.
// It serves as the main entry point for the 'fetch' command.
func ExecuteFetch(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	result, err := FetchAndStore(ctx, cfg, mgr, fetcher.NewFromConfig(cfg))
	if err != nil {
		return err
	}
	printIngest(ctx, result)
	return nil
}

// ExecuteSeries aggregates every stored snapshot and prints the series.
func ExecuteSeries(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	result, err := GetSeriesResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return writer.WriteSeries(result, cfg)
}

// ExecuteTrend fits every series and prints the trends.
func ExecuteTrend(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	_, trends, err := GetTrendResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return writer.WriteTrends(trends, cfg)
}

// ExecuteSnapshotList prints one summary line per stored snapshot, oldest first.
func ExecuteSnapshotList(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	summaries, err := ListSnapshots(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return writer.WriteSnapshots(summaries, cfg)
}

// ExecuteLayouts prints the layouts known to the decoder.
func ExecuteLayouts(_ context.Context, cfg *contract.Config, _ contract.StoreManager) error {
	return writer.WriteLayouts(cfg.Layouts.Layouts(), cfg)
}

// ExecutePlot renders observed series and fitted curves into a PNG.
// The chart goes to cfg.OutputFile, or DefaultPlotFile when that is empty.
func ExecutePlot(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, opts outwriter.PlotOptions) error {
	series, trends, err := GetTrendResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	path := cfg.OutputFile
	if path == "" {
		path = DefaultPlotFile
	}
	return writer.WritePlot(path, series.Series, trends.Trends, opts)
}

// ExecuteDecode decodes a saved copy of the page, such as a web archive
// capture. With store set the snapshot is written like a fetched one;
// otherwise it is printed in the snapshot file format.
func ExecuteDecode(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, path string, store bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	body, err := decodeCharset(raw)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if !store {
		decoded, err := decodePage(cfg, body)
		if err != nil {
			return err
		}
		return writeSnapshotText(os.Stdout, decoded.Snapshot, decoded.Layout.Name)
	}

	result, err := IngestPage(ctx, cfg, mgr, body)
	if err != nil {
		return err
	}
	printIngest(ctx, result)
	return nil
}

// printIngest prints the progress line for one ingested page.
func printIngest(ctx context.Context, result schema.IngestResult) {
	if shouldSuppressHeader(ctx) {
		return
	}
	now := time.Now().Format(progressTimeFormat)
	if result.Written {
		fmt.Printf("%s: obtained data for %s\n", now, result.Key)
		return
	}
	fmt.Printf("%s: data for %s already stored\n", now, result.Key)
}
