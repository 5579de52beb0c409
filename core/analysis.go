package core

import (
	"context"
	"fmt"

	"github.com/huangsam/casetrend/core/agg"
	"github.com/huangsam/casetrend/core/algo"
	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/schema"
	"github.com/rs/zerolog/log"
)

// loadSnapshots drains the store and keeps the snapshots inside the configured window.
func loadSnapshots(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) ([]schema.Snapshot, error) {
	store := mgr.GetSnapshotStore()
	if store == nil {
		return nil, errStoreNotInitialized
	}
	all, err := agg.CollectSnapshots(store.List(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	snaps := all[:0]
	for _, snap := range all {
		if cfg.InWindow(snap.Timestamp) {
			snaps = append(snaps, snap)
		}
	}
	agg.SortSnapshots(snaps)
	log.Debug().Int("stored", len(all)).Int("in_window", len(snaps)).Msg("loaded snapshots")
	return snaps, nil
}

// ListSnapshots summarizes the stored snapshots inside the configured window, oldest first.
func ListSnapshots(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) ([]schema.SnapshotSummary, error) {
	snaps, err := loadSnapshots(ctx, cfg, mgr)
	if err != nil {
		return nil, err
	}
	summaries := make([]schema.SnapshotSummary, 0, len(snaps))
	for _, snap := range snaps {
		summaries = append(summaries, snap.Summary())
	}
	return summaries, nil
}

// GetSeriesResults builds the per-region series for the configured window
// and region filter.
func GetSeriesResults(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (schema.SeriesResult, error) {
	snaps, err := loadSnapshots(ctx, cfg, mgr)
	if err != nil {
		return schema.SeriesResult{}, err
	}
	result, err := agg.Summarize(snaps, string(cfg.TotalLabel))
	if err != nil {
		return schema.SeriesResult{}, err
	}
	result.Series = agg.FilterRegions(result.Series, cfg.Regions)
	return result, nil
}

// GetTrendResults fits every series from GetSeriesResults. The series are
// returned too so callers can plot the observations next to the fits.
func GetTrendResults(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (schema.SeriesResult, schema.TrendResult, error) {
	series, err := GetSeriesResults(ctx, cfg, mgr)
	if err != nil {
		return schema.SeriesResult{}, schema.TrendResult{}, err
	}

	if schema.CountsCumulative {
		for _, region := range agg.NonMonotonic(series.Series) {
			contract.LogWarn("Cumulative counts decrease, fit may be off", fmt.Errorf("region %s", region))
		}
	}

	fitOpts := algo.DefaultFitOptions()
	fitOpts.MinCount = cfg.MinCount
	trends := algo.FitAll(ctx, series.Series, algo.TrendOptions{
		Fit:    fitOpts,
		Points: cfg.Points,
		Extend: cfg.Extend,
	})
	return series, trends, nil
}
