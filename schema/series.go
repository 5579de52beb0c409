package schema

import "time"

// SeriesPoint is one observation of a region's cumulative count.
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
}

// TimeSeries is a region's observations sorted ascending by timestamp.
type TimeSeries struct {
	Region    Region        `json:"region"`
	Points    []SeriesPoint `json:"points"`
	Synthetic bool          `json:"synthetic"`  // True for the aggregator's own total
	Decreases int           `json:"decreases"`  // Number of steps where the count went down
	LastCount int           `json:"last_count"` // Count at the newest timestamp
}

// MaxCount returns the largest observed count.
func (ts TimeSeries) MaxCount() int {
	peak := 0
	for _, p := range ts.Points {
		peak = max(peak, p.Count)
	}
	return peak
}

// IsMonotonic reports whether the series never decreases.
func (ts TimeSeries) IsMonotonic() bool {
	return ts.Decreases == 0
}

// SeriesResult is the output of aggregating every stored snapshot.
type SeriesResult struct {
	Snapshots int          `json:"snapshots"`
	First     time.Time    `json:"first"`
	Last      time.Time    `json:"last"`
	Series    []TimeSeries `json:"series"`
}

// StoreStatus describes the configured snapshot store.
type StoreStatus struct {
	Backend        string    `json:"backend"`
	Location       string    `json:"location"`
	Connected      bool      `json:"connected"`
	TotalSnapshots int       `json:"total_snapshots"`
	TotalRows      int       `json:"total_rows"`
	OldestSnapshot time.Time `json:"oldest_snapshot"`
	NewestSnapshot time.Time `json:"newest_snapshot"`
	SizeBytes      int64     `json:"size_bytes"`
}

// SnapshotSummary describes one stored snapshot without its counts.
type SnapshotSummary struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	Regions   int       `json:"regions"`
	Total     int       `json:"total"`
}

// Summary returns the summary of s.
func (s Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{Key: s.Key(), Timestamp: s.Timestamp, Regions: s.Counts.Len(), Total: s.Counts.Total()}
}

// IngestResult describes one decoded page and what the store did with it.
type IngestResult struct {
	Key      string    `json:"key"`
	Captured time.Time `json:"captured"`
	Layout   string    `json:"layout"`
	Regions  int       `json:"regions"`
	Total    int       `json:"total"`
	Stored   bool      `json:"stored"`  // False when decoding only
	Written  bool      `json:"written"` // False when the key already existed
	Audit    string    `json:"audit,omitempty"`
}
