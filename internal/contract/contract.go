// Package contract provides interfaces and shared utilities for the casetrend CLI's internal architecture.
package contract

import (
	"context"
	"iter"
	"time"

	"github.com/huangsam/casetrend/schema"
)

// Fetcher retrieves the source page.
// This allows the fetch-and-decode pipeline to be tested without the network.
type Fetcher interface {
	// Fetch downloads url and returns its body decoded to UTF-8.
	// Failures are reported as *fetcher.FetchError. There is no retry.
	Fetch(ctx context.Context, url string) (*schema.FetchResult, error)
}

// SnapshotStore persists decoded snapshots keyed by their timestamp.
type SnapshotStore interface {
	// Put writes snap under snap.Key(). An existing key is left untouched
	// and reported as written == false with a nil error.
	Put(ctx context.Context, snap schema.Snapshot) (written bool, err error)

	// List yields every stored snapshot in no particular order.
	List(ctx context.Context) iter.Seq2[schema.Snapshot, error]

	// Status returns status information about the store
	Status() (schema.StoreStatus, error)

	// Close closes the underlying connection
	Close() error
}

// AuditStore keeps the raw fetched documents. It is write-only.
type AuditStore interface {
	// Record stores raw under a name derived from fetchedAt and returns its location.
	Record(fetchedAt time.Time, raw []byte) (string, error)
}

// StoreManager defines the interface for managing the configured stores.
// This allows the storage layer to be mocked for testing.
type StoreManager interface {
	GetSnapshotStore() SnapshotStore
	GetAuditStore() AuditStore
}
