package iostore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// resetGlobals puts the global manager back into its initial state.
func resetGlobals(t *testing.T) {
	t.Helper()
	Manager = &StoreManager{}
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	t.Cleanup(func() {
		Manager = &StoreManager{}
		initOnce = sync.Once{}
		closeOnce = sync.Once{}
	})
}

func TestFileAuditStore_Record(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "raw")
	store, err := NewFileAuditStore(dir)
	require.NoError(t, err)

	fetchedAt := time.Date(2020, 4, 5, 10, 30, 15, 123456789, time.UTC)
	path, err := store.Record(fetchedAt, []byte("<html></html>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20200405T103015.123456789.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))

	// Write-only: the same fetch time is never overwritten
	_, err = store.Record(fetchedAt, []byte("other"))
	assert.Error(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
}

func TestNewAuditStore(t *testing.T) {
	store, err := NewAuditStore("")
	require.NoError(t, err)
	assert.IsType(t, NopAuditStore{}, store)

	path, err := store.Record(time.Now(), []byte("x"))
	assert.NoError(t, err)
	assert.Empty(t, path)

	store, err = NewAuditStore(t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileAuditStore{}, store)
}

func TestNewStoreManager(t *testing.T) {
	snapshots := &MockSnapshotStore{}
	mgr := NewStoreManager(snapshots, nil)
	assert.Same(t, snapshots, mgr.GetSnapshotStore())
	assert.IsType(t, NopAuditStore{}, mgr.GetAuditStore())

	var empty StoreManager
	assert.Nil(t, empty.GetSnapshotStore())
	assert.IsType(t, NopAuditStore{}, empty.GetAuditStore())
}

func TestInitStores(t *testing.T) {
	resetGlobals(t)

	cfg := contract.DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.AuditDir = filepath.Join(t.TempDir(), "raw")

	require.NoError(t, InitStores(cfg))
	assert.IsType(t, &FileSnapshotStore{}, Manager.GetSnapshotStore())
	assert.IsType(t, &FileAuditStore{}, Manager.GetAuditStore())
	assert.DirExists(t, cfg.DataDir)

	// Later calls are no-ops even with a different config
	other := cfg.Clone()
	other.StoreBackend = schema.SQLiteBackend
	other.StoreDBConnect = ":memory:"
	require.NoError(t, InitStores(other))
	assert.IsType(t, &FileSnapshotStore{}, Manager.GetSnapshotStore())

	CloseStores()
	CloseStores()
}

func TestInitStores_Error(t *testing.T) {
	resetGlobals(t)

	cfg := contract.DefaultConfig()
	cfg.StoreBackend = "unknown"
	err := InitStores(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize snapshot store")
	assert.Nil(t, Manager.GetSnapshotStore())
}

func TestCloseStores_ClosesOnce(t *testing.T) {
	resetGlobals(t)

	store := &MockSnapshotStore{}
	store.On("Close").Return(nil).Once()
	Manager = NewStoreManager(store, nil)

	CloseStores()
	CloseStores()
	store.AssertExpectations(t)
}

func TestClearStore(t *testing.T) {
	ctx := context.Background()

	t.Run("file backend keeps unrelated files", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewFileSnapshotStore(dir)
		require.NoError(t, err)
		_, err = store.Put(ctx, newSnapshot(time.Date(2020, 3, 20, 9, 15, 0, 0, time.UTC), "Bayern", 10))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

		require.NoError(t, ClearStore(schema.FileBackend, dir, ""))
		assert.NoFileExists(t, filepath.Join(dir, "2020-03-20-09-15.txt"))
		assert.FileExists(t, filepath.Join(dir, "notes.txt"))
	})

	t.Run("file backend missing dir", func(t *testing.T) {
		assert.NoError(t, ClearStore(schema.FileBackend, filepath.Join(t.TempDir(), "missing"), ""))
	})

	t.Run("file backend empty dir", func(t *testing.T) {
		assert.Error(t, ClearStore(schema.FileBackend, "", ""))
	})

	t.Run("sqlite removes the database file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "snapshots.db")
		store, err := NewSQLSnapshotStore(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		require.NoError(t, store.Close())
		require.FileExists(t, dbPath)

		require.NoError(t, ClearStore(schema.SQLiteBackend, "", dbPath))
		assert.NoFileExists(t, dbPath)
		assert.NoError(t, ClearStore(schema.SQLiteBackend, "", dbPath), "missing file is fine")
	})

	t.Run("sqlite in memory", func(t *testing.T) {
		assert.NoError(t, ClearStore(schema.SQLiteBackend, "", ":memory:"))
	})

	t.Run("unsupported backend", func(t *testing.T) {
		assert.Error(t, ClearStore("unknown", "", ""))
	})
}

func TestMigrateStore_FileBackend(t *testing.T) {
	_, err := MigrateStore(schema.FileBackend, "", -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported for the file backend")
}

func TestMigrateStore_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_migration.db")

	// Run migration to latest version (should go to version 1)
	version, err := MigrateStore(schema.SQLiteBackend, dbPath, -1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	// Run migration again (should be a no-op)
	version, err = MigrateStore(schema.SQLiteBackend, dbPath, -1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	// Run migration to a specific version (version 1)
	_, err = MigrateStore(schema.SQLiteBackend, dbPath, 1)
	assert.NoError(t, err)

	// Rollback to version 0
	_, err = MigrateStore(schema.SQLiteBackend, dbPath, 0)
	assert.NoError(t, err)

	// Migrate back up to version 1
	version, err = MigrateStore(schema.SQLiteBackend, dbPath, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	// The migrated schema is the one the store writes to
	store, err := NewSQLSnapshotStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	written, err := store.Put(context.Background(), newSnapshot(time.Date(2020, 3, 20, 9, 15, 0, 0, time.UTC), "Bayern", 10))
	require.NoError(t, err)
	assert.True(t, written)
}

func TestMigrateStore_SQLiteInMemory(t *testing.T) {
	_, err := MigrateStore(schema.SQLiteBackend, ":memory:", -1)
	require.NoError(t, err)
}

func TestExportSnapshots(t *testing.T) {
	ctx := context.Background()

	t.Run("writes parquet file", func(t *testing.T) {
		store, err := NewFileSnapshotStore(t.TempDir())
		require.NoError(t, err)
		_, err = store.Put(ctx, newSnapshot(time.Date(2020, 3, 20, 9, 15, 0, 0, time.UTC), "Bayern", 10, "Berlin", 5))
		require.NoError(t, err)

		out := filepath.Join(t.TempDir(), "export")
		require.NoError(t, ExportSnapshots(ctx, store, out))
		assert.FileExists(t, out+".snapshots.parquet")
	})

	t.Run("requires output file", func(t *testing.T) {
		err := ExportSnapshots(ctx, &MockSnapshotStore{}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--output-file is required")
	})

	t.Run("empty store", func(t *testing.T) {
		store := &MockSnapshotStore{}
		store.On("Status").Return(schema.StoreStatus{Backend: "file"}, nil)
		err := ExportSnapshots(ctx, store, filepath.Join(t.TempDir(), "export"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no snapshots found")
	})

	t.Run("list error", func(t *testing.T) {
		store := &MockSnapshotStore{}
		store.On("Status").Return(schema.StoreStatus{Backend: "file", TotalSnapshots: 1}, nil)
		store.On("List", mock.Anything).Return([]schema.Snapshot(nil), errors.New("disk gone"))
		err := ExportSnapshots(ctx, store, filepath.Join(t.TempDir(), "export"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk gone")
	})
}
