package iostore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/schema"
)

// Global Manager instance for main logic.
var (
	Manager   = &StoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// NewSnapshotStore opens the snapshot store for backend. dataDir is used by
// the file backend, connStr by the SQL backends.
func NewSnapshotStore(backend schema.StoreBackend, dataDir, connStr string) (contract.SnapshotStore, error) {
	switch backend {
	case schema.FileBackend, "":
		return NewFileSnapshotStore(dataDir)
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend:
		return NewSQLSnapshotStore(backend, connStr)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s. Must be file, sqlite, mysql, or postgresql", backend)
	}
}

// NewAuditStore opens the audit store. An empty dir disables auditing.
func NewAuditStore(dir string) (contract.AuditStore, error) {
	if strings.TrimSpace(dir) == "" {
		return NopAuditStore{}, nil
	}
	return NewFileAuditStore(dir)
}

// InitStores initializes the global manager from the validated config.
func InitStores(cfg *contract.Config) error {
	var initErr error

	initOnce.Do(func() {
		// This function body runs exactly once, even with concurrent calls.
		snapshots, err := NewSnapshotStore(cfg.StoreBackend, cfg.DataDir, cfg.StoreDBConnect)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize snapshot store: %w", err)
			return
		}
		audit, err := NewAuditStore(cfg.AuditDir)
		if err != nil {
			_ = snapshots.Close()
			initErr = fmt.Errorf("failed to initialize audit store: %w", err)
			return
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.snapshots = snapshots
		Manager.audit = audit
	})

	// After once.Do, initErr will contain any error from the initialization block.
	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.snapshots != nil {
			_ = Manager.snapshots.Close()
		}
	})
}

// ClearStore removes every stored snapshot for the specified backend.
// For the file backend, it deletes the snapshot files in dataDir.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the tables.
func ClearStore(backend schema.StoreBackend, dataDir, connStr string) error {
	switch backend {
	case schema.FileBackend:
		return clearSnapshotFiles(dataDir)

	case schema.SQLiteBackend:
		dbFilePath := connStr
		if dbFilePath == "" {
			dbFilePath = GetSnapshotDBFilePath()
		}
		if dbFilePath == ":memory:" {
			return nil
		}
		// Remove the file; ignore if it doesn't exist
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend:
		return clearSQLTables("mysql", connStr, backend)

	case schema.PostgreSQLBackend:
		return clearSQLTables("pgx", connStr, backend)

	default:
		return fmt.Errorf("unsupported store backend for clearing: %s", backend)
	}
}

// clearSnapshotFiles removes the snapshot files and leaves anything else alone.
func clearSnapshotFiles(dataDir string) error {
	if dataDir == "" {
		return fmt.Errorf("data directory cannot be empty for file backend")
	}
	entries, err := os.ReadDir(dataDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read data directory %q: %w", dataDir, err)
	}
	for _, entry := range entries {
		if _, ok := snapshotFileTime(entry); !ok {
			continue
		}
		path := filepath.Join(dataDir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove snapshot file %s: %w", path, err)
		}
	}
	return nil
}

// clearSQLTables connects to the SQL database and drops the snapshot tables if they exist.
func clearSQLTables(driverName, connStr string, backend schema.StoreBackend) error {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	for _, table := range []string{countsTable, snapshotsTable} {
		if err := validateTableName(table); err != nil {
			return err
		}
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(table, backend))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
