package iostore

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"regexp"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names for snapshot storage.
const (
	snapshotsTable = "casetrend_snapshots"
	countsTable    = "casetrend_snapshot_counts"
)

// SQLSnapshotStore stores snapshots in a relational database. One row per
// snapshot plus one row per region count, written in a single transaction.
type SQLSnapshotStore struct {
	db         *sql.DB
	backend    schema.StoreBackend
	driverName string
	connStr    string
	now        func() time.Time
}

var _ contract.SnapshotStore = &SQLSnapshotStore{} // Compile-time check

// openDB opens and pings the database for backend.
func openDB(backend schema.StoreBackend, connStr string) (*sql.DB, string, error) {
	var db *sql.DB
	var err error
	var driverName string

	switch backend {
	case schema.SQLiteBackend:
		driverName = "sqlite"
		dbPath := connStr
		if dbPath == "" {
			dbPath = GetSnapshotDBFilePath()
		}
		db, err = sql.Open(driverName, dbPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		// connStr should be:
		// user:password@tcp(host:port)/dbname
		driverName = "mysql"
		db, err = sql.Open(driverName, connStr)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open MySQL database: %w. Check connection format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		// connStr should be:
		// host=localhost port=5432 user=postgres password=mysecretpassword dbname=postgres
		driverName = "pgx"
		db, err = sql.Open(driverName, connStr)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open PostgreSQL database: %w. Check connection format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}

	default:
		return nil, "", fmt.Errorf("unsupported SQL backend: %s. Must be sqlite, mysql, or postgresql", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}
	return db, driverName, nil
}

// NewSQLSnapshotStore opens the database and creates the tables if needed.
func NewSQLSnapshotStore(backend schema.StoreBackend, connStr string) (*SQLSnapshotStore, error) {
	db, driverName, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	for _, query := range getCreateTableQueries(backend) {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create snapshot tables: %w", err)
		}
	}
	return &SQLSnapshotStore{
		db:         db,
		backend:    backend,
		driverName: driverName,
		connStr:    connStr,
		now:        time.Now,
	}, nil
}

// getCreateTableQueries returns the CREATE TABLE queries for the given backend.
func getCreateTableQueries(backend schema.StoreBackend) []string {
	snapshots := quoteTableName(snapshotsTable, backend)
	counts := quoteTableName(countsTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					snapshot_key VARCHAR(16) PRIMARY KEY,
					snapshot_time BIGINT NOT NULL,
					region_count INT NOT NULL,
					stored_at BIGINT NOT NULL
				);
			`, snapshots),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					snapshot_key VARCHAR(16) NOT NULL,
					position INT NOT NULL,
					region VARCHAR(255) NOT NULL,
					case_count BIGINT NOT NULL,
					PRIMARY KEY (snapshot_key, position)
				);
			`, counts),
		}

	case schema.PostgreSQLBackend:
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					snapshot_key TEXT PRIMARY KEY,
					snapshot_time BIGINT NOT NULL,
					region_count INTEGER NOT NULL,
					stored_at BIGINT NOT NULL
				);
			`, snapshots),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					snapshot_key TEXT NOT NULL,
					position INTEGER NOT NULL,
					region TEXT NOT NULL,
					case_count BIGINT NOT NULL,
					PRIMARY KEY (snapshot_key, position)
				);
			`, counts),
		}

	default: // SQLite
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					snapshot_key TEXT PRIMARY KEY,
					snapshot_time INTEGER NOT NULL,
					region_count INTEGER NOT NULL,
					stored_at INTEGER NOT NULL
				);
			`, snapshots),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					snapshot_key TEXT NOT NULL,
					position INTEGER NOT NULL,
					region TEXT NOT NULL,
					case_count INTEGER NOT NULL,
					PRIMARY KEY (snapshot_key, position)
				);
			`, counts),
		}
	}
}

// Put inserts snap unless its key is already stored. The header insert
// ignores conflicts, so of two concurrent writers only the one that
// actually inserted the header row goes on to write counts.
func (s *SQLSnapshotStore) Put(ctx context.Context, snap schema.Snapshot) (bool, error) {
	key := snap.Key()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("snapshot %s: begin transaction: %w", key, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.getInsertIgnoreQuery(), key, snap.Timestamp.Unix(), snap.Counts.Len(), s.now().Unix())
	if err != nil {
		return false, fmt.Errorf("snapshot %s: insert: %w", key, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("snapshot %s: rows affected: %w", key, err)
	}
	if inserted == 0 {
		return false, nil
	}

	stmt, err := tx.PrepareContext(ctx, s.getInsertCountQuery())
	if err != nil {
		return false, fmt.Errorf("snapshot %s: prepare: %w", key, err)
	}
	defer func() { _ = stmt.Close() }()

	position := 0
	for region, count := range snap.Counts.All() {
		if _, err := stmt.ExecContext(ctx, key, position, string(region), count); err != nil {
			return false, fmt.Errorf("snapshot %s: insert region %s: %w", key, region, err)
		}
		position++
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("snapshot %s: commit: %w", key, err)
	}
	return true, nil
}

// getPlaceholder returns the n-th (1-based) parameter placeholder for the backend.
func (s *SQLSnapshotStore) getPlaceholder(n int) string {
	switch s.backend {
	case schema.PostgreSQLBackend:
		return fmt.Sprintf("$%d", n)
	default: // SQLite and MySQL
		return "?"
	}
}

// getInsertIgnoreQuery returns the conflict-ignoring header insert for the backend.
func (s *SQLSnapshotStore) getInsertIgnoreQuery() string {
	quotedTableName := quoteTableName(snapshotsTable, s.backend)
	switch s.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT IGNORE INTO %s (snapshot_key, snapshot_time, region_count, stored_at) VALUES (?, ?, ?, ?)`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (snapshot_key, snapshot_time, region_count, stored_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (snapshot_key) DO NOTHING`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR IGNORE INTO %s (snapshot_key, snapshot_time, region_count, stored_at) VALUES (?, ?, ?, ?)`, quotedTableName)
	}
}

// getInsertCountQuery returns the per-region insert for the backend.
func (s *SQLSnapshotStore) getInsertCountQuery() string {
	return fmt.Sprintf(`INSERT INTO %s (snapshot_key, position, region, case_count) VALUES (%s, %s, %s, %s)`,
		quoteTableName(countsTable, s.backend),
		s.getPlaceholder(1), s.getPlaceholder(2), s.getPlaceholder(3), s.getPlaceholder(4))
}

// List streams every snapshot. Rows are read in key order so each
// snapshot is assembled from one contiguous run of count rows.
func (s *SQLSnapshotStore) List(ctx context.Context) iter.Seq2[schema.Snapshot, error] {
	return func(yield func(schema.Snapshot, error) bool) {
		query := fmt.Sprintf(`SELECT s.snapshot_key, s.snapshot_time, c.region, c.case_count
			FROM %s s JOIN %s c ON c.snapshot_key = s.snapshot_key
			ORDER BY s.snapshot_key, c.position`,
			quoteTableName(snapshotsTable, s.backend), quoteTableName(countsTable, s.backend))
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			yield(schema.Snapshot{}, fmt.Errorf("failed to list snapshots: %w", err))
			return
		}
		defer func() { _ = rows.Close() }()

		var (
			curKey  string
			curTime int64
			counts  schema.RegionCounts
		)
		flush := func() bool {
			if curKey == "" {
				return true
			}
			return yield(schema.NewSnapshot(time.Unix(curTime, 0).UTC(), counts), nil)
		}

		for rows.Next() {
			var key, region string
			var ts int64
			var count int
			if err := rows.Scan(&key, &ts, &region, &count); err != nil {
				yield(schema.Snapshot{}, fmt.Errorf("failed to scan snapshot row: %w", err))
				return
			}
			if key != curKey {
				if !flush() {
					return
				}
				curKey, curTime, counts = key, ts, schema.NewRegionCounts()
			}
			counts.Set(schema.Region(region), count)
		}
		if err := rows.Err(); err != nil {
			yield(schema.Snapshot{}, fmt.Errorf("failed to list snapshots: %w", err))
			return
		}
		flush()
	}
}

// Close closes the underlying DB connection.
func (s *SQLSnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Status returns status information about the snapshot tables.
func (s *SQLSnapshotStore) Status() (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:   string(s.backend),
		Location:  s.location(),
		Connected: s.db != nil,
	}
	if s.db == nil {
		return status, nil
	}

	snapshots := quoteTableName(snapshotsTable, s.backend)
	counts := quoteTableName(countsTable, s.backend)

	row := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", snapshots))
	if err := row.Scan(&status.TotalSnapshots); err != nil {
		return status, fmt.Errorf("failed to get total snapshots: %w", err)
	}
	row = s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", counts))
	if err := row.Scan(&status.TotalRows); err != nil {
		return status, fmt.Errorf("failed to get total rows: %w", err)
	}
	if status.TotalSnapshots == 0 {
		return status, nil
	}

	var oldest, newest int64
	row = s.db.QueryRow(fmt.Sprintf("SELECT MIN(snapshot_time), MAX(snapshot_time) FROM %s", snapshots))
	if err := row.Scan(&oldest, &newest); err != nil {
		return status, fmt.Errorf("failed to get snapshot time range: %w", err)
	}
	status.OldestSnapshot = time.Unix(oldest, 0).UTC()
	status.NewestSnapshot = time.Unix(newest, 0).UTC()

	status.SizeBytes = s.tableSize(status.TotalRows)
	return status, nil
}

// tableSize estimates the bytes used by the snapshot tables.
func (s *SQLSnapshotStore) tableSize(rows int) int64 {
	fallback := int64(rows) * 64 // Rough estimate
	var size int64
	switch s.backend {
	case schema.SQLiteBackend:
		row := s.db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&size); err != nil {
			return 0
		}
		return size

	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(s.connStr)
		if err != nil || cfg.DBName == "" {
			return fallback
		}
		query := "SELECT COALESCE(SUM(data_length + index_length), 0) FROM information_schema.tables WHERE table_schema = ? AND table_name IN (?, ?)"
		row := s.db.QueryRow(query, cfg.DBName, snapshotsTable, countsTable)
		if err := row.Scan(&size); err != nil {
			return fallback
		}
		return size

	case schema.PostgreSQLBackend:
		row := s.db.QueryRow("SELECT pg_total_relation_size($1) + pg_total_relation_size($2)", snapshotsTable, countsTable)
		if err := row.Scan(&size); err != nil {
			return fallback
		}
		return size

	default:
		return fallback
	}
}

// location describes where the data lives without leaking credentials.
func (s *SQLSnapshotStore) location() string {
	switch s.backend {
	case schema.SQLiteBackend:
		if s.connStr == "" {
			return GetSnapshotDBFilePath()
		}
		return s.connStr
	case schema.MySQLBackend:
		if cfg, err := mysql.ParseDSN(s.connStr); err == nil {
			return cfg.Addr + "/" + cfg.DBName
		}
	case schema.PostgreSQLBackend:
		if m := pgDBNameRe.FindStringSubmatch(s.connStr); m != nil {
			return m[1]
		}
	}
	return string(s.backend)
}

var pgDBNameRe = regexp.MustCompile(`dbname=(\S+)`)
