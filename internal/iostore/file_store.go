package iostore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/huangsam/casetrend/core/extract"
	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/schema"
)

// snapshotExt is the file extension of stored snapshots.
const snapshotExt = ".txt"

// FileSnapshotStore keeps one tab separated text file per snapshot.
// Files are write-once: a key that exists on disk is never rewritten.
type FileSnapshotStore struct {
	dir string
}

var _ contract.SnapshotStore = &FileSnapshotStore{} // Compile-time check

// NewFileSnapshotStore creates the data directory if needed and returns a store rooted there.
func NewFileSnapshotStore(dir string) (*FileSnapshotStore, error) {
	if dir == "" {
		return nil, errors.New("data directory cannot be empty for file backend")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %q: %w", dir, err)
	}
	return &FileSnapshotStore{dir: dir}, nil
}

// Dir returns the data directory.
func (s *FileSnapshotStore) Dir() string {
	return s.dir
}

// path returns the file that holds key.
func (s *FileSnapshotStore) path(key string) string {
	return filepath.Join(s.dir, key+snapshotExt)
}

// Put writes snap to a temp file and hard links it into place. The link
// fails when the key already exists, so concurrent writers of one key
// resolve to a single winner and nobody sees a partial file.
func (s *FileSnapshotStore) Put(ctx context.Context, snap schema.Snapshot) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := snap.Key()
	final := s.path(key)
	if _, err := os.Lstat(final); err == nil {
		return false, nil
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return false, fmt.Errorf("snapshot %s: create temp file: %w", key, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	w := bufio.NewWriter(tmp)
	for region, count := range snap.Counts.All() {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", region, count); err != nil {
			_ = tmp.Close()
			return false, fmt.Errorf("snapshot %s: write: %w", key, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("snapshot %s: write: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("snapshot %s: sync: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("snapshot %s: close: %w", key, err)
	}

	if err := os.Link(tmpName, final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("snapshot %s: link into place: %w", key, err)
	}
	return true, nil
}

// List yields every snapshot file in the data directory. Files whose name
// is not a snapshot key are ignored.
func (s *FileSnapshotStore) List(ctx context.Context) iter.Seq2[schema.Snapshot, error] {
	return func(yield func(schema.Snapshot, error) bool) {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			yield(schema.Snapshot{}, fmt.Errorf("failed to read data directory %q: %w", s.dir, err))
			return
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				yield(schema.Snapshot{}, err)
				return
			}
			ts, ok := snapshotFileTime(entry)
			if !ok {
				continue
			}
			snap, err := readSnapshotFile(filepath.Join(s.dir, entry.Name()), ts)
			if !yield(snap, err) || err != nil {
				return
			}
		}
	}
}

// snapshotFileTime parses the timestamp out of a snapshot file name.
func snapshotFileTime(entry fs.DirEntry) (time.Time, bool) {
	if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapshotExt) {
		return time.Time{}, false
	}
	ts, err := schema.ParseSnapshotKey(strings.TrimSuffix(entry.Name(), snapshotExt))
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// readSnapshotFile parses "<region>\t<count>" lines. Older files may carry
// the raw page token, so counts go through the same normalizer as decoding.
func readSnapshotFile(path string, ts time.Time) (schema.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return schema.Snapshot{}, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }()

	counts := schema.NewRegionCounts()
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		name, raw, ok := splitSnapshotLine(text)
		if !ok {
			return schema.Snapshot{}, fmt.Errorf("snapshot file %s line %d: missing count column", path, line)
		}
		region, err := schema.NewRegion(name)
		if err != nil {
			return schema.Snapshot{}, fmt.Errorf("snapshot file %s line %d: %w", path, line, err)
		}
		n, err := extract.ParseCount(raw)
		if err != nil {
			return schema.Snapshot{}, fmt.Errorf("snapshot file %s line %d: %w", path, line, err)
		}
		counts.Set(region, n)
	}
	if err := scanner.Err(); err != nil {
		return schema.Snapshot{}, fmt.Errorf("snapshot file %s: %w", path, err)
	}
	return schema.NewSnapshot(ts, counts), nil
}

// splitSnapshotLine splits on the last tab, falling back to the last run of
// whitespace for hand edited files.
func splitSnapshotLine(line string) (name, count string, ok bool) {
	if i := strings.LastIndexByte(line, '\t'); i >= 0 {
		return line[:i], line[i+1:], true
	}
	i := strings.LastIndexFunc(strings.TrimRightFunc(line, unicode.IsSpace), unicode.IsSpace)
	if i < 0 {
		return "", "", false
	}
	return line[:i], line[i+1:], true
}

// Status returns status information about the data directory.
func (s *FileSnapshotStore) Status() (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:  string(schema.FileBackend),
		Location: s.dir,
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return status, fmt.Errorf("failed to read data directory %q: %w", s.dir, err)
	}
	status.Connected = true

	var stamps []time.Time
	for _, entry := range entries {
		ts, ok := snapshotFileTime(entry)
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return status, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		status.SizeBytes += info.Size()
		rows, err := countLines(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return status, err
		}
		status.TotalRows += rows
		stamps = append(stamps, ts)
	}

	status.TotalSnapshots = len(stamps)
	if len(stamps) > 0 {
		slices.SortFunc(stamps, time.Time.Compare)
		status.OldestSnapshot = stamps[0]
		status.NewestSnapshot = stamps[len(stamps)-1]
	}
	return status, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }()
	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			n++
		}
	}
	return n, scanner.Err()
}

// Close is a no-op for the file store.
func (s *FileSnapshotStore) Close() error {
	return nil
}
