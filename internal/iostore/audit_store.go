package iostore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/huangsam/casetrend/internal/contract"
)

// AuditFileFormat names raw captures by fetch time, with nanoseconds so two
// fetches in the same second do not collide.
const AuditFileFormat = "20060102T150405.000000000"

// FileAuditStore writes every fetched document to its own file.
type FileAuditStore struct {
	dir string
}

var _ contract.AuditStore = &FileAuditStore{} // Compile-time check

// NewFileAuditStore creates the audit directory if needed.
func NewFileAuditStore(dir string) (*FileAuditStore, error) {
	if dir == "" {
		return nil, errors.New("audit directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory %q: %w", dir, err)
	}
	return &FileAuditStore{dir: dir}, nil
}

// Record writes raw to <dir>/<fetchedAt>.html. An existing file is never overwritten.
func (s *FileAuditStore) Record(fetchedAt time.Time, raw []byte) (string, error) {
	path := filepath.Join(s.dir, fetchedAt.Format(AuditFileFormat)+".html")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create audit file %s: %w", path, err)
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write audit file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close audit file %s: %w", path, err)
	}
	return path, nil
}

// NopAuditStore discards raw documents. It is used when no audit directory is configured.
type NopAuditStore struct{}

var _ contract.AuditStore = NopAuditStore{} // Compile-time check

// Record implements the AuditStore interface.
func (NopAuditStore) Record(time.Time, []byte) (string, error) {
	return "", nil
}
