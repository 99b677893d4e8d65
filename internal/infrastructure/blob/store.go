package blob

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=store.go -destination=mocks/store_mock.go -package=mocks

// Store keeps evidence files and returns a reference that is saved on the
// transaction.
type Store interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

type DiskStore struct {
	dir string
	now func() time.Time
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &DiskStore{dir: dir, now: time.Now}, nil
}

// Save writes data under a generated name that keeps the original extension.
// The returned reference is the file path relative to the working directory.
func (s *DiskStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(name))
	file := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), uuid.NewString()[:8], ext)
	path := filepath.Join(s.dir, file)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Error("failed to store evidence", "path", path, "error", err)
		return "", fmt.Errorf("failed to store evidence: %w", err)
	}
	slog.Info("evidence stored", "path", path, "bytes", len(data))
	return filepath.ToSlash(path), nil
}
