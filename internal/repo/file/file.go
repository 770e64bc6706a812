package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/hamed0406/storewatch/internal/domain"
	"github.com/hamed0406/storewatch/internal/repo"
)

var _ repo.StatusStore = (*Store)(nil)

// Store keeps the status as one pretty-printed JSON document on disk.
// Writes go to a temp file in the same directory and are renamed over the
// target, so readers never observe a half-written record.
type Store struct {
	path string
	log  *zap.Logger
	mu   sync.Mutex
}

func New(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log}
}

// Load never fails: a missing file is created with the default status, and
// an unreadable or corrupt one is logged and replaced by the default in memory.
func (s *Store) Load(ctx context.Context) (domain.AppStatus, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			def := domain.DefaultStatus()
			if err := s.Save(ctx, def); err != nil {
				s.log.Warn("status_file_init_failed", zap.String("path", s.path), zap.Error(err))
			} else {
				s.log.Info("status_file_created", zap.String("path", s.path))
			}
			return def, nil
		}
		s.log.Warn("status_file_unreadable", zap.String("path", s.path), zap.Error(err))
		return domain.DefaultStatus(), nil
	}

	var st domain.AppStatus
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.Warn("status_file_corrupt", zap.String("path", s.path), zap.Error(err))
		return domain.DefaultStatus(), nil
	}
	return st, nil
}

func (s *Store) Save(ctx context.Context, st domain.AppStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return &repo.StorageError{Op: "save", Err: fmt.Errorf("encode: %w", err)}
	}
	data = append(data, '\n')

	if err := s.writeAtomic(data); err != nil {
		return &repo.StorageError{Op: "save", Err: err}
	}
	return nil
}

func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
