package repo

import (
	"context"
	"fmt"

	"github.com/hamed0406/storewatch/internal/domain"
)

// StatusStore persists the single AppStatus record. Swap in any backend.
//
// Load returns domain.DefaultStatus() when nothing has been stored yet.
// Save overwrites the whole record.
type StatusStore interface {
	Load(ctx context.Context) (domain.AppStatus, error)
	Save(ctx context.Context, st domain.AppStatus) error
}

// StorageError reports that the status medium could not be read or written.
type StorageError struct {
	Op  string // "load" or "save"
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("status %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }
