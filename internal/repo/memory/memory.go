package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/storewatch/internal/domain"
)

// Store keeps the status in process memory. It does not survive a restart;
// it backs tests and STATUS_BACKEND=memory.
type Store struct {
	mu     sync.RWMutex
	status *domain.AppStatus
	saves  int
}

func New() *Store {
	return &Store{}
}

func (m *Store) Load(ctx context.Context) (domain.AppStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == nil {
		def := domain.DefaultStatus()
		m.status = &def
	}
	return copyStatus(*m.status), nil
}

func (m *Store) Save(ctx context.Context, st domain.AppStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := copyStatus(st)
	m.status = &cp
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *Store) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// copyStatus detaches the LastNotifiedAt pointer from the caller's value.
func copyStatus(st domain.AppStatus) domain.AppStatus {
	if st.LastNotifiedAt != nil {
		t := *st.LastNotifiedAt
		st.LastNotifiedAt = &t
	}
	return st
}
