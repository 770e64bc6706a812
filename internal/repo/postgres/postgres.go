package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/storewatch/internal/domain"
	"github.com/hamed0406/storewatch/internal/repo"
)

var _ repo.StatusStore = (*Store)(nil)

// SchemaSQL creates the single-row status table.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS app_status (
  id                    SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
  listed_on_google_play BOOLEAN NOT NULL,
  listed_on_app_store   BOOLEAN NOT NULL,
  last_checked_at       TIMESTAMPTZ NULL,
  last_notified_at      TIMESTAMPTZ NULL
);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, SchemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Load(ctx context.Context) (domain.AppStatus, error) {
	const q = `SELECT listed_on_google_play, listed_on_app_store, last_checked_at, last_notified_at
	             FROM app_status WHERE id = 1`
	var (
		st       domain.AppStatus
		checked  *time.Time
		notified *time.Time
	)
	err := s.pool.QueryRow(ctx, q).Scan(&st.GooglePlay, &st.AppStore, &checked, &notified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			def := domain.DefaultStatus()
			if err := s.Save(ctx, def); err != nil {
				s.log.Warn("status_row_init_failed", zap.Error(err))
			}
			return def, nil
		}
		return domain.DefaultStatus(), &repo.StorageError{Op: "load", Err: err}
	}
	if checked != nil {
		st.LastCheckedAt = checked.UTC()
	}
	if notified != nil {
		n := notified.UTC()
		st.LastNotifiedAt = &n
	}
	return st, nil
}

func (s *Store) Save(ctx context.Context, st domain.AppStatus) error {
	const q = `
		INSERT INTO app_status (id, listed_on_google_play, listed_on_app_store, last_checked_at, last_notified_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id)
		DO UPDATE SET listed_on_google_play=EXCLUDED.listed_on_google_play,
		              listed_on_app_store=EXCLUDED.listed_on_app_store,
		              last_checked_at=EXCLUDED.last_checked_at,
		              last_notified_at=EXCLUDED.last_notified_at
	`
	var checked *time.Time
	if !st.LastCheckedAt.IsZero() {
		checked = &st.LastCheckedAt
	}
	if _, err := s.pool.Exec(ctx, q, st.GooglePlay, st.AppStore, checked, st.LastNotifiedAt); err != nil {
		return &repo.StorageError{Op: "save", Err: err}
	}
	return nil
}
