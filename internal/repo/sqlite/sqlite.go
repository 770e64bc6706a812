package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/hamed0406/storewatch/internal/domain"
	"github.com/hamed0406/storewatch/internal/repo"
)

var _ repo.StatusStore = (*Store)(nil)

// Store keeps the status row in a SQLite file (modernc.org/sqlite, CGO-free).
// Timestamps are stored as RFC3339Nano text.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// New opens the database at path and creates the schema.
func New(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	if log == nil {
		log = zap.NewNop()
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.ExecContext(ctx, "PRAGMA busy_timeout=3000;")
	s := &Store{db: d, log: log}
	if err := s.ensureSchema(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS app_status(
		id INTEGER PRIMARY KEY CHECK (id = 1),
		listed_on_google_play BOOLEAN NOT NULL,
		listed_on_app_store BOOLEAN NOT NULL,
		last_checked_at TEXT NULL,
		last_notified_at TEXT NULL
	);`)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Load(ctx context.Context) (domain.AppStatus, error) {
	var (
		st       domain.AppStatus
		checked  sql.NullString
		notified sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT listed_on_google_play, listed_on_app_store, last_checked_at, last_notified_at
		   FROM app_status WHERE id = 1`).
		Scan(&st.GooglePlay, &st.AppStore, &checked, &notified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			def := domain.DefaultStatus()
			if err := s.Save(ctx, def); err != nil {
				s.log.Warn("status_row_init_failed", zap.Error(err))
			}
			return def, nil
		}
		return domain.DefaultStatus(), &repo.StorageError{Op: "load", Err: err}
	}

	if t, ok := s.parseTime("last_checked_at", checked); ok {
		st.LastCheckedAt = t
	}
	if t, ok := s.parseTime("last_notified_at", notified); ok {
		st.LastNotifiedAt = &t
	}
	return st, nil
}

// parseTime treats an unparsable value like a missing one; the row is
// rewritten in full on the next save anyway.
func (s *Store) parseTime(col string, v sql.NullString) (time.Time, bool) {
	if !v.Valid || v.String == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		s.log.Warn("status_row_bad_time", zap.String("column", col), zap.String("value", v.String), zap.Error(err))
		return time.Time{}, false
	}
	return t, true
}

func (s *Store) Save(ctx context.Context, st domain.AppStatus) error {
	var checked, notified sql.NullString
	if !st.LastCheckedAt.IsZero() {
		checked = sql.NullString{String: st.LastCheckedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	if st.LastNotifiedAt != nil {
		notified = sql.NullString{String: st.LastNotifiedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_status(id, listed_on_google_play, listed_on_app_store, last_checked_at, last_notified_at)
		VALUES(1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			listed_on_google_play=excluded.listed_on_google_play,
			listed_on_app_store=excluded.listed_on_app_store,
			last_checked_at=excluded.last_checked_at,
			last_notified_at=excluded.last_notified_at;`,
		st.GooglePlay, st.AppStore, checked, notified)
	if err != nil {
		return &repo.StorageError{Op: "save", Err: err}
	}
	return nil
}
