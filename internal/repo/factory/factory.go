package factory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/storewatch/internal/config"
	"github.com/hamed0406/storewatch/internal/repo"
	"github.com/hamed0406/storewatch/internal/repo/file"
	"github.com/hamed0406/storewatch/internal/repo/memory"
	pg "github.com/hamed0406/storewatch/internal/repo/postgres"
	sq "github.com/hamed0406/storewatch/internal/repo/sqlite"
)

// New selects a status store from the configuration.
// Supported:
//   - DATABASE_URL "postgres://..." or "postgresql://..." -> Postgres
//   - DATABASE_URL "sqlite://<path>" -> SQLite
//   - otherwise STATUS_BACKEND "memory" or "file" (STATUS_FILE)
//
// The returned close func releases backend resources; it is never nil.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.StatusStore, func(), error) {
	noop := func() {}
	d := strings.TrimSpace(cfg.DatabaseURL)
	ld := strings.ToLower(d)

	switch {
	case strings.HasPrefix(ld, "postgres://"), strings.HasPrefix(ld, "postgresql://"):
		s, err := pg.New(ctx, d, log)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres: %w", err)
		}
		return s, s.Close, nil
	case strings.HasPrefix(ld, "sqlite://"):
		s, err := sq.New(ctx, strings.TrimPrefix(d, "sqlite://"), log)
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case d != "":
		return nil, noop, fmt.Errorf("unsupported DATABASE_URL scheme: %q", d)
	}

	switch cfg.StatusBackend {
	case "memory":
		return memory.New(), noop, nil
	case "", "file":
		return file.New(cfg.StatusFile, log), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown STATUS_BACKEND %q", cfg.StatusBackend)
	}
}
