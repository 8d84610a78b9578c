package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/codesnap/internal/common"
)

// Backend names reported by Store.Backend.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendBolt     = "bolt"
)

// ParseURL resolves DB_URL into a backend name and the driver-specific target.
//
//	postgres://... | postgresql://...  -> postgres, url unchanged
//	sqlite:<path> | sqlite::memory:    -> sqlite, <path>
//	file:<path>[?opts]                 -> sqlite, url unchanged
//	bolt:<path>                        -> bolt, <path>
func ParseURL(raw string) (backend, target string, err error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "", "", common.ErrDisabled
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return BackendPostgres, raw, nil
	case strings.HasPrefix(raw, "sqlite:"):
		target = strings.TrimPrefix(raw, "sqlite:")
		if target == "" {
			return "", "", fmt.Errorf("%w: sqlite url has no path", common.ErrInvalidInput)
		}
		return BackendSQLite, target, nil
	case strings.HasPrefix(raw, "file:"):
		return BackendSQLite, raw, nil
	case strings.HasPrefix(raw, "bolt:"):
		target = strings.TrimPrefix(raw, "bolt:")
		if target == "" {
			return "", "", fmt.Errorf("%w: bolt url has no path", common.ErrInvalidInput)
		}
		return BackendBolt, target, nil
	default:
		return "", "", fmt.Errorf("%w: unsupported DB_URL scheme", common.ErrInvalidInput)
	}
}

// Open connects the history store named by cfg.URL. An empty URL returns
// common.ErrDisabled.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	backend, target, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	switch backend {
	case BackendPostgres:
		return OpenPostgres(ctx, cfg, logger)
	case BackendSQLite:
		return OpenSQLite(ctx, target, logger)
	default:
		return OpenBolt(target, cfg.DialTimeout, logger)
	}
}

// Close closes the store gracefully.
func Close(store Store, logger *slog.Logger) {
	if store == nil {
		return
	}
	logger.Info("closing database connections", "backend", store.Backend())
	if err := store.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
		return
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the store to catch bad URLs early.
func HealthCheck(ctx context.Context, store Store, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database", "backend", store.Backend())
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := store.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		return fmt.Errorf("%w: ping: %v", common.ErrDatabase, err)
	}
	logger.Debug("database ping successful")
	return nil
}
