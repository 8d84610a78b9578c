package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/entity"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS scans (
	id                 TEXT PRIMARY KEY,
	source_name        TEXT NOT NULL DEFAULT '',
	image_bytes        INTEGER NOT NULL DEFAULT 0,
	text               TEXT NOT NULL DEFAULT '',
	confidence         REAL NOT NULL DEFAULT 0,
	provider           TEXT NOT NULL DEFAULT '',
	synthetic          INTEGER NOT NULL DEFAULT 0,
	language           TEXT NOT NULL DEFAULT '',
	explanation        TEXT NOT NULL DEFAULT '',
	explanation_source TEXT NOT NULL DEFAULT '',
	lines              INTEGER NOT NULL DEFAULT 0,
	functions          INTEGER NOT NULL DEFAULT 0,
	loops              INTEGER NOT NULL DEFAULT 0,
	conditions         INTEGER NOT NULL DEFAULT 0,
	complexity         TEXT NOT NULL DEFAULT '',
	suggestions        TEXT NOT NULL DEFAULT '[]',
	attempts           TEXT NOT NULL DEFAULT 'null',
	duration_ms        INTEGER NOT NULL DEFAULT 0,
	created_at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS scans_created_at_idx ON scans (created_at DESC);`

const sqliteColumns = `id, source_name, image_bytes, text, confidence, provider, synthetic,
	language, explanation, explanation_source, lines, functions, loops, conditions,
	complexity, suggestions, attempts, duration_ms, created_at`

type sqliteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens the database at dsn ("file:scans.db", ":memory:", or a path)
// and ensures the scans table exists. created_at is stored as unix nanoseconds.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (Store, error) {
	logger.Info("connecting to database", "backend", BackendSQLite)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("failed to open sqlite database", "error", err)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		logger.Error("failed to create scans table", "error", err)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("successfully connected to database", "backend", BackendSQLite)
	return &sqliteStore{db: db, logger: logger}, nil
}

func (s *sqliteStore) Backend() string { return BackendSQLite }

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) Save(ctx context.Context, sc *entity.Scan) error {
	if err := prepare(sc); err != nil {
		return err
	}
	rec, err := toRecord(sc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO scans (`+sqliteColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.id, rec.sourceName, rec.imageBytes, rec.text, rec.confidence, rec.provider, rec.synthetic,
		rec.language, rec.explanation, rec.explanationSource, rec.lines, rec.functions, rec.loops, rec.conditions,
		rec.complexity, rec.suggestions, rec.attempts, rec.durationMS, rec.createdAt.UnixNano(),
	)
	if err != nil {
		s.logger.Error("failed to save scan", "scan_id", rec.id, "error", err)
		return fmt.Errorf("%w: save scan: %v", common.ErrDatabase, err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id uuid.UUID) (*entity.Scan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM scans WHERE id = ?`, id.String())
	sc, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		s.logger.Error("failed to get scan", "scan_id", id, "error", err)
		return nil, fmt.Errorf("%w: get scan: %v", common.ErrDatabase, err)
	}
	return sc, nil
}

func (s *sqliteStore) List(ctx context.Context, f ListFilter) ([]*entity.Scan, error) {
	var (
		where []string
		args  []any
	)
	if f.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, f.From.UnixNano())
	}
	if f.To != nil {
		where = append(where, "created_at <= ?")
		args = append(args, f.To.UnixNano())
	}
	q := `SELECT ` + sqliteColumns + ` FROM scans`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, f.limit())

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.logger.Error("failed to list scans", "error", err)
		return nil, fmt.Errorf("%w: list scans: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.Scan
	for rows.Next() {
		sc, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: read scan: %v", common.ErrDatabase, err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list scans: %v", common.ErrDatabase, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner) (*entity.Scan, error) {
	var (
		r       record
		created int64
	)
	err := row.Scan(&r.id, &r.sourceName, &r.imageBytes, &r.text, &r.confidence, &r.provider, &r.synthetic,
		&r.language, &r.explanation, &r.explanationSource, &r.lines, &r.functions, &r.loops, &r.conditions,
		&r.complexity, &r.suggestions, &r.attempts, &r.durationMS, &created)
	if err != nil {
		return nil, err
	}
	r.createdAt = time.Unix(0, created).UTC()
	return r.toScan()
}
