package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/entity"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS scans (
	id                 uuid PRIMARY KEY,
	source_name        text NOT NULL DEFAULT '',
	image_bytes        bigint NOT NULL DEFAULT 0,
	text               text NOT NULL DEFAULT '',
	confidence         real NOT NULL DEFAULT 0,
	provider           text NOT NULL DEFAULT '',
	synthetic          boolean NOT NULL DEFAULT false,
	language           text NOT NULL DEFAULT '',
	explanation        text NOT NULL DEFAULT '',
	explanation_source text NOT NULL DEFAULT '',
	lines              integer NOT NULL DEFAULT 0,
	functions          integer NOT NULL DEFAULT 0,
	loops              integer NOT NULL DEFAULT 0,
	conditions         integer NOT NULL DEFAULT 0,
	complexity         text NOT NULL DEFAULT '',
	suggestions        text NOT NULL DEFAULT '[]',
	attempts           text NOT NULL DEFAULT 'null',
	duration_ms        bigint NOT NULL DEFAULT 0,
	created_at         timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS scans_created_at_idx ON scans (created_at DESC);`

const pgColumns = `id::text, source_name, image_bytes, text, confidence, provider, synthetic,
	language, explanation, explanation_source, lines, functions, loops, conditions,
	complexity, suggestions, attempts, duration_ms, created_at`

type postgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres creates a pgx pool for dsn and ensures the scans table exists.
func OpenPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (Store, error) {
	logger.Info("connecting to database", "backend", BackendPostgres)
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		logger.Error("failed to parse database url", "error", err)
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "codesnap"

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("connect: %w", err)
	}
	if _, err := pool.Exec(dialCtx, postgresSchema); err != nil {
		pool.Close()
		logger.Error("failed to create scans table", "error", err)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("successfully connected to database", "backend", BackendPostgres)
	return &postgresStore{pool: pool, logger: logger}, nil
}

func (p *postgresStore) Backend() string { return BackendPostgres }

func (p *postgresStore) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *postgresStore) Close() error {
	p.pool.Close()
	return nil
}

func (p *postgresStore) Save(ctx context.Context, s *entity.Scan) error {
	if err := prepare(s); err != nil {
		return err
	}
	rec, err := toRecord(s)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `INSERT INTO scans (
		id, source_name, image_bytes, text, confidence, provider, synthetic,
		language, explanation, explanation_source, lines, functions, loops, conditions,
		complexity, suggestions, attempts, duration_ms, created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	ON CONFLICT (id) DO UPDATE SET
		text = EXCLUDED.text, confidence = EXCLUDED.confidence, provider = EXCLUDED.provider,
		explanation = EXCLUDED.explanation, explanation_source = EXCLUDED.explanation_source`,
		pgtype.UUID{Bytes: s.ID, Valid: true}, rec.sourceName, rec.imageBytes, rec.text, rec.confidence, rec.provider, rec.synthetic,
		rec.language, rec.explanation, rec.explanationSource, rec.lines, rec.functions, rec.loops, rec.conditions,
		rec.complexity, rec.suggestions, rec.attempts, rec.durationMS, rec.createdAt,
	)
	if err != nil {
		p.logger.Error("failed to save scan", "scan_id", rec.id, "error", err)
		return fmt.Errorf("%w: save scan: %v", common.ErrDatabase, err)
	}
	return nil
}

func (p *postgresStore) Get(ctx context.Context, id uuid.UUID) (*entity.Scan, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM scans WHERE id = $1`, pgtype.UUID{Bytes: id, Valid: true})
	s, err := scanPostgres(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("scan %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		p.logger.Error("failed to get scan", "scan_id", id, "error", err)
		return nil, fmt.Errorf("%w: get scan: %v", common.ErrDatabase, err)
	}
	return s, nil
}

func (p *postgresStore) List(ctx context.Context, f ListFilter) ([]*entity.Scan, error) {
	var (
		where []string
		args  []any
	)
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	q := `SELECT ` + pgColumns + ` FROM scans`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.limit())
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		p.logger.Error("failed to list scans", "error", err)
		return nil, fmt.Errorf("%w: list scans: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.Scan
	for rows.Next() {
		s, err := scanPostgres(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: read scan: %v", common.ErrDatabase, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list scans: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func scanPostgres(row pgx.Row) (*entity.Scan, error) {
	var r record
	err := row.Scan(&r.id, &r.sourceName, &r.imageBytes, &r.text, &r.confidence, &r.provider, &r.synthetic,
		&r.language, &r.explanation, &r.explanationSource, &r.lines, &r.functions, &r.loops, &r.conditions,
		&r.complexity, &r.suggestions, &r.attempts, &r.durationMS, &r.createdAt)
	if err != nil {
		return nil, err
	}
	return r.toScan()
}
