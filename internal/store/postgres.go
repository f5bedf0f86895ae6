package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/vegindex-cli/internal/db"
	"github.com/sells-group/vegindex-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	layer       TEXT NOT NULL,
	path        TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL,
	width       INTEGER NOT NULL,
	height      INTEGER NOT NULL,
	resolution  DOUBLE PRECISION NOT NULL,
	mean        DOUBLE PRECISION NOT NULL,
	std_dev     DOUBLE PRECISION NOT NULL,
	valid_count BIGINT NOT NULL,
	total_ha    DOUBLE PRECISION NOT NULL,
	state       TEXT NOT NULL,
	result      JSONB NOT NULL,
	footprint   BYTEA,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analysis_bins (
	analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
	bin         TEXT NOT NULL,
	pixels      BIGINT NOT NULL,
	percent     DOUBLE PRECISION NOT NULL,
	area_ha     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (analysis_id, bin)
);

CREATE INDEX IF NOT EXISTS idx_analyses_layer ON analyses(layer);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analysis_bins_bin ON analysis_bins(bin, percent);
`

var binColumns = []string{"analysis_id", "bin", "pixels", "percent", "area_ha"}

// Ping checks that the database answers queries.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, a *model.Analysis) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis")
	}
	footprint, err := footprintEWKB(a.Footprint)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO analyses (id, layer, path, kind, status, width, height, resolution,
			mean, std_dev, valid_count, total_ha, state, result, footprint, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		a.ID, a.Layer, a.Path, string(a.Kind), string(a.Status), a.Width, a.Height, a.Resolution,
		a.Stats.Mean, a.Stats.StdDev, a.Stats.ValidCount, a.Area.TotalHa,
		string(a.Interpretation.State), resultJSON, footprint, a.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert analysis %s", a.ID)
	}

	var rows [][]any
	for _, r := range binRows(a) {
		rows = append(rows, []any{a.ID, string(r.Bin), r.Pixels, r.Percent, r.AreaHa})
	}
	if _, err = db.CopyFrom(ctx, tx, "analysis_bins", binColumns, rows); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit")
	}
	return nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	var resultJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT result FROM analyses WHERE id = $1`, id).Scan(&resultJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get analysis %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}
	return decodeAnalysis(resultJSON)
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT a.result FROM analyses a`
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Bin != "" {
		query += ` JOIN analysis_bins b ON b.analysis_id = a.id AND b.bin = ` + next(string(filter.Bin)) +
			` AND b.percent >= ` + next(filter.MinPercent)
	}
	query += ` WHERE 1=1`
	if filter.Layer != "" {
		query += ` AND a.layer = ` + next(filter.Layer)
	}
	if filter.Kind != "" {
		query += ` AND a.kind = ` + next(string(filter.Kind))
	}
	if filter.Status != "" {
		query += ` AND a.status = ` + next(string(filter.Status))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND a.created_at > ` + next(filter.CreatedAfter)
	}
	query += ` ORDER BY a.created_at DESC LIMIT ` + next(listLimit(filter))
	if filter.Offset > 0 {
		query += ` OFFSET ` + next(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var out []model.Analysis
	for rows.Next() {
		var resultJSON []byte
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		a, err := decodeAnalysis(resultJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

func (s *PostgresStore) DeleteAnalysis(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete analysis %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: delete analysis %s", id)
	}
	return nil
}
