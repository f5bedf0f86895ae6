package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/vegindex-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Ping checks that the database file is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY,
	layer       TEXT NOT NULL,
	path        TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL,
	width       INTEGER NOT NULL,
	height      INTEGER NOT NULL,
	resolution  REAL NOT NULL,
	mean        REAL NOT NULL,
	std_dev     REAL NOT NULL,
	valid_count INTEGER NOT NULL,
	total_ha    REAL NOT NULL,
	state       TEXT NOT NULL,
	result      TEXT NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS analysis_bins (
	analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
	bin         TEXT NOT NULL,
	pixels      INTEGER NOT NULL,
	percent     REAL NOT NULL,
	area_ha     REAL NOT NULL,
	PRIMARY KEY (analysis_id, bin)
);

CREATE INDEX IF NOT EXISTS idx_analyses_layer ON analyses(layer);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
CREATE INDEX IF NOT EXISTS idx_analysis_bins_bin ON analysis_bins(bin, percent);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analyses (id, layer, path, kind, status, width, height, resolution,
			mean, std_dev, valid_count, total_ha, state, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Layer, a.Path, string(a.Kind), string(a.Status), a.Width, a.Height, a.Resolution,
		a.Stats.Mean, a.Stats.StdDev, a.Stats.ValidCount, a.Area.TotalHa,
		string(a.Interpretation.State), string(resultJSON), a.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert analysis %s", a.ID)
	}

	for _, r := range binRows(a) {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO analysis_bins (analysis_id, bin, pixels, percent, area_ha) VALUES (?, ?, ?, ?, ?)`,
			a.ID, string(r.Bin), r.Pixels, r.Percent, r.AreaHa,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert bin %s", r.Bin)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	var resultJSON string
	err := s.db.QueryRowContext(ctx, `SELECT result FROM analyses WHERE id = ?`, id).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get analysis %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}
	return decodeAnalysis([]byte(resultJSON))
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT a.result FROM analyses a`
	var args []any

	if filter.Bin != "" {
		query += ` JOIN analysis_bins b ON b.analysis_id = a.id AND b.bin = ? AND b.percent >= ?`
		args = append(args, string(filter.Bin), filter.MinPercent)
	}
	query += ` WHERE 1=1`
	if filter.Layer != "" {
		query += ` AND a.layer = ?`
		args = append(args, filter.Layer)
	}
	if filter.Kind != "" {
		query += ` AND a.kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		query += ` AND a.status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND a.created_at > ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY a.created_at DESC LIMIT ?`
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Analysis
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		a, err := decodeAnalysis([]byte(resultJSON))
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

func (s *SQLiteStore) DeleteAnalysis(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete analysis %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: delete analysis %s", id)
	}
	return nil
}

func decodeAnalysis(data []byte) (*model.Analysis, error) {
	var a model.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal analysis")
	}
	return &a, nil
}
