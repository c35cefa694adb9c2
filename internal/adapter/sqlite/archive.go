// Package sqlite archives observation records in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/dwh-retrieval/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS observations (
  station      TEXT    NOT NULL,
  kind         TEXT    NOT NULL,
  termin       TEXT    NOT NULL,
  row_index    INTEGER NOT NULL,
  column_name  TEXT    NOT NULL,
  value        REAL,
  cell_text    TEXT    NOT NULL DEFAULT '',
  retrieved_at TEXT    NOT NULL,
  PRIMARY KEY (station, kind, termin, row_index, column_name)
);
CREATE INDEX IF NOT EXISTS idx_observations_termin ON observations(termin);
`

const upsert = `
INSERT INTO observations (station, kind, termin, row_index, column_name, value, cell_text, retrieved_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (station, kind, termin, row_index, column_name) DO UPDATE SET
  value        = excluded.value,
  cell_text    = excluded.cell_text,
  retrieved_at = excluded.retrieved_at`

// Archive stores observation records, replacing earlier copies of the same
// cell. It implements pipeline.Sink.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the archive at path and applies the schema.
// path may also be a "file:" URI.
func Open(path string, logger *slog.Logger) (*Archive, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Archive{db: db, logger: logger}, nil
}

// Name identifies the sink in logs and metrics.
func (a *Archive) Name() string { return "sqlite" }

// Store upserts records in one transaction.
func (a *Archive) Store(ctx context.Context, records []domain.ObservationRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		var value sql.NullFloat64
		if r.Value != nil {
			value = sql.NullFloat64{Float64: *r.Value, Valid: true}
		}
		if _, err = stmt.ExecContext(ctx,
			r.Station, r.Kind, domain.FormatTimestamp(r.Termin), r.Row, r.Column,
			value, r.Text, r.RetrievedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("upsert %s: %w", r.Key(), err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	a.logger.Debug("records archived", "count", len(records))
	return nil
}

// Load returns the archived records of one station and kind with termin in
// [start, end], ordered by termin, row and column.
func (a *Archive) Load(ctx context.Context, station, kind string, start, end time.Time) ([]domain.ObservationRecord, error) {
	rows, err := a.db.QueryContext(ctx, `
SELECT termin, row_index, column_name, value, cell_text, retrieved_at
FROM observations
WHERE station = ? AND kind = ? AND termin BETWEEN ? AND ?
ORDER BY termin, row_index, column_name`,
		station, kind, domain.FormatTimestamp(start), domain.FormatTimestamp(end))
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []domain.ObservationRecord
	for rows.Next() {
		var (
			termin, retrievedAt string
			value               sql.NullFloat64
		)
		r := domain.ObservationRecord{Station: station, Kind: kind}
		if err := rows.Scan(&termin, &r.Row, &r.Column, &value, &r.Text, &retrievedAt); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		if r.Termin, err = domain.ParseTimestamp(termin); err != nil {
			return nil, err
		}
		if r.RetrievedAt, err = time.Parse(time.RFC3339, retrievedAt); err != nil {
			return nil, fmt.Errorf("parse retrieved_at: %w", err)
		}
		if value.Valid {
			f := value.Float64
			r.Value = &f
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func buildDSN(path string) (string, error) {
	params := []string{"_busy_timeout=5000", "_journal_mode=WAL"}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
