// Package history persists per-cycle classification summaries in SQLite so
// the dashboard can chart ingestion health over time.
package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mwengren/glider-dac-status/internal/dacstatus"
)

// Store manages cycle summaries in an app-owned SQLite file.
type Store struct {
	db         *sql.DB
	keepCycles int
}

func NewSQLiteStore(path string, keepCycles int) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	if keepCycles <= 0 {
		keepCycles = 2000
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS cycle_summaries (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  cycle_id TEXT NOT NULL UNIQUE,
  source TEXT NOT NULL,
  fetched_at DATETIME NOT NULL,
  dataset_count INTEGER NOT NULL,
  complete_count INTEGER NOT NULL,
  incomplete_count INTEGER NOT NULL,
  blacklisted_count INTEGER NOT NULL,
  warning_count INTEGER NOT NULL,
  fresh_count INTEGER NOT NULL,
  warn_count INTEGER NOT NULL,
  stale_count INTEGER NOT NULL,
  unknown_count INTEGER NOT NULL,
  dropped_records INTEGER NOT NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_cs_fetched_at ON cycle_summaries(fetched_at);`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, keepCycles: keepCycles}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertCycleSummary records one completed fetch cycle and prunes rows beyond
// the retention window.
func (s *Store) InsertCycleSummary(ctx context.Context, sum dacstatus.Summary) error {
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO cycle_summaries (
  cycle_id, source, fetched_at,
  dataset_count, complete_count, incomplete_count, blacklisted_count,
  warning_count, fresh_count, warn_count, stale_count, unknown_count,
  dropped_records
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(cycle_id) DO NOTHING;
`,
		sum.CycleID, sum.Source, sum.FetchedAt.UTC(),
		sum.DatasetCount, sum.CompleteCount, sum.IncompleteCount, sum.BlacklistedCount,
		sum.WarningCount, sum.FreshCount, sum.WarnCount, sum.StaleCount, sum.UnknownCount,
		sum.DroppedRecords,
	); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
DELETE FROM cycle_summaries
WHERE id NOT IN (
  SELECT id FROM cycle_summaries ORDER BY fetched_at DESC LIMIT ?
);
`, s.keepCycles)
	return err
}

// ListRecent returns the newest cycle summaries, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]dacstatus.Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT
  cycle_id, source, fetched_at,
  dataset_count, complete_count, incomplete_count, blacklisted_count,
  warning_count, fresh_count, warn_count, stale_count, unknown_count,
  dropped_records
FROM cycle_summaries
ORDER BY fetched_at DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]dacstatus.Summary, 0, limit)
	for rows.Next() {
		var (
			item      dacstatus.Summary
			fetchedAt sql.NullTime
		)
		if err := rows.Scan(
			&item.CycleID, &item.Source, &fetchedAt,
			&item.DatasetCount, &item.CompleteCount, &item.IncompleteCount, &item.BlacklistedCount,
			&item.WarningCount, &item.FreshCount, &item.WarnCount, &item.StaleCount, &item.UnknownCount,
			&item.DroppedRecords,
		); err != nil {
			return nil, err
		}
		if fetchedAt.Valid {
			item.FetchedAt = fetchedAt.Time.UTC()
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ServiceStats reports row volume and the newest cycle time for health checks.
type ServiceStats struct {
	CycleCount    int64      `json:"cycle_count"`
	NewestCycleAt *time.Time `json:"newest_cycle_at,omitempty"`
}

func (s *Store) ServiceStats(ctx context.Context) (*ServiceStats, error) {
	out := &ServiceStats{}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycle_summaries;`).Scan(&out.CycleCount); err != nil {
		return nil, err
	}
	var newest sql.NullTime
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(fetched_at) FROM cycle_summaries;`).Scan(&newest); err == nil && newest.Valid {
		t := newest.Time.UTC()
		out.NewestCycleAt = &t
	}
	return out, nil
}
