// Package dacdb reads deployment status rows directly from the DAC MySQL
// database, as an alternative snapshot source to the HTTP status API.
package dacdb

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/mwengren/glider-dac-status/internal/config"
	"github.com/mwengren/glider-dac-status/internal/dacstatus"
)

// Store wraps MySQL access to the deployments table.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewStore creates a MySQL-backed snapshot source.
func NewStore(cfg config.Config) (*Store, error) {
	db, err := sql.Open("mysql", cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, queryTimeout: cfg.DBQueryTimeout}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Name() string { return "dac_db" }

// FetchDatasets loads the full deployment snapshot from the database. The
// dropped count is always zero here: rows with a NULL dataset id are filtered
// in SQL and nullable columns scan to their zero values.
func (s *Store) FetchDatasets(ctx context.Context) ([]dacstatus.DatasetRecord, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
SELECT
  d.dataset_id,
  COALESCE(d.institution, ''),
  COALESCE(d.operator, ''),
  COALESCE(d.data_provider, ''),
  COALESCE(d.wmo_id, ''),
  COALESCE(d.deployment_complete, 0),
  d.created,
  d.time_coverage_start,
  d.time_coverage_end,
  COALESCE(d.erddap_ok, 0),
  COALESCE(d.thredds_ok, 0),
  COALESCE(d.archive_safe, 1)
FROM deployments d
WHERE d.dataset_id IS NOT NULL AND d.dataset_id <> ''
ORDER BY d.created ASC;
`)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]dacstatus.DatasetRecord, 0, 256)
	for rows.Next() {
		var (
			rec           dacstatus.DatasetRecord
			created       sql.NullTime
			coverageStart sql.NullTime
			coverageEnd   sql.NullTime
		)
		if err := rows.Scan(
			&rec.DatasetID,
			&rec.Institution,
			&rec.Operator,
			&rec.Provider,
			&rec.WMOID,
			&rec.DeploymentComplete,
			&created,
			&coverageStart,
			&coverageEnd,
			&rec.ERDDAPReachable,
			&rec.THREDDSReachable,
			&rec.Archiving,
		); err != nil {
			return nil, 0, err
		}
		if created.Valid {
			rec.CreatedAt = dacstatus.NewFlexTime(created.Time)
		}
		if coverageStart.Valid {
			rec.TimeCoverageStart = dacstatus.NewFlexTime(coverageStart.Time)
		}
		if coverageEnd.Valid {
			rec.TimeCoverageEnd = dacstatus.NewFlexTime(coverageEnd.Time)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, 0, nil
}

// ServiceStats contains lightweight DB health and volume counters.
type ServiceStats struct {
	PingMS            int64 `json:"ping_ms"`
	UptimeSeconds     int64 `json:"uptime_seconds"`
	DeploymentsTotal  int64 `json:"deployments_total"`
	CompletedTotal    int64 `json:"completed_total"`
	NotArchivingTotal int64 `json:"not_archiving_total"`
}

// ServiceStats returns MySQL health and high-level deployment counters.
func (s *Store) ServiceStats(ctx context.Context) (*ServiceStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return nil, err
	}

	out := &ServiceStats{
		PingMS: time.Since(start).Milliseconds(),
	}

	var statusName string
	var statusValue sql.NullString
	if err := s.db.QueryRowContext(ctx, `SHOW GLOBAL STATUS LIKE 'Uptime';`).Scan(&statusName, &statusValue); err == nil && statusValue.Valid {
		if v, err := time.ParseDuration(statusValue.String + "s"); err == nil {
			out.UptimeSeconds = int64(v.Seconds())
		}
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deployments;`).Scan(&out.DeploymentsTotal); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deployments WHERE deployment_complete = 1;`).Scan(&out.CompletedTotal); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deployments WHERE COALESCE(archive_safe, 1) = 0;`).Scan(&out.NotArchivingTotal); err != nil {
		return nil, err
	}

	return out, nil
}
