package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"lifetrack/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:lifetrack.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS callouts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			kind TEXT NOT NULL,
			key TEXT,
			date TEXT,
			metric TEXT,
			check_name TEXT NOT NULL,
			condition TEXT NOT NULL,
			more_info TEXT NOT NULL,
			value TEXT NOT NULL,
			std_devs_away REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_callouts_date ON callouts(date)`,
		`CREATE TABLE IF NOT EXISTS daily_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			key TEXT NOT NULL,
			date TEXT NOT NULL,
			metric TEXT NOT NULL,
			value REAL NOT NULL,
			source TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_metrics_key_metric ON daily_metrics(key, metric)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) SaveCallouts(ctx context.Context, callouts []model.Callout) error {
	if s.db == nil || len(callouts) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO callouts (created_at, kind, key, date, metric, check_name, condition, more_info, value, std_devs_away)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, c := range callouts {
		if _, err := stmt.ExecContext(ctx,
			nowUTC(),
			string(c.Kind),
			c.Key,
			nullableDate(c),
			c.Metric,
			c.Check,
			c.Condition,
			c.MoreInfo,
			c.Value,
			nullableDeviation(c),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) SaveMetricPoints(ctx context.Context, points []model.MetricPoint) error {
	if s.db == nil || len(points) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO daily_metrics (created_at, key, date, metric, value, source)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, pt := range points {
		if _, err := stmt.ExecContext(ctx,
			nowUTC(),
			pt.Key,
			pt.Date.UTC(),
			pt.Metric,
			pt.Value,
			pt.Source,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
