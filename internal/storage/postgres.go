package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"lifetrack/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/lifetrack?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS callouts (
			id BIGSERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			kind TEXT NOT NULL,
			key TEXT,
			date DATE,
			metric TEXT,
			check_name TEXT NOT NULL,
			condition TEXT NOT NULL,
			more_info TEXT NOT NULL,
			value TEXT NOT NULL,
			std_devs_away DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_callouts_date ON callouts(date)`,
		`CREATE TABLE IF NOT EXISTS daily_metrics (
			id BIGSERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			key TEXT NOT NULL,
			date DATE NOT NULL,
			metric TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
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

func (s *postgresStore) SaveCallouts(ctx context.Context, callouts []model.Callout) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
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

func (s *postgresStore) SaveMetricPoints(ctx context.Context, points []model.MetricPoint) error {
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
		VALUES ($1, $2, $3, $4, $5, $6)`)
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
