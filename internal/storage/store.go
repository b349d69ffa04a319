package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"lifetrack/internal/config"
	"lifetrack/internal/model"
)

type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveCallouts(ctx context.Context, callouts []model.Callout) error
	SaveMetricPoints(ctx context.Context, points []model.MetricPoint) error
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func nullableDate(c model.Callout) any {
	if c.Kind == model.KindMetricOnly || c.Date.IsZero() {
		return nil
	}
	return c.Date.UTC()
}

func nullableDeviation(c model.Callout) any {
	if c.Kind != model.KindDatedDeviation {
		return nil
	}
	return c.StdDevsAway
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
