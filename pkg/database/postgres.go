package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stratfolio/pkg/config"
)

// ErrDisabled is returned when DATABASE_URL is empty
var ErrDisabled = errors.New("database disabled: DATABASE_URL not set")

// DB holds the pool used by the margin snapshot store
// ⭐ SSOT: DB 연결은 이 패키지에서만 생성
type DB struct {
	Pool *pgxpool.Pool
}

// New opens the pool described by DATABASE_URL and the DB_* limits, then pings once
// ⭐ SSOT: 유일하게 pgxpool.NewWithConfig()를 호출하는 함수
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	if !cfg.Database.Enabled() {
		return nil, ErrDisabled
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	applyLimits(poolConfig, cfg.Database)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	db := &DB{Pool: pool}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func applyLimits(pc *pgxpool.Config, c config.DatabaseConfig) {
	if c.MaxConns > 0 {
		pc.MaxConns = int32(c.MaxConns)
	}
	if c.MinConns > 0 {
		pc.MinConns = int32(c.MinConns)
	}
	if c.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = c.MaxConnLifetime
	}
	if c.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = c.MaxConnIdleTime
	}
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping checks if the database is accessible
func (db *DB) Ping(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// =============================================================================
// Migrations
// =============================================================================

// migrations are applied in order; append only, never edit a released entry
var migrations = []string{
	// 1: 마진 요율 스냅샷 (캐시 계층, 이력 보존)
	`CREATE TABLE IF NOT EXISTS margin_rate_snapshots (
		id          BIGSERIAL PRIMARY KEY,
		margin_type TEXT        NOT NULL,
		source      TEXT        NOT NULL,
		rates       JSONB       NOT NULL,
		fetched_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// 2: 최신 스냅샷 조회
	`CREATE INDEX IF NOT EXISTS idx_margin_rate_snapshots_type_time
		ON margin_rate_snapshots (margin_type, fetched_at DESC)`,
}

// migrationLockID serializes Migrate across instances (pg_advisory_xact_lock key)
const migrationLockID = 7_305_101

// Migrate applies pending migrations in one transaction and returns the schema version
func (db *DB) Migrate(ctx context.Context) (int, error) {
	var version int
	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
			return fmt.Errorf("lock migrations: %w", err)
		}
		if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
			return fmt.Errorf("create schema_migrations: %w", err)
		}
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}

		for v := version + 1; v <= len(migrations); v++ {
			if _, err := tx.Exec(ctx, migrations[v-1]); err != nil {
				return fmt.Errorf("migration %d: %w", v, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, v); err != nil {
				return fmt.Errorf("record migration %d: %w", v, err)
			}
			version = v
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to apply schema: %w", err)
	}
	return version, nil
}

// SchemaVersion returns the number of migrations this binary knows
func SchemaVersion() int {
	return len(migrations)
}
