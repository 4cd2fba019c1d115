package margin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stratfolio/internal/contracts"
)

// DefaultSnapshotRetention snapshots kept per margin type
const DefaultSnapshotRetention = 30

// PostgresStore appends snapshots to margin_rate_snapshots, keeping the newest per margin type
type PostgresStore struct {
	pool   *pgxpool.Pool
	retain int
}

// NewPostgresStore creates a store on an open pool; schema comes from database.Migrate
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, retain: DefaultSnapshotRetention}
}

// WithRetention overrides how many snapshots per margin type survive a Save (min 1)
func (s *PostgresStore) WithRetention(n int) *PostgresStore {
	if n < 1 {
		n = 1
	}
	s.retain = n
	return s
}

// Load implements RateStore
func (s *PostgresStore) Load(ctx context.Context, marginType contracts.MarginType) (Snapshot, error) {
	query := `
		SELECT source, rates, fetched_at
		FROM margin_rate_snapshots
		WHERE margin_type = $1
		ORDER BY fetched_at DESC
		LIMIT 1
	`

	snap := Snapshot{MarginType: marginType}
	var raw []byte
	err := s.pool.QueryRow(ctx, query, string(marginType)).Scan(&snap.Source, &raw, &snap.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("query margin snapshot: %w", err)
	}

	if err := json.Unmarshal(raw, &snap.Rates); err != nil {
		return Snapshot{}, fmt.Errorf("decode margin snapshot: %w", err)
	}
	return snap, nil
}

// Save implements RateStore
func (s *PostgresStore) Save(ctx context.Context, snap Snapshot) error {
	raw, err := json.Marshal(snap.Rates)
	if err != nil {
		return fmt.Errorf("encode margin snapshot: %w", err)
	}

	insert := `
		INSERT INTO margin_rate_snapshots (margin_type, source, rates, fetched_at)
		VALUES ($1, $2, $3, $4)
	`
	// 오래된 이력 정리 (같은 트랜잭션)
	prune := `
		DELETE FROM margin_rate_snapshots
		WHERE margin_type = $1
		  AND id NOT IN (
			SELECT id FROM margin_rate_snapshots
			WHERE margin_type = $1
			ORDER BY fetched_at DESC, id DESC
			LIMIT $2
		  )
	`

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insert, string(snap.MarginType), snap.Source, raw, snap.FetchedAt); err != nil {
			return fmt.Errorf("insert margin snapshot: %w", err)
		}
		if _, err := tx.Exec(ctx, prune, string(snap.MarginType), s.retain); err != nil {
			return fmt.Errorf("prune margin snapshots: %w", err)
		}
		return nil
	})
	return err
}
