package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stratfolio/pkg/config"
)

func TestNew_Disabled(t *testing.T) {
	cfg := &config.Config{}

	db, err := New(context.Background(), cfg)
	assert.Nil(t, db)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNew_InvalidURL(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{URL: "://not a url"}}

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse database URL")
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestMigrations_AppendOnly(t *testing.T) {
	assert.Equal(t, len(migrations), SchemaVersion())
	assert.Contains(t, migrations[0], "margin_rate_snapshots")
}

func TestPingAndMigrate(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, db.Ping(ctx))

	version, err := db.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion(), version)

	// idempotent
	version, err = db.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion(), version)
}
