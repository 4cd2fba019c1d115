package database_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/wonny/stratfolio/pkg/config"
	"github.com/wonny/stratfolio/pkg/database"
)

// Example demonstrates opening the optional snapshot database
func Example() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg)
	if errors.Is(err, database.ErrDisabled) {
		fmt.Println("Database disabled, using in-memory margin cache")
		return
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	version, err := db.Migrate(ctx)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	fmt.Printf("Schema version: %d/%d\n", version, database.SchemaVersion())
	fmt.Printf("Max connections: %d\n", db.Pool.Stat().MaxConns())
}
