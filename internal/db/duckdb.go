package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds database configuration.
type Config struct {
	// DataDir holds duckdb/<DBName>.duckdb. Empty opens an in-memory database.
	DataDir string
	DBName  string
}

// Open opens a DuckDB database and creates the plat-parks tables.
func Open(cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DataDir != "" {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		dsn = filepath.Join(duckdbDir, cfg.DBName+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}

	if err := Migrate(context.Background(), conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS parks (
		id          VARCHAR PRIMARY KEY,
		name        VARCHAR NOT NULL,
		description VARCHAR,
		street      VARCHAR,
		city_state  VARCHAR,
		img_url     VARCHAR,
		img_alt     VARCHAR,
		img_caption VARCHAR,
		lat         DOUBLE NOT NULL,
		lng         DOUBLE NOT NULL,
		park_type   VARCHAR,
		website     VARCHAR,
		fetched_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS kv (
		key   VARCHAR PRIMARY KEY,
		value VARCHAR NOT NULL
	)`,
}

// Migrate creates missing tables.
func Migrate(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}
