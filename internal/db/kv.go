package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joeblew999/plat-parks/internal/kv"
)

// KV is a kv.Store backed by the kv table.
type KV struct {
	db *sql.DB
}

// NewKV creates a store over an opened database.
func NewKV(conn *sql.DB) *KV {
	return &KV{db: conn}
}

func (s *KV) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", kv.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", kv.ErrUnavailable, err)
	}
	return value, nil
}

func (s *KV) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("%w: %w", kv.ErrUnavailable, err)
	}
	return nil
}
