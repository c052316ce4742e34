package store

import (
	"context"
	"fmt"

	"github.com/arashthr/markcentral/internal/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists blobs in the keyval table (see internal/db
// migrations). A single table keeps the Store contract honest: no component
// gets to lean on relational queries behind the interface's back.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	row := s.Pool.QueryRow(ctx, `SELECT v FROM keyval WHERE k = $1;`, key)
	err := row.Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("keyval get %q: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO keyval (k, v) VALUES ($1, $2)
		ON CONFLICT (k) DO UPDATE SET v = $2, updated_at = NOW();`, key, value)
	if err != nil {
		return fmt.Errorf("keyval set %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) SetNX(ctx context.Context, key string, value []byte) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO keyval (k, v) VALUES ($1, $2);`, key, value)
	if err != nil {
		var pgErr interface {
			SQLState() string
		}
		if errors.As(err, &pgErr) && pgErr.SQLState() == pgerrcode.UniqueViolation {
			return ErrKeyExists
		}
		return fmt.Errorf("keyval setnx %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM keyval WHERE k = $1;`, key)
	if err != nil {
		return fmt.Errorf("keyval delete %q: %w", key, err)
	}
	return nil
}
