package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps namespaces in the device_settings table, for fleets
// that back device state with a shared database.
type PostgresStore struct {
	DB *pgxpool.Pool
}

// NewPostgresStore creates the table if needed. The caller owns the pool.
func NewPostgresStore(ctx context.Context, db *pgxpool.Pool) (*PostgresStore, error) {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS device_settings (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (namespace, key)
		)
	`)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Open(_ context.Context, namespace string) (Handle, error) {
	return openHandle(s, namespace)
}

func (s *PostgresStore) get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	var v []byte
	err := s.DB.QueryRow(ctx, `
		SELECT value
		FROM device_settings
		WHERE namespace = $1 AND key = $2
	`, namespace, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *PostgresStore) apply(ctx context.Context, namespace string, sets map[string][]byte, erases []string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if len(erases) > 0 {
		if _, err := tx.Exec(ctx, `
			DELETE FROM device_settings
			WHERE namespace = $1 AND key = ANY($2)
		`, namespace, erases); err != nil {
			return err
		}
	}

	for k, v := range sets {
		if _, err := tx.Exec(ctx, `
			INSERT INTO device_settings (namespace, key, value, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (namespace, key)
			DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, namespace, k, v); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
