package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SQLiteStore persists namespaces in a single SQLite table. It is the
// default backend on the device.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates the schema if needed. The caller owns db.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "storage"),
	}

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS nvs_entries (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value BLOB NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (namespace, key)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s.logger.Info("sqlite store initialized")
	return s, nil
}

func (s *SQLiteStore) Open(_ context.Context, namespace string) (Handle, error) {
	return openHandle(s, namespace)
}

func (s *SQLiteStore) get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM nvs_entries WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *SQLiteStore) apply(ctx context.Context, namespace string, sets map[string][]byte, erases []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, k := range erases {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM nvs_entries WHERE namespace = ? AND key = ?`,
			namespace, k,
		); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	for k, v := range sets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO nvs_entries (namespace, key, value, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (namespace, key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, namespace, k, v, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}
