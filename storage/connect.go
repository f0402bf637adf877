package storage

import (
	"context"
	"fmt"

	"doorbell-core/database"
)

// New returns the Store for backend over connections already opened by
// database.Connect.
func New(ctx context.Context, backend string, db *database.DB) (Store, error) {
	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if db.SQLite == nil {
			return nil, fmt.Errorf("sqlite backend selected without a sqlite connection")
		}
		return NewSQLiteStore(ctx, db.SQLite)
	case "redis":
		if db.Redis == nil {
			return nil, fmt.Errorf("redis backend selected without a redis connection")
		}
		return NewRedisStore(db.Redis), nil
	case "postgres":
		if db.Postgres == nil {
			return nil, fmt.Errorf("postgres backend selected without a postgres connection")
		}
		return NewPostgresStore(ctx, db.Postgres)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
