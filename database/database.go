package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"doorbell-core/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

// DB holds the connections the configured backends need. Unused fields are nil.
type DB struct {
	SQLite   *sql.DB
	Postgres *pgxpool.Pool
	Redis    *redis.Client
}

// Connect opens the store backend and, when the login limiter is Redis
// backed, the Redis client. A Redis failure that only affects the limiter is
// logged and leaves Redis nil so callers fall back to the in-memory limiter.
func Connect(ctx context.Context, cfg *config.Config) (*DB, error) {
	db := &DB{}

	switch cfg.StoreBackend {
	case "sqlite":
		conn, err := openSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		db.SQLite = conn

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresURL())
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("pinging postgres: %w", err)
		}
		db.Postgres = pool
	}

	needRedis := cfg.StoreBackend == "redis" || cfg.RateLimitBackend == "redis"
	if needRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       0,
		})

		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			if cfg.StoreBackend == "redis" {
				db.Close()
				return nil, fmt.Errorf("connecting to redis: %w", err)
			}
			slog.Warn("redis unavailable, login limiter falls back to memory", slog.String("err", err.Error()))
		} else {
			db.Redis = rdb
		}
	}

	return db, nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One writer at a time; the store commits whole namespaces in a transaction.
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	return conn, nil
}

func (db *DB) Close() {
	if db.SQLite != nil {
		db.SQLite.Close()
	}
	if db.Postgres != nil {
		db.Postgres.Close()
	}
	if db.Redis != nil {
		db.Redis.Close()
	}
}
