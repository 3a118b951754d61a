// Package storage opens the database and Redis connections used by the audit
// log service.
//
// Open configures a database/sql pool for PostgreSQL (lib/pq) or SQLite
// (go-sqlite3) and pings it before returning:
//
//	db, err := storage.Open(ctx, storage.DefaultConnectionConfig(storage.DriverPostgres, dsn))
//
// SQLite pools are limited to a single connection.
//
// NewRedisClient parses a redis:// URL and pings the server:
//
//	client, err := storage.NewRedisClient(ctx, "redis://localhost:6379/0")
package storage
