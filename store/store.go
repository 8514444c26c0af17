// Package store is the device-local SQLite database. It durably holds the
// offline action queue, a local copy of the courier's breadcrumb trail,
// and admin users for the web UI. It survives app restarts; queued actions
// live here until successfully flushed to the remote order store.
package store

import (
	"database/sql"
	"fmt"

	"couriertrack/config"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

func Open(cfg *config.DatabaseConfig) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", cfg.Path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := &DB{DB: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

func (db *DB) migrate() error {
	_, err := db.Exec(schema)
	return err
}
