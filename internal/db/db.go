package db

import (
	"database/sql"
	"fmt"

	"spawnpk-tradepost/internal/logger"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	// Try to read current version
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS snapshot_meta (
				id           INTEGER PRIMARY KEY DEFAULT 1,
				captured_at  TEXT NOT NULL,
				total_trades INTEGER NOT NULL
			);

			CREATE TABLE IF NOT EXISTS trades (
				id        INTEGER PRIMARY KEY AUTOINCREMENT,
				item_name TEXT NOT NULL,
				item_id   INTEGER,
				seller    TEXT,
				buyer     TEXT,
				price     INTEGER NOT NULL,
				currency  INTEGER NOT NULL,
				amount    INTEGER NOT NULL,
				time      TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_trades_item_name ON trades(item_name);
			CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	return nil
}
