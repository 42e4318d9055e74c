package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// DB is the SQLite-backed store for alert subscriptions and persisted
// metric values.
type DB struct {
	db *sql.DB
}

func Open(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	createAlertsTable := `
	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		ticker TEXT NOT NULL,
		market TEXT NOT NULL,
		threshold TEXT NOT NULL,
		direction TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, ticker, direction)
	);`
	_, err = db.Exec(createAlertsTable)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create alerts table: %w", err)
	}

	createMetricsTable := `
	CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL,
		label_key TEXT NOT NULL DEFAULT '',
		label_value TEXT NOT NULL DEFAULT '',
		metric_value REAL NOT NULL,
		PRIMARY KEY (metric_name, label_key, label_value)
	);`
	_, err = db.Exec(createMetricsTable)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metrics table: %w", err)
	}

	log.Info("Database initialized successfully.")
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
