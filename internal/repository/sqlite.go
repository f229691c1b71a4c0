package repository

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB creates and initializes the on-device SQLite database
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	-- Zones (reference data pulled from the backend)
	CREATE TABLE IF NOT EXISTS zones (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		synced INTEGER NOT NULL DEFAULT 0
	);

	-- Crops within zones
	CREATE TABLE IF NOT EXISTS crops (
		id TEXT PRIMARY KEY,
		zone_id TEXT NOT NULL REFERENCES zones(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		variety TEXT,
		synced INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_crops_zone_id ON crops(zone_id);

	-- Scan sessions, keyed by the client-generated session identifier
	CREATE TABLE IF NOT EXISTS scan_sessions (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		worker_name TEXT NOT NULL,
		zone_id TEXT NOT NULL,
		zone_name TEXT NOT NULL DEFAULT '',
		crop_id TEXT NOT NULL,
		crop_name TEXT NOT NULL DEFAULT '',
		model_version TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		total_scans INTEGER NOT NULL DEFAULT 0,
		healthy_count INTEGER NOT NULL DEFAULT 0,
		plague_count INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		synced INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_status ON scan_sessions(status);
	CREATE INDEX IF NOT EXISTS idx_sessions_synced ON scan_sessions(synced);

	-- Scan results, cascading with their owning session
	CREATE TABLE IF NOT EXISTS scan_results (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES scan_sessions(id) ON DELETE CASCADE,
		photo_path TEXT NOT NULL DEFAULT '',
		classification TEXT NOT NULL,
		confidence REAL NOT NULL,
		has_plague INTEGER NOT NULL DEFAULT 0,
		scanned_at INTEGER NOT NULL,
		report_id TEXT,
		synced INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_results_session_id ON scan_results(session_id);
	CREATE INDEX IF NOT EXISTS idx_results_synced ON scan_results(synced);
	`

	_, err := db.Exec(schema)
	return err
}
