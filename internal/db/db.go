package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/keep/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// EscrowAccount is the reserved principal whose balance backs all
// non-consumed capsules' values.
const EscrowAccount = "escrow"

// Init initializes the SQLite database at baseDir/keep.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.keep.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "keep.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify WAL mode is active
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
// Call after Init if you need to tune pool behavior for contention.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS capsules (
		  id          INTEGER PRIMARY KEY,
		  creator     TEXT NOT NULL,
		  recipient   TEXT NOT NULL,
		  payload     TEXT NOT NULL,
		  value       INTEGER NOT NULL,
		  unlock_time INTEGER NOT NULL,
		  created_at  INTEGER NOT NULL,
		  opened_at   INTEGER,
		  consumed    INTEGER NOT NULL DEFAULT 0,
		  kind        TEXT NOT NULL,
		  metadata    TEXT,
		  public      INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_capsules_public
		ON capsules(id)
		WHERE public = 1;

		CREATE TABLE IF NOT EXISTS owner_index (
		  principal  TEXT NOT NULL,
		  position   INTEGER NOT NULL,
		  capsule_id INTEGER NOT NULL REFERENCES capsules(id),
		  PRIMARY KEY (principal, position)
		);

		CREATE TABLE IF NOT EXISTS audit_log (
		  capsule_id INTEGER PRIMARY KEY REFERENCES capsules(id),
		  actor      TEXT NOT NULL,
		  at         INTEGER NOT NULL,
		  action     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS counters (
		  id                 INTEGER PRIMARY KEY CHECK (id = 1),
		  nonce              INTEGER NOT NULL,
		  total_capsules     INTEGER NOT NULL,
		  total_value_locked INTEGER NOT NULL,
		  total_opened       INTEGER NOT NULL,
		  paused             INTEGER NOT NULL
		);

		INSERT OR IGNORE INTO counters
		(id, nonce, total_capsules, total_value_locked, total_opened, paused)
		VALUES (1, 0, 0, 0, 0, 0);

		CREATE TABLE IF NOT EXISTS accounts (
		  principal TEXT PRIMARY KEY,
		  balance   INTEGER NOT NULL CHECK (balance >= 0)
		);

		INSERT OR IGNORE INTO accounts (principal, balance) VALUES ('escrow', 0);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
