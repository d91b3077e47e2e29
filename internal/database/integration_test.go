package database

import (
	"os"
	"path/filepath"
	"testing"
)

// writeMigrations lays out a throwaway migrations tree for the SQLite dialect
func writeMigrations(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	sqliteDir := filepath.Join(dir, "sqlite")
	if err := os.MkdirAll(sqliteDir, 0o755); err != nil {
		t.Fatalf("failed to create migrations dir: %v", err)
	}

	migration := `
		CREATE TABLE IF NOT EXISTS test_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT UNIQUE NOT NULL,
			wpm INTEGER NOT NULL,
			accuracy INTEGER NOT NULL,
			typing_time REAL NOT NULL,
			stress_level TEXT NOT NULL,
			progress TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS stress_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			label TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			recorded_at DATETIME NOT NULL
		);
	`
	if err := os.WriteFile(filepath.Join(sqliteDir, "001_create_results.sql"), []byte(migration), 0o644); err != nil {
		t.Fatalf("failed to write migration: %v", err)
	}

	return dir
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "integration.db")

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(writeMigrations(t)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// Tables created by the migration must exist
	for _, table := range []string{"test_results", "stress_events"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Re-running migrations is a no-op
	if err := db.RunMigrations(writeMigrations(t)); err != nil {
		t.Errorf("Re-running migrations failed: %v", err)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "transactions.db")

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(writeMigrations(t)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// Committed insert is visible
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	id, err := tx.ExecReturningID(
		"INSERT INTO test_results (session_id, wpm, accuracy, typing_time, stress_level, progress) VALUES (?, ?, ?, ?, ?, ?)",
		"sess-commit", 42, 97, 61.5, "Calm", "[30,40,42]",
	)
	if err != nil {
		tx.Rollback()
		t.Fatalf("Failed to insert in transaction: %v", err)
	}
	if id <= 0 {
		t.Errorf("ExecReturningID returned %d, want > 0", id)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit transaction: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM test_results WHERE session_id = ?", "sess-commit").Scan(&count); err != nil {
		t.Fatalf("Failed to query after commit: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 result row, got %d", count)
	}

	// Rolled-back insert is not
	tx2, err := db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin second transaction: %v", err)
	}
	_, err = tx2.ExecReturningID(
		"INSERT INTO test_results (session_id, wpm, accuracy, typing_time, stress_level, progress) VALUES (?, ?, ?, ?, ?, ?)",
		"sess-rollback", 10, 50, 12.0, "Normal", "[]",
	)
	if err != nil {
		t.Fatalf("Failed to insert in second transaction: %v", err)
	}
	if err := tx2.Rollback(); err != nil {
		t.Fatalf("Failed to rollback: %v", err)
	}

	if err := db.QueryRow("SELECT COUNT(*) FROM test_results WHERE session_id = ?", "sess-rollback").Scan(&count); err != nil {
		t.Fatalf("Failed to query after rollback: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 rows after rollback, got %d", count)
	}
}
