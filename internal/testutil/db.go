package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/db"
)

// OpenTestDB connects to the Postgres instance named by TEST_DB_HOST and
// applies migrations; tests skip when the variable is unset.
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "lectern",
		Password: "lectern_pass",
		DBName:   "lectern_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

// Reset clears every table between tests.
func Reset(t *testing.T, conn *sql.DB) {
	t.Helper()
	for _, table := range []string{"podcast_versions", "artifacts", "chat_messages", "document_chunks", "documents", "workspaces"} {
		if _, err := conn.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
}
