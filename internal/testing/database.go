package testing

import (
	"database/sql"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/teranos/rowdb/db"
)

// CreateTestDB creates a SQLite test database in a temporary directory.
// Automatically registers cleanup via t.Cleanup().
//
// A file is used rather than ":memory:" because every pooled connection to
// ":memory:" would see its own empty database.
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"), zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	// Register cleanup
	t.Cleanup(func() {
		conn.Close()
	})

	return conn
}
