package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/kbukum/pvpauth/database"
	"github.com/kbukum/pvpauth/logger"
)

var seq atomic.Int64

// NewDB opens a fresh shared-cache in-memory sqlite database with the full
// schema applied. It is closed when the test ends.
func NewDB(t testing.TB) *database.DB {
	t.Helper()

	cfg := database.Config{
		Driver:   database.DriverSQLite,
		URL:      fmt.Sprintf("file:pvpauth_test_%d?mode=memory&cache=shared", seq.Add(1)),
		LogLevel: "silent",
	}
	db, err := database.Open(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
