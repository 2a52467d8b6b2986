package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/pvpauth/database"
)

// LoadFixture loads test data into a table.
// Data should be a slice of maps where each map represents a row.
func LoadFixture(db *database.DB, table string, data []map[string]interface{}) error {
	for _, row := range data {
		if err := db.GormDB.Table(table).Create(row).Error; err != nil {
			return fmt.Errorf("failed to insert fixture row into %s: %w", table, err)
		}
	}
	return nil
}

// MustLoadFixture loads test data and fails the test on error.
func MustLoadFixture(t testing.TB, db *database.DB, table string, data []map[string]interface{}) {
	t.Helper()
	if err := LoadFixture(db, table, data); err != nil {
		t.Fatalf("LoadFixture failed: %v", err)
	}
}

// MustCreateUser inserts a bare user row and returns its id.
func MustCreateUser(t testing.TB, db *database.DB, userName string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC()
	MustLoadFixture(t, db, "users", []map[string]interface{}{{
		"id":           id.String(),
		"user_name":    userName,
		"display_name": userName,
		"created_at":   now,
		"updated_at":   now,
	}})
	return id
}

// CountRows returns the number of rows in a table.
func CountRows(db *database.DB, table string) (int64, error) {
	var count int64
	err := db.GormDB.Table(table).Count(&count).Error
	return count, err
}

// AssertRowCount fails the test if the table doesn't have the expected row count.
func AssertRowCount(t testing.TB, db *database.DB, table string, expected int64) {
	t.Helper()
	count, err := CountRows(db, table)
	if err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}
	if count != expected {
		t.Errorf("table %s row count = %d, want %d", table, count, expected)
	}
}
