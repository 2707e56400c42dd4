package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/smith3v/tutor625/pkg/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbCounter atomic.Int64

// SetupTestDB points db.DB at a fresh in-memory sqlite database for the
// duration of the test.
func SetupTestDB(t *testing.T) {
	t.Helper()
	name := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbCounter.Add(1))
	gdb, err := gorm.Open(sqlite.Open(name), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	db.DB = gdb

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access underlying DB: %v", err)
	}
	// shared-cache sqlite reports table locks under concurrent writers
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
		db.DB = nil
	})
}
