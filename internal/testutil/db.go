// Package testutil provides an in-memory SQLite database for the test
// suites, migrated and seeded like the production schema.
package testutil

import (
	"context"
	"testing"

	"github.com/ncruces/go-sqlite3/gormlite"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/theforge/forge/internal/models"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory database, runs the migrations, and seeds
// the role set.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(gormlite.Open("file::memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	if err := models.SeedRoles(context.Background(), db, nil); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
	return db
}
