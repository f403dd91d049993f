package database

import (
	"path/filepath"
	"testing"

	"github.com/PhilHem/timeremaining/backend/models"
)

// RED: Test in-memory databases are migrated
func TestOpen_Memory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for _, m := range []any{&models.User{}, &models.PendingTwoFactor{}, &models.LogEntry{}} {
		if !db.Migrator().HasTable(m) {
			t.Errorf("Expected table for %T", m)
		}
	}
}

// RED: Test file databases persist across opens
func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.Create(&models.User{Email: "alice@example.com", PasswordHash: "x", APIKey: "sk_1"}).Error; err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 user after reopen, got %d", count)
	}
}
