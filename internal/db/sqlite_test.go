package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/chatvault/chatvault/internal/db/models"
)

func TestInitDB_MigratesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatvault.db")

	database, err := InitDB(path)
	if err != nil {
		t.Fatalf("init db: %v", err)
	}

	// A write through every model proves the schema exists.
	if err := database.Create(&models.Token{ID: "t1", AccessToken: "a", ExpiresAt: time.Now()}).Error; err != nil {
		t.Fatalf("insert token: %v", err)
	}
	if err := database.Create(&models.Checkpoint{}).Error; err != nil {
		t.Fatalf("insert checkpoint: %v", err)
	}
	if err := database.Create(&models.User{ID: "u1"}).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if err := database.Create(&models.Chat{ID: "c1", CreatedAt: time.Now(), UserID: "u1"}).Error; err != nil {
		t.Fatalf("insert chat: %v", err)
	}
	if err := database.Create(&models.Message{ChatID: "c1", Text: "hi"}).Error; err != nil {
		t.Fatalf("insert message: %v", err)
	}

	// Reopening the same file sees the persisted data.
	reopened, err := InitDB(path)
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	var count int64
	if err := reopened.Model(&models.Chat{}).Count(&count).Error; err != nil {
		t.Fatalf("count chats: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 chat after reopen, got %d", count)
	}
}
