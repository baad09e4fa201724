package store

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/chatvault/chatvault/internal/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.AutoMigrate(
		&models.Token{}, &models.Checkpoint{},
		&models.User{}, &models.Chat{}, &models.Message{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func strptr(s string) *string { return &s }

func TestTokenStore_LatestWins(t *testing.T) {
	s := NewTokenStore(newTestDB(t))

	latest, err := s.Latest()
	if err != nil {
		t.Fatalf("latest on empty store: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil token on empty store, got %+v", latest)
	}

	old := &models.Token{AccessToken: "old", RefreshToken: "r1", ExpiresAt: time.Now(), CreatedAt: time.Now().Add(-time.Hour)}
	if err := s.Append(old); err != nil {
		t.Fatalf("append old: %v", err)
	}
	fresh := &models.Token{AccessToken: "fresh", RefreshToken: "r2", ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now()}
	if err := s.Append(fresh); err != nil {
		t.Fatalf("append fresh: %v", err)
	}

	latest, err = s.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.AccessToken != "fresh" {
		t.Fatalf("expected newest token, got %q", latest.AccessToken)
	}

	// The superseded row is retained as history, never updated in place.
	var count int64
	if err := s.db.Model(&models.Token{}).Count(&count).Error; err != nil {
		t.Fatalf("count tokens: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 token rows, got %d", count)
	}
}

func TestCheckpointStore_LatestWins(t *testing.T) {
	s := NewCheckpointStore(newTestDB(t))

	cp, err := s.Latest()
	if err != nil {
		t.Fatalf("latest on empty store: %v", err)
	}
	if cp != nil {
		t.Fatalf("expected nil checkpoint before first advance, got %+v", cp)
	}

	if err := s.Advance(strptr("p2"), strptr("c9")); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.Advance(nil, strptr("c42")); err != nil {
		t.Fatalf("advance to exhaustion: %v", err)
	}

	cp, err = s.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if cp.Cursor != nil {
		t.Fatalf("expected nil cursor after exhaustion, got %q", *cp.Cursor)
	}
	if cp.LastRecordID == nil || *cp.LastRecordID != "c42" {
		t.Fatalf("expected last record c42, got %v", cp.LastRecordID)
	}
}

func TestUpsertUser_Idempotent(t *testing.T) {
	r := NewRepository(newTestDB(t))

	if err := r.UpsertUser("u1", strptr("Alice"), strptr("a@example.com")); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	// Second call with different values must not change the stored record.
	if err := r.UpsertUser("u1", strptr("Mallory"), strptr("m@example.com")); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var u models.User
	if err := r.db.First(&u, "id = ?", "u1").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if u.Name == nil || *u.Name != "Alice" {
		t.Fatalf("name overwritten: got %v", u.Name)
	}
	if u.Email == nil || *u.Email != "a@example.com" {
		t.Fatalf("email overwritten: got %v", u.Email)
	}
}

func TestUpsertUser_FillsAbsentFields(t *testing.T) {
	r := NewRepository(newTestDB(t))

	if err := r.UpsertUser("u2", nil, nil); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := r.UpsertUser("u2", strptr("Bob"), nil); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var u models.User
	if err := r.db.First(&u, "id = ?", "u2").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if u.Name == nil || *u.Name != "Bob" {
		t.Fatalf("absent name not filled: got %v", u.Name)
	}
	if u.Email != nil {
		t.Fatalf("email invented from nowhere: got %q", *u.Email)
	}
}

func TestUpsertChat_CreatedExactlyOnce(t *testing.T) {
	r := NewRepository(newTestDB(t))
	createdAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	created, err := r.UpsertChat("c1", createdAt, []string{"u1", "u2", "u3"})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on first call")
	}

	// Different participants on a later sighting must not touch the row.
	created, err = r.UpsertChat("c1", createdAt.Add(time.Hour), []string{"u9"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Fatal("expected created=false on second call")
	}

	var c models.Chat
	if err := r.db.First(&c, "id = ?", "c1").Error; err != nil {
		t.Fatalf("load chat: %v", err)
	}
	if c.UserID != "u1" {
		t.Fatalf("primary user changed: got %q", c.UserID)
	}
	if c.AgentID == nil || *c.AgentID != "u2" {
		t.Fatalf("agent changed: got %v", c.AgentID)
	}
	if !c.CreatedAt.Equal(createdAt) {
		t.Fatalf("created_at changed: got %s", c.CreatedAt)
	}
}

func TestUpsertChat_Participants(t *testing.T) {
	tests := []struct {
		name         string
		participants []string
		wantUser     string
		wantAgent    *string
		wantErr      bool
	}{
		{name: "two participants", participants: []string{"u1", "u2"}, wantUser: "u1", wantAgent: strptr("u2")},
		{name: "solo chat has no agent", participants: []string{"u1"}, wantUser: "u1", wantAgent: nil},
		{name: "duplicate ids collapse", participants: []string{"u1", "u1", "u2"}, wantUser: "u1", wantAgent: strptr("u2")},
		{name: "no participants", participants: nil, wantErr: true},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRepository(newTestDB(t))
			id := fmt.Sprintf("chat-%d", i)
			created, err := r.UpsertChat(id, time.Now(), tt.participants)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("upsert: %v", err)
			}
			if !created {
				t.Fatal("expected created=true")
			}
			var c models.Chat
			if err := r.db.First(&c, "id = ?", id).Error; err != nil {
				t.Fatalf("load chat: %v", err)
			}
			if c.UserID != tt.wantUser {
				t.Fatalf("primary user = %q, want %q", c.UserID, tt.wantUser)
			}
			switch {
			case tt.wantAgent == nil && c.AgentID != nil:
				t.Fatalf("unexpected agent %q", *c.AgentID)
			case tt.wantAgent != nil && (c.AgentID == nil || *c.AgentID != *tt.wantAgent):
				t.Fatalf("agent = %v, want %q", c.AgentID, *tt.wantAgent)
			}
		})
	}
}

// AppendMessages intentionally mirrors the non-idempotent source behavior:
// re-processing a page duplicates messages for chats that were already
// committed before a mid-page failure. Whether insertion should instead be
// keyed by (chat_id, author_id, sent_at, text) is an open question; this
// test pins the current behavior rather than resolving it.
func TestAppendMessages_NotIdempotent(t *testing.T) {
	r := NewRepository(newTestDB(t))
	if _, err := r.UpsertChat("c1", time.Now(), []string{"u1"}); err != nil {
		t.Fatalf("upsert chat: %v", err)
	}

	msgs := []models.Message{{Text: "hi", AuthorID: strptr("u1")}}
	if err := r.AppendMessages("c1", msgs); err != nil {
		t.Fatalf("first append: %v", err)
	}
	msgs = []models.Message{{Text: "hi", AuthorID: strptr("u1")}}
	if err := r.AppendMessages("c1", msgs); err != nil {
		t.Fatalf("second append: %v", err)
	}

	var count int64
	if err := r.db.Model(&models.Message{}).Where("chat_id = ?", "c1").Count(&count).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected duplicated message rows (2), got %d", count)
	}
}

func TestCountChats(t *testing.T) {
	r := NewRepository(newTestDB(t))
	for i := 0; i < 3; i++ {
		if _, err := r.UpsertChat(fmt.Sprintf("c%d", i), time.Now(), []string{"u1"}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	n, err := r.CountChats()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 chats, got %d", n)
	}
}
