package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/chatvault/chatvault/internal/db/models"
)

// Repository performs idempotent upserts of users and chats and appends
// messages. It is the only component that writes domain records.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertUser creates the user if absent. First-seen name/email values are
// authoritative: a later sighting fills a column that is still NULL but
// never replaces one that is set.
func (r *Repository) UpsertUser(id string, name, email *string) error {
	var existing models.User
	err := r.db.First(&existing, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(&models.User{ID: id, Name: name, Email: email}).Error
	}
	if err != nil {
		return err
	}

	updates := map[string]any{}
	if existing.Name == nil && name != nil {
		updates["name"] = *name
	}
	if existing.Email == nil && email != nil {
		updates["email"] = *email
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error
}

// UpsertChat creates the chat once, with the first two distinct participants
// as (primary user, agent). Re-encountering a known id is a no-op returning
// created=false; the stored row never changes after creation.
func (r *Repository) UpsertChat(id string, createdAt time.Time, participantIDs []string) (bool, error) {
	var existing models.Chat
	err := r.db.First(&existing, "id = ?", id).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	distinct := dedupe(participantIDs)
	if len(distinct) == 0 {
		return false, fmt.Errorf("chat %s has no participants", id)
	}

	chat := models.Chat{
		ID:        id,
		CreatedAt: createdAt,
		UserID:    distinct[0],
	}
	if len(distinct) > 1 {
		chat.AgentID = &distinct[1]
	}
	if err := r.db.Create(&chat).Error; err != nil {
		return false, err
	}
	return true, nil
}

// AppendMessages unconditionally inserts one row per message. It is not
// idempotent: re-processing a page appends the same messages again.
func (r *Repository) AppendMessages(chatID string, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	for i := range msgs {
		msgs[i].ID = 0
		msgs[i].ChatID = chatID
	}
	return r.db.Create(&msgs).Error
}

// CountChats reports how many chats are stored, for run summaries.
func (r *Repository) CountChats() (int64, error) {
	var n int64
	err := r.db.Model(&models.Chat{}).Count(&n).Error
	return n, err
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
