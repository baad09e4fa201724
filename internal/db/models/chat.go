package models

import "time"

// Chat is one archived conversation. Created at most once: re-encountering
// the same id on a later page never changes the stored row.
type Chat struct {
	ID        string    `gorm:"primaryKey"` // remote-assigned
	CreatedAt time.Time // conversation thread creation time, not row insert time
	UserID    string    `gorm:"index"` // primary participant
	AgentID   *string   `gorm:"type:text"` // second participant, absent for solo chats
	Messages  []Message `gorm:"foreignKey:ChatID"`
}
