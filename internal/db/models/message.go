package models

import "time"

// Message is one "message" thread event under a Chat. Messages carry no
// remote id and no uniqueness constraint.
type Message struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ChatID    string `gorm:"index;not null"`
	AuthorID  *string
	Text      string     `gorm:"type:text"`
	SentAt    *time.Time // event timestamp from the remote thread
	CreatedAt time.Time
}
