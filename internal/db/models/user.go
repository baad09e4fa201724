package models

import "time"

// User is a chat participant as reported by the remote API. Name and email
// may be unknown; once set they are treated as authoritative and never
// overwritten by later sightings.
type User struct {
	ID        string  `gorm:"primaryKey"` // remote-assigned
	Name      *string `gorm:"type:text"`
	Email     *string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
