package models

import "time"

// Token stores one OAuth access/refresh token pair.
// Rows are append-only: a refresh inserts a new row rather than updating the
// old one, so the token history doubles as an audit trail. The newest row is
// the current token.
type Token struct {
	ID           string `gorm:"primaryKey"` // UUID
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // issue time + expires_in, never mutated
	CreatedAt    time.Time
}
