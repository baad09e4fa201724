// Package store wraps the GORM database behind the repositories the
// ingestion engine works with.
package store

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatvault/chatvault/internal/db/models"
)

// TokenStore persists OAuth tokens as an append-only history. The newest row
// is the current token; rows are never updated in place.
type TokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

// Latest returns the most recently appended token, or nil when no token has
// been persisted yet.
func (s *TokenStore) Latest() (*models.Token, error) {
	var tok models.Token
	err := s.db.Order("created_at DESC, id DESC").First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// Append inserts a new token row, assigning an ID when the caller left it
// empty.
func (s *TokenStore) Append(tok *models.Token) error {
	if tok.ID == "" {
		tok.ID = uuid.New().String()
	}
	return s.db.Create(tok).Error
}
