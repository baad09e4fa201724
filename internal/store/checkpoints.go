package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/chatvault/chatvault/internal/db/models"
)

// CheckpointStore persists pagination progress as append-only rows; the
// newest row is the resume point for the next run.
type CheckpointStore struct {
	db *gorm.DB
}

func NewCheckpointStore(db *gorm.DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Latest returns the most recent checkpoint, or nil when ingestion has never
// completed a page.
func (s *CheckpointStore) Latest() (*models.Checkpoint, error) {
	var cp models.Checkpoint
	err := s.db.Order("id DESC").First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// Advance records a new checkpoint. Callers must only invoke this after
// every record of the corresponding page has been committed.
func (s *CheckpointStore) Advance(cursor, lastRecordID *string) error {
	return s.db.Create(&models.Checkpoint{
		Cursor:       cursor,
		LastRecordID: lastRecordID,
	}).Error
}
