package models

import "time"

// Checkpoint records ingestion progress after a fully persisted page.
// Rows are append-only and the newest row wins. A nil Cursor on the latest
// row means the next run starts from the first page; a nil Cursor written
// after a run means the archive was exhausted.
type Checkpoint struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"`
	Cursor       *string `gorm:"type:text"`
	LastRecordID *string `gorm:"type:text"`
	CreatedAt    time.Time
}
