package model

import "time"

// Event is a calendar entry with a mandatory start and optional end.
type Event struct {
	ID          uint `gorm:"primaryKey"`
	Ownership   `gorm:"embedded"`
	Title       string
	Description string
	StartAt     time.Time `gorm:"index"`
	EndAt       *time.Time
	NotifiedAt  *time.Time
	CreatedBy   uint `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
