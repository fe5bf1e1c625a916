package model

import "time"

// Interaction is a best-effort audit row for one processed message.
// Writing it must never affect the primary operation.
type Interaction struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"index"`
	ChatID    int64
	Message   string
	Action    string
	Operation string
	Outcome   string // "ok" or the error category
	CreatedAt time.Time
}
