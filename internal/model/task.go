package model

import "time"

// Task priorities, ordered low to high.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// PriorityRank maps a priority to its sort weight; higher sorts first.
func PriorityRank(priority string) int {
	switch priority {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Task is a to-do item owned by a user, a group, or a set of assignees.
type Task struct {
	ID          uint `gorm:"primaryKey"`
	Ownership   `gorm:"embedded"`
	Description string
	Priority    string `gorm:"default:medium"`
	Deadline    *time.Time
	Done        bool `gorm:"default:false"`
	DoneBy      *uint
	NotifiedAt  *time.Time
	CreatedBy   uint `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
