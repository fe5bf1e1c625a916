package model

import (
	"fmt"
	"time"
)

// User stores Telegram user metadata plus per-user settings.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	CustomName string // set via /name, wins over Telegram profile data
	Timezone   string // IANA name, presentation and parsing only
	Lang       string // "en" or "he"
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName resolves the name shown in messages: custom name, then
// Telegram first name, then handle, then a placeholder from the numeric id.
func (u User) DisplayName() string {
	if u.CustomName != "" {
		return u.CustomName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("user%d", u.TelegramID)
}

// Location returns the user's timezone, falling back to UTC when the
// stored name is empty or invalid.
func (u User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
