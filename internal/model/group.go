package model

import "time"

// Group mirrors a Telegram group chat the bot participates in.
type Group struct {
	ID             uint  `gorm:"primaryKey"`
	TelegramChatID int64 `gorm:"uniqueIndex"`
	Title          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// GroupMember links a user to a group. Rows are only inserted or removed,
// never updated; a user joins a group at most once.
type GroupMember struct {
	ID        uint `gorm:"primaryKey"`
	GroupID   uint `gorm:"index:idx_group_member,unique"`
	UserID    uint `gorm:"index:idx_group_member,unique"`
	CreatedAt time.Time
}
