package model

import "time"

// ShoppingItem is a shopping-list entry.
type ShoppingItem struct {
	ID          uint `gorm:"primaryKey"`
	Ownership   `gorm:"embedded"`
	Name        string
	Category    string `gorm:"index"`
	Quantity    string // free text, e.g. "2kg"
	Purchased   bool   `gorm:"default:false"`
	PurchasedBy *uint
	CreatedBy   uint `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
