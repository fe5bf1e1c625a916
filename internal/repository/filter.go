package repository

import (
	"time"

	"gorm.io/gorm"
)

// Filter narrows list queries. Zero value means "open items only, any date".
// All set fields combine with logical AND.
type Filter struct {
	IncludeDone bool // completed tasks / purchased items
	OnDate      *time.Time
	From        *time.Time
	To          *time.Time
	Category    string // shopping only
	Loc         *time.Location
}

func (f Filter) location() *time.Location {
	if f.Loc != nil {
		return f.Loc
	}
	return time.UTC
}

// applyDate constrains the given timestamp column to the filter's single
// date and/or range. The single date expands to a whole day in the
// filter's location.
func (f Filter) applyDate(db *gorm.DB, column string) *gorm.DB {
	if f.OnDate != nil {
		day := f.OnDate.In(f.location())
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, f.location())
		end := start.AddDate(0, 0, 1)
		db = db.Where(column+" >= ? AND "+column+" < ?", start, end)
	}
	if f.From != nil {
		db = db.Where(column+" >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where(column+" <= ?", *f.To)
	}
	return db
}
