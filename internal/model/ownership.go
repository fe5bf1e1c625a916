package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Int64List is a JSON-encoded list of user ids stored in a TEXT column.
// It must round-trip exactly: the list read back is identical to the one
// written, including order.
type Int64List []int64

// Value implements driver.Valuer.
func (l Int64List) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal([]int64(l))
	if err != nil {
		return nil, fmt.Errorf("encode id list: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *Int64List) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("decode id list: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("decode id list: %w", err)
	}
	*l = ids
	return nil
}

// Contains reports whether id is in the list.
func (l Int64List) Contains(id int64) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Ownership is the stored combination of owner-user, owner-group or
// assignee-set carried by every record. At least one dimension must be
// non-empty.
type Ownership struct {
	OwnerID   *uint     `gorm:"index"`
	GroupID   *uint     `gorm:"index"`
	Assignees Int64List `gorm:"type:text"`
}

// Empty reports whether no ownership dimension is set.
func (o Ownership) Empty() bool {
	return o.OwnerID == nil && o.GroupID == nil && len(o.Assignees) == 0
}
