package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"family-assistant/internal/errs"
	"family-assistant/internal/model"
)

const eventOrder = "start_at ASC"

// EventPatch carries the fields an update touches; nil fields stay as they
// are.
type EventPatch struct {
	Title       *string
	Description *string
	StartAt     *time.Time
	EndAt       *time.Time
}

// EventRepository handles CRUD for calendar events.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create stores a new event. Title, start time and at least one ownership
// dimension are mandatory.
func (r *EventRepository) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	if strings.TrimSpace(event.Title) == "" {
		return nil, errs.Validation("event title is required")
	}
	if event.StartAt.IsZero() {
		return nil, errs.Validation("event start time is required")
	}
	if event.Ownership.Empty() {
		return nil, errs.Validation("event must have an owner, a group or assignees")
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id uint) (*model.Event, error) {
	var event model.Event
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("event")
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &event, nil
}

func (r *EventRepository) ListByOwner(ctx context.Context, userID uint, filter Filter) ([]model.Event, error) {
	return r.list(ctx, filter, "owner_id = ?", userID)
}

func (r *EventRepository) ListByGroup(ctx context.Context, groupID uint, filter Filter) ([]model.Event, error) {
	return r.list(ctx, filter, "group_id = ?", groupID)
}

func (r *EventRepository) ListByAssignee(ctx context.Context, userID uint, filter Filter) ([]model.Event, error) {
	events, err := r.list(ctx, filter, "assignees IS NOT NULL AND assignees != '' AND assignees != '[]'")
	if err != nil {
		return nil, err
	}
	matched := events[:0]
	for _, event := range events {
		if event.Assignees.Contains(int64(userID)) {
			matched = append(matched, event)
		}
	}
	return matched, nil
}

func (r *EventRepository) list(ctx context.Context, filter Filter, cond string, args ...interface{}) ([]model.Event, error) {
	db := r.db.WithContext(ctx).Where(cond, args...)
	db = filter.applyDate(db, "start_at")
	var events []model.Event
	if err := db.Order(eventOrder).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Update applies only the non-nil patch fields and returns the updated
// record. An empty patch returns the current record unchanged.
func (r *EventRepository) Update(ctx context.Context, id uint, patch EventPatch) (*model.Event, error) {
	event, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.StartAt != nil {
		updates["start_at"] = *patch.StartAt
	}
	if patch.EndAt != nil {
		updates["end_at"] = *patch.EndAt
	}
	if len(updates) == 0 {
		return event, nil
	}

	if err := r.db.WithContext(ctx).Model(event).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Delete removes an event. It reports whether a record actually existed.
func (r *EventRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.Event{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete event: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListDueBetween returns not-yet-notified events starting inside [from, to].
func (r *EventRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	var events []model.Event
	err := r.db.WithContext(ctx).
		Where("notified_at IS NULL AND start_at >= ? AND start_at <= ?", from, to).
		Order("start_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list due events: %w", err)
	}
	return events, nil
}

// MarkNotified stamps the event so the reminder fires once.
func (r *EventRepository) MarkNotified(ctx context.Context, id uint, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Event{}).Where("id = ?", id).
		Update("notified_at", at).Error; err != nil {
		return fmt.Errorf("mark event notified: %w", err)
	}
	return nil
}
