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

// taskOrder is the default listing order: deadline ascending with
// deadline-less tasks last, then priority high to low, then newest first.
const taskOrder = "deadline IS NULL ASC, deadline ASC, " +
	"CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END ASC, " +
	"created_at DESC"

// TaskPatch carries the fields an update touches; nil fields stay as they
// are.
type TaskPatch struct {
	Description *string
	Priority    *string
	Deadline    *time.Time
}

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create stores a new task. The description and at least one ownership
// dimension are mandatory.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	if strings.TrimSpace(task.Description) == "" {
		return nil, errs.Validation("task description is required")
	}
	if task.Ownership.Empty() {
		return nil, errs.Validation("task must have an owner, a group or assignees")
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("task")
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) ListByOwner(ctx context.Context, userID uint, filter Filter) ([]model.Task, error) {
	return r.list(ctx, filter, "owner_id = ?", userID)
}

func (r *TaskRepository) ListByGroup(ctx context.Context, groupID uint, filter Filter) ([]model.Task, error) {
	return r.list(ctx, filter, "group_id = ?", groupID)
}

// ListByAssignee returns tasks whose assignee list contains the user.
// Assignee lists are JSON text, so candidates are narrowed in SQL and
// matched exactly in memory.
func (r *TaskRepository) ListByAssignee(ctx context.Context, userID uint, filter Filter) ([]model.Task, error) {
	tasks, err := r.list(ctx, filter, "assignees IS NOT NULL AND assignees != '' AND assignees != '[]'")
	if err != nil {
		return nil, err
	}
	matched := tasks[:0]
	for _, task := range tasks {
		if task.Assignees.Contains(int64(userID)) {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

func (r *TaskRepository) list(ctx context.Context, filter Filter, cond string, args ...interface{}) ([]model.Task, error) {
	db := r.db.WithContext(ctx).Where(cond, args...)
	if !filter.IncludeDone {
		db = db.Where("done = ?", false)
	}
	db = filter.applyDate(db, "deadline")
	var tasks []model.Task
	if err := db.Order(taskOrder).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Update applies only the non-nil patch fields and returns the updated
// record. An empty patch returns the current record unchanged.
func (r *TaskRepository) Update(ctx context.Context, id uint, patch TaskPatch) (*model.Task, error) {
	task, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Priority != nil {
		updates["priority"] = *patch.Priority
	}
	if patch.Deadline != nil {
		updates["deadline"] = *patch.Deadline
	}
	if len(updates) == 0 {
		return task, nil
	}

	if err := r.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a task. It reports whether a record actually existed.
func (r *TaskRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.Task{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete task: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkDone flags the task completed and records who completed it.
func (r *TaskRepository) MarkDone(ctx context.Context, id, actorID uint) (*model.Task, error) {
	task, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"done": true, "done_by": actorID}
	if err := r.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("mark task done: %w", err)
	}
	return r.GetByID(ctx, id)
}

// ListDueBetween returns open, not-yet-notified tasks whose deadline falls
// inside [from, to].
func (r *TaskRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("done = ? AND notified_at IS NULL AND deadline >= ? AND deadline <= ?", false, from, to).
		Order("deadline ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	return tasks, nil
}

// MarkNotified stamps the task so the reminder fires once.
func (r *TaskRepository) MarkNotified(ctx context.Context, id uint, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).
		Update("notified_at", at).Error; err != nil {
		return fmt.Errorf("mark task notified: %w", err)
	}
	return nil
}
