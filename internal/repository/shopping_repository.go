package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"family-assistant/internal/errs"
	"family-assistant/internal/model"
)

// shoppingOrder groups by category, newest items first inside each.
const shoppingOrder = "category ASC, created_at DESC"

// ShoppingPatch carries the fields an update touches; nil fields stay as
// they are.
type ShoppingPatch struct {
	Name     *string
	Category *string
	Quantity *string
}

// ShoppingRepository handles CRUD for shopping items.
type ShoppingRepository struct {
	db *gorm.DB
}

func NewShoppingRepository(db *gorm.DB) *ShoppingRepository {
	return &ShoppingRepository{db: db}
}

// Create stores a new shopping item. The name and at least one ownership
// dimension are mandatory.
func (r *ShoppingRepository) Create(ctx context.Context, item *model.ShoppingItem) (*model.ShoppingItem, error) {
	if strings.TrimSpace(item.Name) == "" {
		return nil, errs.Validation("item name is required")
	}
	if item.Ownership.Empty() {
		return nil, errs.Validation("item must have an owner, a group or assignees")
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

func (r *ShoppingRepository) GetByID(ctx context.Context, id uint) (*model.ShoppingItem, error) {
	var item model.ShoppingItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("item")
		}
		return nil, fmt.Errorf("find item: %w", err)
	}
	return &item, nil
}

func (r *ShoppingRepository) ListByOwner(ctx context.Context, userID uint, filter Filter) ([]model.ShoppingItem, error) {
	return r.list(ctx, filter, "owner_id = ?", userID)
}

func (r *ShoppingRepository) ListByGroup(ctx context.Context, groupID uint, filter Filter) ([]model.ShoppingItem, error) {
	return r.list(ctx, filter, "group_id = ?", groupID)
}

func (r *ShoppingRepository) ListByAssignee(ctx context.Context, userID uint, filter Filter) ([]model.ShoppingItem, error) {
	items, err := r.list(ctx, filter, "assignees IS NOT NULL AND assignees != '' AND assignees != '[]'")
	if err != nil {
		return nil, err
	}
	matched := items[:0]
	for _, item := range items {
		if item.Assignees.Contains(int64(userID)) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func (r *ShoppingRepository) list(ctx context.Context, filter Filter, cond string, args ...interface{}) ([]model.ShoppingItem, error) {
	db := r.db.WithContext(ctx).Where(cond, args...)
	if !filter.IncludeDone {
		db = db.Where("purchased = ?", false)
	}
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}
	db = filter.applyDate(db, "created_at")
	var items []model.ShoppingItem
	if err := db.Order(shoppingOrder).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// Update applies only the non-nil patch fields and returns the updated
// record. An empty patch returns the current record unchanged.
func (r *ShoppingRepository) Update(ctx context.Context, id uint, patch ShoppingPatch) (*model.ShoppingItem, error) {
	item, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Category != nil {
		updates["category"] = *patch.Category
	}
	if patch.Quantity != nil {
		updates["quantity"] = *patch.Quantity
	}
	if len(updates) == 0 {
		return item, nil
	}

	if err := r.db.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Delete removes an item. It reports whether a record actually existed.
func (r *ShoppingRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.ShoppingItem{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete item: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkPurchased flags the item bought and records who bought it.
func (r *ShoppingRepository) MarkPurchased(ctx context.Context, id, actorID uint) (*model.ShoppingItem, error) {
	item, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"purchased": true, "purchased_by": actorID}
	if err := r.db.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("mark item purchased: %w", err)
	}
	return r.GetByID(ctx, id)
}
