package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"family-assistant/internal/model"
)

// GroupRepository manages groups and their memberships.
type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// UpsertFromChat finds or creates a group for a Telegram group chat and
// keeps its title current.
func (r *GroupRepository) UpsertFromChat(ctx context.Context, chatID int64, title string) (*model.Group, error) {
	var group model.Group
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_chat_id = ?", chatID).First(&group).Error
	switch {
	case err == nil:
		if title != "" && title != group.Title {
			if err := db.Model(&group).Update("title", title).Error; err != nil {
				return nil, fmt.Errorf("update group: %w", err)
			}
		}
		return &group, nil
	case err == gorm.ErrRecordNotFound:
		group = model.Group{TelegramChatID: chatID, Title: title}
		if err := db.Create(&group).Error; err != nil {
			return nil, fmt.Errorf("create group: %w", err)
		}
		return &group, nil
	default:
		return nil, fmt.Errorf("find group: %w", err)
	}
}

func (r *GroupRepository) FindByID(ctx context.Context, id uint) (*model.Group, error) {
	var group model.Group
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// EnsureMember inserts a membership row if it does not exist yet. Joining
// twice is a no-op.
func (r *GroupRepository) EnsureMember(ctx context.Context, groupID, userID uint) error {
	var member model.GroupMember
	db := r.db.WithContext(ctx)
	err := db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	switch {
	case err == nil:
		return nil
	case err == gorm.ErrRecordNotFound:
		member = model.GroupMember{GroupID: groupID, UserID: userID}
		if err := db.Create(&member).Error; err != nil {
			return fmt.Errorf("create membership: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("find membership: %w", err)
	}
}

// RemoveMember deletes a membership row if present.
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID uint) error {
	if err := r.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&model.GroupMember{}).Error; err != nil {
		return fmt.Errorf("remove membership: %w", err)
	}
	return nil
}

// ListMembers returns the users belonging to a group.
func (r *GroupRepository) ListMembers(ctx context.Context, groupID uint) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN group_members ON group_members.user_id = users.id").
		Where("group_members.group_id = ?", groupID).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return users, nil
}

// ListForUser returns the groups a user belongs to.
func (r *GroupRepository) ListForUser(ctx context.Context, userID uint) ([]model.Group, error) {
	var groups []model.Group
	err := r.db.WithContext(ctx).
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// IsMember reports whether the user belongs to the group.
func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count membership: %w", err)
	}
	return count > 0, nil
}
