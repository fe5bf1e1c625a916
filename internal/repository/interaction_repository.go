package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"family-assistant/internal/model"
)

// InteractionRepository records processed messages for auditing. Callers
// treat writes as best-effort.
type InteractionRepository struct {
	db *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

func (r *InteractionRepository) Record(ctx context.Context, rec *model.Interaction) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}

// ListRecent returns the latest interactions for a user, newest first.
func (r *InteractionRepository) ListRecent(ctx context.Context, userID uint, limit int) ([]model.Interaction, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []model.Interaction
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	return recs, nil
}
