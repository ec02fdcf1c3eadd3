package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/webilytics/webinar-sync/internal/store/model"
)

type Interaction interface {
	Upsert(ctx context.Context, interaction model.Interaction) error
	ListByWebinar(ctx context.Context, webinarID int64, kind string) ([]model.Interaction, error)
	CountByWebinar(ctx context.Context, webinarID int64) (int64, error)
	InitialMigration() error
}

type InteractionStore struct {
	db *gorm.DB
}

// Make sure we conform to Interaction interface
var _ Interaction = (*InteractionStore)(nil)

func NewInteractionStore(db *gorm.DB) Interaction {
	return &InteractionStore{db: db}
}

func (s *InteractionStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Interaction{})
}

func (s *InteractionStore) Upsert(ctx context.Context, interaction model.Interaction) error {
	result := s.getDB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"answer", "last_synced_at", "updated_at",
		}),
	}).Create(&interaction)
	if result.Error != nil {
		return fmt.Errorf("upserting interaction: %w", result.Error)
	}
	return nil
}

func (s *InteractionStore) ListByWebinar(ctx context.Context, webinarID int64, kind string) ([]model.Interaction, error) {
	tx := s.getDB(ctx).Where("webinar_id = ?", webinarID)
	if kind != "" {
		tx = tx.Where("kind = ?", kind)
	}

	var interactions []model.Interaction
	result := tx.Order("instance_uuid, email").Find(&interactions)
	if result.Error != nil {
		return nil, result.Error
	}
	return interactions, nil
}

func (s *InteractionStore) CountByWebinar(ctx context.Context, webinarID int64) (int64, error) {
	var count int64
	result := s.getDB(ctx).Model(&model.Interaction{}).Where("webinar_id = ?", webinarID).Count(&count)
	return count, result.Error
}

func (s *InteractionStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
