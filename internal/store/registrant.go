package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/webilytics/webinar-sync/internal/store/model"
)

type Registrant interface {
	GetCurrent(ctx context.Context, webinarID int64, email string) (*model.Registrant, error)
	ListCurrentByWebinar(ctx context.Context, webinarID int64) ([]model.Registrant, error)
	Create(ctx context.Context, registrant model.Registrant) (*model.Registrant, error)
	CreateBatch(ctx context.Context, registrants []model.Registrant) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	Historize(ctx context.Context, webinarID int64, email string) error
	MarkUnavailableBefore(ctx context.Context, webinarID int64, cutoff time.Time) (int64, error)
	CountCurrent(ctx context.Context, webinarID int64) (int64, error)
	InitialMigration() error
}

type RegistrantStore struct {
	db *gorm.DB
}

// Make sure we conform to Registrant interface
var _ Registrant = (*RegistrantStore)(nil)

func NewRegistrantStore(db *gorm.DB) Registrant {
	return &RegistrantStore{db: db}
}

func (s *RegistrantStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Registrant{})
}

func (s *RegistrantStore) GetCurrent(ctx context.Context, webinarID int64, email string) (*model.Registrant, error) {
	var registrant model.Registrant
	result := s.getDB(ctx).
		Where("webinar_id = ? AND email = ? AND is_historical = ?", webinarID, email, false).
		First(&registrant)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &registrant, nil
}

func (s *RegistrantStore) ListCurrentByWebinar(ctx context.Context, webinarID int64) ([]model.Registrant, error) {
	var registrants []model.Registrant
	result := s.getDB(ctx).
		Where("webinar_id = ? AND is_historical = ?", webinarID, false).
		Order("email").
		Find(&registrants)
	if result.Error != nil {
		return nil, result.Error
	}
	return registrants, nil
}

func (s *RegistrantStore) Create(ctx context.Context, registrant model.Registrant) (*model.Registrant, error) {
	if registrant.ID == uuid.Nil {
		registrant.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&registrant); result.Error != nil {
		return nil, fmt.Errorf("creating registrant snapshot: %w", result.Error)
	}
	return &registrant, nil
}

func (s *RegistrantStore) CreateBatch(ctx context.Context, registrants []model.Registrant) error {
	if len(registrants) == 0 {
		return nil
	}
	for i := range registrants {
		if registrants[i].ID == uuid.Nil {
			registrants[i].ID = uuid.New()
		}
	}
	return s.getDB(ctx).Create(&registrants).Error
}

func (s *RegistrantStore) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := s.getDB(ctx).Model(&model.Registrant{}).Where("id = ?", id).Updates(map[string]any{
		"last_synced_at": at,
		"data_available": true,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *RegistrantStore) Historize(ctx context.Context, webinarID int64, email string) error {
	return s.getDB(ctx).Model(&model.Registrant{}).
		Where("webinar_id = ? AND email = ?", webinarID, email).
		Updates(map[string]any{
			"is_historical":  true,
			"data_available": false,
		}).Error
}

func (s *RegistrantStore) MarkUnavailableBefore(ctx context.Context, webinarID int64, cutoff time.Time) (int64, error) {
	result := s.getDB(ctx).Model(&model.Registrant{}).
		Where("webinar_id = ? AND is_historical = ? AND data_available = ? AND last_synced_at < ?",
			webinarID, false, true, cutoff).
		Update("data_available", false)
	return result.RowsAffected, result.Error
}

func (s *RegistrantStore) CountCurrent(ctx context.Context, webinarID int64) (int64, error) {
	var count int64
	result := s.getDB(ctx).Model(&model.Registrant{}).
		Where("webinar_id = ? AND is_historical = ?", webinarID, false).
		Count(&count)
	return count, result.Error
}

func (s *RegistrantStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
