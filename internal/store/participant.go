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

type Participant interface {
	GetCurrent(ctx context.Context, webinarID int64, key string) (*model.Participant, error)
	ListCurrentByWebinar(ctx context.Context, webinarID int64) ([]model.Participant, error)
	ListVersions(ctx context.Context, webinarID int64, key string) ([]model.Participant, error)
	ListDerivedKeys(ctx context.Context, webinarID int64) ([]model.Participant, error)
	Create(ctx context.Context, participant model.Participant) (*model.Participant, error)
	CreateBatch(ctx context.Context, participants []model.Participant) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	Historize(ctx context.Context, webinarID int64, key string) error
	MarkUnavailableBefore(ctx context.Context, webinarID int64, cutoff time.Time) (int64, error)
	CountCurrent(ctx context.Context, webinarID int64) (int64, error)
	AverageCurrentDuration(ctx context.Context, webinarID int64) (float64, error)
	InitialMigration() error
}

type ParticipantStore struct {
	db *gorm.DB
}

// Make sure we conform to Participant interface
var _ Participant = (*ParticipantStore)(nil)

func NewParticipantStore(db *gorm.DB) Participant {
	return &ParticipantStore{db: db}
}

func (s *ParticipantStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Participant{})
}

// GetCurrent returns the single non-historical row for the natural key.
func (s *ParticipantStore) GetCurrent(ctx context.Context, webinarID int64, key string) (*model.Participant, error) {
	var participant model.Participant
	result := s.getDB(ctx).
		Where("webinar_id = ? AND participant_key = ? AND is_historical = ?", webinarID, key, false).
		First(&participant)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &participant, nil
}

func (s *ParticipantStore) ListCurrentByWebinar(ctx context.Context, webinarID int64) ([]model.Participant, error) {
	var participants []model.Participant
	result := s.getDB(ctx).
		Where("webinar_id = ? AND is_historical = ?", webinarID, false).
		Order("participant_key").
		Find(&participants)
	if result.Error != nil {
		return nil, result.Error
	}
	return participants, nil
}

// ListVersions returns every observed version for the key, oldest first.
func (s *ParticipantStore) ListVersions(ctx context.Context, webinarID int64, key string) ([]model.Participant, error) {
	var participants []model.Participant
	result := s.getDB(ctx).
		Where("webinar_id = ? AND participant_key = ?", webinarID, key).
		Order("created_at").
		Find(&participants)
	if result.Error != nil {
		return nil, result.Error
	}
	return participants, nil
}

// ListDerivedKeys returns current rows whose identity was derived rather than
// stable. Feeds the reconciliation report.
func (s *ParticipantStore) ListDerivedKeys(ctx context.Context, webinarID int64) ([]model.Participant, error) {
	var participants []model.Participant
	result := s.getDB(ctx).
		Where("webinar_id = ? AND is_historical = ? AND key_confidence = ?", webinarID, false, model.KeyConfidenceDerived).
		Find(&participants)
	if result.Error != nil {
		return nil, result.Error
	}
	return participants, nil
}

func (s *ParticipantStore) Create(ctx context.Context, participant model.Participant) (*model.Participant, error) {
	if participant.ID == uuid.Nil {
		participant.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&participant); result.Error != nil {
		return nil, fmt.Errorf("creating participant snapshot: %w", result.Error)
	}
	return &participant, nil
}

func (s *ParticipantStore) CreateBatch(ctx context.Context, participants []model.Participant) error {
	if len(participants) == 0 {
		return nil
	}
	for i := range participants {
		if participants[i].ID == uuid.Nil {
			participants[i].ID = uuid.New()
		}
	}
	return s.getDB(ctx).Create(&participants).Error
}

// Touch refreshes the sync timestamp of an unchanged row and re-marks it
// available.
func (s *ParticipantStore) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := s.getDB(ctx).Model(&model.Participant{}).Where("id = ?", id).Updates(map[string]any{
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

// Historize retires every row for the key; the caller inserts the new current
// version afterwards.
func (s *ParticipantStore) Historize(ctx context.Context, webinarID int64, key string) error {
	return s.getDB(ctx).Model(&model.Participant{}).
		Where("webinar_id = ? AND participant_key = ?", webinarID, key).
		Updates(map[string]any{
			"is_historical":  true,
			"data_available": false,
		}).Error
}

// MarkUnavailableBefore flags current rows not seen since the cutoff as no
// longer returned by the platform. Rows are retained, never deleted.
func (s *ParticipantStore) MarkUnavailableBefore(ctx context.Context, webinarID int64, cutoff time.Time) (int64, error) {
	result := s.getDB(ctx).Model(&model.Participant{}).
		Where("webinar_id = ? AND is_historical = ? AND data_available = ? AND last_synced_at < ?",
			webinarID, false, true, cutoff).
		Update("data_available", false)
	return result.RowsAffected, result.Error
}

func (s *ParticipantStore) CountCurrent(ctx context.Context, webinarID int64) (int64, error) {
	var count int64
	result := s.getDB(ctx).Model(&model.Participant{}).
		Where("webinar_id = ? AND is_historical = ?", webinarID, false).
		Count(&count)
	return count, result.Error
}

func (s *ParticipantStore) AverageCurrentDuration(ctx context.Context, webinarID int64) (float64, error) {
	var avg *float64
	result := s.getDB(ctx).Model(&model.Participant{}).
		Where("webinar_id = ? AND is_historical = ?", webinarID, false).
		Select("AVG(duration_seconds)").
		Scan(&avg)
	if result.Error != nil {
		return 0, result.Error
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

func (s *ParticipantStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
