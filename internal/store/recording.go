package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/webilytics/webinar-sync/internal/store/model"
)

type Recording interface {
	Upsert(ctx context.Context, recording model.Recording) error
	ListByWebinar(ctx context.Context, webinarID int64) ([]model.Recording, error)
	InitialMigration() error
}

type RecordingStore struct {
	db *gorm.DB
}

// Make sure we conform to Recording interface
var _ Recording = (*RecordingStore)(nil)

func NewRecordingStore(db *gorm.DB) Recording {
	return &RecordingStore{db: db}
}

func (s *RecordingStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Recording{})
}

func (s *RecordingStore) Upsert(ctx context.Context, recording model.Recording) error {
	result := s.getDB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"file_type", "recording_type", "file_size", "recording_start",
			"recording_end", "download_url", "last_synced_at", "updated_at",
		}),
	}).Create(&recording)
	if result.Error != nil {
		return fmt.Errorf("upserting recording: %w", result.Error)
	}
	return nil
}

func (s *RecordingStore) ListByWebinar(ctx context.Context, webinarID int64) ([]model.Recording, error) {
	var recordings []model.Recording
	result := s.getDB(ctx).Where("webinar_id = ?", webinarID).Order("recording_start").Find(&recordings)
	if result.Error != nil {
		return nil, result.Error
	}
	return recordings, nil
}

func (s *RecordingStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
