package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/webilytics/webinar-sync/internal/store/model"
)

type Webinar interface {
	Upsert(ctx context.Context, webinar model.Webinar) (*model.Webinar, error)
	Get(ctx context.Context, id int64) (*model.Webinar, error)
	List(ctx context.Context) (model.WebinarList, error)
	ListIDs(ctx context.Context) ([]int64, error)
	UpdateAggregates(ctx context.Context, id int64, attendees, registrants int, avgMinutes, engagement float64) error
	TouchSynced(ctx context.Context, id int64, at time.Time) error
	InitialMigration() error
}

type WebinarStore struct {
	db *gorm.DB
}

// Make sure we conform to Webinar interface
var _ Webinar = (*WebinarStore)(nil)

func NewWebinarStore(db *gorm.DB) Webinar {
	return &WebinarStore{db: db}
}

func (s *WebinarStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Webinar{})
}

// Upsert inserts the webinar or refreshes its descriptive fields on conflict.
// Aggregate counts are never overwritten here; the analytics stage owns them.
func (s *WebinarStore) Upsert(ctx context.Context, webinar model.Webinar) (*model.Webinar, error) {
	result := s.getDB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"uuid", "topic", "host_id", "host_email", "start_time",
			"duration", "timezone", "agenda", "updated_at",
		}),
	}).Create(&webinar)
	if result.Error != nil {
		return nil, fmt.Errorf("upserting webinar: %w", result.Error)
	}
	return &webinar, nil
}

func (s *WebinarStore) Get(ctx context.Context, id int64) (*model.Webinar, error) {
	var webinar model.Webinar
	result := s.getDB(ctx).First(&webinar, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &webinar, nil
}

func (s *WebinarStore) List(ctx context.Context) (model.WebinarList, error) {
	var webinars model.WebinarList
	result := s.getDB(ctx).Order("start_time DESC").Find(&webinars)
	if result.Error != nil {
		return nil, result.Error
	}
	return webinars, nil
}

func (s *WebinarStore) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	result := s.getDB(ctx).Model(&model.Webinar{}).Order("id").Pluck("id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}

func (s *WebinarStore) UpdateAggregates(ctx context.Context, id int64, attendees, registrants int, avgMinutes, engagement float64) error {
	result := s.getDB(ctx).Model(&model.Webinar{}).Where("id = ?", id).Updates(map[string]any{
		"attendee_count":        attendees,
		"registrant_count":      registrants,
		"avg_attendance_minute": avgMinutes,
		"engagement_score":      engagement,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *WebinarStore) TouchSynced(ctx context.Context, id int64, at time.Time) error {
	return s.getDB(ctx).Model(&model.Webinar{}).Where("id = ?", id).Update("last_synced_at", at).Error
}

func (s *WebinarStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
