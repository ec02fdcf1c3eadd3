package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/webilytics/webinar-sync/internal/store/model"
)

type MassResync interface {
	Create(ctx context.Context, job model.MassResyncJob) (*model.MassResyncJob, error)
	Get(ctx context.Context, id uuid.UUID) (*model.MassResyncJob, error)
	Update(ctx context.Context, job model.MassResyncJob) (*model.MassResyncJob, error)
	InitialMigration() error
}

type MassResyncStore struct {
	db *gorm.DB
}

// Make sure we conform to MassResync interface
var _ MassResync = (*MassResyncStore)(nil)

func NewMassResyncStore(db *gorm.DB) MassResync {
	return &MassResyncStore{db: db}
}

func (s *MassResyncStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.MassResyncJob{})
}

func (s *MassResyncStore) Create(ctx context.Context, job model.MassResyncJob) (*model.MassResyncJob, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&job); result.Error != nil {
		return nil, fmt.Errorf("creating mass resync job: %w", result.Error)
	}
	return &job, nil
}

func (s *MassResyncStore) Get(ctx context.Context, id uuid.UUID) (*model.MassResyncJob, error) {
	var job model.MassResyncJob
	result := s.getDB(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying mass resync job: %w", result.Error)
	}
	return &job, nil
}

func (s *MassResyncStore) Update(ctx context.Context, job model.MassResyncJob) (*model.MassResyncJob, error) {
	result := s.getDB(ctx).Model(&model.MassResyncJob{}).Where("id = ?", job.ID).Select("*").Omit("created_at").Updates(&job)
	if result.Error != nil {
		return nil, fmt.Errorf("updating mass resync job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return &job, nil
}

func (s *MassResyncStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
