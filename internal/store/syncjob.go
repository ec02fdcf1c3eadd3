package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/webilytics/webinar-sync/internal/store/model"
)

type SyncJob interface {
	Create(ctx context.Context, job model.SyncJob) (*model.SyncJob, error)
	Get(ctx context.Context, id uuid.UUID) (*model.SyncJob, error)
	List(ctx context.Context, filter *SyncJobQueryFilter) ([]model.SyncJob, error)
	Update(ctx context.Context, job model.SyncJob) (*model.SyncJob, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	InitialMigration() error
}

type SyncJobQueryFilter struct {
	status  string
	jobType model.JobType
	limit   int
}

func NewSyncJobQueryFilter() *SyncJobQueryFilter {
	return &SyncJobQueryFilter{}
}

func (f *SyncJobQueryFilter) ByStatus(status string) *SyncJobQueryFilter {
	f.status = status
	return f
}

func (f *SyncJobQueryFilter) ByJobType(jobType model.JobType) *SyncJobQueryFilter {
	f.jobType = jobType
	return f
}

func (f *SyncJobQueryFilter) WithLimit(limit int) *SyncJobQueryFilter {
	f.limit = limit
	return f
}

type SyncJobStore struct {
	db *gorm.DB
}

// Make sure we conform to SyncJob interface
var _ SyncJob = (*SyncJobStore)(nil)

func NewSyncJobStore(db *gorm.DB) SyncJob {
	return &SyncJobStore{db: db}
}

func (s *SyncJobStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.SyncJob{})
}

func (s *SyncJobStore) Create(ctx context.Context, job model.SyncJob) (*model.SyncJob, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&job); result.Error != nil {
		return nil, fmt.Errorf("creating sync job: %w", result.Error)
	}
	return &job, nil
}

func (s *SyncJobStore) Get(ctx context.Context, id uuid.UUID) (*model.SyncJob, error) {
	var job model.SyncJob
	result := s.getDB(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying sync job: %w", result.Error)
	}
	return &job, nil
}

func (s *SyncJobStore) List(ctx context.Context, filter *SyncJobQueryFilter) ([]model.SyncJob, error) {
	tx := s.getDB(ctx).Model(&model.SyncJob{}).Order("created_at DESC")
	if filter != nil {
		if filter.status != "" {
			tx = tx.Where("status = ?", filter.status)
		}
		if filter.jobType != "" {
			tx = tx.Where("job_type = ?", filter.jobType)
		}
		if filter.limit > 0 {
			tx = tx.Limit(filter.limit)
		}
	}

	var jobs []model.SyncJob
	if result := tx.Find(&jobs); result.Error != nil {
		return nil, result.Error
	}
	return jobs, nil
}

// Update persists the full job row as one atomic snapshot, bumping its
// version so pollers can tell transitions apart.
func (s *SyncJobStore) Update(ctx context.Context, job model.SyncJob) (*model.SyncJob, error) {
	job.Version++
	result := s.getDB(ctx).Model(&model.SyncJob{}).Where("id = ?", job.ID).Select("*").Omit("created_at").Updates(&job)
	if result.Error != nil {
		return nil, fmt.Errorf("updating sync job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return &job, nil
}

func (s *SyncJobStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string
		Total  int
	}
	result := s.getDB(ctx).Model(&model.SyncJob{}).
		Select("status, count(*) as total").
		Group("status").
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

func (s *SyncJobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
