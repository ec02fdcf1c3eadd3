package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webilytics/webinar-sync/internal/store"
	"github.com/webilytics/webinar-sync/internal/store/model"
	"github.com/webilytics/webinar-sync/internal/sync"
)

// queue abstracts the job queue client so the service can be tested without a
// postgres-backed river instance.
type queue interface {
	InsertSyncJob(ctx context.Context, jobID uuid.UUID) (int64, error)
	InsertResyncChunk(ctx context.Context, jobID uuid.UUID, chunkIndex int) (int64, error)
}

type SyncService struct {
	store  store.Store
	engine *sync.Engine
	queue  queue
}

func NewSyncService(store store.Store, engine *sync.Engine, queue queue) *SyncService {
	return &SyncService{
		store:  store,
		engine: engine,
		queue:  queue,
	}
}

// StartSync persists a pending job with its stage plan and hands it to the
// queue. The job id is the external handle for progress polling.
func (s *SyncService) StartSync(ctx context.Context, jobType model.JobType, webinarIDs []int64) (*model.SyncJob, error) {
	switch jobType {
	case model.JobTypeDiscovery, model.JobTypeDetailed, model.JobTypeComprehensive:
	default:
		return nil, NewErrInvalidJobType(string(jobType))
	}

	metadata := model.Metadata{}
	if len(webinarIDs) > 0 {
		metadata["webinarIds"] = webinarIDs
	}

	job, err := s.store.SyncJob().Create(ctx, model.SyncJob{
		JobType:  jobType,
		Status:   model.JobStatusPending,
		Stages:   sync.StagesFor(jobType),
		Metadata: metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sync job: %w", err)
	}

	queueID, err := s.queue.InsertSyncJob(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue sync job %s: %w", job.ID, err)
	}

	job.Metadata["queueJobId"] = queueID
	if updated, err := s.store.SyncJob().Update(ctx, *job); err == nil {
		job = updated
	}

	zap.S().Named("service").Infof("started %s sync job %s (queue id %d)", jobType, job.ID, queueID)
	return job, nil
}

func (s *SyncService) GetJob(ctx context.Context, id uuid.UUID) (*model.SyncJob, error) {
	job, err := s.store.SyncJob().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrSyncJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}

func (s *SyncService) ListJobs(ctx context.Context, status string, jobType model.JobType, limit int) ([]model.SyncJob, error) {
	filter := store.NewSyncJobQueryFilter()
	if status != "" {
		filter = filter.ByStatus(status)
	}
	if jobType != "" {
		filter = filter.ByJobType(jobType)
	}
	if limit > 0 {
		filter = filter.WithLimit(limit)
	}
	return s.store.SyncJob().List(ctx, filter)
}

// CancelJob marks a non-terminal job as failed. The in-flight worker notices
// on its next snapshot publish at the latest; stages that already completed
// stay completed.
func (s *SyncService) CancelJob(ctx context.Context, id uuid.UUID) (*model.SyncJob, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Finished() {
		return nil, NewErrJobFinished(id, job.Status)
	}

	now := time.Now().UTC()
	msg := "cancelled by user"
	job.Status = model.JobStatusFailed
	job.ErrorMessage = &msg
	job.CompletedAt = &now

	return s.store.SyncJob().Update(ctx, *job)
}

// StartMassResync freezes the item list into a chunked job and enqueues its
// first chunk. The chunk worker chains the rest.
func (s *SyncService) StartMassResync(ctx context.Context, webinarIDs []int64) (*model.MassResyncJob, error) {
	job, err := s.engine.StartMassResync(ctx, webinarIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create mass resync job: %w", err)
	}

	if job.TotalItems > 0 {
		if _, err := s.queue.InsertResyncChunk(ctx, job.ID, 0); err != nil {
			return nil, fmt.Errorf("failed to enqueue first chunk of job %s: %w", job.ID, err)
		}
	}

	zap.S().Named("service").Infof("started mass resync %s: %d items in %d chunks", job.ID, job.TotalItems, job.TotalChunks)
	return job, nil
}

func (s *SyncService) GetMassResync(ctx context.Context, id uuid.UUID) (*model.MassResyncJob, error) {
	job, err := s.store.MassResync().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrMassResyncJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}

// RunResyncChunk executes one chunk synchronously. Exposed for callers that
// drive the resync step by step instead of through the queue.
func (s *SyncService) RunResyncChunk(ctx context.Context, id uuid.UUID, chunkIndex int) (*sync.ChunkResult, error) {
	job, err := s.GetMassResync(ctx, id)
	if err != nil {
		return nil, err
	}
	if chunkIndex < 0 || chunkIndex >= job.TotalChunks {
		return nil, NewErrInvalidChunkIndex(chunkIndex, job.TotalChunks)
	}
	return s.engine.RunChunk(ctx, id, chunkIndex)
}
