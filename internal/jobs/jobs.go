package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/webilytics/webinar-sync/internal/sync"
)

const (
	SyncJobTimeout  = 2 * time.Hour
	ChunkJobTimeout = 10 * time.Minute

	SyncJobKind     = "webinar_sync"
	ResyncChunkKind = "resync_chunk"
)

// SyncArgs references a persisted sync job by id. The job row, not the queue
// payload, is the source of truth for stages and progress.
type SyncArgs struct {
	JobID uuid.UUID `json:"job_id"`
}

func (SyncArgs) Kind() string {
	return SyncJobKind
}

func (SyncArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       DefaultQueue,
		MaxAttempts: MaxJobRetries,
	}
}

type SyncWorker struct {
	river.WorkerDefaults[SyncArgs]
	orchestrator *sync.Orchestrator
}

func NewSyncWorker(orchestrator *sync.Orchestrator) *SyncWorker {
	return &SyncWorker{orchestrator: orchestrator}
}

func (w *SyncWorker) Timeout(job *river.Job[SyncArgs]) time.Duration {
	return SyncJobTimeout
}

func (w *SyncWorker) Work(ctx context.Context, job *river.Job[SyncArgs]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.orchestrator.Run(ctx, job.Args.JobID)
}

// ResyncChunkArgs processes exactly one chunk of a mass resync job. The
// worker enqueues the next chunk itself, so a long resync survives restarts
// one chunk at a time.
type ResyncChunkArgs struct {
	JobID      uuid.UUID `json:"job_id"`
	ChunkIndex int       `json:"chunk_index"`
}

func (ResyncChunkArgs) Kind() string {
	return ResyncChunkKind
}

func (ResyncChunkArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       DefaultQueue,
		MaxAttempts: MaxJobRetries,
	}
}

type ResyncChunkWorker struct {
	river.WorkerDefaults[ResyncChunkArgs]
	engine *sync.Engine
}

func NewResyncChunkWorker(engine *sync.Engine) *ResyncChunkWorker {
	return &ResyncChunkWorker{engine: engine}
}

func (w *ResyncChunkWorker) Timeout(job *river.Job[ResyncChunkArgs]) time.Duration {
	return ChunkJobTimeout
}

func (w *ResyncChunkWorker) Work(ctx context.Context, job *river.Job[ResyncChunkArgs]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	result, err := w.engine.RunChunk(ctx, job.Args.JobID, job.Args.ChunkIndex)
	if err != nil {
		return err
	}
	if result.IsComplete {
		zap.S().Named("jobs").Infof("mass resync %s complete: %d ok, %d failed",
			result.JobID, result.SuccessfulItems, result.FailedItems)
		return nil
	}

	client, err := river.ClientFromContextSafely[pgx.Tx](ctx)
	if err != nil {
		return err
	}
	_, err = client.Insert(ctx, ResyncChunkArgs{
		JobID:      job.Args.JobID,
		ChunkIndex: job.Args.ChunkIndex + 1,
	}, nil)
	return err
}
