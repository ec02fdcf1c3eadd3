package jobs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/webilytics/webinar-sync/internal/sync"
)

const (
	DefaultQueue  = "webinar_sync"
	MaxJobRetries = 1
)

type Client struct {
	*river.Client[pgx.Tx]
}

// NewClient builds the queue client with both workers registered. Sync jobs
// and resync chunks share one queue; chunk jobs are short so a long sync
// cannot starve them with MaxWorkers > 1.
func NewClient(ctx context.Context, pool *pgxpool.Pool, orchestrator *sync.Orchestrator, engine *sync.Engine) (*Client, error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, NewSyncWorker(orchestrator))
	river.AddWorker(workers, NewResyncChunkWorker(engine))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			DefaultQueue: {MaxWorkers: 4},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, err
	}

	return &Client{Client: riverClient}, nil
}

func (c *Client) InsertSyncJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	result, err := c.Insert(ctx, SyncArgs{JobID: jobID}, nil)
	if err != nil {
		return 0, err
	}
	return result.Job.ID, nil
}

func (c *Client) InsertResyncChunk(ctx context.Context, jobID uuid.UUID, chunkIndex int) (int64, error) {
	result, err := c.Insert(ctx, ResyncChunkArgs{JobID: jobID, ChunkIndex: chunkIndex}, nil)
	if err != nil {
		return 0, err
	}
	return result.Job.ID, nil
}
