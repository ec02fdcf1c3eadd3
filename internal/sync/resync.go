package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webilytics/webinar-sync/internal/events"
	"github.com/webilytics/webinar-sync/internal/store/model"
	"github.com/webilytics/webinar-sync/pkg/metrics"
)

// ChunkResult is the outcome of processing one chunk of a mass resync job.
type ChunkResult struct {
	JobID              uuid.UUID `json:"jobId"`
	ChunkIndex         int       `json:"chunkIndex"`
	ItemsInChunk       int       `json:"itemsInChunk"`
	ProcessedItems     int       `json:"processedItems"`
	SuccessfulItems    int       `json:"successfulItems"`
	FailedItems        int       `json:"failedItems"`
	CurrentChunk       int       `json:"currentChunk"`
	TotalChunks        int       `json:"totalChunks"`
	ProgressPercentage int       `json:"progressPercentage"`
	IsComplete         bool      `json:"isComplete"`
}

// StartMassResync freezes the given item list (or every known webinar when the
// list is empty) into a new chunked job. The list never changes afterwards:
// chunk boundaries stay deterministic across retries and restarts.
func (e *Engine) StartMassResync(ctx context.Context, webinarIDs []int64) (*model.MassResyncJob, error) {
	if len(webinarIDs) == 0 {
		ids, err := e.store.Webinar().ListIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing webinars for mass resync: %w", err)
		}
		webinarIDs = ids
	}

	items := make(model.StringList, 0, len(webinarIDs))
	for _, id := range webinarIDs {
		items = append(items, strconv.FormatInt(id, 10))
	}

	chunkSize := e.cfg.Sync.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1
	}
	totalChunks := (len(items) + chunkSize - 1) / chunkSize

	job := model.MassResyncJob{
		Status:      model.JobStatusPending,
		TotalItems:  len(items),
		TotalChunks: totalChunks,
		ChunkSize:   chunkSize,
		ItemList:    items,
		StartedAt:   time.Now().UTC(),
	}
	return e.store.MassResync().Create(ctx, job)
}

// RunChunk processes one chunk of a mass resync job. Items run sequentially
// under an individual timeout; a failing or hanging item is counted and the
// rest of the chunk still runs. Counters only advance the first time a chunk
// index is processed, so replaying a chunk is harmless.
func (e *Engine) RunChunk(ctx context.Context, jobID uuid.UUID, chunkIndex int) (*ChunkResult, error) {
	log := zap.S().Named("resync")

	job, err := e.store.MassResync().Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if chunkIndex < 0 || chunkIndex >= job.TotalChunks {
		return nil, fmt.Errorf("chunk %d out of range for job %s with %d chunks", chunkIndex, job.ID, job.TotalChunks)
	}

	items := job.Chunk(chunkIndex)
	firstRun := chunkIndex >= job.CurrentChunk

	if job.Status == model.JobStatusPending {
		job.Status = model.JobStatusRunning
	}

	var succeeded, failed int
	var chunkErrors []model.SyncError
	for _, item := range items {
		webinarID, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			failed++
			chunkErrors = append(chunkErrors, model.SyncError{
				Source:     "resync:" + item,
				Message:    fmt.Sprintf("invalid webinar id: %s", err),
				OccurredAt: time.Now().UTC(),
			})
			continue
		}

		if err := e.resyncOne(ctx, webinarID); err != nil {
			failed++
			chunkErrors = append(chunkErrors, model.SyncError{
				Source:     fmt.Sprintf("resync:%d", webinarID),
				Message:    err.Error(),
				OccurredAt: time.Now().UTC(),
			})
			log.Warnf("job %s chunk %d: webinar %d failed: %s", job.ID, chunkIndex, webinarID, err)
			continue
		}
		succeeded++
	}

	// Counters and the error list only advance the first time a chunk index
	// runs, so a replayed chunk cannot double-count or duplicate entries.
	if firstRun {
		job.SuccessfulItems += succeeded
		job.FailedItems += failed
		job.Errors = append(job.Errors, chunkErrors...)
		metrics.IncreaseChunkFailuresMetric(failed)
	}

	// Progress is monotonic over chunk boundaries so replays and overlapping
	// workers cannot move it backwards.
	upTo := (chunkIndex + 1) * job.ChunkSize
	if upTo > job.TotalItems {
		upTo = job.TotalItems
	}
	if upTo > job.ProcessedItems {
		job.ProcessedItems = upTo
	}
	if chunkIndex+1 > job.CurrentChunk {
		job.CurrentChunk = chunkIndex + 1
	}

	if job.IsComplete() {
		now := time.Now().UTC()
		job.Status = model.JobStatusCompleted
		job.CompletedAt = &now
	}

	updated, err := e.store.MassResync().Update(ctx, *job)
	if err != nil {
		return nil, fmt.Errorf("persisting chunk %d of job %s: %w", chunkIndex, job.ID, err)
	}

	if updated.IsComplete() {
		e.emitEvent(ctx, events.ResyncMessageKind, events.ResyncEvent{
			JobID:          updated.ID.String(),
			Status:         updated.Status,
			ProcessedItems: updated.ProcessedItems,
			FailedItems:    updated.FailedItems,
		})
	}

	return &ChunkResult{
		JobID:              updated.ID,
		ChunkIndex:         chunkIndex,
		ItemsInChunk:       len(items),
		ProcessedItems:     updated.ProcessedItems,
		SuccessfulItems:    updated.SuccessfulItems,
		FailedItems:        updated.FailedItems,
		CurrentChunk:       updated.CurrentChunk,
		TotalChunks:        updated.TotalChunks,
		ProgressPercentage: updated.ProgressPercentage(),
		IsComplete:         updated.IsComplete(),
	}, nil
}

// resyncOne runs a single webinar resync under the configured item timeout.
// The goroutine is abandoned on timeout rather than killed; its context is
// cancelled so in-flight requests unwind on their own.
func (e *Engine) resyncOne(ctx context.Context, webinarID int64) error {
	itemCtx, cancel := context.WithTimeout(ctx, e.cfg.Sync.ItemTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- e.ResyncWebinar(itemCtx, webinarID)
	}()

	select {
	case err := <-done:
		return err
	case <-itemCtx.Done():
		return fmt.Errorf("webinar %d resync: %w", webinarID, itemCtx.Err())
	}
}
