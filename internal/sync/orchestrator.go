package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webilytics/webinar-sync/internal/events"
	"github.com/webilytics/webinar-sync/internal/store/model"
	"github.com/webilytics/webinar-sync/pkg/metrics"
)

// Orchestrator drives a job through its stage sequence. Stages run strictly
// in declaration order; a hard stage failure marks the job failed and leaves
// later stages pending forever.
type Orchestrator struct {
	engine *Engine
}

func NewOrchestrator(engine *Engine) *Orchestrator {
	return &Orchestrator{engine: engine}
}

// jobRun is the mutable state threaded through one job execution.
type jobRun struct {
	engine   *Engine
	job      *model.SyncJob
	targets  []int64
	stageIdx int
	halted   bool
}

// publish persists the whole job row as one versioned snapshot. A failed
// publish is logged, never fatal: the next transition re-publishes the
// complete state anyway.
//
// Terminal statuses are never overwritten: when the stored row turned
// completed or failed behind our back (a job-level cancel), the run is
// halted instead and the stored row wins.
func (r *jobRun) publish(ctx context.Context) {
	if r.halted {
		return
	}

	current, err := r.engine.store.SyncJob().Get(ctx, r.job.ID)
	if err == nil && current.Finished() {
		*r.job = *current
		r.halted = true
		return
	}

	updated, err := r.engine.store.SyncJob().Update(ctx, *r.job)
	if err != nil {
		zap.S().Named("sync").Errorf("publishing job %s status: %s", r.job.ID, err)
		return
	}
	r.job.Version = updated.Version
}

// progress updates the running stage's fractional progress and folds it into
// the job-level percentage.
func (r *jobRun) progress(ctx context.Context, frac float64) {
	p := int(frac * 100)
	if p > 100 {
		p = 100
	}
	stage := &r.job.Stages[r.stageIdx]
	if p > stage.Progress {
		stage.Progress = p
	}
	r.job.Progress = OverallProgress(r.job.Stages)
	r.publish(ctx)
}

func (r *jobRun) setMetadata(key string, value any) {
	if r.job.Metadata == nil {
		r.job.Metadata = model.Metadata{}
	}
	r.job.Metadata[key] = value
}

func (r *jobRun) recordError(source string, err error) {
	r.job.Errors = append(r.job.Errors, model.SyncError{
		Source:     source,
		Message:    err.Error(),
		OccurredAt: time.Now().UTC(),
	})
}

// mergeStats folds a write pass into the running totals and lifts its
// item-level errors onto the job's accumulated error list.
func (r *jobRun) mergeStats(dst *WriteStats, s WriteStats) {
	dst.merge(s)
	r.job.Errors = append(r.job.Errors, s.Errors...)
}

// OverallProgress folds per-stage progress into one monotonically
// non-decreasing percentage.
func OverallProgress(stages model.StageList) int {
	if len(stages) == 0 {
		return 0
	}

	var acc float64
	for _, stage := range stages {
		switch stage.Status {
		case model.StageStatusCompleted:
			acc += 1
		default:
			acc += float64(stage.Progress) / 100
		}
	}

	p := int(acc / float64(len(stages)) * 100)
	if p > 100 {
		p = 100
	}
	return p
}

// Run executes the job to a terminal status. Cancellation is cooperative:
// it is checked between stages, never mid-flight.
func (o *Orchestrator) Run(ctx context.Context, jobID uuid.UUID) error {
	log := zap.S().Named("sync")

	job, err := o.engine.store.SyncJob().Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Finished() {
		log.Debugf("job %s already finished with status %s", job.ID, job.Status)
		return nil
	}

	job.Status = model.JobStatusRunning
	job.StartedAt = time.Now().UTC()

	run := &jobRun{engine: o.engine, job: job, targets: targetsFromMetadata(job.Metadata)}
	run.publish(ctx)

	for i := range job.Stages {
		stage := &job.Stages[i]
		if stage.Status == model.StageStatusCompleted {
			continue
		}

		if run.halted {
			log.Infof("job %s reached status %s externally, stopping before stage %s", job.ID, job.Status, stage.ID)
			return nil
		}

		if err := ctx.Err(); err != nil {
			return o.failJob(ctx, run, stage, fmt.Errorf("job cancelled: %w", err))
		}

		def, ok := defByID(stage.ID)
		if !ok {
			return o.failJob(ctx, run, stage, fmt.Errorf("unknown stage %q", stage.ID))
		}

		run.stageIdx = i
		now := time.Now().UTC()
		stage.Status = model.StageStatusRunning
		stage.StartTime = &now
		run.publish(ctx)

		requestsBefore := o.engine.client.RequestsUsed()
		stageErr := def.run(ctx, run)
		stage.APIRequestsUsed = o.engine.client.RequestsUsed() - requestsBefore

		end := time.Now().UTC()
		stage.EndTime = &end

		if stageErr != nil {
			if !def.soft {
				return o.failJob(ctx, run, stage, stageErr)
			}
			// Soft stages degrade gracefully: record and move on.
			log.Warnf("job %s stage %s completed with errors: %s", job.ID, stage.ID, stageErr)
			run.recordError("stage:"+stage.ID, stageErr)
			stage.Message = fmt.Sprintf("completed with errors: %s", stageErr)
		}

		stage.Status = model.StageStatusCompleted
		stage.Progress = 100
		job.Progress = OverallProgress(job.Stages)
		run.publish(ctx)
	}

	if run.halted {
		log.Infof("job %s reached status %s externally, not marking completed", job.ID, job.Status)
		return nil
	}

	completed := time.Now().UTC()
	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.CompletedAt = &completed
	run.setMetadata("apiRequestsMade", o.engine.client.RequestsUsed())
	run.publish(ctx)

	o.updateJobMetrics(ctx)
	o.emitJobEvent(ctx, job)
	log.Infof("job %s completed with %d accumulated errors", job.ID, len(job.Errors))
	return nil
}

func (o *Orchestrator) emitJobEvent(ctx context.Context, job *model.SyncJob) {
	o.engine.emitEvent(ctx, events.JobMessageKind, events.JobEvent{
		JobID:    job.ID.String(),
		JobType:  string(job.JobType),
		Status:   job.Status,
		Progress: job.Progress,
		Errors:   len(job.Errors),
	})
}

func (o *Orchestrator) failJob(ctx context.Context, run *jobRun, stage *model.SyncStage, stageErr error) error {
	now := time.Now().UTC()

	stage.Status = model.StageStatusFailed
	stage.Message = stageErr.Error()
	if stage.EndTime == nil {
		stage.EndTime = &now
	}

	msg := stageErr.Error()
	run.job.Status = model.JobStatusFailed
	run.job.ErrorMessage = &msg
	run.job.CompletedAt = &now
	run.recordError("stage:"+stage.ID, stageErr)
	run.publish(ctx)

	o.updateJobMetrics(ctx)
	o.emitJobEvent(ctx, run.job)
	zap.S().Named("sync").Errorf("job %s failed at stage %s: %s", run.job.ID, stage.ID, stageErr)
	return stageErr
}

func (o *Orchestrator) updateJobMetrics(ctx context.Context) {
	counts, err := o.engine.store.SyncJob().CountByStatus(ctx)
	if err != nil {
		return
	}
	for _, status := range []string{model.JobStatusPending, model.JobStatusRunning, model.JobStatusCompleted, model.JobStatusFailed} {
		metrics.UpdateSyncJobsCountMetric(status, counts[status])
	}
}

// targetsFromMetadata extracts an explicit webinar scope from job metadata.
// JSON round-tripping turns numbers into float64.
func targetsFromMetadata(md model.Metadata) []int64 {
	raw, ok := md["webinarIds"]
	if !ok {
		return nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	targets := make([]int64, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case float64:
			targets = append(targets, int64(v))
		case int64:
			targets = append(targets, v)
		case int:
			targets = append(targets, int64(v))
		}
	}
	return targets
}
