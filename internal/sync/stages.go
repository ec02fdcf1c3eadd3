package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/webilytics/webinar-sync/internal/platform"
	"github.com/webilytics/webinar-sync/internal/store/model"
)

// Stage slugs, in declaration order.
const (
	StageValidation    = "validation"
	StageDiscovery     = "discovery"
	StageParticipants  = "participants"
	StageRegistrations = "registrations"
	StageInteractions  = "interactions"
	StageRecordings    = "recordings"
	StageAnalytics     = "analytics"
	StageCleanup       = "cleanup"
)

type stageDef struct {
	id          string
	name        string
	description string
	// soft stages degrade gracefully: an inner failure is recorded on the
	// job but the stage still completes and the job moves on.
	soft bool
	run  func(ctx context.Context, r *jobRun) error
}

func stageDefs() []stageDef {
	return []stageDef{
		{
			id:          StageValidation,
			name:        "Validation",
			description: "Verify platform credentials and configuration",
			run:         runValidation,
		},
		{
			id:          StageDiscovery,
			name:        "Webinar discovery",
			description: "List webinars from the platform and upsert them",
			run:         runDiscovery,
		},
		{
			id:          StageParticipants,
			name:        "Participants",
			description: "Fetch and reconcile attendees of past instances",
			run:         runParticipants,
		},
		{
			id:          StageRegistrations,
			name:        "Registrations",
			description: "Fetch and reconcile webinar registrants",
			soft:        true,
			run:         runRegistrations,
		},
		{
			id:          StageInteractions,
			name:        "Interactions",
			description: "Fetch Q&A and poll results",
			soft:        true,
			run:         runInteractions,
		},
		{
			id:          StageRecordings,
			name:        "Recordings",
			description: "Fetch recording metadata",
			soft:        true,
			run:         runRecordings,
		},
		{
			id:          StageAnalytics,
			name:        "Analytics",
			description: "Recompute webinar aggregates from current snapshots",
			soft:        true,
			run:         runAnalytics,
		},
		{
			id:          StageCleanup,
			name:        "Cleanup",
			description: "Mark records no longer returned by the platform",
			soft:        true,
			run:         runCleanup,
		},
	}
}

// stageIDsFor returns the stage subset a job type runs. Discovery jobs stop
// after the webinar list; detailed and comprehensive jobs run the full
// sequence.
func stageIDsFor(jobType model.JobType) []string {
	if jobType == model.JobTypeDiscovery {
		return []string{StageValidation, StageDiscovery}
	}
	return []string{
		StageValidation, StageDiscovery, StageParticipants, StageRegistrations,
		StageInteractions, StageRecordings, StageAnalytics, StageCleanup,
	}
}

// StagesFor builds the pending stage rows persisted on a new job.
func StagesFor(jobType model.JobType) model.StageList {
	wanted := map[string]bool{}
	for _, id := range stageIDsFor(jobType) {
		wanted[id] = true
	}

	stages := model.StageList{}
	for _, def := range stageDefs() {
		if !wanted[def.id] {
			continue
		}
		stages = append(stages, model.SyncStage{
			ID:          def.id,
			Name:        def.name,
			Description: def.description,
			Status:      model.StageStatusPending,
		})
	}
	return stages
}

func defByID(id string) (stageDef, bool) {
	for _, def := range stageDefs() {
		if def.id == id {
			return def, true
		}
	}
	return stageDef{}, false
}

func runValidation(ctx context.Context, r *jobRun) error {
	if _, err := r.engine.tokens.Token(ctx); err != nil {
		return fmt.Errorf("platform connection check failed: %w", err)
	}
	r.progress(ctx, 1)
	return nil
}

func runDiscovery(ctx context.Context, r *jobRun) error {
	ids, err := r.engine.DiscoverWebinars(ctx)
	if err != nil {
		return err
	}
	r.setMetadata("webinarsFound", len(ids))

	// A detailed job keeps its requested scope; everything else targets the
	// full discovered set.
	if len(r.targets) == 0 {
		r.targets = ids
	}
	r.progress(ctx, 1)
	return nil
}

// runParticipants is a hard stage: a webinar whose attendee fetch fails
// aborts the stage and with it the job.
func runParticipants(ctx context.Context, r *jobRun) error {
	var stats WriteStats
	err := r.forEachTarget(ctx, func(ctx context.Context, webinarID int64) error {
		s, err := r.engine.SyncParticipants(ctx, webinarID)
		r.mergeStats(&stats, s)
		return err
	}, true)

	r.setMetadata("participantsInserted", stats.Inserted)
	r.setMetadata("participantsTouched", stats.Touched)
	r.setMetadata("participantsHistorized", stats.Historized)
	return err
}

func runRegistrations(ctx context.Context, r *jobRun) error {
	var stats WriteStats
	err := r.forEachTarget(ctx, func(ctx context.Context, webinarID int64) error {
		s, err := r.engine.SyncRegistrants(ctx, webinarID)
		r.mergeStats(&stats, s)
		return err
	}, false)

	r.setMetadata("registrantsInserted", stats.Inserted)
	r.setMetadata("registrantsTouched", stats.Touched)
	r.setMetadata("registrantsHistorized", stats.Historized)
	return err
}

func runInteractions(ctx context.Context, r *jobRun) error {
	var stats WriteStats
	err := r.forEachTarget(ctx, func(ctx context.Context, webinarID int64) error {
		s, err := r.engine.SyncInteractions(ctx, webinarID)
		r.mergeStats(&stats, s)
		return err
	}, false)

	r.setMetadata("interactionsWritten", stats.Inserted)
	return err
}

func runRecordings(ctx context.Context, r *jobRun) error {
	var stats WriteStats
	err := r.forEachTarget(ctx, func(ctx context.Context, webinarID int64) error {
		s, err := r.engine.SyncRecordings(ctx, webinarID)
		r.mergeStats(&stats, s)
		return err
	}, false)

	r.setMetadata("recordingsWritten", stats.Inserted)
	return err
}

func runAnalytics(ctx context.Context, r *jobRun) error {
	return r.forEachTarget(ctx, func(ctx context.Context, webinarID int64) error {
		return r.engine.RecomputeAnalytics(ctx, webinarID)
	}, false)
}

func runCleanup(ctx context.Context, r *jobRun) error {
	var flagged int64
	err := r.forEachTarget(ctx, func(ctx context.Context, webinarID int64) error {
		n, err := r.engine.MarkAbsentees(ctx, webinarID, r.job.StartedAt)
		flagged += n
		return err
	}, false)

	r.setMetadata("recordsMarkedUnavailable", flagged)
	return err
}

// forEachTarget walks the job's target webinars in rate-limited batches,
// reporting fractional stage progress after each batch. With failFast the
// first error aborts; otherwise errors are accumulated on the job and the
// walk continues (bulkhead isolation).
func (r *jobRun) forEachTarget(ctx context.Context, fn func(context.Context, int64) error, failFast bool) error {
	total := len(r.targets)
	if total == 0 {
		r.progress(ctx, 1)
		return nil
	}

	batchSize := r.engine.cfg.Sync.BatchSize
	delay := r.engine.cfg.Sync.BatchDelay

	var firstErr error
	for start := 0; start < total; start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + batchSize
		if end > total {
			end = total
		}

		results := platform.BatchProcess(ctx, r.targets[start:end], batchSize, 0, fn)
		for _, res := range results {
			if res.Err == nil {
				continue
			}
			webinarID := r.targets[start+res.Index]
			if failFast && firstErr == nil {
				firstErr = fmt.Errorf("webinar %d: %w", webinarID, res.Err)
			}
			r.recordError(fmt.Sprintf("webinar:%d", webinarID), res.Err)
		}
		if firstErr != nil {
			return firstErr
		}

		r.progress(ctx, float64(end)/float64(total))

		if end < total && delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	return nil
}
