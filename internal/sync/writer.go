package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/webilytics/webinar-sync/internal/store"
	"github.com/webilytics/webinar-sync/internal/store/model"
	"github.com/webilytics/webinar-sync/pkg/metrics"
)

// WriteStats aggregates the outcome of one reconcile-and-write pass.
type WriteStats struct {
	Inserted   int
	Touched    int
	Historized int
	Failed     int
	Errors     []model.SyncError
}

func (s *WriteStats) addError(source string, err error) {
	s.Failed++
	s.Errors = append(s.Errors, model.SyncError{
		Source:     source,
		Message:    err.Error(),
		OccurredAt: time.Now().UTC(),
	})
}

// Writer applies reconcile decisions to the relational store in bounded
// batches. When a batch insert fails it falls back to individual writes so a
// single poison record cannot sink its whole batch.
type Writer struct {
	store     store.Store
	batchSize int
}

func NewWriter(s store.Store, batchSize int) *Writer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Writer{store: s, batchSize: batchSize}
}

// WriteParticipants reconciles the incoming snapshots against the current
// rows of the webinar and persists the results. Only this writer mutates
// is_historical / data_available.
func (w *Writer) WriteParticipants(ctx context.Context, webinarID int64, incoming []model.Participant) WriteStats {
	var stats WriteStats
	now := time.Now().UTC()
	pending := make([]model.Participant, 0, w.batchSize)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		if err := w.store.Participant().CreateBatch(ctx, pending); err != nil {
			zap.S().Named("sync").Warnf("participant batch insert failed, falling back to individual writes: %s", err)
			for _, p := range pending {
				if _, err := w.store.Participant().Create(ctx, p); err != nil {
					stats.addError(fmt.Sprintf("participant:%s", p.ParticipantKey), err)
					stats.Inserted--
				}
			}
		}
		pending = pending[:0]
	}

	for i := range incoming {
		p := incoming[i]
		p.LastSyncedAt = now

		current, err := w.store.Participant().GetCurrent(ctx, webinarID, p.ParticipantKey)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			stats.addError(fmt.Sprintf("participant:%s", p.ParticipantKey), err)
			continue
		}

		var currentChecksum *string
		if current != nil {
			currentChecksum = &current.Checksum
		}

		switch Reconcile(currentChecksum, p.Checksum) {
		case DecisionTouch:
			if err := w.store.Participant().Touch(ctx, current.ID, now); err != nil {
				stats.addError(fmt.Sprintf("participant:%s", p.ParticipantKey), err)
				continue
			}
			stats.Touched++
			metrics.IncreaseEntitiesWrittenMetric("participant", string(DecisionTouch))

		case DecisionHistorize:
			if err := w.store.Participant().Historize(ctx, webinarID, p.ParticipantKey); err != nil {
				stats.addError(fmt.Sprintf("participant:%s", p.ParticipantKey), err)
				continue
			}
			stats.Historized++
			stats.Inserted++
			pending = append(pending, p)
			metrics.IncreaseEntitiesWrittenMetric("participant", string(DecisionHistorize))

		case DecisionInsert:
			stats.Inserted++
			pending = append(pending, p)
			metrics.IncreaseEntitiesWrittenMetric("participant", string(DecisionInsert))
		}

		if len(pending) >= w.batchSize {
			flush()
		}
	}
	flush()

	return stats
}

// WriteRegistrants is the registrant counterpart of WriteParticipants, keyed
// by (webinar_id, email).
func (w *Writer) WriteRegistrants(ctx context.Context, webinarID int64, incoming []model.Registrant) WriteStats {
	var stats WriteStats
	now := time.Now().UTC()
	pending := make([]model.Registrant, 0, w.batchSize)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		if err := w.store.Registrant().CreateBatch(ctx, pending); err != nil {
			zap.S().Named("sync").Warnf("registrant batch insert failed, falling back to individual writes: %s", err)
			for _, r := range pending {
				if _, err := w.store.Registrant().Create(ctx, r); err != nil {
					stats.addError(fmt.Sprintf("registrant:%s", r.Email), err)
					stats.Inserted--
				}
			}
		}
		pending = pending[:0]
	}

	for i := range incoming {
		r := incoming[i]
		r.LastSyncedAt = now

		current, err := w.store.Registrant().GetCurrent(ctx, webinarID, r.Email)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			stats.addError(fmt.Sprintf("registrant:%s", r.Email), err)
			continue
		}

		var currentChecksum *string
		if current != nil {
			currentChecksum = &current.Checksum
		}

		switch Reconcile(currentChecksum, r.Checksum) {
		case DecisionTouch:
			if err := w.store.Registrant().Touch(ctx, current.ID, now); err != nil {
				stats.addError(fmt.Sprintf("registrant:%s", r.Email), err)
				continue
			}
			stats.Touched++
			metrics.IncreaseEntitiesWrittenMetric("registrant", string(DecisionTouch))

		case DecisionHistorize:
			if err := w.store.Registrant().Historize(ctx, webinarID, r.Email); err != nil {
				stats.addError(fmt.Sprintf("registrant:%s", r.Email), err)
				continue
			}
			stats.Historized++
			stats.Inserted++
			pending = append(pending, r)
			metrics.IncreaseEntitiesWrittenMetric("registrant", string(DecisionHistorize))

		case DecisionInsert:
			stats.Inserted++
			pending = append(pending, r)
			metrics.IncreaseEntitiesWrittenMetric("registrant", string(DecisionInsert))
		}

		if len(pending) >= w.batchSize {
			flush()
		}
	}
	flush()

	return stats
}
