package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/webilytics/webinar-sync/internal/auth"
	"github.com/webilytics/webinar-sync/internal/config"
	"github.com/webilytics/webinar-sync/internal/platform"
	"github.com/webilytics/webinar-sync/internal/store"
	"github.com/webilytics/webinar-sync/internal/store/model"
)

// Engine composes the paginated fetcher, the rate-limited client and the
// historizing writer into the operations the stages and the chunked resync
// are built from.
type Engine struct {
	store     store.Store
	client    *platform.Client
	paginator *platform.Paginator
	tokens    auth.TokenProvider
	writer    *Writer
	cfg       *config.Config
	locks     webinarLocks
	events    EventWriter
}

// EventWriter publishes lifecycle events for jobs. A nil writer disables
// publishing.
type EventWriter interface {
	Write(ctx context.Context, kind string, body io.Reader) error
}

type EngineOption func(*Engine)

func WithEventWriter(w EventWriter) EngineOption {
	return func(e *Engine) {
		e.events = w
	}
}

func NewEngine(cfg *config.Config, s store.Store, client *platform.Client, tokens auth.TokenProvider, opts ...EngineOption) *Engine {
	e := &Engine{
		store:     s,
		client:    client,
		paginator: platform.NewPaginator(client, cfg.Sync.PageSize, cfg.Sync.MaxPages),
		tokens:    tokens,
		writer:    NewWriter(s, cfg.Sync.WriteBatchSize),
		cfg:       cfg,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// emitEvent serializes the payload and hands it to the event writer. Event
// delivery is best effort and never affects the sync outcome.
func (e *Engine) emitEvent(ctx context.Context, kind string, payload any) {
	if e.events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := e.events.Write(ctx, kind, bytes.NewReader(data)); err != nil {
		zap.S().Named("sync").Warnf("publishing %s event: %s", kind, err)
	}
}

// webinarLocks serializes reconciliation per webinar so a detailed sync and a
// mass resync touching the same webinar cannot interleave historization.
type webinarLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (l *webinarLocks) acquire(id int64) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// DiscoverWebinars pulls the account's webinar list, bounded by the configured
// lookback window, and upserts every entry. Returns the ids found.
func (e *Engine) DiscoverWebinars(ctx context.Context) ([]int64, error) {
	from := time.Now().UTC().AddDate(0, 0, -e.cfg.Sync.LookbackDays).Format("2006-01-02")
	raw, err := e.paginator.FetchAll(ctx, "/users/me/webinars", url.Values{
		"type": {"past"},
		"from": {from},
	})
	if err != nil {
		return nil, fmt.Errorf("listing webinars: %w", err)
	}

	webinars, err := platform.DecodeItems[platform.Webinar](raw)
	if err != nil {
		return nil, fmt.Errorf("decoding webinars: %w", err)
	}

	ids := make([]int64, 0, len(webinars))
	for _, w := range webinars {
		if _, err := e.store.Webinar().Upsert(ctx, MapWebinar(w)); err != nil {
			return nil, err
		}
		ids = append(ids, w.ID)
	}
	return ids, nil
}

// pastInstances returns the occurrence uuids of a webinar, falling back to
// the numeric id when the platform reports no separate instances.
func (e *Engine) pastInstances(ctx context.Context, webinarID int64) ([]string, error) {
	raw, err := e.paginator.FetchAll(ctx, fmt.Sprintf("/past_webinars/%d/instances", webinarID), nil)
	if err != nil {
		return nil, err
	}

	instances, err := platform.DecodeItems[platform.WebinarInstance](raw)
	if err != nil {
		return nil, err
	}

	uuids := make([]string, 0, len(instances))
	for _, in := range instances {
		if in.UUID != "" {
			uuids = append(uuids, url.PathEscape(in.UUID))
		}
	}
	if len(uuids) == 0 {
		uuids = append(uuids, fmt.Sprintf("%d", webinarID))
	}
	return uuids, nil
}

// SyncParticipants fetches and reconciles every attendee of every past
// instance of the webinar, then refreshes the webinar's attendee count.
func (e *Engine) SyncParticipants(ctx context.Context, webinarID int64) (WriteStats, error) {
	unlock := e.locks.acquire(webinarID)
	defer unlock()

	webinar, err := e.store.Webinar().Get(ctx, webinarID)
	if err != nil {
		return WriteStats{}, err
	}

	instances, err := e.pastInstances(ctx, webinarID)
	if err != nil {
		return WriteStats{}, fmt.Errorf("webinar %d instances: %w", webinarID, err)
	}

	var stats WriteStats
	for _, instance := range instances {
		raw, err := e.paginator.FetchAll(ctx, fmt.Sprintf("/past_webinars/%s/participants", instance), nil)
		if err != nil {
			return stats, fmt.Errorf("webinar %d participants: %w", webinarID, err)
		}

		snapshots := make([]model.Participant, 0, len(raw))
		for i, item := range raw {
			var p platform.Participant
			if err := json.Unmarshal(item, &p); err != nil {
				stats.addError(fmt.Sprintf("webinar:%d", webinarID), fmt.Errorf("decoding participant: %w", err))
				continue
			}
			snapshots = append(snapshots, MapParticipant(webinarID, webinar.Duration, p, i))
		}

		s := e.writer.WriteParticipants(ctx, webinarID, snapshots)
		stats.merge(s)
	}

	if count, err := e.store.Participant().CountCurrent(ctx, webinarID); err == nil {
		_ = e.store.Webinar().UpdateAggregates(ctx, webinarID, int(count), webinar.RegistrantCount, webinar.AvgAttendanceMinute, webinar.EngagementScore)
	}
	_ = e.store.Webinar().TouchSynced(ctx, webinarID, time.Now().UTC())

	return stats, nil
}

// SyncRegistrants fetches and reconciles the webinar's registrations.
func (e *Engine) SyncRegistrants(ctx context.Context, webinarID int64) (WriteStats, error) {
	unlock := e.locks.acquire(webinarID)
	defer unlock()

	raw, err := e.paginator.FetchAll(ctx, fmt.Sprintf("/webinars/%d/registrants", webinarID), nil)
	if err != nil {
		return WriteStats{}, fmt.Errorf("webinar %d registrants: %w", webinarID, err)
	}

	registrants, err := platform.DecodeItems[platform.Registrant](raw)
	if err != nil {
		return WriteStats{}, fmt.Errorf("decoding registrants: %w", err)
	}

	snapshots := make([]model.Registrant, 0, len(registrants))
	for _, r := range registrants {
		if r.Email == "" {
			continue
		}
		snapshots = append(snapshots, MapRegistrant(webinarID, r))
	}

	return e.writer.WriteRegistrants(ctx, webinarID, snapshots), nil
}

// SyncInteractions pulls Q&A and poll results for every past instance. Each
// interaction kind fails soft: an error is recorded and the other kind still
// runs.
func (e *Engine) SyncInteractions(ctx context.Context, webinarID int64) (WriteStats, error) {
	instances, err := e.pastInstances(ctx, webinarID)
	if err != nil {
		return WriteStats{}, err
	}

	var stats WriteStats
	for _, instance := range instances {
		for kind, path := range map[string]string{
			model.InteractionKindQA:   fmt.Sprintf("/past_webinars/%s/qa", instance),
			model.InteractionKindPoll: fmt.Sprintf("/past_webinars/%s/polls", instance),
		} {
			raw, err := e.paginator.FetchAll(ctx, path, nil)
			if err != nil {
				stats.addError(fmt.Sprintf("interactions:%s:%s", kind, instance), err)
				continue
			}

			items, err := platform.DecodeItems[platform.QAItem](raw)
			if err != nil {
				stats.addError(fmt.Sprintf("interactions:%s:%s", kind, instance), err)
				continue
			}

			for _, item := range items {
				for _, d := range item.QuestionDetails {
					row := MapInteraction(webinarID, instance, kind, item.Name, item.Email, d)
					row.LastSyncedAt = time.Now().UTC()
					if err := e.store.Interaction().Upsert(ctx, row); err != nil {
						stats.addError(fmt.Sprintf("interactions:%s:%s", kind, instance), err)
						continue
					}
					stats.Inserted++
				}
			}
		}
	}
	return stats, nil
}

// SyncRecordings pulls recording metadata for the webinar.
func (e *Engine) SyncRecordings(ctx context.Context, webinarID int64) (WriteStats, error) {
	raw, err := e.client.Get(ctx, fmt.Sprintf("/webinars/%d/recordings", webinarID), nil)
	if err != nil {
		var apiErr *platform.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			// Webinars without cloud recordings 404 here.
			return WriteStats{}, nil
		}
		return WriteStats{}, fmt.Errorf("webinar %d recordings: %w", webinarID, err)
	}

	var recording platform.Recording
	if err := json.Unmarshal(raw, &recording); err != nil {
		return WriteStats{}, fmt.Errorf("decoding recording: %w", err)
	}

	var stats WriteStats
	now := time.Now().UTC()
	for _, f := range recording.RecordingFiles {
		row := MapRecording(webinarID, recording.UUID, f)
		row.LastSyncedAt = now
		if err := e.store.Recording().Upsert(ctx, row); err != nil {
			stats.addError(fmt.Sprintf("recording:%s", f.ID), err)
			continue
		}
		stats.Inserted++
	}
	return stats, nil
}

// RecomputeAnalytics refreshes the webinar's aggregates from current
// snapshot rows.
func (e *Engine) RecomputeAnalytics(ctx context.Context, webinarID int64) error {
	attendees, err := e.store.Participant().CountCurrent(ctx, webinarID)
	if err != nil {
		return err
	}
	registrants, err := e.store.Registrant().CountCurrent(ctx, webinarID)
	if err != nil {
		return err
	}
	avgSeconds, err := e.store.Participant().AverageCurrentDuration(ctx, webinarID)
	if err != nil {
		return err
	}

	engagement := 0.0
	if registrants > 0 {
		engagement = float64(attendees) / float64(registrants) * 100
		if engagement > 100 {
			engagement = 100
		}
	}

	return e.store.Webinar().UpdateAggregates(ctx, webinarID, int(attendees), int(registrants), avgSeconds/60, engagement)
}

// MarkAbsentees flags current rows last seen before the cutoff as no longer
// available upstream. Returns how many rows were flagged.
func (e *Engine) MarkAbsentees(ctx context.Context, webinarID int64, cutoff time.Time) (int64, error) {
	participants, err := e.store.Participant().MarkUnavailableBefore(ctx, webinarID, cutoff)
	if err != nil {
		return 0, err
	}
	registrants, err := e.store.Registrant().MarkUnavailableBefore(ctx, webinarID, cutoff)
	if err != nil {
		return participants, err
	}
	return participants + registrants, nil
}

// ResyncWebinar is the unit of work of the chunked mass resync: participants
// plus registrations of one webinar.
func (e *Engine) ResyncWebinar(ctx context.Context, webinarID int64) error {
	if _, err := e.SyncParticipants(ctx, webinarID); err != nil {
		return err
	}
	if _, err := e.SyncRegistrants(ctx, webinarID); err != nil {
		return err
	}
	if err := e.RecomputeAnalytics(ctx, webinarID); err != nil {
		zap.S().Named("sync").Warnf("recomputing analytics for webinar %d: %s", webinarID, err)
	}
	return nil
}

func (s *WriteStats) merge(other WriteStats) {
	s.Inserted += other.Inserted
	s.Touched += other.Touched
	s.Historized += other.Historized
	s.Failed += other.Failed
	s.Errors = append(s.Errors, other.Errors...)
}
