package service

import (
	"context"
	"errors"

	"github.com/webilytics/webinar-sync/internal/store"
	"github.com/webilytics/webinar-sync/internal/store/model"
)

type WebinarService struct {
	store store.Store
}

func NewWebinarService(store store.Store) *WebinarService {
	return &WebinarService{store: store}
}

func (s *WebinarService) ListWebinars(ctx context.Context) (model.WebinarList, error) {
	return s.store.Webinar().List(ctx)
}

func (s *WebinarService) GetWebinar(ctx context.Context, id int64) (*model.Webinar, error) {
	webinar, err := s.store.Webinar().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrWebinarNotFound(id)
		}
		return nil, err
	}
	return webinar, nil
}

// ListParticipants returns the current (non-historical) attendee snapshot of
// a webinar.
func (s *WebinarService) ListParticipants(ctx context.Context, webinarID int64) ([]model.Participant, error) {
	if _, err := s.GetWebinar(ctx, webinarID); err != nil {
		return nil, err
	}
	return s.store.Participant().ListCurrentByWebinar(ctx, webinarID)
}

// ListParticipantHistory returns every retained version of one attendee,
// newest first.
func (s *WebinarService) ListParticipantHistory(ctx context.Context, webinarID int64, key string) ([]model.Participant, error) {
	if _, err := s.GetWebinar(ctx, webinarID); err != nil {
		return nil, err
	}
	return s.store.Participant().ListVersions(ctx, webinarID, key)
}

// ListDerivedParticipants returns current rows whose natural key had to be
// derived from page position. These are the reconciliation-report candidates:
// identities the platform never stably confirmed.
func (s *WebinarService) ListDerivedParticipants(ctx context.Context, webinarID int64) ([]model.Participant, error) {
	if _, err := s.GetWebinar(ctx, webinarID); err != nil {
		return nil, err
	}
	return s.store.Participant().ListDerivedKeys(ctx, webinarID)
}

func (s *WebinarService) ListRegistrants(ctx context.Context, webinarID int64) ([]model.Registrant, error) {
	if _, err := s.GetWebinar(ctx, webinarID); err != nil {
		return nil, err
	}
	return s.store.Registrant().ListCurrentByWebinar(ctx, webinarID)
}

func (s *WebinarService) ListRecordings(ctx context.Context, webinarID int64) ([]model.Recording, error) {
	if _, err := s.GetWebinar(ctx, webinarID); err != nil {
		return nil, err
	}
	return s.store.Recording().ListByWebinar(ctx, webinarID)
}

func (s *WebinarService) ListInteractions(ctx context.Context, webinarID int64, kind string) ([]model.Interaction, error) {
	if _, err := s.GetWebinar(ctx, webinarID); err != nil {
		return nil, err
	}
	return s.store.Interaction().ListByWebinar(ctx, webinarID, kind)
}
