package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func webinarID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (h *Handler) ListWebinars(w http.ResponseWriter, r *http.Request) {
	webinars, err := h.webinars.ListWebinars(r.Context())
	if err != nil {
		replyError(w, r, err)
		return
	}

	reply := WebinarListReply{Webinars: make([]WebinarReply, 0, len(webinars))}
	for _, webinar := range webinars {
		reply.Webinars = append(reply.Webinars, webinarToReply(webinar))
	}
	_ = render.Render(w, r, reply)
}

func (h *Handler) GetWebinar(w http.ResponseWriter, r *http.Request) {
	id, ok := webinarID(r)
	if !ok {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Message: "invalid webinar id"})
		return
	}

	webinar, err := h.webinars.GetWebinar(r.Context(), id)
	if err != nil {
		replyError(w, r, err)
		return
	}
	_ = render.Render(w, r, webinarToReply(*webinar))
}

// ListParticipants returns current attendee snapshots, the full version
// history of a single attendee when ?history=<key> is given, or only the
// derived-identity rows when ?confidence=derived is given.
func (h *Handler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	id, ok := webinarID(r)
	if !ok {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Message: "invalid webinar id"})
		return
	}

	var err error
	var participants []ParticipantReply

	if key := r.URL.Query().Get("history"); key != "" {
		versions, verr := h.webinars.ListParticipantHistory(r.Context(), id, key)
		err = verr
		for _, p := range versions {
			participants = append(participants, participantToReply(p))
		}
	} else if r.URL.Query().Get("confidence") == "derived" {
		derived, derr := h.webinars.ListDerivedParticipants(r.Context(), id)
		err = derr
		for _, p := range derived {
			participants = append(participants, participantToReply(p))
		}
	} else {
		current, cerr := h.webinars.ListParticipants(r.Context(), id)
		err = cerr
		for _, p := range current {
			participants = append(participants, participantToReply(p))
		}
	}
	if err != nil {
		replyError(w, r, err)
		return
	}
	if participants == nil {
		participants = []ParticipantReply{}
	}
	_ = render.Render(w, r, ParticipantListReply{Participants: participants})
}

func (h *Handler) ListRegistrants(w http.ResponseWriter, r *http.Request) {
	id, ok := webinarID(r)
	if !ok {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Message: "invalid webinar id"})
		return
	}

	registrants, err := h.webinars.ListRegistrants(r.Context(), id)
	if err != nil {
		replyError(w, r, err)
		return
	}

	reply := RegistrantListReply{Registrants: make([]RegistrantReply, 0, len(registrants))}
	for _, reg := range registrants {
		reply.Registrants = append(reply.Registrants, RegistrantReply{
			Email:         reg.Email,
			FirstName:     reg.FirstName,
			LastName:      reg.LastName,
			Status:        reg.Status,
			RegisteredAt:  reg.RegisteredAt,
			DataAvailable: reg.DataAvailable,
			LastSyncedAt:  reg.LastSyncedAt,
		})
	}
	_ = render.Render(w, r, reply)
}

func (h *Handler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	id, ok := webinarID(r)
	if !ok {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Message: "invalid webinar id"})
		return
	}

	recordings, err := h.webinars.ListRecordings(r.Context(), id)
	if err != nil {
		replyError(w, r, err)
		return
	}

	reply := RecordingListReply{Recordings: make([]RecordingReply, 0, len(recordings))}
	for _, rec := range recordings {
		reply.Recordings = append(reply.Recordings, RecordingReply{
			ID:             rec.ID,
			InstanceUUID:   rec.InstanceUUID,
			FileType:       rec.FileType,
			RecordingType:  rec.RecordingType,
			FileSize:       rec.FileSize,
			RecordingStart: rec.RecordingStart,
			RecordingEnd:   rec.RecordingEnd,
			DownloadURL:    rec.DownloadURL,
		})
	}
	_ = render.Render(w, r, reply)
}

func (h *Handler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	id, ok := webinarID(r)
	if !ok {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Message: "invalid webinar id"})
		return
	}

	interactions, err := h.webinars.ListInteractions(r.Context(), id, r.URL.Query().Get("kind"))
	if err != nil {
		replyError(w, r, err)
		return
	}

	reply := InteractionListReply{Interactions: make([]InteractionReply, 0, len(interactions))}
	for _, in := range interactions {
		reply.Interactions = append(reply.Interactions, InteractionReply{
			Kind:     in.Kind,
			Name:     in.Name,
			Email:    in.Email,
			Question: in.Question,
			Answer:   in.Answer,
		})
	}
	_ = render.Render(w, r, reply)
}
