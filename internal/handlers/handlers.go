package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/webilytics/webinar-sync/internal/service"
)

// Handler exposes the sync engine over a JSON API.
type Handler struct {
	syncs    *service.SyncService
	webinars *service.WebinarService
}

func New(syncs *service.SyncService, webinars *service.WebinarService) *Handler {
	return &Handler{syncs: syncs, webinars: webinars}
}

func (h *Handler) Routes(router chi.Router) {
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/syncs", func(r chi.Router) {
			r.Post("/", h.StartSync)
			r.Get("/", h.ListSyncs)
			r.Get("/{id}", h.GetSync)
			r.Delete("/{id}", h.CancelSync)
		})

		r.Route("/resyncs", func(r chi.Router) {
			r.Post("/", h.StartMassResync)
			r.Get("/{id}", h.GetMassResync)
			r.Post("/{id}/chunks/{index}", h.RunResyncChunk)
		})

		r.Route("/webinars", func(r chi.Router) {
			r.Get("/", h.ListWebinars)
			r.Get("/{id}", h.GetWebinar)
			r.Get("/{id}/participants", h.ListParticipants)
			r.Get("/{id}/registrants", h.ListRegistrants)
			r.Get("/{id}/recordings", h.ListRecordings)
			r.Get("/{id}/interactions", h.ListInteractions)
		})
	})
}

type ErrorReply struct {
	Message string `json:"message"`
}

func (e ErrorReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// replyError maps service error types onto HTTP statuses.
func replyError(w http.ResponseWriter, r *http.Request, err error) {
	switch err.(type) {
	case *service.ErrResourceNotFound:
		render.Status(r, http.StatusNotFound)
	case *service.ErrInvalidJobType, *service.ErrInvalidChunkIndex:
		render.Status(r, http.StatusBadRequest)
	case *service.ErrJobFinished:
		render.Status(r, http.StatusConflict)
	default:
		render.Status(r, http.StatusInternalServerError)
	}
	_ = render.Render(w, r, ErrorReply{Message: err.Error()})
}
