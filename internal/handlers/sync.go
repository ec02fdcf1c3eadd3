package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/webilytics/webinar-sync/internal/store/model"
)

type StartSyncRequest struct {
	JobType    string  `json:"jobType"`
	WebinarIDs []int64 `json:"webinarIds,omitempty"`
}

func (s *StartSyncRequest) Bind(r *http.Request) error {
	return nil
}

func (h *Handler) StartSync(w http.ResponseWriter, r *http.Request) {
	req := &StartSyncRequest{}
	if err := render.Bind(r, req); err != nil {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Message: "invalid request body"})
		return
	}

	job, err := h.syncs.StartSync(r.Context(), model.JobType(req.JobType), req.WebinarIDs)
	if err != nil {
		replyError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	_ = render.Render(w, r, syncJobToReply(*job))
}

func (h *Handler) ListSyncs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	jobs, err := h.syncs.ListJobs(r.Context(),
		r.URL.Query().Get("status"),
		model.JobType(r.URL.Query().Get("jobType")),
		limit,
	)
	if err != nil {
		replyError(w, r, err)
		return
	}

	reply := SyncJobListReply{Jobs: make([]SyncJobReply, 0, len(jobs))}
	for _, job := range jobs {
		reply.Jobs = append(reply.Jobs, syncJobToReply(job))
	}
	_ = render.Render(w, r, reply)
}

func (h *Handler) GetSync(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Message: "invalid job id"})
		return
	}

	job, err := h.syncs.GetJob(r.Context(), id)
	if err != nil {
		replyError(w, r, err)
		return
	}
	_ = render.Render(w, r, syncJobToReply(*job))
}

func (h *Handler) CancelSync(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Message: "invalid job id"})
		return
	}

	job, err := h.syncs.CancelJob(r.Context(), id)
	if err != nil {
		replyError(w, r, err)
		return
	}
	_ = render.Render(w, r, syncJobToReply(*job))
}

type StartMassResyncRequest struct {
	WebinarIDs []int64 `json:"webinarIds,omitempty"`
}

func (s *StartMassResyncRequest) Bind(r *http.Request) error {
	return nil
}

func (h *Handler) StartMassResync(w http.ResponseWriter, r *http.Request) {
	req := &StartMassResyncRequest{}
	if err := render.Bind(r, req); err != nil {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Message: "invalid request body"})
		return
	}

	job, err := h.syncs.StartMassResync(r.Context(), req.WebinarIDs)
	if err != nil {
		replyError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	_ = render.Render(w, r, massResyncToReply(*job))
}

func (h *Handler) GetMassResync(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Message: "invalid job id"})
		return
	}

	job, err := h.syncs.GetMassResync(r.Context(), id)
	if err != nil {
		replyError(w, r, err)
		return
	}
	_ = render.Render(w, r, massResyncToReply(*job))
}

func (h *Handler) RunResyncChunk(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Message: "invalid job id"})
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Message: "invalid chunk index"})
		return
	}

	result, err := h.syncs.RunResyncChunk(r.Context(), id, index)
	if err != nil {
		replyError(w, r, err)
		return
	}
	_ = render.Render(w, r, ChunkReply{ChunkResult: *result})
}
