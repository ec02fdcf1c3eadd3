package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/webilytics/webinar-sync/internal/store/model"
	"github.com/webilytics/webinar-sync/internal/sync"
)

type StageReply struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	Progress        int        `json:"progress"`
	APIRequestsUsed int        `json:"apiRequestsUsed"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	Message         string     `json:"message,omitempty"`
}

type SyncJobReply struct {
	ID           uuid.UUID         `json:"id"`
	JobType      string            `json:"jobType"`
	Status       string            `json:"status"`
	Progress     int               `json:"progress"`
	Version      int               `json:"version"`
	Stages       []StageReply      `json:"stages"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
	Errors       []model.SyncError `json:"errors,omitempty"`
	ErrorMessage *string           `json:"errorMessage,omitempty"`
	StartedAt    *time.Time        `json:"startedAt,omitempty"`
	CompletedAt  *time.Time        `json:"completedAt,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

func (SyncJobReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func syncJobToReply(job model.SyncJob) SyncJobReply {
	stages := make([]StageReply, 0, len(job.Stages))
	for _, s := range job.Stages {
		stages = append(stages, StageReply{
			ID:              s.ID,
			Name:            s.Name,
			Description:     s.Description,
			Status:          s.Status,
			Progress:        s.Progress,
			APIRequestsUsed: s.APIRequestsUsed,
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
			Message:         s.Message,
		})
	}

	var startedAt *time.Time
	if !job.StartedAt.IsZero() {
		startedAt = &job.StartedAt
	}

	return SyncJobReply{
		ID:           job.ID,
		JobType:      string(job.JobType),
		Status:       job.Status,
		Progress:     job.Progress,
		Version:      job.Version,
		Stages:       stages,
		Metadata:     job.Metadata,
		Errors:       job.Errors,
		ErrorMessage: job.ErrorMessage,
		StartedAt:    startedAt,
		CompletedAt:  job.CompletedAt,
		CreatedAt:    job.CreatedAt,
	}
}

type SyncJobListReply struct {
	Jobs []SyncJobReply `json:"jobs"`
}

func (SyncJobListReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type MassResyncReply struct {
	ID                 uuid.UUID         `json:"id"`
	Status             string            `json:"status"`
	TotalItems         int               `json:"totalItems"`
	ProcessedItems     int               `json:"processedItems"`
	SuccessfulItems    int               `json:"successfulItems"`
	FailedItems        int               `json:"failedItems"`
	CurrentChunk       int               `json:"currentChunk"`
	TotalChunks        int               `json:"totalChunks"`
	ChunkSize          int               `json:"chunkSize"`
	ProgressPercentage int               `json:"progressPercentage"`
	Errors             []model.SyncError `json:"errors,omitempty"`
	StartedAt          time.Time         `json:"startedAt"`
	CompletedAt        *time.Time        `json:"completedAt,omitempty"`
}

func (MassResyncReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func massResyncToReply(job model.MassResyncJob) MassResyncReply {
	return MassResyncReply{
		ID:                 job.ID,
		Status:             job.Status,
		TotalItems:         job.TotalItems,
		ProcessedItems:     job.ProcessedItems,
		SuccessfulItems:    job.SuccessfulItems,
		FailedItems:        job.FailedItems,
		CurrentChunk:       job.CurrentChunk,
		TotalChunks:        job.TotalChunks,
		ChunkSize:          job.ChunkSize,
		ProgressPercentage: job.ProgressPercentage(),
		Errors:             job.Errors,
		StartedAt:          job.StartedAt,
		CompletedAt:        job.CompletedAt,
	}
}

type ChunkReply struct {
	sync.ChunkResult
}

func (ChunkReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type WebinarReply struct {
	ID                  int64      `json:"id"`
	UUID                string     `json:"uuid"`
	Topic               string     `json:"topic"`
	HostEmail           string     `json:"hostEmail,omitempty"`
	StartTime           *time.Time `json:"startTime,omitempty"`
	Duration            int        `json:"duration"`
	AttendeeCount       int        `json:"attendeeCount"`
	RegistrantCount     int        `json:"registrantCount"`
	AvgAttendanceMinute float64    `json:"avgAttendanceMinutes"`
	EngagementScore     float64    `json:"engagementScore"`
	LastSyncedAt        *time.Time `json:"lastSyncedAt,omitempty"`
}

func (WebinarReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func webinarToReply(w model.Webinar) WebinarReply {
	return WebinarReply{
		ID:                  w.ID,
		UUID:                w.UUID,
		Topic:               w.Topic,
		HostEmail:           w.HostEmail,
		StartTime:           w.StartTime,
		Duration:            w.Duration,
		AttendeeCount:       w.AttendeeCount,
		RegistrantCount:     w.RegistrantCount,
		AvgAttendanceMinute: w.AvgAttendanceMinute,
		EngagementScore:     w.EngagementScore,
		LastSyncedAt:        w.LastSyncedAt,
	}
}

type WebinarListReply struct {
	Webinars []WebinarReply `json:"webinars"`
}

func (WebinarListReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type ParticipantReply struct {
	Key             string     `json:"key"`
	KeyConfidence   string     `json:"keyConfidence"`
	Name            string     `json:"name"`
	Email           string     `json:"email,omitempty"`
	JoinTime        *time.Time `json:"joinTime,omitempty"`
	LeaveTime       *time.Time `json:"leaveTime,omitempty"`
	DurationSeconds int        `json:"durationSeconds"`
	EngagementScore float64    `json:"engagementScore"`
	IsHistorical    bool       `json:"isHistorical"`
	DataAvailable   bool       `json:"dataAvailable"`
	LastSyncedAt    time.Time  `json:"lastSyncedAt"`
}

func participantToReply(p model.Participant) ParticipantReply {
	return ParticipantReply{
		Key:             p.ParticipantKey,
		KeyConfidence:   string(p.KeyConfidence),
		Name:            p.Name,
		Email:           p.Email,
		JoinTime:        p.JoinTime,
		LeaveTime:       p.LeaveTime,
		DurationSeconds: p.DurationSeconds,
		EngagementScore: p.EngagementScore,
		IsHistorical:    p.IsHistorical,
		DataAvailable:   p.DataAvailable,
		LastSyncedAt:    p.LastSyncedAt,
	}
}

type ParticipantListReply struct {
	Participants []ParticipantReply `json:"participants"`
}

func (ParticipantListReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type RegistrantReply struct {
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName,omitempty"`
	LastName      string     `json:"lastName,omitempty"`
	Status        string     `json:"status"`
	RegisteredAt  *time.Time `json:"registeredAt,omitempty"`
	DataAvailable bool       `json:"dataAvailable"`
	LastSyncedAt  time.Time  `json:"lastSyncedAt"`
}

type RegistrantListReply struct {
	Registrants []RegistrantReply `json:"registrants"`
}

func (RegistrantListReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type RecordingReply struct {
	ID             string     `json:"id"`
	InstanceUUID   string     `json:"instanceUuid"`
	FileType       string     `json:"fileType"`
	RecordingType  string     `json:"recordingType"`
	FileSize       int64      `json:"fileSize"`
	RecordingStart *time.Time `json:"recordingStart,omitempty"`
	RecordingEnd   *time.Time `json:"recordingEnd,omitempty"`
	DownloadURL    string     `json:"downloadUrl,omitempty"`
}

type RecordingListReply struct {
	Recordings []RecordingReply `json:"recordings"`
}

func (RecordingListReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type InteractionReply struct {
	Kind     string `json:"kind"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

type InteractionListReply struct {
	Interactions []InteractionReply `json:"interactions"`
}

func (InteractionListReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }
