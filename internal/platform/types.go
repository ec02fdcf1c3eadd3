package platform

import (
	"encoding/json"
	"time"
)

// Wire types for the remote webinar platform API. Field names follow the
// platform's JSON payloads.

type Webinar struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	Topic     string    `json:"topic"`
	HostID    string    `json:"host_id"`
	HostEmail string    `json:"host_email"`
	StartTime time.Time `json:"start_time"`
	Duration  int       `json:"duration"`
	Timezone  string    `json:"timezone"`
	Agenda    string    `json:"agenda"`
	CreatedAt time.Time `json:"created_at"`
}

type WebinarInstance struct {
	UUID      string    `json:"uuid"`
	StartTime time.Time `json:"start_time"`
}

type Participant struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Name              string    `json:"name"`
	UserEmail         string    `json:"user_email"`
	JoinTime          time.Time `json:"join_time"`
	LeaveTime         time.Time `json:"leave_time"`
	Duration          int       `json:"duration"`
	RegistrantID      string    `json:"registrant_id"`
	InternalUser      bool      `json:"internal_user"`
	ParticipantUserID string    `json:"participant_user_id"`
}

type Registrant struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Status     string    `json:"status"`
	CreateTime time.Time `json:"create_time"`
	JoinURL    string    `json:"join_url"`
}

type Recording struct {
	UUID           string          `json:"uuid"`
	ID             int64           `json:"id"`
	Topic          string          `json:"topic"`
	StartTime      time.Time       `json:"start_time"`
	Duration       int             `json:"duration"`
	TotalSize      int64           `json:"total_size"`
	RecordingCount int             `json:"recording_count"`
	ShareURL       string          `json:"share_url"`
	RecordingFiles []RecordingFile `json:"recording_files"`
}

type RecordingFile struct {
	ID             string    `json:"id"`
	FileType       string    `json:"file_type"`
	FileSize       int64     `json:"file_size"`
	RecordingType  string    `json:"recording_type"`
	RecordingStart time.Time `json:"recording_start"`
	RecordingEnd   time.Time `json:"recording_end"`
	DownloadURL    string    `json:"download_url"`
}

type QuestionDetail struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QAItem is one attendee's set of Q&A entries for a past instance. Poll
// results share the wire shape and decode through it as well.
type QAItem struct {
	Name            string           `json:"name"`
	Email           string           `json:"email"`
	QuestionDetails []QuestionDetail `json:"question_details"`
}

// DecodeItems unmarshals a list of raw page items into typed values,
// skipping items that fail to decode.
func DecodeItems[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, raw := range items {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
