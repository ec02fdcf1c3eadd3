package model

import (
	"time"
)

// Recording is one recording file of a past webinar instance, keyed by the
// platform's file id.
type Recording struct {
	ID             string `gorm:"primaryKey"`
	WebinarID      int64  `gorm:"not null;index"`
	InstanceUUID   string `gorm:"not null;index"`
	FileType       string
	RecordingType  string
	FileSize       int64
	RecordingStart *time.Time
	RecordingEnd   *time.Time
	DownloadURL    string
	LastSyncedAt   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Interaction kinds
const (
	InteractionKindQA   = "qa"
	InteractionKindPoll = "poll"
)

// Interaction is a single question/answer or poll answer by one attendee in
// one past instance. Upserted on the composite natural key.
type Interaction struct {
	ID           string `gorm:"primaryKey"` // deterministic hash of the natural key
	WebinarID    int64  `gorm:"not null;index"`
	InstanceUUID string `gorm:"not null"`
	Kind         string `gorm:"not null"`
	Email        string
	Name         string
	Question     string
	Answer       string
	LastSyncedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
