package model

import (
	"time"

	"github.com/google/uuid"
)

// KeyConfidence tags how a snapshot's natural key was resolved.
type KeyConfidence string

const (
	// KeyConfidenceStable means the key came from a stable remote identifier.
	KeyConfidenceStable KeyConfidence = "stable"
	// KeyConfidenceDerived means the key was composed from page position and
	// whatever identity fields were present. Derived keys are not guaranteed
	// unique across resyncs and surface in reconciliation reports.
	KeyConfidenceDerived KeyConfidence = "derived"
)

// Participant is one observed version of an attendee. The store is an
// append-only ledger: for a given (webinar_id, participant_key) at most one
// row has is_historical = false; superseded versions are retained.
type Participant struct {
	ID              uuid.UUID     `gorm:"primaryKey"`
	WebinarID       int64         `gorm:"not null;index:idx_participants_natural_key"`
	ParticipantKey  string        `gorm:"not null;index:idx_participants_natural_key"`
	KeyConfidence   KeyConfidence `gorm:"not null;default:stable"`
	RemoteID        string
	UserID          string
	Name            string
	Email           string
	JoinTime        *time.Time
	LeaveTime       *time.Time
	DurationSeconds int
	EngagementScore float64
	Checksum        string `gorm:"not null"`
	IsHistorical    bool   `gorm:"not null;default:false;index"`
	DataAvailable   bool   `gorm:"not null;default:true"`
	LastSyncedAt    time.Time
	CreatedAt       time.Time
}

// Registrant is one observed version of a webinar registration, keyed by
// (webinar_id, email). Same ledger semantics as Participant.
type Registrant struct {
	ID            uuid.UUID `gorm:"primaryKey"`
	WebinarID     int64     `gorm:"not null;index:idx_registrants_natural_key"`
	Email         string    `gorm:"not null;index:idx_registrants_natural_key"`
	RemoteID      string
	FirstName     string
	LastName      string
	Status        string
	RegisteredAt  *time.Time
	Checksum      string `gorm:"not null"`
	IsHistorical  bool   `gorm:"not null;default:false;index"`
	DataAvailable bool   `gorm:"not null;default:true"`
	LastSyncedAt  time.Time
	CreatedAt     time.Time
}
