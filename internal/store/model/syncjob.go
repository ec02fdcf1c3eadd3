package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobType string

const (
	JobTypeDiscovery     JobType = "discovery"
	JobTypeDetailed      JobType = "detailed"
	JobTypeComprehensive JobType = "comprehensive"
	JobTypeMassResync    JobType = "chunked-mass-resync"
)

// Job status constants
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Stage status constants
const (
	StageStatusPending   = "pending"
	StageStatusRunning   = "running"
	StageStatusCompleted = "completed"
	StageStatusFailed    = "failed"
)

// SyncStage is one named phase of a job. Stages are embedded in the job row
// as a JSON column rather than a separate table so that the whole job status
// is published as one atomic snapshot.
type SyncStage struct {
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

type StageList []SyncStage

func (s StageList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	val, err := json.Marshal(s)
	return string(val), err
}

func (s *StageList) Scan(value any) error {
	return scanJSON(value, s)
}

type SyncJob struct {
	ID           uuid.UUID `gorm:"primaryKey"`
	JobType      JobType   `gorm:"not null"`
	Status       string    `gorm:"not null;index"`
	Progress     int       `gorm:"not null;default:0"`
	Version      int       `gorm:"not null;default:0"`
	Stages       StageList `gorm:"type:jsonb"`
	Metadata     Metadata  `gorm:"type:jsonb"`
	Errors       ErrorList `gorm:"type:jsonb"`
	ErrorMessage *string
	StartedAt    time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (j SyncJob) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}

// Finished reports whether the job reached a terminal status.
func (j *SyncJob) Finished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
