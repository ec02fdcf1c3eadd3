package model

import (
	"encoding/json"
	"time"
)

// Webinar is the locally stored webinar, keyed by the platform's numeric id.
// Aggregate counts are recomputed by the analytics stage from current
// (non-historical) snapshot rows.
type Webinar struct {
	ID                  int64  `gorm:"primaryKey"`
	UUID                string `gorm:"index"`
	Topic               string
	HostID              string
	HostEmail           string
	StartTime           *time.Time
	Duration            int
	Timezone            string
	Agenda              string
	AttendeeCount       int     `gorm:"not null;default:0"`
	RegistrantCount     int     `gorm:"not null;default:0"`
	AvgAttendanceMinute float64 `gorm:"not null;default:0"`
	EngagementScore     float64 `gorm:"not null;default:0"`
	LastSyncedAt        *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type WebinarList []Webinar

func (w Webinar) String() string {
	val, _ := json.Marshal(w)
	return string(val)
}
