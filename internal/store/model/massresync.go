package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MassResyncJob tracks fan-out across many webinars, processed in fixed-size
// chunks across repeated invocations. ItemList is the work queue frozen at
// job creation; chunk boundaries are deterministic offsets into it.
type MassResyncJob struct {
	ID              uuid.UUID  `gorm:"primaryKey"`
	Status          string     `gorm:"not null;index"`
	TotalItems      int        `gorm:"not null"`
	ProcessedItems  int        `gorm:"not null;default:0"`
	SuccessfulItems int        `gorm:"not null;default:0"`
	FailedItems     int        `gorm:"not null;default:0"`
	CurrentChunk    int        `gorm:"not null;default:0"`
	TotalChunks     int        `gorm:"not null"`
	ChunkSize       int        `gorm:"not null"`
	ItemList        StringList `gorm:"type:jsonb"`
	Errors          ErrorList  `gorm:"type:jsonb"`
	StartedAt       time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (j MassResyncJob) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}

// Chunk returns the slice of the frozen item list covered by chunkIndex.
func (j *MassResyncJob) Chunk(chunkIndex int) []string {
	start := chunkIndex * j.ChunkSize
	if start >= len(j.ItemList) {
		return nil
	}
	end := start + j.ChunkSize
	if end > len(j.ItemList) {
		end = len(j.ItemList)
	}
	return j.ItemList[start:end]
}

func (j *MassResyncJob) IsComplete() bool {
	return j.ProcessedItems >= j.TotalItems
}

func (j *MassResyncJob) ProgressPercentage() int {
	if j.TotalItems == 0 {
		return 100
	}
	p := j.ProcessedItems * 100 / j.TotalItems
	if p > 100 {
		p = 100
	}
	return p
}
