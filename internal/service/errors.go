package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id string, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrSyncJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id.String(), "sync job")
}

func NewErrMassResyncJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id.String(), "mass resync job")
}

func NewErrWebinarNotFound(id int64) *ErrResourceNotFound {
	return NewErrResourceNotFound(fmt.Sprintf("%d", id), "webinar")
}

type ErrInvalidJobType struct {
	error
}

func NewErrInvalidJobType(jobType string) *ErrInvalidJobType {
	return &ErrInvalidJobType{fmt.Errorf("invalid job type %q", jobType)}
}

type ErrJobFinished struct {
	error
}

func NewErrJobFinished(id uuid.UUID, status string) *ErrJobFinished {
	return &ErrJobFinished{fmt.Errorf("job %s already finished with status %s", id, status)}
}

type ErrInvalidChunkIndex struct {
	error
}

func NewErrInvalidChunkIndex(index, total int) *ErrInvalidChunkIndex {
	return &ErrInvalidChunkIndex{fmt.Errorf("chunk index %d out of range, job has %d chunks", index, total)}
}
