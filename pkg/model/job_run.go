package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
)

// JobRun is the audit record of one push attempt. A new row is created per
// attempt and never mutated after reaching a terminal status.
type JobRun struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TaskName    string    `gorm:"type:varchar(120);not null"`
	ReferenceID string    `gorm:"type:varchar(100);index"`
	Status      JobStatus `gorm:"type:varchar(16);default:'queued';index"`
	Detail      JSONB     `gorm:"type:jsonb;default:'{}'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (j *JobRun) BeforeCreate(_ *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
