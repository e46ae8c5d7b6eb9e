package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/podforge/podforge/pkg/model"
)

type JobRunRepository struct {
	db *gorm.DB
}

func NewJobRunRepository(db *gorm.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

func (r *JobRunRepository) Create(ctx context.Context, job *model.JobRun) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Finalize sets the terminal status and detail. JobRuns are never mutated
// again after this.
func (r *JobRunRepository) Finalize(ctx context.Context, id string, status model.JobStatus, detail model.JSONB) error {
	return r.db.WithContext(ctx).Model(&model.JobRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"detail":     detail,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *JobRunRepository) ListByReference(ctx context.Context, referenceID string) ([]model.JobRun, error) {
	var jobs []model.JobRun
	err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("created_at ASC").
		Find(&jobs).Error
	return jobs, err
}
