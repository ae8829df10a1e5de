package repository

import (
	"time"

	jobdomain "maildigest/internal/job/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobConfigRepository defines the interface for job configuration persistence
type JobConfigRepository interface {
	Create(job *jobdomain.JobConfig) error
	Save(job *jobdomain.JobConfig) error
	GetByID(id string) (*jobdomain.JobConfig, error)
	GetActive() ([]jobdomain.JobConfig, error)
	List() ([]jobdomain.JobConfig, error)
	// UpdateNextExecution persists the computed next execution time; pass nil
	// to clear it (job unscheduled).
	UpdateNextExecution(id string, next *time.Time) error
	// MarkRan records that the job finished a run at the given time.
	MarkRan(id string, ranAt time.Time) error
}

// jobConfigRepository implements JobConfigRepository interface
type jobConfigRepository struct {
	db *gorm.DB
}

// NewJobConfigRepository creates a new instance of jobConfigRepository
func NewJobConfigRepository(db *gorm.DB) JobConfigRepository {
	return &jobConfigRepository{
		db: db,
	}
}

func (r *jobConfigRepository) Create(job *jobdomain.JobConfig) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	return r.db.Create(job).Error
}

func (r *jobConfigRepository) Save(job *jobdomain.JobConfig) error {
	return r.db.Save(job).Error
}

func (r *jobConfigRepository) GetByID(id string) (*jobdomain.JobConfig, error) {
	var job jobdomain.JobConfig
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *jobConfigRepository) GetActive() ([]jobdomain.JobConfig, error) {
	var jobs []jobdomain.JobConfig
	err := r.db.Where("active = ?", true).Order("created_at ASC").Find(&jobs).Error
	return jobs, err
}

func (r *jobConfigRepository) List() ([]jobdomain.JobConfig, error) {
	var jobs []jobdomain.JobConfig
	err := r.db.Order("created_at ASC").Find(&jobs).Error
	return jobs, err
}

func (r *jobConfigRepository) UpdateNextExecution(id string, next *time.Time) error {
	return r.db.Model(&jobdomain.JobConfig{}).
		Where("id = ?", id).
		Update("next_execution", next).Error
}

func (r *jobConfigRepository) MarkRan(id string, ranAt time.Time) error {
	return r.db.Model(&jobdomain.JobConfig{}).
		Where("id = ?", id).
		Update("last_run_at", ranAt).Error
}
