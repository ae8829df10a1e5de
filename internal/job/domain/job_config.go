package domain

import "time"

// Job types the scheduler knows how to run
const (
	JobTypeIngestion = "ingestion"
	JobTypeScoring   = "scoring"
	JobTypeDigest    = "digest"
	JobTypeOptimizer = "optimizer"
)

// JobConfig is one user-defined recurring job. The authoritative
// next_execution lives here; the scheduler's in-memory job set is only a cache
// rehydrated from this table at startup.
type JobConfig struct {
	ID            string     `json:"id" gorm:"primaryKey"`
	Name          string     `json:"name"`
	JobType       string     `json:"job_type" gorm:"index;not null"`
	Schedule      string     `json:"schedule" gorm:"not null"`
	AccountID     string     `json:"account_id" gorm:"index"`
	WindowHours   int        `json:"window_hours" gorm:"default:24"`
	Active        bool       `json:"active" gorm:"default:true;index"`
	NextExecution *time.Time `json:"next_execution"`
	LastRunAt     *time.Time `json:"last_run_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (JobConfig) TableName() string {
	return "job_configs"
}

// ValidJobType reports whether t is one of the known job types.
func ValidJobType(t string) bool {
	switch t {
	case JobTypeIngestion, JobTypeScoring, JobTypeDigest, JobTypeOptimizer:
		return true
	}
	return false
}
