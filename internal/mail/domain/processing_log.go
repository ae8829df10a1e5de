package domain

import "time"

// Processing run statuses
const (
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusError   = "error"
)

// ProcessingLog records the outcome of one ingestion run for one account.
type ProcessingLog struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	AccountID   string    `json:"account_id" gorm:"index;not null"`
	Status      string    `json:"status" gorm:"not null"`
	NewMessages int       `json:"new_messages"`
	TotalSeen   int       `json:"total_seen"`
	Error       string    `json:"error" gorm:"type:text"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (ProcessingLog) TableName() string {
	return "processing_logs"
}
