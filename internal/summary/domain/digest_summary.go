package domain

import "time"

// DigestSummary is one synthesized digest over a time window of relevant
// messages. Rows are immutable after creation; the prompt version is stored so
// later feedback can be attributed to the prompt that produced the text.
type DigestSummary struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	AccountID         string    `json:"account_id" gorm:"index"`
	WindowStart       time.Time `json:"window_start"`
	WindowEnd         time.Time `json:"window_end"`
	Summary           string    `json:"summary" gorm:"type:text"`
	TotalCount        int       `json:"total_count"`
	RelevantCount     int       `json:"relevant_count"`
	HighPriorityCount int       `json:"high_priority_count"`
	PromptVersion     string    `json:"prompt_version" gorm:"index"`
	ModelUsed         string    `json:"model_used"`
	TokensUsed        int       `json:"tokens_used"`
	DurationMs        int64     `json:"duration_ms"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (DigestSummary) TableName() string {
	return "digest_summaries"
}
