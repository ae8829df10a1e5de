package domain

import "time"

// DigestFeedback is a user rating of one digest. The rating uses an inverted
// school-grade scale: 1 is best, 6 is worst.
type DigestFeedback struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	DigestID  string    `json:"digest_id" gorm:"index;not null"`
	Rating    int       `json:"rating" gorm:"not null"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName specifies the table name for GORM
func (DigestFeedback) TableName() string {
	return "feedback_digest"
}

// RelevanceFeedback is a user correction of one AI relevance score: the score
// the AI gave next to the score the user would have given.
type RelevanceFeedback struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	MessageID   string    `json:"message_id" gorm:"index;not null"`
	AIScore     int       `json:"ai_score" gorm:"not null"`
	ManualScore int       `json:"manual_score" gorm:"not null"`
	Comment     string    `json:"comment" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

// TableName specifies the table name for GORM
func (RelevanceFeedback) TableName() string {
	return "feedback_relevance"
}
