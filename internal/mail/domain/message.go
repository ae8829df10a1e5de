package domain

import "time"

// Message is one ingested mail message. The (account_id, provider_message_id)
// pair is unique; re-ingesting the same message is a no-op.
type Message struct {
	ID                string     `json:"id" gorm:"primaryKey"`
	AccountID         string     `json:"account_id" gorm:"index:idx_account_message;uniqueIndex:idx_account_message_unique;not null"`
	ProviderMessageID string     `json:"provider_message_id" gorm:"index:idx_account_message;uniqueIndex:idx_account_message_unique;not null"`
	Sender            string     `json:"sender"`
	Subject           string     `json:"subject"`
	Body              string     `json:"body" gorm:"type:text"`
	ReceivedAt        time.Time  `json:"received_at" gorm:"index"`
	RelevanceScore    *int       `json:"relevance_score"`
	Confidence        *float64   `json:"confidence"`
	Category          string     `json:"category"`
	Reasoning         string     `json:"reasoning" gorm:"type:text"`
	Processed         bool       `json:"processed" gorm:"default:false;index"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}
