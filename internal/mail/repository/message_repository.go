package repository

import (
	"time"

	maildomain "maildigest/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for message persistence
type MessageRepository interface {
	// EnsureMessage inserts the message unless one with the same
	// (account_id, provider_message_id) already exists (optimized: 1 query).
	// Returns: (created bool, error)
	EnsureMessage(msg *maildomain.Message) (bool, error)
	GetByID(id string) (*maildomain.Message, error)
	// GetUnscored returns messages that have not been scored yet, oldest first.
	GetUnscored(limit int) ([]maildomain.Message, error)
	// MarkScored sets the relevance fields and flips processed to true. The
	// update is guarded on processed = false so a message is scored at most
	// once; returns false when the message was already processed.
	MarkScored(id string, score int, confidence float64, category, reasoning string) (bool, error)
	// GetScoredInWindow returns processed messages for an account received in
	// [start, end) with a relevance score of at least minScore.
	GetScoredInWindow(accountID string, start, end time.Time, minScore int) ([]maildomain.Message, error)
	// CountInWindow counts all messages for an account received in [start, end).
	CountInWindow(accountID string, start, end time.Time) (int64, error)
	// DeleteOlderThan removes messages received before the cutoff (retention sweep).
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// messageRepository implements MessageRepository interface
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new instance of messageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

func (r *messageRepository) EnsureMessage(msg *maildomain.Message) (bool, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	var existing maildomain.Message
	result := r.db.Where("account_id = ? AND provider_message_id = ?", msg.AccountID, msg.ProviderMessageID).
		Attrs(*msg).
		FirstOrCreate(&existing)
	if result.Error != nil {
		return false, result.Error
	}

	// RowsAffected > 0 means the row was just created
	created := result.RowsAffected > 0
	if !created {
		*msg = existing
	}
	return created, nil
}

func (r *messageRepository) GetByID(id string) (*maildomain.Message, error) {
	var msg maildomain.Message
	err := r.db.Where("id = ?", id).First(&msg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) GetUnscored(limit int) ([]maildomain.Message, error) {
	var msgs []maildomain.Message
	q := r.db.Where("processed = ?", false).Order("received_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) MarkScored(id string, score int, confidence float64, category, reasoning string) (bool, error) {
	result := r.db.Model(&maildomain.Message{}).
		Where("id = ? AND processed = ?", id, false).
		Updates(map[string]interface{}{
			"relevance_score": score,
			"confidence":      confidence,
			"category":        category,
			"reasoning":       reasoning,
			"processed":       true,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *messageRepository) GetScoredInWindow(accountID string, start, end time.Time, minScore int) ([]maildomain.Message, error) {
	var msgs []maildomain.Message
	q := r.db.Where("processed = ? AND received_at >= ? AND received_at < ? AND relevance_score >= ?",
		true, start, end, minScore)
	if accountID != "" {
		q = q.Where("account_id = ?", accountID)
	}
	err := q.Order("relevance_score DESC, received_at DESC").Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) CountInWindow(accountID string, start, end time.Time) (int64, error) {
	var count int64
	q := r.db.Model(&maildomain.Message{}).
		Where("received_at >= ? AND received_at < ?", start, end)
	if accountID != "" {
		q = q.Where("account_id = ?", accountID)
	}
	err := q.Count(&count).Error
	return count, err
}

func (r *messageRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("received_at < ?", cutoff).Delete(&maildomain.Message{})
	return result.RowsAffected, result.Error
}
