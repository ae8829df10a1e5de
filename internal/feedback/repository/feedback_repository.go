package repository

import (
	"time"

	feedbackdomain "maildigest/internal/feedback/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeedbackRepository defines the interface for feedback records. Records are
// created by user actions and read-only for the optimizer.
type FeedbackRepository interface {
	CreateDigestFeedback(fb *feedbackdomain.DigestFeedback) error
	CreateRelevanceFeedback(fb *feedbackdomain.RelevanceFeedback) error
	DigestFeedbackSince(since time.Time) ([]feedbackdomain.DigestFeedback, error)
	RelevanceFeedbackSince(since time.Time) ([]feedbackdomain.RelevanceFeedback, error)
}

// feedbackRepository implements FeedbackRepository interface
type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository creates a new instance of feedbackRepository
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{
		db: db,
	}
}

func (r *feedbackRepository) CreateDigestFeedback(fb *feedbackdomain.DigestFeedback) error {
	if fb.ID == "" {
		fb.ID = uuid.New().String()
	}
	return r.db.Create(fb).Error
}

func (r *feedbackRepository) CreateRelevanceFeedback(fb *feedbackdomain.RelevanceFeedback) error {
	if fb.ID == "" {
		fb.ID = uuid.New().String()
	}
	return r.db.Create(fb).Error
}

func (r *feedbackRepository) DigestFeedbackSince(since time.Time) ([]feedbackdomain.DigestFeedback, error) {
	var records []feedbackdomain.DigestFeedback
	err := r.db.Where("created_at >= ?", since).Order("created_at ASC").Find(&records).Error
	return records, err
}

func (r *feedbackRepository) RelevanceFeedbackSince(since time.Time) ([]feedbackdomain.RelevanceFeedback, error) {
	var records []feedbackdomain.RelevanceFeedback
	err := r.db.Where("created_at >= ?", since).Order("created_at ASC").Find(&records).Error
	return records, err
}
