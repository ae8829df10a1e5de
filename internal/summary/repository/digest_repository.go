package repository

import (
	summarydomain "maildigest/internal/summary/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DigestRepository defines the interface for digest summary persistence.
// Digests are append-only; there is deliberately no update method.
type DigestRepository interface {
	Create(digest *summarydomain.DigestSummary) error
	GetByID(id string) (*summarydomain.DigestSummary, error)
	ListRecent(accountID string, limit int) ([]summarydomain.DigestSummary, error)
}

// digestRepository implements DigestRepository interface
type digestRepository struct {
	db *gorm.DB
}

// NewDigestRepository creates a new instance of digestRepository
func NewDigestRepository(db *gorm.DB) DigestRepository {
	return &digestRepository{
		db: db,
	}
}

func (r *digestRepository) Create(digest *summarydomain.DigestSummary) error {
	if digest.ID == "" {
		digest.ID = uuid.New().String()
	}
	return r.db.Create(digest).Error
}

func (r *digestRepository) GetByID(id string) (*summarydomain.DigestSummary, error) {
	var digest summarydomain.DigestSummary
	err := r.db.Where("id = ?", id).First(&digest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &digest, nil
}

func (r *digestRepository) ListRecent(accountID string, limit int) ([]summarydomain.DigestSummary, error) {
	var digests []summarydomain.DigestSummary
	q := r.db.Order("created_at DESC")
	if accountID != "" {
		q = q.Where("account_id = ?", accountID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&digests).Error
	return digests, err
}
