package repository

import (
	maildomain "maildigest/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcessingLogRepository defines the interface for ingestion run logs
type ProcessingLogRepository interface {
	Create(entry *maildomain.ProcessingLog) error
	ListRecent(accountID string, limit int) ([]maildomain.ProcessingLog, error)
}

// processingLogRepository implements ProcessingLogRepository interface
type processingLogRepository struct {
	db *gorm.DB
}

// NewProcessingLogRepository creates a new instance of processingLogRepository
func NewProcessingLogRepository(db *gorm.DB) ProcessingLogRepository {
	return &processingLogRepository{
		db: db,
	}
}

func (r *processingLogRepository) Create(entry *maildomain.ProcessingLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	return r.db.Create(entry).Error
}

func (r *processingLogRepository) ListRecent(accountID string, limit int) ([]maildomain.ProcessingLog, error) {
	var entries []maildomain.ProcessingLog
	q := r.db.Order("created_at DESC")
	if accountID != "" {
		q = q.Where("account_id = ?", accountID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&entries).Error
	return entries, err
}
