package repository

import (
	"time"

	accountdomain "maildigest/internal/account/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRepository defines the interface for mailbox account operations
type AccountRepository interface {
	Create(account *accountdomain.AccountConfig) error
	Save(account *accountdomain.AccountConfig) error
	GetByID(id string) (*accountdomain.AccountConfig, error)
	GetActive() ([]accountdomain.AccountConfig, error)
	List() ([]accountdomain.AccountConfig, error)
	// MarkSuccess records a successful fetch: resets the error counter and
	// updates the last-checked timestamp.
	MarkSuccess(id string, checkedAt time.Time) error
	// MarkFailure increments the consecutive error counter and updates the
	// last-checked timestamp.
	MarkFailure(id string, checkedAt time.Time) error
	// ResetErrors clears the error counter and last-checked timestamp
	// (force-sync action).
	ResetErrors(id string) error
	// GetDegraded returns active accounts whose consecutive error counter has
	// reached the given threshold.
	GetDegraded(minErrors int) ([]accountdomain.AccountConfig, error)
	// GetStale returns active accounts whose last successful check is older
	// than the cutoff.
	GetStale(cutoff time.Time) ([]accountdomain.AccountConfig, error)
}

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new instance of accountRepository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (r *accountRepository) Create(account *accountdomain.AccountConfig) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	return r.db.Create(account).Error
}

func (r *accountRepository) Save(account *accountdomain.AccountConfig) error {
	return r.db.Save(account).Error
}

func (r *accountRepository) GetByID(id string) (*accountdomain.AccountConfig, error) {
	var account accountdomain.AccountConfig
	err := r.db.Where("id = ?", id).First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetActive() ([]accountdomain.AccountConfig, error) {
	var accounts []accountdomain.AccountConfig
	err := r.db.Where("active = ?", true).Order("priority DESC, created_at ASC").Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) List() ([]accountdomain.AccountConfig, error) {
	var accounts []accountdomain.AccountConfig
	err := r.db.Order("created_at ASC").Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) MarkSuccess(id string, checkedAt time.Time) error {
	return r.db.Model(&accountdomain.AccountConfig{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"consecutive_errors": 0,
			"last_checked_at":    checkedAt,
		}).Error
}

func (r *accountRepository) MarkFailure(id string, checkedAt time.Time) error {
	return r.db.Model(&accountdomain.AccountConfig{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"consecutive_errors": gorm.Expr("consecutive_errors + 1"),
			"last_checked_at":    checkedAt,
		}).Error
}

func (r *accountRepository) ResetErrors(id string) error {
	return r.db.Model(&accountdomain.AccountConfig{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"consecutive_errors": 0,
			"last_checked_at":    nil,
		}).Error
}

func (r *accountRepository) GetDegraded(minErrors int) ([]accountdomain.AccountConfig, error) {
	var accounts []accountdomain.AccountConfig
	err := r.db.Where("active = ? AND consecutive_errors >= ?", true, minErrors).
		Order("consecutive_errors DESC").Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) GetStale(cutoff time.Time) ([]accountdomain.AccountConfig, error) {
	var accounts []accountdomain.AccountConfig
	err := r.db.Where("active = ? AND last_checked_at IS NOT NULL AND last_checked_at < ?", true, cutoff).
		Order("last_checked_at ASC").Find(&accounts).Error
	return accounts, err
}
