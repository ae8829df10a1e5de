package repository

import (
	promptdomain "maildigest/internal/prompt/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PromptRepository defines the interface for prompt version operations
type PromptRepository interface {
	Create(prompt *promptdomain.PromptVersion) error
	// EnsureVersion inserts the prompt unless one with the same version name
	// already exists (optimized: 1 query). Returns: (created bool, error)
	EnsureVersion(prompt *promptdomain.PromptVersion) (bool, error)
	GetByID(id string) (*promptdomain.PromptVersion, error)
	GetByVersion(version string) (*promptdomain.PromptVersion, error)
	// GetActive returns the single active prompt for an agent type, or nil
	// when none is active.
	GetActive(agentType string) (*promptdomain.PromptVersion, error)
	List(agentType string) ([]promptdomain.PromptVersion, error)
	IncrementUsage(id string) error
	SetPerformance(id string, score float64, sampleCount int) error
	// Activate makes the given prompt the only active version of its agent
	// type. Deactivate-then-activate runs in one transaction so concurrent
	// callers can never leave two active rows.
	Activate(id string) error
	// BestScored returns the highest-scoring evaluated version for an agent
	// type, or nil when none has been evaluated yet.
	BestScored(agentType string) (*promptdomain.PromptVersion, error)
	// Candidates returns inactive evaluated versions with at least minUsage
	// recorded uses.
	Candidates(agentType string, minUsage int) ([]promptdomain.PromptVersion, error)
}

// promptRepository implements PromptRepository interface
type promptRepository struct {
	db *gorm.DB
}

// NewPromptRepository creates a new instance of promptRepository
func NewPromptRepository(db *gorm.DB) PromptRepository {
	return &promptRepository{
		db: db,
	}
}

func (r *promptRepository) Create(prompt *promptdomain.PromptVersion) error {
	if prompt.ID == "" {
		prompt.ID = uuid.New().String()
	}
	return r.db.Create(prompt).Error
}

func (r *promptRepository) EnsureVersion(prompt *promptdomain.PromptVersion) (bool, error) {
	if prompt.ID == "" {
		prompt.ID = uuid.New().String()
	}

	var existing promptdomain.PromptVersion
	result := r.db.Where("version = ?", prompt.Version).
		Attrs(*prompt).
		FirstOrCreate(&existing)
	if result.Error != nil {
		return false, result.Error
	}

	created := result.RowsAffected > 0
	if !created {
		*prompt = existing
	}
	return created, nil
}

func (r *promptRepository) GetByID(id string) (*promptdomain.PromptVersion, error) {
	return r.first("id = ?", id)
}

func (r *promptRepository) GetByVersion(version string) (*promptdomain.PromptVersion, error) {
	return r.first("version = ?", version)
}

func (r *promptRepository) GetActive(agentType string) (*promptdomain.PromptVersion, error) {
	return r.first("agent_type = ? AND active = ?", agentType, true)
}

func (r *promptRepository) first(query string, args ...interface{}) (*promptdomain.PromptVersion, error) {
	var prompt promptdomain.PromptVersion
	err := r.db.Where(query, args...).First(&prompt).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &prompt, nil
}

func (r *promptRepository) List(agentType string) ([]promptdomain.PromptVersion, error) {
	var prompts []promptdomain.PromptVersion
	q := r.db.Order("created_at ASC")
	if agentType != "" {
		q = q.Where("agent_type = ?", agentType)
	}
	err := q.Find(&prompts).Error
	return prompts, err
}

func (r *promptRepository) IncrementUsage(id string) error {
	return r.db.Model(&promptdomain.PromptVersion{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}

func (r *promptRepository) SetPerformance(id string, score float64, sampleCount int) error {
	return r.db.Model(&promptdomain.PromptVersion{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"performance_score": score,
			"sample_count":      sampleCount,
		}).Error
}

func (r *promptRepository) Activate(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var prompt promptdomain.PromptVersion
		if err := tx.Where("id = ?", id).First(&prompt).Error; err != nil {
			return err
		}

		if err := tx.Model(&promptdomain.PromptVersion{}).
			Where("agent_type = ? AND active = ?", prompt.AgentType, true).
			Update("active", false).Error; err != nil {
			return err
		}

		return tx.Model(&promptdomain.PromptVersion{}).
			Where("id = ?", id).
			Update("active", true).Error
	})
}

func (r *promptRepository) BestScored(agentType string) (*promptdomain.PromptVersion, error) {
	var prompt promptdomain.PromptVersion
	err := r.db.Where("agent_type = ? AND performance_score IS NOT NULL", agentType).
		Order("performance_score DESC").
		First(&prompt).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &prompt, nil
}

func (r *promptRepository) Candidates(agentType string, minUsage int) ([]promptdomain.PromptVersion, error) {
	var prompts []promptdomain.PromptVersion
	err := r.db.Where("agent_type = ? AND active = ? AND usage_count >= ? AND performance_score IS NOT NULL",
		agentType, false, minUsage).
		Find(&prompts).Error
	return prompts, err
}
