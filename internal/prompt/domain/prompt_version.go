package domain

import "time"

// Agent types a prompt version can belong to
const (
	AgentTypeScoring = "scoring"
	AgentTypeDigest  = "digest"
)

// AgentTypes lists all known agent types.
var AgentTypes = []string{AgentTypeScoring, AgentTypeDigest}

// PromptVersion is one versioned prompt template. At most one version per
// agent type is active at any time; activation goes through the repository's
// transactional Activate so the invariant cannot be violated by concurrent
// optimizer runs.
type PromptVersion struct {
	ID               string     `json:"id" gorm:"primaryKey"`
	Version          string     `json:"version" gorm:"uniqueIndex;not null"`
	AgentType        string     `json:"agent_type" gorm:"index;not null"`
	Template         string     `json:"template" gorm:"type:text"`
	Active           bool       `json:"active" gorm:"default:false;index"`
	UsageCount       int        `json:"usage_count" gorm:"default:0"`
	PerformanceScore *float64   `json:"performance_score"`
	SampleCount      int        `json:"sample_count" gorm:"default:0"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PromptVersion) TableName() string {
	return "prompt_versions"
}
