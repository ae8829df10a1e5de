package domain

import (
	"fmt"
	"time"
)

// AccountConfig holds connection settings and health state for one monitored mailbox.
// Error counters are owned by the mail manager; nothing else writes them.
type AccountConfig struct {
	ID                string     `json:"id" gorm:"primaryKey"`
	Name              string     `json:"name" gorm:"not null"`
	Host              string     `json:"host" gorm:"not null"`
	Port              int        `json:"port" gorm:"default:993"`
	UseTLS            bool       `json:"use_tls" gorm:"default:true"`
	Username          string     `json:"username" gorm:"not null"`
	EncryptedPassword string     `json:"-" gorm:"type:text"`
	Priority          int        `json:"priority" gorm:"default:1"`
	Active            bool       `json:"active" gorm:"default:true;index"`
	ConsecutiveErrors int        `json:"consecutive_errors" gorm:"default:0"`
	LastCheckedAt     *time.Time `json:"last_checked_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (AccountConfig) TableName() string {
	return "account_configs"
}

// Address returns the host:port dial address for the account.
func (a *AccountConfig) Address() string {
	host := a.Host
	if host == "" {
		return ""
	}
	port := a.Port
	if port == 0 {
		port = 993
	}
	return fmt.Sprintf("%s:%d", host, port)
}
