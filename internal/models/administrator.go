package models

import (
	"time"

	"github.com/fatflowers/gymdesk/pkg/types"
)

type Administrator struct {
	Email     string          `gorm:"column:email;type:varchar(255);primaryKey" json:"email"`
	AddedBy   string          `gorm:"column:added_by;type:varchar(255);not null" json:"added_by"`
	Role      types.AdminRole `gorm:"column:role;type:varchar(32);not null" json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}

func (Administrator) TableName() string {
	return "administrator"
}

// Credential holds the password hash for an administrator login.
type Credential struct {
	Email        string    `gorm:"column:email;type:varchar(255);primaryKey"`
	PasswordHash []byte    `gorm:"column:password_hash;type:bytea;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Credential) TableName() string {
	return "credential"
}
