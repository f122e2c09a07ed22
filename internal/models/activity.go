package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is the persisted copy of a domain event, kept so the
// dashboard can show who did what.
type ActivityLog struct {
	ID         string         `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	Type       string         `gorm:"column:type;type:varchar(64);not null;index" json:"type"`
	Actor      string         `gorm:"column:actor;type:varchar(255)" json:"actor"`
	Payload    datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	OccurredAt time.Time      `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_log" }
