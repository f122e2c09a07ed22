package models

import (
	"time"

	"github.com/fatflowers/gymdesk/pkg/types"
)

// Payment is an immutable ledger entry. It is only removed together with
// its subscriber.
type Payment struct {
	ID           string              `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	SubscriberID string              `gorm:"column:subscriber_id;type:varchar(64);not null;index" json:"subscriber_id"`
	Amount       int64               `gorm:"column:amount;type:bigint;not null" json:"amount"`
	PaidAt       time.Time           `gorm:"column:paid_at;not null;index" json:"paid_at"`
	Method       types.PaymentMethod `gorm:"column:method;type:varchar(32);not null" json:"method"`
	Comment      string              `gorm:"column:comment;type:text" json:"comment"`
	CreatedAt    time.Time           `json:"created_at"`
}

func (Payment) TableName() string {
	return "payment"
}

// Field exposes filterable columns to types.CommonFilter.Match.
func (p *Payment) Field(name string) (any, bool) {
	switch name {
	case "id":
		return p.ID, true
	case "subscriber_id":
		return p.SubscriberID, true
	case "amount":
		return p.Amount, true
	case "paid_at":
		return p.PaidAt, true
	case "method":
		return string(p.Method), true
	}
	return nil, false
}
