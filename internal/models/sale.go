package models

import "time"

// Sale records a point-of-sale transaction. ProductName and SubscriberName
// are snapshots taken at sale time and are not kept in sync.
type Sale struct {
	ID             string    `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	ProductID      string    `gorm:"column:product_id;type:varchar(64);not null;index" json:"product_id"`
	ProductName    string    `gorm:"column:product_name;type:varchar(255);not null" json:"product_name"`
	Quantity       int64     `gorm:"column:quantity;type:bigint;not null" json:"quantity"`
	UnitPrice      int64     `gorm:"column:unit_price;type:bigint;not null" json:"unit_price"`
	Total          int64     `gorm:"column:total;type:bigint;not null" json:"total"`
	SubscriberID   string    `gorm:"column:subscriber_id;type:varchar(64);index" json:"subscriber_id,omitempty"`
	SubscriberName string    `gorm:"column:subscriber_name;type:varchar(255)" json:"subscriber_name,omitempty"`
	SoldAt         time.Time `gorm:"column:sold_at;not null;index" json:"sold_at"`
}

func (Sale) TableName() string {
	return "sale"
}

func (s *Sale) Field(name string) (any, bool) {
	switch name {
	case "id":
		return s.ID, true
	case "product_id":
		return s.ProductID, true
	case "subscriber_id":
		return s.SubscriberID, true
	case "quantity":
		return s.Quantity, true
	case "total":
		return s.Total, true
	case "sold_at":
		return s.SoldAt, true
	}
	return nil, false
}
