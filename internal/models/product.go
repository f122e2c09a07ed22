package models

import "time"

type Product struct {
	ID        string    `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Price     int64     `gorm:"column:price;type:bigint;not null" json:"price"`
	Stock     int64     `gorm:"column:stock;type:bigint;not null;check:stock >= 0" json:"stock"`
	Unit      string    `gorm:"column:unit;type:varchar(32)" json:"unit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "product"
}
