package domain

import (
	"time"
)

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Unit      string    `gorm:"column:unit" json:"unit"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`

	ProductCount int64 `gorm:"->;column:product_count;-:migration" json:"product_count"`
}

func (Category) TableName() string {
	return "categories"
}
