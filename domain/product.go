package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product stock is split into what is physically on hand (Stock) and what
// is held by unpaid orders (Reserved). 0 <= Reserved <= Stock always holds.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	FarmerID    uint            `gorm:"column:farmer_id;not null" json:"farmer_id"`
	CategoryID  *uint           `gorm:"column:category_id" json:"category_id"`
	Name        string          `gorm:"column:name;not null" json:"name"`
	Description string          `gorm:"column:description" json:"description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2)" json:"price"`
	Stock       int             `gorm:"column:stock" json:"stock"`
	Reserved    int             `gorm:"column:reserved" json:"reserved"`
	ImageURL    string          `gorm:"column:image_url" json:"image_url"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Farmer   *User     `gorm:"foreignKey:FarmerID" json:"farmer,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// Available is the quantity that can still be ordered.
func (p Product) Available() int {
	return p.Stock - p.Reserved
}

type ProductFilter struct {
	CategoryID uint
	FarmerID   uint
	Search     string
}
