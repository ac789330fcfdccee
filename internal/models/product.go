package models

import "time"

// ProductCategory enumerates the supported product categories.
type ProductCategory string

const (
	CategoryClassic   ProductCategory = "classic"
	CategoryPremium   ProductCategory = "premium"
	CategoryFlavored  ProductCategory = "flavored"
	CategorySensitive ProductCategory = "sensitive"
	CategoryExtraSafe ProductCategory = "extra-safe"
)

// Product represents a catalog product. Price here is the list price;
// the sale price for a given machine lives on the DeviceProduct row and
// transactions freeze the amount at purchase time.
type Product struct {
	ID          int             `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description *string         `db:"description" json:"description,omitempty"`
	Price       float64         `db:"price" json:"price"`
	Image       *string         `db:"image" json:"image,omitempty"`
	Category    ProductCategory `db:"category" json:"category"`
	IsActive    bool            `db:"is_active" json:"isActive"`
	Features    JSONMap         `db:"features" json:"features,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}
