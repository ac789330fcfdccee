package models

import "time"

// DeviceProduct is the stock ledger row binding a product to a device:
// how many units the machine holds, at what price they sell there, and
// whether the slot is currently purchasable.
//
// Invariant: IsAvailable implies Quantity > 0. The quantity is decremented
// only by transaction settlement and incremented only by operator restocks;
// whenever it reaches zero IsAvailable must be flipped off.
type DeviceProduct struct {
	ID          int        `db:"id" json:"id"`
	DeviceID    int        `db:"device_id" json:"deviceId"`
	ProductID   int        `db:"product_id" json:"productId"`
	Quantity    int        `db:"quantity" json:"quantity"`
	Price       float64    `db:"price" json:"price"`
	Position    *string    `db:"position" json:"position,omitempty"`
	IsAvailable bool       `db:"is_available" json:"isAvailable"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`

	// Joined from products for catalog responses.
	ProductName     string           `db:"product_name" json:"productName,omitempty"`
	ProductCategory *ProductCategory `db:"product_category" json:"productCategory,omitempty"`
	ProductImage    *string          `db:"product_image" json:"productImage,omitempty"`
}
