package models

import "time"

type PaymentMethod string
type PaymentStatus string
type TransactionStatus string

const (
	PaymentMpesa PaymentMethod = "mpesa"
	PaymentCard  PaymentMethod = "card"
	PaymentCash  PaymentMethod = "cash"
	PaymentOther PaymentMethod = "other"
)

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

const (
	StatusInitiated  TransactionStatus = "initiated"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusCancelled  TransactionStatus = "cancelled"
)

// ValidPaymentMethod reports whether m is one of the accepted methods.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMpesa, PaymentCard, PaymentCash, PaymentOther:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further purchase-flow transitions.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Transaction records a single purchase attempt. Amount is frozen at
// creation from the DeviceProduct price; Status and PaymentStatus move
// together (initiated/pending, completed/completed, failed/failed) and are
// mutated only by the lifecycle engine once the row exists.
type Transaction struct {
	ID               int               `db:"id" json:"-"`
	TransactionID    string            `db:"transaction_id" json:"transactionId"`
	DeviceID         int               `db:"device_id" json:"deviceId"`
	ProductID        int               `db:"product_id" json:"productId"`
	Quantity         int               `db:"quantity" json:"quantity"`
	Amount           float64           `db:"amount" json:"amount"`
	PaymentMethod    PaymentMethod     `db:"payment_method" json:"paymentMethod"`
	PaymentStatus    PaymentStatus     `db:"payment_status" json:"paymentStatus"`
	PaymentReference *string           `db:"payment_reference" json:"paymentReference,omitempty"`
	Status           TransactionStatus `db:"status" json:"status"`
	CustomerPhone    *string           `db:"customer_phone" json:"customerPhone,omitempty"`
	Metadata         JSONMap           `db:"metadata" json:"metadata,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`

	// Joined from devices/products for listing and status responses.
	DeviceName     *string  `db:"device_name" json:"-"`
	DeviceLocation *string  `db:"device_location" json:"-"`
	ProductName    *string  `db:"product_name" json:"-"`
	ProductPrice   *float64 `db:"product_price" json:"-"`
}
