package utils

import "errors"

// Common application errors used across services.
var (
	ErrDeviceNotFound       = errors.New("DEVICE_NOT_FOUND")
	ErrDeviceInactive       = errors.New("DEVICE_INACTIVE")
	ErrDeviceHasTrx         = errors.New("DEVICE_HAS_TRANSACTIONS")
	ErrProductNotFound      = errors.New("PRODUCT_NOT_FOUND")
	ErrProductUnavailable   = errors.New("PRODUCT_UNAVAILABLE")
	ErrInsufficientStock    = errors.New("INSUFFICIENT_STOCK")
	ErrStockRowNotFound     = errors.New("STOCK_ROW_NOT_FOUND")
	ErrTransactionNotFound  = errors.New("TRANSACTION_NOT_FOUND")
	ErrInvalidQuantity      = errors.New("INVALID_QUANTITY")
	ErrInvalidPaymentMethod = errors.New("INVALID_PAYMENT_METHOD")
	ErrInvalidCredentials   = errors.New("INVALID_CREDENTIALS")
)
