package service

import (
	"context"
	"time"

	"github.com/sauverpro/Safe-Vend-Backend/internal/models"
	"github.com/sauverpro/Safe-Vend-Backend/internal/repository"
)

// Store interfaces consumed by the services. The sqlx repositories in
// internal/repository implement them against PostgreSQL; the Mem* stores
// implement them in memory for tests.

// DeviceStore persists vending devices.
type DeviceStore interface {
	Create(ctx context.Context, d *models.Device) error
	GetByID(ctx context.Context, id int) (*models.Device, error)
	GetByQRData(ctx context.Context, qrData string) (*models.Device, error)
	List(ctx context.Context, status string) ([]models.Device, error)
	Update(ctx context.Context, d *models.Device) error
	Delete(ctx context.Context, id int) error
}

// ProductStore persists catalog products.
type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id int) (*models.Product, error)
	List(ctx context.Context, category string, isActive *bool) ([]models.Product, error)
	Update(ctx context.Context, p *models.Product) error
	Deactivate(ctx context.Context, id int) error
	Delete(ctx context.Context, id int) error
}

// StockStore persists the per-device stock ledger. Decrement must be atomic
// per (deviceID, productID) row and must refuse to take quantity below zero.
type StockStore interface {
	GetByDeviceProduct(ctx context.Context, deviceID, productID int) (*models.DeviceProduct, error)
	ListByDevice(ctx context.Context, deviceID int) ([]models.DeviceProduct, error)
	ListAvailableByDevice(ctx context.Context, deviceID int) ([]models.DeviceProduct, error)
	Upsert(ctx context.Context, dp *models.DeviceProduct) error
	Decrement(ctx context.Context, deviceID, productID, qty int) (remaining int, err error)
	Delete(ctx context.Context, deviceID, productID int) error
}

// TransactionStore persists purchase transactions. ClaimSettlement must be a
// guarded initiated-to-processing transition so only one settlement attempt
// per transaction proceeds.
type TransactionStore interface {
	Create(ctx context.Context, trx *models.Transaction) error
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error)
	ClaimSettlement(ctx context.Context, transactionID string) (bool, error)
	Complete(ctx context.Context, transactionID, paymentReference string) error
	Fail(ctx context.Context, transactionID string, metadata models.JSONMap) error
	ListStale(ctx context.Context, olderThan time.Duration) ([]models.Transaction, error)
	ExistsForDevice(ctx context.Context, deviceID int) (bool, error)
	ExistsForProduct(ctx context.Context, productID int) (bool, error)
	List(ctx context.Context, filter *repository.TransactionFilter) (*repository.TransactionPage, error)
	ListByDevice(ctx context.Context, deviceID, limit, offset int) ([]models.Transaction, int, error)
}
