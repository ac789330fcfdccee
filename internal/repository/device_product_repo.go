package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sauverpro/Safe-Vend-Backend/internal/models"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
)

// DeviceProductRepository handles data access for the per-device stock ledger.
type DeviceProductRepository struct {
	db *sqlx.DB
}

// NewDeviceProductRepository creates a new DeviceProductRepository.
func NewDeviceProductRepository(db *sqlx.DB) *DeviceProductRepository {
	return &DeviceProductRepository{db: db}
}

const stockSelectColumns = `
        dp.id, dp.device_id, dp.product_id, dp.quantity, dp.price, dp.position,
        dp.is_available, dp.created_at, dp.updated_at,
        p.name AS product_name, p.category AS product_category, p.image AS product_image`

// GetByDeviceProduct returns the stock row for a (device, product) pair with
// the product name joined in.
func (r *DeviceProductRepository) GetByDeviceProduct(ctx context.Context, deviceID, productID int) (*models.DeviceProduct, error) {
	const q = `
        SELECT ` + stockSelectColumns + `
        FROM device_products dp
        JOIN products p ON dp.product_id = p.id
        WHERE dp.device_id = $1 AND dp.product_id = $2
        LIMIT 1`
	var dp models.DeviceProduct
	if err := r.db.GetContext(ctx, &dp, q, deviceID, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrStockRowNotFound
		}
		return nil, err
	}
	return &dp, nil
}

// ListByDevice returns all stock rows for a device.
func (r *DeviceProductRepository) ListByDevice(ctx context.Context, deviceID int) ([]models.DeviceProduct, error) {
	const q = `
        SELECT ` + stockSelectColumns + `
        FROM device_products dp
        JOIN products p ON dp.product_id = p.id
        WHERE dp.device_id = $1
        ORDER BY dp.position NULLS LAST, p.name`
	rows := []models.DeviceProduct{}
	if err := r.db.SelectContext(ctx, &rows, q, deviceID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAvailableByDevice returns only purchasable stock rows for a device,
// used for the customer-facing storefront.
func (r *DeviceProductRepository) ListAvailableByDevice(ctx context.Context, deviceID int) ([]models.DeviceProduct, error) {
	const q = `
        SELECT ` + stockSelectColumns + `
        FROM device_products dp
        JOIN products p ON dp.product_id = p.id
        WHERE dp.device_id = $1 AND dp.is_available = true AND dp.quantity > 0
          AND p.is_active = true
        ORDER BY dp.position NULLS LAST, p.name`
	rows := []models.DeviceProduct{}
	if err := r.db.SelectContext(ctx, &rows, q, deviceID); err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert creates or replaces the stock row for a (device, product) pair.
// Restocking a sold-out slot re-enables availability when quantity > 0.
func (r *DeviceProductRepository) Upsert(ctx context.Context, dp *models.DeviceProduct) error {
	const q = `
        INSERT INTO device_products (device_id, product_id, quantity, price, position, is_available)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (device_id, product_id) DO UPDATE SET
            quantity = EXCLUDED.quantity,
            price = EXCLUDED.price,
            position = EXCLUDED.position,
            is_available = EXCLUDED.is_available,
            updated_at = NOW()
        RETURNING id, created_at, updated_at`
	dp.IsAvailable = dp.IsAvailable && dp.Quantity > 0
	return r.db.QueryRowxContext(ctx, q,
		dp.DeviceID, dp.ProductID, dp.Quantity, dp.Price, dp.Position, dp.IsAvailable,
	).Scan(&dp.ID, &dp.CreatedAt, &dp.UpdatedAt)
}

// Decrement atomically takes qty units off the stock row, returning the
// remaining quantity. The conditional UPDATE is the oversell guard: the
// database serializes concurrent settlements on the same row, and a row whose
// quantity is already below qty is left untouched, in which case
// utils.ErrInsufficientStock is returned. Availability is flipped off in the
// same statement when the row hits zero.
func (r *DeviceProductRepository) Decrement(ctx context.Context, deviceID, productID, qty int) (int, error) {
	const q = `
        UPDATE device_products SET
            quantity = quantity - $3,
            is_available = (quantity - $3) > 0,
            updated_at = NOW()
        WHERE device_id = $1 AND product_id = $2 AND quantity >= $3
        RETURNING quantity`
	var remaining int
	err := r.db.QueryRowxContext(ctx, q, deviceID, productID, qty).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the row vanished or stock ran out between check and settle.
		if _, getErr := r.GetByDeviceProduct(ctx, deviceID, productID); getErr != nil {
			return 0, getErr
		}
		return 0, utils.ErrInsufficientStock
	}
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// Delete removes a stock row.
func (r *DeviceProductRepository) Delete(ctx context.Context, deviceID, productID int) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM device_products WHERE device_id = $1 AND product_id = $2`, deviceID, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrStockRowNotFound
	}
	return nil
}
