package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sauverpro/Safe-Vend-Backend/internal/models"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
)

// DeviceRepository handles data access for vending devices.
type DeviceRepository struct {
	db *sqlx.DB
}

// NewDeviceRepository creates a new DeviceRepository.
func NewDeviceRepository(db *sqlx.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Create inserts a new device row and backfills the generated id and timestamps.
func (r *DeviceRepository) Create(ctx context.Context, d *models.Device) error {
	const q = `
        INSERT INTO devices (device_id, name, location, status, last_maintenance, qr_code_data)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q,
		d.DeviceID, d.Name, d.Location, d.Status, d.LastMaintenance, d.QRCodeData,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// GetByID returns a device by primary key.
func (r *DeviceRepository) GetByID(ctx context.Context, id int) (*models.Device, error) {
	const q = `SELECT * FROM devices WHERE id = $1 LIMIT 1`
	var d models.Device
	if err := r.db.GetContext(ctx, &d, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrDeviceNotFound
		}
		return nil, err
	}
	return &d, nil
}

// GetByQRData returns the device whose QR sticker carries the given payload.
func (r *DeviceRepository) GetByQRData(ctx context.Context, qrData string) (*models.Device, error) {
	const q = `SELECT * FROM devices WHERE qr_code_data = $1 LIMIT 1`
	var d models.Device
	if err := r.db.GetContext(ctx, &d, q, qrData); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrDeviceNotFound
		}
		return nil, err
	}
	return &d, nil
}

// List returns all devices, optionally filtered by status.
func (r *DeviceRepository) List(ctx context.Context, status string) ([]models.Device, error) {
	devices := []models.Device{}
	if status != "" {
		const q = `SELECT * FROM devices WHERE status = $1 ORDER BY created_at DESC`
		if err := r.db.SelectContext(ctx, &devices, q, status); err != nil {
			return nil, err
		}
		return devices, nil
	}
	const q = `SELECT * FROM devices ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &devices, q); err != nil {
		return nil, err
	}
	return devices, nil
}

// Update persists mutable device fields.
func (r *DeviceRepository) Update(ctx context.Context, d *models.Device) error {
	const q = `
        UPDATE devices SET
            name = $2,
            location = $3,
            status = $4,
            last_maintenance = $5,
            updated_at = NOW()
        WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, d.ID, d.Name, d.Location, d.Status, d.LastMaintenance)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrDeviceNotFound
	}
	return nil
}

// Delete removes a device. Stock rows cascade via the schema.
func (r *DeviceRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrDeviceNotFound
	}
	return nil
}
