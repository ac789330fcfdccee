package models

import "time"

// DeviceStatus is the operational state of a vending machine.
type DeviceStatus string

const (
	DeviceStatusActive      DeviceStatus = "active"
	DeviceStatusInactive    DeviceStatus = "inactive"
	DeviceStatusMaintenance DeviceStatus = "maintenance"
)

// Device is a physical vending machine in the fleet. DeviceID is the public
// fleet identifier printed on the machine; QRCodeData is the payload encoded
// in its QR sticker.
type Device struct {
	ID              int          `db:"id" json:"id"`
	DeviceID        string       `db:"device_id" json:"deviceId"`
	Name            string       `db:"name" json:"name"`
	Location        string       `db:"location" json:"location"`
	Status          DeviceStatus `db:"status" json:"status"`
	LastMaintenance *time.Time   `db:"last_maintenance" json:"lastMaintenance,omitempty"`
	QRCodeData      string       `db:"qr_code_data" json:"qrCodeData"`
	CreatedAt       time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updatedAt"`
}

// DeviceWithProducts is a device with its stock rows embedded, as returned by
// the device read endpoints.
type DeviceWithProducts struct {
	Device
	Products []DeviceProduct `json:"products"`
}
