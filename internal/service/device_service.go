package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sauverpro/Safe-Vend-Backend/internal/cache"
	"github.com/sauverpro/Safe-Vend-Backend/internal/models"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
)

// DeviceService contains catalog logic for vending devices and their stock.
type DeviceService struct {
	devices    DeviceStore
	products   ProductStore
	stock      StockStore
	trxStore   TransactionStore
	storefront *cache.StorefrontCache // optional
}

// NewDeviceService constructs a DeviceService.
func NewDeviceService(
	devices DeviceStore,
	products ProductStore,
	stock StockStore,
	trxStore TransactionStore,
	storefront *cache.StorefrontCache,
) *DeviceService {
	return &DeviceService{
		devices:    devices,
		products:   products,
		stock:      stock,
		trxStore:   trxStore,
		storefront: storefront,
	}
}

// CreateDeviceRequest is the input for registering a device.
type CreateDeviceRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location" binding:"required"`
	Status   string `json:"status"`
}

// Create registers a device, generating its fleet identifier and the QR
// payload printed on the machine (`device:<fleet id>`).
func (s *DeviceService) Create(ctx context.Context, req *CreateDeviceRequest) (*models.Device, error) {
	status := models.DeviceStatusActive
	if req.Status != "" {
		status = models.DeviceStatus(req.Status)
	}
	deviceID := utils.GenerateDeviceID()
	d := &models.Device{
		DeviceID:   deviceID,
		Name:       req.Name,
		Location:   req.Location,
		Status:     status,
		QRCodeData: fmt.Sprintf("device:%s", deviceID),
	}
	if err := s.devices.Create(ctx, d); err != nil {
		return nil, err
	}
	log.Info().Str("deviceId", d.DeviceID).Str("location", d.Location).Msg("device registered")
	return d, nil
}

// Get returns a device with its stock rows embedded.
func (s *DeviceService) Get(ctx context.Context, id int) (*models.DeviceWithProducts, error) {
	d, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.stock.ListByDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.DeviceWithProducts{Device: *d, Products: rows}, nil
}

// List returns all devices (optionally filtered by status) with stock embedded.
func (s *DeviceService) List(ctx context.Context, status string) ([]models.DeviceWithProducts, error) {
	devices, err := s.devices.List(ctx, status)
	if err != nil {
		return nil, err
	}
	out := make([]models.DeviceWithProducts, 0, len(devices))
	for _, d := range devices {
		rows, err := s.stock.ListByDevice(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.DeviceWithProducts{Device: d, Products: rows})
	}
	return out, nil
}

// UpdateDeviceRequest carries operator-editable device fields.
type UpdateDeviceRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

// Update applies operator edits to a device.
func (s *DeviceService) Update(ctx context.Context, id int, req *UpdateDeviceRequest) (*models.Device, error) {
	d, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		d.Name = req.Name
	}
	if req.Location != "" {
		d.Location = req.Location
	}
	if req.Status != "" {
		d.Status = models.DeviceStatus(req.Status)
	}
	if err := s.devices.Update(ctx, d); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return d, nil
}

// Delete removes a device. Devices referenced by transactions are kept for
// reconciliation and the delete is refused.
func (s *DeviceService) Delete(ctx context.Context, id int) error {
	if _, err := s.devices.GetByID(ctx, id); err != nil {
		return err
	}
	referenced, err := s.trxStore.ExistsForDevice(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return utils.ErrDeviceHasTrx
	}
	if err := s.devices.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// GetStorefront resolves a QR scan to the device and its purchasable stock,
// serving from the Redis cache when warm.
func (s *DeviceService) GetStorefront(ctx context.Context, qrData string) (*cache.Storefront, error) {
	if s.storefront != nil {
		sf, err := s.storefront.Get(ctx, qrData)
		if err == nil && sf != nil {
			log.Debug().Str("qrData", qrData).Msg("storefront cache hit")
			return sf, nil
		}
		if err != nil && err != redis.Nil {
			log.Warn().Err(err).Msg("storefront cache read failed")
		}
	}

	d, err := s.devices.GetByQRData(ctx, qrData)
	if err != nil {
		return nil, err
	}
	rows, err := s.stock.ListAvailableByDevice(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	sf := &cache.Storefront{Device: *d, Products: rows}

	if s.storefront != nil {
		if err := s.storefront.Set(ctx, qrData, sf); err != nil {
			log.Warn().Err(err).Msg("storefront cache write failed")
		}
	}
	return sf, nil
}

// StockRequest carries the stock row fields an operator can set.
type StockRequest struct {
	ProductID   int      `json:"productId" binding:"required"`
	Quantity    int      `json:"quantity"`
	Price       *float64 `json:"price"`
	Position    *string  `json:"position"`
	IsAvailable *bool    `json:"isAvailable"`
}

// SetStock creates or updates the stock row for a device/product pair
// (attach and restock share this path). Price defaults to the product's
// list price; restocking above zero re-enables availability unless the
// operator explicitly disabled the slot.
func (s *DeviceService) SetStock(ctx context.Context, deviceID int, req *StockRequest) (*models.DeviceProduct, error) {
	if _, err := s.devices.GetByID(ctx, deviceID); err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if req.Quantity < 0 {
		return nil, utils.ErrInvalidQuantity
	}

	price := product.Price
	if req.Price != nil {
		price = *req.Price
	}
	available := req.Quantity > 0
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	dp := &models.DeviceProduct{
		DeviceID:    deviceID,
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		Price:       price,
		Position:    req.Position,
		IsAvailable: available,
	}
	if err := s.stock.Upsert(ctx, dp); err != nil {
		return nil, err
	}
	dp.ProductName = product.Name
	s.invalidate(ctx, deviceID)
	log.Info().
		Int("deviceId", deviceID).
		Int("productId", req.ProductID).
		Int("quantity", dp.Quantity).
		Msg("stock updated")
	return dp, nil
}

// RemoveStock deletes a stock row from a device.
func (s *DeviceService) RemoveStock(ctx context.Context, deviceID, productID int) error {
	if _, err := s.devices.GetByID(ctx, deviceID); err != nil {
		return err
	}
	if err := s.stock.Delete(ctx, deviceID, productID); err != nil {
		return err
	}
	s.invalidate(ctx, deviceID)
	return nil
}

func (s *DeviceService) invalidate(ctx context.Context, deviceID int) {
	if s.storefront == nil {
		return
	}
	if err := s.storefront.InvalidateDevice(ctx, deviceID); err != nil {
		log.Warn().Err(err).Int("deviceId", deviceID).Msg("failed to invalidate storefront cache")
	}
}
