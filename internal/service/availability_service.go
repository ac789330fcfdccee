package service

import (
	"context"

	"github.com/sauverpro/Safe-Vend-Backend/internal/models"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
)

// StockSnapshot is an advisory view of a stock row taken at check time.
// It freezes the unit price for the transaction amount, but the remaining
// quantity is only a hint: final correctness is enforced by the conditional
// decrement at settlement, since stock can move between check and settle.
type StockSnapshot struct {
	UnitPrice   float64
	Remaining   int
	ProductName string
	Position    *string
}

// AvailabilityService validates purchase requests against device state and
// the stock ledger.
type AvailabilityService struct {
	devices DeviceStore
	stock   StockStore
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(devices DeviceStore, stock StockStore) *AvailabilityService {
	return &AvailabilityService{devices: devices, stock: stock}
}

// Check validates a (device, product, quantity) triple.
// Failure modes, in order checked:
//   - utils.ErrDeviceNotFound: no such device
//   - utils.ErrDeviceInactive: device exists but is not active
//   - utils.ErrProductUnavailable: no stock row or slot disabled
//   - utils.ErrInsufficientStock: requested quantity exceeds stored quantity
func (s *AvailabilityService) Check(ctx context.Context, deviceID, productID, quantity int) (*StockSnapshot, error) {
	if quantity < 1 {
		return nil, utils.ErrInvalidQuantity
	}

	device, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if device.Status != models.DeviceStatusActive {
		return nil, utils.ErrDeviceInactive
	}

	dp, err := s.stock.GetByDeviceProduct(ctx, deviceID, productID)
	if err != nil {
		if err == utils.ErrStockRowNotFound {
			return nil, utils.ErrProductUnavailable
		}
		return nil, err
	}
	if !dp.IsAvailable {
		return nil, utils.ErrProductUnavailable
	}
	if dp.Quantity < quantity {
		return nil, utils.ErrInsufficientStock
	}

	return &StockSnapshot{
		UnitPrice:   dp.Price,
		Remaining:   dp.Quantity,
		ProductName: dp.ProductName,
		Position:    dp.Position,
	}, nil
}
