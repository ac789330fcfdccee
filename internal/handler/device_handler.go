package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sauverpro/Safe-Vend-Backend/internal/service"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
)

// DeviceHandler handles device and stock management endpoints.
type DeviceHandler struct {
	deviceService *service.DeviceService
}

// NewDeviceHandler constructs a DeviceHandler.
func NewDeviceHandler(deviceService *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

// CreateDevice handles POST /v1/devices
func (h *DeviceHandler) CreateDevice(c *gin.Context) {
	var req service.CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Name and location are required")
		return
	}

	device, err := h.deviceService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 201, "Device created", device)
}

// GetDevice handles GET /v1/devices/:id
func (h *DeviceHandler) GetDevice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_DEVICE_ID", "Device id must be an integer")
		return
	}

	device, err := h.deviceService.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Device retrieved", device)
}

// ListDevices handles GET /v1/devices
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	devices, err := h.deviceService.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Devices retrieved", devices)
}

// UpdateDevice handles PUT /v1/devices/:id
func (h *DeviceHandler) UpdateDevice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_DEVICE_ID", "Device id must be an integer")
		return
	}

	var req service.UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	device, err := h.deviceService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Device updated", device)
}

// DeleteDevice handles DELETE /v1/devices/:id
func (h *DeviceHandler) DeleteDevice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_DEVICE_ID", "Device id must be an integer")
		return
	}

	if err := h.deviceService.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Device deleted", nil)
}

// GetStorefront handles GET /v1/devices/qr/:qrData
func (h *DeviceHandler) GetStorefront(c *gin.Context) {
	storefront, err := h.deviceService.GetStorefront(c.Request.Context(), c.Param("qrData"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Device storefront retrieved", storefront)
}

// SetStock handles POST /v1/devices/:id/products
func (h *DeviceHandler) SetStock(c *gin.Context) {
	deviceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_DEVICE_ID", "Device id must be an integer")
		return
	}

	var req service.StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Product ID is required")
		return
	}

	stock, err := h.deviceService.SetStock(c.Request.Context(), deviceID, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Device stock updated", stock)
}

// UpdateStock handles PUT /v1/devices/:id/products/:productId
func (h *DeviceHandler) UpdateStock(c *gin.Context) {
	deviceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_DEVICE_ID", "Device id must be an integer")
		return
	}
	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil {
		utils.Error(c, 400, "INVALID_PRODUCT_ID", "Product id must be an integer")
		return
	}

	var req service.StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}
	req.ProductID = productID

	stock, err := h.deviceService.SetStock(c.Request.Context(), deviceID, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Device stock updated", stock)
}

// RemoveStock handles DELETE /v1/devices/:id/products/:productId
func (h *DeviceHandler) RemoveStock(c *gin.Context) {
	deviceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_DEVICE_ID", "Device id must be an integer")
		return
	}
	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil {
		utils.Error(c, 400, "INVALID_PRODUCT_ID", "Product id must be an integer")
		return
	}

	if err := h.deviceService.RemoveStock(c.Request.Context(), deviceID, productID); err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Product removed from device", nil)
}

func (h *DeviceHandler) handleError(c *gin.Context, err error) {
	switch err {
	case utils.ErrDeviceNotFound:
		utils.Error(c, 404, "DEVICE_NOT_FOUND", "Device not found")
	case utils.ErrProductNotFound:
		utils.Error(c, 404, "PRODUCT_NOT_FOUND", "Product not found")
	case utils.ErrStockRowNotFound:
		utils.Error(c, 404, "STOCK_NOT_FOUND", "Product is not assigned to this device")
	case utils.ErrDeviceHasTrx:
		utils.Error(c, 409, "DEVICE_HAS_TRANSACTIONS", "Device has transactions and cannot be deleted")
	case utils.ErrInvalidQuantity:
		utils.Error(c, 400, "INVALID_QUANTITY", "Quantity must not be negative")
	default:
		log.Error().Err(err).Msg("device operation failed")
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
	}
}
