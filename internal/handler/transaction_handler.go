package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sauverpro/Safe-Vend-Backend/internal/models"
	"github.com/sauverpro/Safe-Vend-Backend/internal/repository"
	"github.com/sauverpro/Safe-Vend-Backend/internal/service"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
)

// TransactionHandler handles transaction HTTP endpoints.
type TransactionHandler struct {
	trxService *service.TransactionService
}

// NewTransactionHandler constructs a TransactionHandler.
func NewTransactionHandler(trxService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{trxService: trxService}
}

// CreateTransaction handles POST /v1/transactions
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req service.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Device ID, Product ID, and payment method are required")
		return
	}

	trx, err := h.trxService.Initiate(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	productName := ""
	if trx.ProductName != nil {
		productName = *trx.ProductName
	}
	utils.Success(c, 201, "Transaction initiated", gin.H{
		"transactionId": trx.TransactionID,
		"status":        trx.Status,
		"amount":        trx.Amount,
		"product":       productName,
	})
}

// GetTransaction handles GET /v1/transactions/:transactionId
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transactionID := c.Param("transactionId")

	trx, err := h.trxService.Get(c.Request.Context(), transactionID)
	if err != nil {
		utils.Error(c, 404, "TRANSACTION_NOT_FOUND", "Transaction not found")
		return
	}

	utils.Success(c, 200, "Transaction retrieved", h.formatStatus(trx))
}

// ListTransactions handles GET /v1/transactions
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	filter := &repository.TransactionFilter{
		Search:    c.Query("search"),
		Status:    c.DefaultQuery("status", "all"),
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
		Page:      page,
		Limit:     limit,
	}

	result, err := h.trxService.List(c.Request.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to list transactions")
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
		return
	}

	rows := make([]gin.H, 0, len(result.Transactions))
	for i := range result.Transactions {
		rows = append(rows, h.formatRow(&result.Transactions[i]))
	}
	utils.SuccessWithPagination(c, 200, "Transactions retrieved", rows,
		result.Page, result.Limit, result.TotalItems)
}

// ListDeviceTransactions handles GET /v1/transactions/device/:deviceId
func (h *TransactionHandler) ListDeviceTransactions(c *gin.Context) {
	deviceID, err := strconv.Atoi(c.Param("deviceId"))
	if err != nil {
		utils.Error(c, 400, "INVALID_DEVICE_ID", "Device id must be an integer")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	transactions, total, err := h.trxService.ListByDevice(c.Request.Context(), deviceID, limit, offset)
	if err != nil {
		log.Error().Err(err).Int("deviceId", deviceID).Msg("failed to list device transactions")
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
		return
	}

	rows := make([]gin.H, 0, len(transactions))
	for i := range transactions {
		rows = append(rows, h.formatRow(&transactions[i]))
	}
	utils.Success(c, 200, "Transactions retrieved", gin.H{
		"total":        total,
		"transactions": rows,
	})
}

func (h *TransactionHandler) handleError(c *gin.Context, err error) {
	switch err {
	case utils.ErrInvalidQuantity:
		utils.Error(c, 400, "INVALID_QUANTITY", "Quantity must be at least 1")
	case utils.ErrInvalidPaymentMethod:
		utils.Error(c, 400, "INVALID_PAYMENT_METHOD", "Payment method must be one of mpesa, card, cash, other")
	case utils.ErrDeviceNotFound:
		utils.Error(c, 400, "DEVICE_NOT_FOUND", "Device not found")
	case utils.ErrDeviceInactive:
		utils.Error(c, 400, "DEVICE_INACTIVE", "Device is not active")
	case utils.ErrProductUnavailable:
		utils.Error(c, 400, "PRODUCT_UNAVAILABLE", "Product not available in this device")
	case utils.ErrInsufficientStock:
		utils.Error(c, 400, "INSUFFICIENT_STOCK", "Requested quantity exceeds available stock")
	default:
		log.Error().Err(err).Msg("transaction creation failed")
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
	}
}

// formatStatus shapes the status-polling response with device and product
// details embedded.
func (h *TransactionHandler) formatStatus(trx *models.Transaction) gin.H {
	return gin.H{
		"transactionId":    trx.TransactionID,
		"status":           trx.Status,
		"paymentStatus":    trx.PaymentStatus,
		"paymentReference": trx.PaymentReference,
		"amount":           trx.Amount,
		"quantity":         trx.Quantity,
		"paymentMethod":    trx.PaymentMethod,
		"customerPhone":    trx.CustomerPhone,
		"metadata":         trx.Metadata,
		"product":          gin.H{"name": trx.ProductName, "price": trx.ProductPrice},
		"device":           gin.H{"name": trx.DeviceName, "location": trx.DeviceLocation},
		"createdAt":        trx.CreatedAt,
	}
}

func (h *TransactionHandler) formatRow(trx *models.Transaction) gin.H {
	return gin.H{
		"id":            trx.ID,
		"transactionId": trx.TransactionID,
		"status":        trx.Status,
		"paymentStatus": trx.PaymentStatus,
		"amount":        trx.Amount,
		"paymentMethod": trx.PaymentMethod,
		"customerPhone": trx.CustomerPhone,
		"product":       gin.H{"name": trx.ProductName, "price": trx.ProductPrice},
		"device":        gin.H{"name": trx.DeviceName, "location": trx.DeviceLocation},
		"createdAt":     trx.CreatedAt,
		"updatedAt":     trx.UpdatedAt,
	}
}
