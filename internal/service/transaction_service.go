package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sauverpro/Safe-Vend-Backend/internal/cache"
	"github.com/sauverpro/Safe-Vend-Backend/internal/models"
	"github.com/sauverpro/Safe-Vend-Backend/internal/repository"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
	"github.com/sauverpro/Safe-Vend-Backend/pkg/paysim"
)

// TransactionService is the transaction lifecycle engine. It validates
// availability, creates the transaction record, hands the payment off to the
// gateway, and applies the inventory side effect when the gateway reports
// back. A transaction it touches always ends in a terminal state.
type TransactionService struct {
	trxStore     TransactionStore
	stock        StockStore
	availability *AvailabilityService
	gateway      paysim.Gateway
	storefront   *cache.StorefrontCache // optional
}

// NewTransactionService constructs a TransactionService. The gateway is
// attached afterwards via SetGateway because the gateway's callback closes
// over this service.
func NewTransactionService(
	trxStore TransactionStore,
	stock StockStore,
	availability *AvailabilityService,
	storefront *cache.StorefrontCache,
) *TransactionService {
	return &TransactionService{
		trxStore:     trxStore,
		stock:        stock,
		availability: availability,
		storefront:   storefront,
	}
}

// SetGateway wires the payment gateway whose callback feeds HandleGatewayResult.
func (s *TransactionService) SetGateway(g paysim.Gateway) {
	s.gateway = g
}

// InitiateRequest is the input for a purchase attempt.
type InitiateRequest struct {
	DeviceID      int    `json:"deviceId" binding:"required"`
	ProductID     int    `json:"productId" binding:"required"`
	PaymentMethod string `json:"paymentMethod" binding:"required"`
	CustomerPhone string `json:"customerPhone"`
	Quantity      int    `json:"quantity"`
}

// Initiate reserves nothing yet: it checks availability, persists the
// transaction as initiated/pending with the amount frozen from the snapshot
// price, submits the payment, and returns without waiting for settlement.
// No record is left behind when validation or availability fails.
func (s *TransactionService) Initiate(ctx context.Context, req *InitiateRequest) (*models.Transaction, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	method := models.PaymentMethod(req.PaymentMethod)
	if !models.ValidPaymentMethod(method) {
		return nil, utils.ErrInvalidPaymentMethod
	}

	snap, err := s.availability.Check(ctx, req.DeviceID, req.ProductID, req.Quantity)
	if err != nil {
		return nil, err
	}

	trx := &models.Transaction{
		TransactionID: utils.GenerateTransactionID(),
		DeviceID:      req.DeviceID,
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		Amount:        snap.UnitPrice * float64(req.Quantity),
		PaymentMethod: method,
		PaymentStatus: models.PaymentPending,
		Status:        models.StatusInitiated,
	}
	// Phone numbers are only meaningful for M-Pesa payments.
	if method == models.PaymentMpesa && req.CustomerPhone != "" {
		phone := req.CustomerPhone
		trx.CustomerPhone = &phone
	}

	if err := s.trxStore.Create(ctx, trx); err != nil {
		return nil, err
	}
	trx.ProductName = &snap.ProductName

	log.Info().
		Str("transactionId", trx.TransactionID).
		Int("deviceId", trx.DeviceID).
		Int("productId", trx.ProductID).
		Int("quantity", trx.Quantity).
		Float64("amount", trx.Amount).
		Msg("transaction initiated")

	sub := paysim.Submission{
		TransactionID: trx.TransactionID,
		Amount:        trx.Amount,
		Method:        string(trx.PaymentMethod),
	}
	if trx.CustomerPhone != nil {
		sub.CustomerPhone = *trx.CustomerPhone
	}
	if err := s.gateway.Submit(ctx, sub); err != nil {
		// The caller will still see "initiated"; the failure is recorded on
		// the row and discoverable through the status endpoint.
		log.Error().Err(err).Str("transactionId", trx.TransactionID).Msg("payment submission failed")
		s.failTransaction(context.WithoutCancel(ctx), trx.TransactionID, trx.DeviceID,
			"payment submission failed: "+err.Error())
	}

	return trx, nil
}

// HandleGatewayResult is the gateway callback. It runs outside any HTTP
// request, so settlement uses a background context.
func (s *TransactionService) HandleGatewayResult(res paysim.Result) {
	if err := s.Settle(context.Background(), res); err != nil {
		log.Error().Err(err).Str("transactionId", res.TransactionID).Msg("settlement failed")
	}
}

// Settle finalizes a transaction from a gateway result. The initiated ->
// processing claim makes it idempotent: a duplicate or late result finds the
// transaction already claimed or terminal and leaves stock untouched. On the
// success path the stock decrement is the oversell guard; when it reports
// insufficient stock the transaction fails with the cause in metadata, since
// initiate and settle are not atomic and stock may have vanished in between.
func (s *TransactionService) Settle(ctx context.Context, res paysim.Result) error {
	trx, err := s.trxStore.GetByTransactionID(ctx, res.TransactionID)
	if err != nil {
		return err
	}

	claimed, err := s.trxStore.ClaimSettlement(ctx, res.TransactionID)
	if err != nil {
		return err
	}
	if !claimed {
		log.Debug().Str("transactionId", res.TransactionID).Msg("settlement already handled, skipping")
		return nil
	}

	if !res.Succeeded {
		s.failTransaction(ctx, trx.TransactionID, trx.DeviceID, res.FailureReason)
		return nil
	}

	remaining, err := s.stock.Decrement(ctx, trx.DeviceID, trx.ProductID, trx.Quantity)
	if err != nil {
		cause := "stock decrement failed: " + err.Error()
		if err == utils.ErrInsufficientStock {
			cause = "stock depleted between availability check and settlement"
		}
		s.failTransaction(ctx, trx.TransactionID, trx.DeviceID, cause)
		return nil
	}

	if err := s.trxStore.Complete(ctx, trx.TransactionID, res.Reference); err != nil {
		// Stock is already taken; the watchdog and metadata keep this
		// reconcilable rather than silently dropped.
		log.Error().Err(err).Str("transactionId", trx.TransactionID).Msg("failed to mark transaction completed")
		s.failTransaction(ctx, trx.TransactionID, trx.DeviceID,
			"completion update failed after stock decrement: "+err.Error())
		return err
	}

	s.invalidateStorefront(ctx, trx.DeviceID)

	// This is where a real deployment signals the machine to dispense.
	log.Info().
		Str("transactionId", trx.TransactionID).
		Str("paymentReference", res.Reference).
		Int("deviceId", trx.DeviceID).
		Int("productId", trx.ProductID).
		Int("quantity", trx.Quantity).
		Int("remainingStock", remaining).
		Msg("transaction completed, vending product")
	return nil
}

// failTransaction moves a non-terminal transaction to failed with the cause
// and timestamp captured in metadata. Errors here are logged, not returned:
// the failure path must not leave settlement half-done.
func (s *TransactionService) failTransaction(ctx context.Context, transactionID string, deviceID int, cause string) {
	metadata := models.JSONMap{
		"error":    cause,
		"failedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.trxStore.Fail(ctx, transactionID, metadata); err != nil {
		log.Error().Err(err).Str("transactionId", transactionID).Msg("failed to mark transaction failed")
		return
	}
	s.invalidateStorefront(ctx, deviceID)
	log.Warn().Str("transactionId", transactionID).Str("cause", cause).Msg("transaction failed")
}

func (s *TransactionService) invalidateStorefront(ctx context.Context, deviceID int) {
	if s.storefront == nil {
		return
	}
	if err := s.storefront.InvalidateDevice(ctx, deviceID); err != nil {
		log.Warn().Err(err).Int("deviceId", deviceID).Msg("failed to invalidate storefront cache")
	}
}

// Get returns a transaction by its public identifier.
func (s *TransactionService) Get(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return s.trxStore.GetByTransactionID(ctx, transactionID)
}

// List returns transactions matching the filter.
func (s *TransactionService) List(ctx context.Context, filter *repository.TransactionFilter) (*repository.TransactionPage, error) {
	return s.trxStore.List(ctx, filter)
}

// ListByDevice returns a device's transactions, newest first.
func (s *TransactionService) ListByDevice(ctx context.Context, deviceID, limit, offset int) ([]models.Transaction, int, error) {
	return s.trxStore.ListByDevice(ctx, deviceID, limit, offset)
}

// FailStaleTransactions fails non-terminal transactions older than the given
// window. Used by the watchdog so purchases whose payment callback never
// arrived do not sit in initiated forever.
func (s *TransactionService) FailStaleTransactions(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.trxStore.ListStale(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	for i := range stale {
		s.failTransaction(ctx, stale[i].TransactionID, stale[i].DeviceID,
			"payment confirmation timed out")
	}
	return len(stale), nil
}
