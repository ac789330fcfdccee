package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sauverpro/Safe-Vend-Backend/internal/models"
	"github.com/sauverpro/Safe-Vend-Backend/internal/repository"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
	"github.com/sauverpro/Safe-Vend-Backend/pkg/paysim"
)

// captureGateway records submissions without firing callbacks, so tests can
// drive settlement explicitly through Settle.
type captureGateway struct {
	mu          sync.Mutex
	submissions []paysim.Submission
	err         error
}

func (g *captureGateway) Submit(_ context.Context, sub paysim.Submission) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.submissions = append(g.submissions, sub)
	return nil
}

func (g *captureGateway) last(t *testing.T) paysim.Submission {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.submissions)
	return g.submissions[len(g.submissions)-1]
}

type trxFixture struct {
	devices   *repository.MemDeviceStore
	stock     *repository.MemStockStore
	trxStore  *repository.MemTransactionStore
	gateway   *captureGateway
	svc       *TransactionService
	deviceID  int
	productID int
}

func newTrxFixture(t *testing.T, qty int) *trxFixture {
	t.Helper()
	devices := repository.NewMemDeviceStore()
	stock := repository.NewMemStockStore()
	trxStore := repository.NewMemTransactionStore()
	gateway := &captureGateway{}

	svc := NewTransactionService(trxStore, stock, NewAvailabilityService(devices, stock), nil)
	svc.SetGateway(gateway)

	deviceID, productID := seedCatalog(t, devices, stock, qty)
	return &trxFixture{
		devices:   devices,
		stock:     stock,
		trxStore:  trxStore,
		gateway:   gateway,
		svc:       svc,
		deviceID:  deviceID,
		productID: productID,
	}
}

func (f *trxFixture) initiate(t *testing.T, req *InitiateRequest) *models.Transaction {
	t.Helper()
	trx, err := f.svc.Initiate(context.Background(), req)
	require.NoError(t, err)
	return trx
}

func (f *trxFixture) remaining(t *testing.T) int {
	t.Helper()
	dp, err := f.stock.GetByDeviceProduct(context.Background(), f.deviceID, f.productID)
	require.NoError(t, err)
	return dp.Quantity
}

func TestInitiate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates initiated pending record without touching stock", func(t *testing.T) {
		f := newTrxFixture(t, 5)
		trx := f.initiate(t, &InitiateRequest{
			DeviceID:      f.deviceID,
			ProductID:     f.productID,
			PaymentMethod: "card",
			Quantity:      2,
		})

		assert.Equal(t, models.StatusInitiated, trx.Status)
		assert.Equal(t, models.PaymentPending, trx.PaymentStatus)
		assert.Equal(t, float64(300), trx.Amount)
		assert.Nil(t, trx.CustomerPhone)
		assert.Equal(t, 5, f.remaining(t))

		sub := f.gateway.last(t)
		assert.Equal(t, trx.TransactionID, sub.TransactionID)
		assert.Equal(t, float64(300), sub.Amount)
	})

	t.Run("quantity defaults to one", func(t *testing.T) {
		f := newTrxFixture(t, 5)
		trx := f.initiate(t, &InitiateRequest{
			DeviceID:      f.deviceID,
			ProductID:     f.productID,
			PaymentMethod: "cash",
		})
		assert.Equal(t, 1, trx.Quantity)
		assert.Equal(t, float64(150), trx.Amount)
	})

	t.Run("phone kept only for mpesa", func(t *testing.T) {
		f := newTrxFixture(t, 5)
		mpesa := f.initiate(t, &InitiateRequest{
			DeviceID:      f.deviceID,
			ProductID:     f.productID,
			PaymentMethod: "mpesa",
			CustomerPhone: "+254700000001",
		})
		require.NotNil(t, mpesa.CustomerPhone)
		assert.Equal(t, "+254700000001", *mpesa.CustomerPhone)

		card := f.initiate(t, &InitiateRequest{
			DeviceID:      f.deviceID,
			ProductID:     f.productID,
			PaymentMethod: "card",
			CustomerPhone: "+254700000001",
		})
		assert.Nil(t, card.CustomerPhone)
	})

	t.Run("invalid payment method", func(t *testing.T) {
		f := newTrxFixture(t, 5)
		_, err := f.svc.Initiate(ctx, &InitiateRequest{
			DeviceID:      f.deviceID,
			ProductID:     f.productID,
			PaymentMethod: "bitcoin",
		})
		assert.ErrorIs(t, err, utils.ErrInvalidPaymentMethod)
	})

	t.Run("availability failure leaves no record", func(t *testing.T) {
		f := newTrxFixture(t, 2)
		_, err := f.svc.Initiate(ctx, &InitiateRequest{
			DeviceID:      f.deviceID,
			ProductID:     f.productID,
			PaymentMethod: "card",
			Quantity:      3,
		})
		assert.ErrorIs(t, err, utils.ErrInsufficientStock)

		page, err := f.trxStore.List(ctx, &repository.TransactionFilter{})
		require.NoError(t, err)
		assert.Zero(t, page.TotalItems)
	})

	t.Run("gateway rejection fails the transaction but still returns it", func(t *testing.T) {
		f := newTrxFixture(t, 5)
		f.gateway.err = errors.New("gateway offline")

		trx, err := f.svc.Initiate(ctx, &InitiateRequest{
			DeviceID:      f.deviceID,
			ProductID:     f.productID,
			PaymentMethod: "card",
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusInitiated, trx.Status)

		stored, err := f.trxStore.GetByTransactionID(ctx, trx.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, stored.Status)
		assert.Contains(t, stored.Metadata["error"], "payment submission failed")
		assert.Equal(t, 5, f.remaining(t))
	})
}

func TestSettle(t *testing.T) {
	ctx := context.Background()

	t.Run("success completes and decrements stock", func(t *testing.T) {
		f := newTrxFixture(t, 5)
		trx := f.initiate(t, &InitiateRequest{
			DeviceID:      f.deviceID,
			ProductID:     f.productID,
			PaymentMethod: "card",
			Quantity:      2,
		})

		require.NoError(t, f.svc.Settle(ctx, paysim.Result{
			TransactionID: trx.TransactionID,
			Succeeded:     true,
			Reference:     "PAY-TEST123456",
		}))

		stored, err := f.trxStore.GetByTransactionID(ctx, trx.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, stored.Status)
		assert.Equal(t, models.PaymentCompleted, stored.PaymentStatus)
		require.NotNil(t, stored.PaymentReference)
		assert.Equal(t, "PAY-TEST123456", *stored.PaymentReference)
		assert.Equal(t, 3, f.remaining(t))
	})

	t.Run("duplicate result is a no-op", func(t *testing.T) {
		f := newTrxFixture(t, 5)
		trx := f.initiate(t, &InitiateRequest{
			DeviceID:      f.deviceID,
			ProductID:     f.productID,
			PaymentMethod: "card",
		})

		res := paysim.Result{TransactionID: trx.TransactionID, Succeeded: true, Reference: "PAY-ONCE"}
		require.NoError(t, f.svc.Settle(ctx, res))
		require.NoError(t, f.svc.Settle(ctx, res))
		require.NoError(t, f.svc.Settle(ctx, res))

		assert.Equal(t, 4, f.remaining(t))

		stored, err := f.trxStore.GetByTransactionID(ctx, trx.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, stored.Status)
	})

	t.Run("declined payment fails without touching stock", func(t *testing.T) {
		f := newTrxFixture(t, 5)
		trx := f.initiate(t, &InitiateRequest{
			DeviceID:      f.deviceID,
			ProductID:     f.productID,
			PaymentMethod: "card",
		})

		require.NoError(t, f.svc.Settle(ctx, paysim.Result{
			TransactionID: trx.TransactionID,
			Succeeded:     false,
			FailureReason: "payment declined by provider",
		}))

		stored, err := f.trxStore.GetByTransactionID(ctx, trx.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, stored.Status)
		assert.Equal(t, models.PaymentFailed, stored.PaymentStatus)
		assert.Equal(t, "payment declined by provider", stored.Metadata["error"])
		assert.Equal(t, 5, f.remaining(t))
	})

	t.Run("unknown transaction id", func(t *testing.T) {
		f := newTrxFixture(t, 5)
		err := f.svc.Settle(ctx, paysim.Result{TransactionID: "TXN-NOPE", Succeeded: true})
		assert.ErrorIs(t, err, utils.ErrTransactionNotFound)
	})

	t.Run("last unit flips availability off", func(t *testing.T) {
		f := newTrxFixture(t, 1)
		trx := f.initiate(t, &InitiateRequest{
			DeviceID:      f.deviceID,
			ProductID:     f.productID,
			PaymentMethod: "card",
		})
		require.NoError(t, f.svc.Settle(ctx, paysim.Result{
			TransactionID: trx.TransactionID, Succeeded: true, Reference: "PAY-LAST",
		}))

		dp, err := f.stock.GetByDeviceProduct(ctx, f.deviceID, f.productID)
		require.NoError(t, err)
		assert.Zero(t, dp.Quantity)
		assert.False(t, dp.IsAvailable)
	})

	t.Run("stock depleted between check and settle", func(t *testing.T) {
		f := newTrxFixture(t, 1)
		first := f.initiate(t, &InitiateRequest{
			DeviceID: f.deviceID, ProductID: f.productID, PaymentMethod: "card",
		})
		second := f.initiate(t, &InitiateRequest{
			DeviceID: f.deviceID, ProductID: f.productID, PaymentMethod: "card",
		})

		require.NoError(t, f.svc.Settle(ctx, paysim.Result{
			TransactionID: first.TransactionID, Succeeded: true, Reference: "PAY-1",
		}))
		require.NoError(t, f.svc.Settle(ctx, paysim.Result{
			TransactionID: second.TransactionID, Succeeded: true, Reference: "PAY-2",
		}))

		winner, err := f.trxStore.GetByTransactionID(ctx, first.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, winner.Status)

		loser, err := f.trxStore.GetByTransactionID(ctx, second.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, loser.Status)
		assert.Equal(t, "stock depleted between availability check and settlement", loser.Metadata["error"])

		assert.Zero(t, f.remaining(t))
	})
}

// TestSettleConcurrentNoOversell races more settlements than there is stock
// and asserts the sold quantity never exceeds what was on the shelf.
func TestSettleConcurrentNoOversell(t *testing.T) {
	ctx := context.Background()
	const stockQty = 5
	const buyers = 20

	f := newTrxFixture(t, stockQty)

	ids := make([]string, 0, buyers)
	for i := 0; i < buyers; i++ {
		trx := f.initiate(t, &InitiateRequest{
			DeviceID: f.deviceID, ProductID: f.productID, PaymentMethod: "card",
		})
		ids = append(ids, trx.TransactionID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = f.svc.Settle(ctx, paysim.Result{TransactionID: id, Succeeded: true, Reference: "PAY-RACE"})
		}(id)
	}
	wg.Wait()

	completed, failed := 0, 0
	for _, id := range ids {
		trx, err := f.trxStore.GetByTransactionID(ctx, id)
		require.NoError(t, err)
		switch trx.Status {
		case models.StatusCompleted:
			completed++
		case models.StatusFailed:
			failed++
		default:
			t.Fatalf("transaction %s left non-terminal: %s", id, trx.Status)
		}
	}

	assert.Equal(t, stockQty, completed)
	assert.Equal(t, buyers-stockQty, failed)
	assert.Zero(t, f.remaining(t))
}

func TestFailStaleTransactions(t *testing.T) {
	ctx := context.Background()
	f := newTrxFixture(t, 5)

	stale := f.initiate(t, &InitiateRequest{
		DeviceID: f.deviceID, ProductID: f.productID, PaymentMethod: "card",
	})
	settled := f.initiate(t, &InitiateRequest{
		DeviceID: f.deviceID, ProductID: f.productID, PaymentMethod: "card",
	})
	require.NoError(t, f.svc.Settle(ctx, paysim.Result{
		TransactionID: settled.TransactionID, Succeeded: true, Reference: "PAY-OK",
	}))

	time.Sleep(20 * time.Millisecond)

	failed, err := f.svc.FailStaleTransactions(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)

	stored, err := f.trxStore.GetByTransactionID(ctx, stale.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.Equal(t, "payment confirmation timed out", stored.Metadata["error"])

	// Completed transactions are untouched.
	stored, err = f.trxStore.GetByTransactionID(ctx, settled.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
}

// TestInitiateThenSimulatorSettles runs the real simulator end to end.
func TestInitiateThenSimulatorSettles(t *testing.T) {
	f := newTrxFixture(t, 3)
	sim := paysim.NewSimulator(paysim.Config{Delay: 10 * time.Millisecond}, f.svc.HandleGatewayResult)
	defer sim.Close()
	f.svc.SetGateway(sim)

	trx := f.initiate(t, &InitiateRequest{
		DeviceID: f.deviceID, ProductID: f.productID, PaymentMethod: "mpesa",
		CustomerPhone: "+254700000002",
	})
	assert.Equal(t, models.StatusInitiated, trx.Status)

	require.Eventually(t, func() bool {
		stored, err := f.svc.Get(context.Background(), trx.TransactionID)
		return err == nil && stored.Status == models.StatusCompleted
	}, time.Second, 5*time.Millisecond)

	stored, err := f.svc.Get(context.Background(), trx.TransactionID)
	require.NoError(t, err)
	require.NotNil(t, stored.PaymentReference)
	assert.Equal(t, 2, f.remaining(t))
}
