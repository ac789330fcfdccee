package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sauverpro/Safe-Vend-Backend/internal/models"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
)

// TransactionRepository handles data access for purchase transactions.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const trxJoinColumns = `
        t.*, d.name AS device_name, d.location AS device_location,
        p.name AS product_name, p.price AS product_price`

// Create inserts a new transaction row.
func (r *TransactionRepository) Create(ctx context.Context, trx *models.Transaction) error {
	const q = `
        INSERT INTO transactions (
            transaction_id, device_id, product_id, quantity, amount,
            payment_method, payment_status, payment_reference, status,
            customer_phone, metadata
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q,
		trx.TransactionID, trx.DeviceID, trx.ProductID, trx.Quantity, trx.Amount,
		trx.PaymentMethod, trx.PaymentStatus, trx.PaymentReference, trx.Status,
		trx.CustomerPhone, trx.Metadata,
	).Scan(&trx.ID, &trx.CreatedAt, &trx.UpdatedAt)
}

// GetByTransactionID returns a transaction with device/product details joined.
func (r *TransactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	const q = `
        SELECT ` + trxJoinColumns + `
        FROM transactions t
        JOIN devices d ON t.device_id = d.id
        JOIN products p ON t.product_id = p.id
        WHERE t.transaction_id = $1 LIMIT 1`
	var t models.Transaction
	if err := r.db.GetContext(ctx, &t, q, transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ClaimSettlement moves a transaction from initiated to processing. The
// guarded UPDATE makes settlement idempotent: only the first caller gets
// true, any duplicate or late callback sees false and must not touch stock.
func (r *TransactionRepository) ClaimSettlement(ctx context.Context, transactionID string) (bool, error) {
	const q = `
        UPDATE transactions SET status = 'processing', updated_at = NOW()
        WHERE transaction_id = $1 AND status = 'initiated'`
	res, err := r.db.ExecContext(ctx, q, transactionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Complete marks a claimed transaction as completed with its payment reference.
func (r *TransactionRepository) Complete(ctx context.Context, transactionID, paymentReference string) error {
	const q = `
        UPDATE transactions SET
            status = 'completed',
            payment_status = 'completed',
            payment_reference = $2,
            updated_at = NOW()
        WHERE transaction_id = $1 AND status IN ('initiated', 'processing')`
	res, err := r.db.ExecContext(ctx, q, transactionID, paymentReference)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrTransactionNotFound
	}
	return nil
}

// Fail marks a non-terminal transaction as failed, recording the cause in
// metadata for after-the-fact reconciliation.
func (r *TransactionRepository) Fail(ctx context.Context, transactionID string, metadata models.JSONMap) error {
	const q = `
        UPDATE transactions SET
            status = 'failed',
            payment_status = 'failed',
            metadata = $2,
            updated_at = NOW()
        WHERE transaction_id = $1 AND status IN ('initiated', 'processing')`
	res, err := r.db.ExecContext(ctx, q, transactionID, metadata)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrTransactionNotFound
	}
	return nil
}

// ListStale returns non-terminal transactions created before the cutoff.
// Used by the watchdog to fail purchases whose payment callback never came.
func (r *TransactionRepository) ListStale(ctx context.Context, olderThan time.Duration) ([]models.Transaction, error) {
	const q = `
        SELECT * FROM transactions
        WHERE status IN ('initiated', 'processing')
          AND created_at < NOW() - $1::interval
        ORDER BY created_at ASC
        LIMIT 100
        FOR UPDATE SKIP LOCKED`
	intervalStr := fmt.Sprintf("%d seconds", int(olderThan.Seconds()))
	list := []models.Transaction{}
	if err := r.db.SelectContext(ctx, &list, q, intervalStr); err != nil {
		return nil, err
	}
	return list, nil
}

// ExistsForDevice reports whether any transaction references the device.
func (r *TransactionRepository) ExistsForDevice(ctx context.Context, deviceID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE device_id = $1)`, deviceID)
	return exists, err
}

// ExistsForProduct reports whether any transaction references the product.
func (r *TransactionRepository) ExistsForProduct(ctx context.Context, productID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE product_id = $1)`, productID)
	return exists, err
}

// TransactionFilter holds filters for transaction listing queries.
// Filters are conjunctive; zero values mean "no filter".
type TransactionFilter struct {
	Search    string // case-sensitive substring over id, payment reference, phone
	Status    string // "all" or empty disables the filter
	StartDate string // YYYY-MM-DD inclusive
	EndDate   string // YYYY-MM-DD inclusive
	Page      int
	Limit     int
}

// TransactionPage contains paginated transaction results.
type TransactionPage struct {
	Transactions []models.Transaction
	TotalItems   int
	TotalPages   int
	Page         int
	Limit        int
}

// List returns transactions matching the filter, newest first.
func (r *TransactionRepository) List(ctx context.Context, filter *TransactionFilter) (*TransactionPage, error) {
	baseQ := `FROM transactions t
              JOIN devices d ON t.device_id = d.id
              JOIN products p ON t.product_id = p.id
              WHERE 1=1`

	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" && filter.Status != "all" {
		baseQ += fmt.Sprintf(" AND t.status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.StartDate != "" {
		baseQ += fmt.Sprintf(" AND t.created_at >= $%d::date", argIdx)
		args = append(args, filter.StartDate)
		argIdx++
	}
	if filter.EndDate != "" {
		baseQ += fmt.Sprintf(" AND t.created_at < ($%d::date + interval '1 day')", argIdx)
		args = append(args, filter.EndDate)
		argIdx++
	}
	if filter.Search != "" {
		// LIKE, not ILIKE: the search contract is case-sensitive.
		baseQ += fmt.Sprintf(` AND (t.transaction_id LIKE $%d
            OR t.payment_reference LIKE $%d
            OR t.customer_phone LIKE $%d)`, argIdx, argIdx, argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	countQ := "SELECT COUNT(*) " + baseQ
	var total int
	if err := r.db.GetContext(ctx, &total, countQ, args...); err != nil {
		return nil, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	offset := (filter.Page - 1) * filter.Limit
	totalPages := (total + filter.Limit - 1) / filter.Limit

	selectQ := fmt.Sprintf(`
        SELECT `+trxJoinColumns+`
        %s
        ORDER BY t.created_at DESC LIMIT $%d OFFSET $%d`, baseQ, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	transactions := []models.Transaction{}
	if err := r.db.SelectContext(ctx, &transactions, selectQ, args...); err != nil {
		return nil, err
	}

	return &TransactionPage{
		Transactions: transactions,
		TotalItems:   total,
		TotalPages:   totalPages,
		Page:         filter.Page,
		Limit:        filter.Limit,
	}, nil
}

// ListByDevice returns transactions for one device, newest first, with the
// total count for pagination.
func (r *TransactionRepository) ListByDevice(ctx context.Context, deviceID, limit, offset int) ([]models.Transaction, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM transactions WHERE device_id = $1`, deviceID); err != nil {
		return nil, 0, err
	}

	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
        SELECT ` + trxJoinColumns + `
        FROM transactions t
        JOIN devices d ON t.device_id = d.id
        JOIN products p ON t.product_id = p.id
        WHERE t.device_id = $1
        ORDER BY t.created_at DESC LIMIT $2 OFFSET $3`
	transactions := []models.Transaction{}
	if err := r.db.SelectContext(ctx, &transactions, q, deviceID, limit, offset); err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}
