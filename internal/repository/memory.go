package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sauverpro/Safe-Vend-Backend/internal/models"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
)

// In-memory store implementations backing tests and local development
// without a database. They honor the same contracts as the sqlx
// repositories: the stock decrement is conditional and serialized, and
// settlement transitions are guarded so duplicates are no-ops.

// MemDeviceStore is an in-memory DeviceRepository equivalent.
type MemDeviceStore struct {
	mu      sync.Mutex
	nextID  int
	devices map[int]models.Device
}

// NewMemDeviceStore creates an empty MemDeviceStore.
func NewMemDeviceStore() *MemDeviceStore {
	return &MemDeviceStore{nextID: 1, devices: make(map[int]models.Device)}
}

func (s *MemDeviceStore) Create(_ context.Context, d *models.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.nextID
	s.nextID++
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	s.devices[d.ID] = *d
	return nil
}

func (s *MemDeviceStore) GetByID(_ context.Context, id int) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return nil, utils.ErrDeviceNotFound
	}
	return &d, nil
}

func (s *MemDeviceStore) GetByQRData(_ context.Context, qrData string) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d.QRCodeData == qrData {
			d := d
			return &d, nil
		}
	}
	return nil, utils.ErrDeviceNotFound
}

func (s *MemDeviceStore) List(_ context.Context, status string) ([]models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Device{}
	for _, d := range s.devices {
		if status == "" || string(d.Status) == status {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemDeviceStore) Update(_ context.Context, d *models.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[d.ID]; !ok {
		return utils.ErrDeviceNotFound
	}
	d.UpdatedAt = time.Now()
	s.devices[d.ID] = *d
	return nil
}

func (s *MemDeviceStore) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[id]; !ok {
		return utils.ErrDeviceNotFound
	}
	delete(s.devices, id)
	return nil
}

// MemProductStore is an in-memory ProductRepository equivalent.
type MemProductStore struct {
	mu       sync.Mutex
	nextID   int
	products map[int]models.Product
}

// NewMemProductStore creates an empty MemProductStore.
func NewMemProductStore() *MemProductStore {
	return &MemProductStore{nextID: 1, products: make(map[int]models.Product)}
}

func (s *MemProductStore) Create(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID
	s.nextID++
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.products[p.ID] = *p
	return nil
}

func (s *MemProductStore) GetByID(_ context.Context, id int) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, utils.ErrProductNotFound
	}
	return &p, nil
}

func (s *MemProductStore) List(_ context.Context, category string, isActive *bool) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Product{}
	for _, p := range s.products {
		if category != "" && string(p.Category) != category {
			continue
		}
		if isActive != nil && p.IsActive != *isActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemProductStore) Update(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return utils.ErrProductNotFound
	}
	p.UpdatedAt = time.Now()
	s.products[p.ID] = *p
	return nil
}

func (s *MemProductStore) Deactivate(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return utils.ErrProductNotFound
	}
	p.IsActive = false
	p.UpdatedAt = time.Now()
	s.products[id] = p
	return nil
}

func (s *MemProductStore) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return utils.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

// MemStockStore is an in-memory DeviceProductRepository equivalent. The
// store-level mutex gives the same per-row serialization the SQL conditional
// UPDATE provides.
type MemStockStore struct {
	mu     sync.Mutex
	nextID int
	rows   map[[2]int]models.DeviceProduct // keyed by (deviceID, productID)
}

// NewMemStockStore creates an empty MemStockStore.
func NewMemStockStore() *MemStockStore {
	return &MemStockStore{nextID: 1, rows: make(map[[2]int]models.DeviceProduct)}
}

func (s *MemStockStore) GetByDeviceProduct(_ context.Context, deviceID, productID int) (*models.DeviceProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dp, ok := s.rows[[2]int{deviceID, productID}]
	if !ok {
		return nil, utils.ErrStockRowNotFound
	}
	return &dp, nil
}

func (s *MemStockStore) ListByDevice(_ context.Context, deviceID int) ([]models.DeviceProduct, error) {
	return s.list(deviceID, false), nil
}

func (s *MemStockStore) ListAvailableByDevice(_ context.Context, deviceID int) ([]models.DeviceProduct, error) {
	return s.list(deviceID, true), nil
}

func (s *MemStockStore) list(deviceID int, availableOnly bool) []models.DeviceProduct {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.DeviceProduct{}
	for _, dp := range s.rows {
		if dp.DeviceID != deviceID {
			continue
		}
		if availableOnly && (!dp.IsAvailable || dp.Quantity <= 0) {
			continue
		}
		out = append(out, dp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (s *MemStockStore) Upsert(_ context.Context, dp *models.DeviceProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int{dp.DeviceID, dp.ProductID}
	now := time.Now()
	if existing, ok := s.rows[key]; ok {
		dp.ID = existing.ID
		dp.CreatedAt = existing.CreatedAt
	} else {
		dp.ID = s.nextID
		s.nextID++
		dp.CreatedAt = now
	}
	dp.UpdatedAt = now
	dp.IsAvailable = dp.IsAvailable && dp.Quantity > 0
	s.rows[key] = *dp
	return nil
}

func (s *MemStockStore) Decrement(_ context.Context, deviceID, productID, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int{deviceID, productID}
	dp, ok := s.rows[key]
	if !ok {
		return 0, utils.ErrStockRowNotFound
	}
	if dp.Quantity < qty {
		return 0, utils.ErrInsufficientStock
	}
	dp.Quantity -= qty
	dp.IsAvailable = dp.Quantity > 0
	dp.UpdatedAt = time.Now()
	s.rows[key] = dp
	return dp.Quantity, nil
}

func (s *MemStockStore) Delete(_ context.Context, deviceID, productID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int{deviceID, productID}
	if _, ok := s.rows[key]; !ok {
		return utils.ErrStockRowNotFound
	}
	delete(s.rows, key)
	return nil
}

// MemTransactionStore is an in-memory TransactionRepository equivalent.
type MemTransactionStore struct {
	mu     sync.Mutex
	nextID int
	byID   map[string]*models.Transaction
	order  []string // insertion order, oldest first
}

// NewMemTransactionStore creates an empty MemTransactionStore.
func NewMemTransactionStore() *MemTransactionStore {
	return &MemTransactionStore{nextID: 1, byID: make(map[string]*models.Transaction)}
}

func (s *MemTransactionStore) Create(_ context.Context, trx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx.ID = s.nextID
	s.nextID++
	now := time.Now()
	trx.CreatedAt, trx.UpdatedAt = now, now
	cp := *trx
	s.byID[trx.TransactionID] = &cp
	s.order = append(s.order, trx.TransactionID)
	return nil
}

func (s *MemTransactionStore) GetByTransactionID(_ context.Context, transactionID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.byID[transactionID]
	if !ok {
		return nil, utils.ErrTransactionNotFound
	}
	cp := *trx
	return &cp, nil
}

func (s *MemTransactionStore) ClaimSettlement(_ context.Context, transactionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.byID[transactionID]
	if !ok || trx.Status != models.StatusInitiated {
		return false, nil
	}
	trx.Status = models.StatusProcessing
	trx.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemTransactionStore) Complete(_ context.Context, transactionID, paymentReference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.byID[transactionID]
	if !ok || trx.Status.Terminal() {
		return utils.ErrTransactionNotFound
	}
	trx.Status = models.StatusCompleted
	trx.PaymentStatus = models.PaymentCompleted
	trx.PaymentReference = &paymentReference
	trx.UpdatedAt = time.Now()
	return nil
}

func (s *MemTransactionStore) Fail(_ context.Context, transactionID string, metadata models.JSONMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.byID[transactionID]
	if !ok || trx.Status.Terminal() {
		return utils.ErrTransactionNotFound
	}
	trx.Status = models.StatusFailed
	trx.PaymentStatus = models.PaymentFailed
	trx.Metadata = metadata
	trx.UpdatedAt = time.Now()
	return nil
}

func (s *MemTransactionStore) ListStale(_ context.Context, olderThan time.Duration) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	out := []models.Transaction{}
	for _, id := range s.order {
		trx := s.byID[id]
		if trx.Status.Terminal() || !trx.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, *trx)
	}
	return out, nil
}

func (s *MemTransactionStore) ExistsForDevice(_ context.Context, deviceID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, trx := range s.byID {
		if trx.DeviceID == deviceID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemTransactionStore) ExistsForProduct(_ context.Context, productID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, trx := range s.byID {
		if trx.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemTransactionStore) List(_ context.Context, filter *TransactionFilter) (*TransactionPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := []models.Transaction{}
	for i := len(s.order) - 1; i >= 0; i-- { // newest first
		trx := s.byID[s.order[i]]
		if filter.Status != "" && filter.Status != "all" && string(trx.Status) != filter.Status {
			continue
		}
		if filter.StartDate != "" {
			start, err := time.Parse("2006-01-02", filter.StartDate)
			if err == nil && trx.CreatedAt.Before(start) {
				continue
			}
		}
		if filter.EndDate != "" {
			end, err := time.Parse("2006-01-02", filter.EndDate)
			if err == nil && !trx.CreatedAt.Before(end.AddDate(0, 0, 1)) {
				continue
			}
		}
		if filter.Search != "" && !matchesSearch(trx, filter.Search) {
			continue
		}
		matches = append(matches, *trx)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	total := len(matches)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &TransactionPage{
		Transactions: matches[start:end],
		TotalItems:   total,
		TotalPages:   totalPages,
		Page:         page,
		Limit:        limit,
	}, nil
}

func matchesSearch(trx *models.Transaction, search string) bool {
	if strings.Contains(trx.TransactionID, search) {
		return true
	}
	if trx.PaymentReference != nil && strings.Contains(*trx.PaymentReference, search) {
		return true
	}
	if trx.CustomerPhone != nil && strings.Contains(*trx.CustomerPhone, search) {
		return true
	}
	return false
}

func (s *MemTransactionStore) ListByDevice(_ context.Context, deviceID, limit, offset int) ([]models.Transaction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	matches := []models.Transaction{}
	for i := len(s.order) - 1; i >= 0; i-- {
		trx := s.byID[s.order[i]]
		if trx.DeviceID == deviceID {
			matches = append(matches, *trx)
		}
	}
	total := len(matches)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matches[offset:end], total, nil
}
