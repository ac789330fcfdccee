package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/sauverpro/Safe-Vend-Backend/internal/models"
)

// ProductService contains catalog logic for products.
type ProductService struct {
	products ProductStore
	trxStore TransactionStore
}

// NewProductService constructs a ProductService.
func NewProductService(products ProductStore, trxStore TransactionStore) *ProductService {
	return &ProductService{products: products, trxStore: trxStore}
}

// CreateProductRequest is the input for adding a product to the catalog.
type CreateProductRequest struct {
	Name        string         `json:"name" binding:"required"`
	Description *string        `json:"description"`
	Price       float64        `json:"price" binding:"required"`
	Image       *string        `json:"image"`
	Category    string         `json:"category"`
	Features    models.JSONMap `json:"features"`
}

// Create adds a product to the catalog, active by default.
func (s *ProductService) Create(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	category := models.CategoryClassic
	if req.Category != "" {
		category = models.ProductCategory(req.Category)
	}
	p := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Category:    category,
		IsActive:    true,
		Features:    req.Features,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a product by id.
func (s *ProductService) Get(ctx context.Context, id int) (*models.Product, error) {
	return s.products.GetByID(ctx, id)
}

// List returns products with optional filters.
func (s *ProductService) List(ctx context.Context, category string, isActive *bool) ([]models.Product, error) {
	return s.products.List(ctx, category, isActive)
}

// UpdateProductRequest carries operator-editable product fields.
type UpdateProductRequest struct {
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Price       *float64       `json:"price"`
	Image       *string        `json:"image"`
	Category    string         `json:"category"`
	IsActive    *bool          `json:"isActive"`
	Features    models.JSONMap `json:"features"`
}

// Update applies operator edits. Price changes do not touch existing
// transactions, whose amounts were frozen at purchase time.
func (s *ProductService) Update(ctx context.Context, id int, req *UpdateProductRequest) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Image != nil {
		p.Image = req.Image
	}
	if req.Category != "" {
		p.Category = models.ProductCategory(req.Category)
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.Features != nil {
		p.Features = req.Features
	}
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a product. Products referenced by transactions are
// deactivated instead of removed so historical rows keep resolving.
func (s *ProductService) Delete(ctx context.Context, id int) (deleted bool, err error) {
	if _, err := s.products.GetByID(ctx, id); err != nil {
		return false, err
	}
	referenced, err := s.trxStore.ExistsForProduct(ctx, id)
	if err != nil {
		return false, err
	}
	if referenced {
		log.Info().Int("productId", id).Msg("product referenced by transactions, deactivating instead of deleting")
		return false, s.products.Deactivate(ctx, id)
	}
	return true, s.products.Delete(ctx, id)
}
