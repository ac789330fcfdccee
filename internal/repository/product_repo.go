package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sauverpro/Safe-Vend-Backend/internal/models"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
)

// ProductRepository handles data access for catalog products.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product row.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	const q = `
        INSERT INTO products (name, description, price, image, category, is_active, features)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q,
		p.Name, p.Description, p.Price, p.Image, p.Category, p.IsActive, p.Features,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID returns a product by primary key.
func (r *ProductRepository) GetByID(ctx context.Context, id int) (*models.Product, error) {
	const q = `SELECT * FROM products WHERE id = $1 LIMIT 1`
	var p models.Product
	if err := r.db.GetContext(ctx, &p, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns products with optional category and active-flag filters.
func (r *ProductRepository) List(ctx context.Context, category string, isActive *bool) ([]models.Product, error) {
	q := `SELECT * FROM products WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if category != "" {
		q += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, category)
		argIdx++
	}
	if isActive != nil {
		q += fmt.Sprintf(" AND is_active = $%d", argIdx)
		args = append(args, *isActive)
		argIdx++
	}
	q += " ORDER BY name ASC"

	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, q, args...); err != nil {
		return nil, err
	}
	return products, nil
}

// Update persists mutable product fields.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	const q = `
        UPDATE products SET
            name = $2,
            description = $3,
            price = $4,
            image = $5,
            category = $6,
            is_active = $7,
            features = $8,
            updated_at = NOW()
        WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q,
		p.ID, p.Name, p.Description, p.Price, p.Image, p.Category, p.IsActive, p.Features)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrProductNotFound
	}
	return nil
}

// Deactivate soft-deletes a product by clearing its active flag. Used when
// transactions still reference the product.
func (r *ProductRepository) Deactivate(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrProductNotFound
	}
	return nil
}

// Delete removes a product row entirely.
func (r *ProductRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrProductNotFound
	}
	return nil
}
