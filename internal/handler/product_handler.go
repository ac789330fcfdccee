package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sauverpro/Safe-Vend-Backend/internal/service"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
)

// ProductHandler handles product catalog endpoints.
type ProductHandler struct {
	productService *service.ProductService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(productService *service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// CreateProduct handles POST /v1/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Name and price are required")
		return
	}

	product, err := h.productService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 201, "Product created", product)
}

// GetProduct handles GET /v1/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_PRODUCT_ID", "Product id must be an integer")
		return
	}

	product, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Product retrieved", product)
}

// ListProducts handles GET /v1/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var isActive *bool
	if raw := c.Query("isActive"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			utils.Error(c, 400, "INVALID_FILTER", "isActive must be true or false")
			return
		}
		isActive = &parsed
	}

	products, err := h.productService.List(c.Request.Context(), c.Query("category"), isActive)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Products retrieved", products)
}

// UpdateProduct handles PUT /v1/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_PRODUCT_ID", "Product id must be an integer")
		return
	}

	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	product, err := h.productService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Product updated", product)
}

// DeleteProduct handles DELETE /v1/products/:id. Products referenced by
// transactions are deactivated instead of removed.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_PRODUCT_ID", "Product id must be an integer")
		return
	}

	deleted, err := h.productService.Delete(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if deleted {
		utils.Success(c, 200, "Product deleted", nil)
		return
	}
	utils.Success(c, 200, "Product has transactions and was deactivated instead", nil)
}

func (h *ProductHandler) handleError(c *gin.Context, err error) {
	switch err {
	case utils.ErrProductNotFound:
		utils.Error(c, 404, "PRODUCT_NOT_FOUND", "Product not found")
	default:
		log.Error().Err(err).Msg("product operation failed")
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
	}
}
