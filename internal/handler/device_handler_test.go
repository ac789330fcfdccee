package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sauverpro/Safe-Vend-Backend/internal/models"
	"github.com/sauverpro/Safe-Vend-Backend/internal/repository"
	"github.com/sauverpro/Safe-Vend-Backend/internal/service"
)

type catalogFixture struct {
	router   *gin.Engine
	products *repository.MemProductStore
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	devices := repository.NewMemDeviceStore()
	products := repository.NewMemProductStore()
	stock := repository.NewMemStockStore()
	trxStore := repository.NewMemTransactionStore()

	deviceSvc := service.NewDeviceService(devices, products, stock, trxStore, nil)
	productSvc := service.NewProductService(products, trxStore)

	dh := NewDeviceHandler(deviceSvc)
	ph := NewProductHandler(productSvc)

	router := gin.New()
	router.GET("/v1/devices/qr/:qrData", dh.GetStorefront)
	router.GET("/v1/devices", dh.ListDevices)
	router.GET("/v1/devices/:id", dh.GetDevice)
	router.POST("/v1/devices", dh.CreateDevice)
	router.PUT("/v1/devices/:id", dh.UpdateDevice)
	router.DELETE("/v1/devices/:id", dh.DeleteDevice)
	router.POST("/v1/devices/:id/products", dh.SetStock)
	router.PUT("/v1/devices/:id/products/:productId", dh.UpdateStock)
	router.DELETE("/v1/devices/:id/products/:productId", dh.RemoveStock)
	router.POST("/v1/products", ph.CreateProduct)
	router.GET("/v1/products", ph.ListProducts)

	return &catalogFixture{router: router, products: products}
}

func (f *catalogFixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, &env
}

func TestDeviceEndpoints(t *testing.T) {
	f := newCatalogFixture(t)

	var device models.Device
	t.Run("create device", func(t *testing.T) {
		rec, env := f.do(t, http.MethodPost, "/v1/devices", gin.H{
			"name": "Station Kiosk", "location": "Central Station",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		require.NoError(t, json.Unmarshal(env.Data, &device))
		assert.Equal(t, models.DeviceStatusActive, device.Status)
		assert.NotEmpty(t, device.QRCodeData)
	})

	t.Run("create device without location fails", func(t *testing.T) {
		rec, env := f.do(t, http.MethodPost, "/v1/devices", gin.H{"name": "Nameless"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "MISSING_FIELD", env.Error.Code)
	})

	var product models.Product
	t.Run("create product and stock the device", func(t *testing.T) {
		rec, env := f.do(t, http.MethodPost, "/v1/products", gin.H{
			"name": "Classic 3-pack", "price": 150,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		require.NoError(t, json.Unmarshal(env.Data, &product))

		rec, env = f.do(t, http.MethodPost, fmt.Sprintf("/v1/devices/%d/products", device.ID), gin.H{
			"productId": product.ID, "quantity": 7, "position": "B2",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var dp models.DeviceProduct
		require.NoError(t, json.Unmarshal(env.Data, &dp))
		assert.Equal(t, 7, dp.Quantity)
		assert.Equal(t, float64(150), dp.Price)
		assert.True(t, dp.IsAvailable)
	})

	t.Run("storefront resolves QR payload", func(t *testing.T) {
		rec, env := f.do(t, http.MethodGet, "/v1/devices/qr/"+device.QRCodeData, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var sf struct {
			Device   models.Device          `json:"device"`
			Products []models.DeviceProduct `json:"products"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &sf))
		assert.Equal(t, device.ID, sf.Device.ID)
		require.Len(t, sf.Products, 1)
	})

	t.Run("storefront for unknown QR returns 404", func(t *testing.T) {
		rec, env := f.do(t, http.MethodGet, "/v1/devices/qr/device:DEV-UNKNOWN", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "DEVICE_NOT_FOUND", env.Error.Code)
	})

	t.Run("update stock by pair", func(t *testing.T) {
		rec, env := f.do(t, http.MethodPut,
			fmt.Sprintf("/v1/devices/%d/products/%d", device.ID, product.ID),
			gin.H{"productId": product.ID, "quantity": 0})
		require.Equal(t, http.StatusOK, rec.Code)
		var dp models.DeviceProduct
		require.NoError(t, json.Unmarshal(env.Data, &dp))
		assert.Zero(t, dp.Quantity)
		assert.False(t, dp.IsAvailable)
	})

	t.Run("remove stock then 404 on repeat", func(t *testing.T) {
		path := fmt.Sprintf("/v1/devices/%d/products/%d", device.ID, product.ID)
		rec, _ := f.do(t, http.MethodDelete, path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec, env := f.do(t, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "STOCK_NOT_FOUND", env.Error.Code)
	})

	t.Run("delete device", func(t *testing.T) {
		rec, _ := f.do(t, http.MethodDelete, fmt.Sprintf("/v1/devices/%d", device.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec, _ = f.do(t, http.MethodGet, fmt.Sprintf("/v1/devices/%d", device.ID), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
