package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sauverpro/Safe-Vend-Backend/internal/models"
)

// storefrontTTL bounds how stale a cached storefront can get even without
// explicit invalidation.
const storefrontTTL = 5 * time.Minute

// Storefront is the cached payload served when a customer scans a device QR
// code: the device plus only its purchasable stock rows.
type Storefront struct {
	Device   models.Device          `json:"device"`
	Products []models.DeviceProduct `json:"products"`
	CachedAt time.Time              `json:"cachedAt"`
}

// StorefrontCache caches QR-scan storefront lookups in Redis. Settlements and
// restocks invalidate the device entry so customers never see sold-out slots
// for longer than the TTL.
type StorefrontCache struct {
	redis *RedisClient
}

// NewStorefrontCache creates a new StorefrontCache.
func NewStorefrontCache(redis *RedisClient) *StorefrontCache {
	return &StorefrontCache{redis: redis}
}

func (c *StorefrontCache) key(qrData string) string {
	return fmt.Sprintf("storefront:qr:%s", qrData)
}

func (c *StorefrontCache) keyByDevice(deviceID int) string {
	return fmt.Sprintf("storefront:device:%d", deviceID)
}

// Set stores a storefront under both the QR key and a device-id back-reference
// used for invalidation.
func (c *StorefrontCache) Set(ctx context.Context, qrData string, sf *Storefront) error {
	sf.CachedAt = time.Now()

	jsonData, err := json.Marshal(sf)
	if err != nil {
		return fmt.Errorf("failed to marshal storefront: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(qrData), string(jsonData), storefrontTTL); err != nil {
		return fmt.Errorf("failed to set storefront key: %w", err)
	}
	// Back-reference so stock mutations can invalidate by device id alone.
	if err := c.redis.Set(ctx, c.keyByDevice(sf.Device.ID), qrData, storefrontTTL); err != nil {
		return fmt.Errorf("failed to set device back-reference: %w", err)
	}
	return nil
}

// Get retrieves a cached storefront by QR payload. Returns redis.Nil via the
// underlying client when absent.
func (c *StorefrontCache) Get(ctx context.Context, qrData string) (*Storefront, error) {
	jsonData, err := c.redis.Get(ctx, c.key(qrData))
	if err != nil {
		return nil, err
	}
	var sf Storefront
	if err := json.Unmarshal([]byte(jsonData), &sf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal storefront: %w", err)
	}
	return &sf, nil
}

// InvalidateDevice drops the cached storefront for a device, if any.
func (c *StorefrontCache) InvalidateDevice(ctx context.Context, deviceID int) error {
	qrData, err := c.redis.Get(ctx, c.keyByDevice(deviceID))
	if err != nil {
		// No back-reference means nothing cached.
		return nil
	}
	return c.redis.Delete(ctx, c.key(qrData), c.keyByDevice(deviceID))
}
