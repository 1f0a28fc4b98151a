// Package cache guarda en Redis la última instantánea calculada de cada F29, para servir
// cifras en modo degradado cuando la base de datos no responde.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

const keyPrefix = "f29"

// F29Cache implementa period.SnapshotCache sobre Redis.
type F29Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewF29Cache ttl 0 = sin expiración.
func NewF29Cache(client *redis.Client, ttl time.Duration) *F29Cache {
	return &F29Cache{client: client, ttl: ttl}
}

func key(companyID, period string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, companyID, period)
}

// Get devuelve (nil, nil) si no hay instantánea.
func (c *F29Cache) Get(ctx context.Context, companyID, period string) (*entity.TaxPeriod, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	payload, err := c.client.Get(ctx, key(companyID, period)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache f29: get: %w", err)
	}
	var tp entity.TaxPeriod
	if err := json.Unmarshal(payload, &tp); err != nil {
		return nil, fmt.Errorf("cache f29: decodificar: %w", err)
	}
	return &tp, nil
}

// Set reemplaza la instantánea del período.
func (c *F29Cache) Set(ctx context.Context, tp *entity.TaxPeriod) error {
	if c == nil || c.client == nil || tp == nil {
		return nil
	}
	raw, err := json.Marshal(tp)
	if err != nil {
		return fmt.Errorf("cache f29: codificar: %w", err)
	}
	if err := c.client.Set(ctx, key(tp.CompanyID, tp.Period), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache f29: set: %w", err)
	}
	return nil
}

// Ping comprueba la conexión (health check).
func (c *F29Cache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
