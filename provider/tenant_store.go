package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	coreredis "github.com/kristianakila/restbek2/db/redis"
	"github.com/kristianakila/restbek2/errors"
	"github.com/kristianakila/restbek2/wheel"
)

// TenantStore implements wheel.TenantStore on Redis. Tenant configs are
// JSON documents written by the (out-of-scope) admin tooling; this store
// only reads them.
type TenantStore struct {
	redis  *coreredis.Client
	logger zerolog.Logger
}

// NewTenantStore creates a Redis-backed tenant store.
func NewTenantStore(redisClient *coreredis.Client, logger zerolog.Logger) *TenantStore {
	return &TenantStore{
		redis:  redisClient,
		logger: logger.With().Str("component", "tenant_store").Logger(),
	}
}

func (s *TenantStore) tenantKey(tenantID string) string {
	return fmt.Sprintf("wheel:tenant:%s", tenantID)
}

// GetTenant retrieves a tenant configuration document.
func (s *TenantStore) GetTenant(ctx context.Context, tenantID string) (*wheel.TenantConfig, error) {
	data, err := s.redis.Get(ctx, s.tenantKey(tenantID))
	if err == coreredis.Nil {
		return nil, errors.New(errors.ErrTenantNotFound, "tenant not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrRedisError, "tenant store read failed")
	}

	var cfg wheel.TenantConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigError, "corrupt tenant config document")
	}
	if cfg.TenantID == "" {
		cfg.TenantID = tenantID
	}
	return &cfg, nil
}
