package wheel

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kristianakila/restbek2/errors"
	"github.com/kristianakila/restbek2/metrics"
)

// DefaultTenantCacheTTL bounds how stale a cached tenant config may be.
const DefaultTenantCacheTTL = 60 * time.Second

type cacheEntry struct {
	cfg       *TenantConfig
	fetchedAt time.Time
}

// TenantConfigCache is a read-through, TTL-bounded cache over a
// TenantStore. Concurrent readers share the cached value; refresh-on-miss
// is the only write path, and duplicate concurrent refreshes for the same
// tenant are tolerated (last write wins).
type TenantConfigCache struct {
	store  TenantStore
	ttl    time.Duration
	clock  Clock
	logger zerolog.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewTenantConfigCache creates a cache with the given TTL. A non-positive
// ttl falls back to DefaultTenantCacheTTL.
func NewTenantConfigCache(store TenantStore, ttl time.Duration, clock Clock, logger zerolog.Logger) *TenantConfigCache {
	if ttl <= 0 {
		ttl = DefaultTenantCacheTTL
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &TenantConfigCache{
		store:   store,
		ttl:     ttl,
		clock:   clock,
		logger:  logger.With().Str("component", "tenant_cache").Logger(),
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the tenant config, from cache when fresh. A failed refresh
// serves the stale copy if one exists, except for TenantNotFound which
// always propagates.
func (c *TenantConfigCache) Get(ctx context.Context, tenantID string) (*TenantConfig, error) {
	now := c.clock.Now()

	c.mu.RLock()
	entry, ok := c.entries[tenantID]
	c.mu.RUnlock()

	if ok && now.Sub(entry.fetchedAt) < c.ttl {
		metrics.TenantCacheHits.WithLabelValues("hit").Inc()
		return entry.cfg, nil
	}

	cfg, err := c.store.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.IsCode(err, errors.ErrTenantNotFound) {
			c.mu.Lock()
			delete(c.entries, tenantID)
			c.mu.Unlock()
			metrics.TenantCacheHits.WithLabelValues("not_found").Inc()
			return nil, err
		}
		if ok {
			c.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("Tenant refresh failed, serving stale config")
			metrics.TenantCacheHits.WithLabelValues("stale").Inc()
			return entry.cfg, nil
		}
		metrics.TenantCacheHits.WithLabelValues("error").Inc()
		return nil, err
	}

	c.mu.Lock()
	c.entries[tenantID] = cacheEntry{cfg: cfg, fetchedAt: now}
	c.mu.Unlock()

	metrics.TenantCacheHits.WithLabelValues("refresh").Inc()
	return cfg, nil
}

// Invalidate drops the cached entry for a tenant, forcing a refresh on the
// next read.
func (c *TenantConfigCache) Invalidate(tenantID string) {
	c.mu.Lock()
	delete(c.entries, tenantID)
	c.mu.Unlock()
}
