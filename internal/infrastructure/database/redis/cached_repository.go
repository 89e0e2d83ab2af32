package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	metrics "github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/prometheus"
)

const (
	countryCachePrefix  = "country:"
	feeCachePrefix      = "fee:"
	eventNameCacheKey   = "event_names"
	defaultReferenceTTL = 10 * time.Minute
)

// CachedRepository serves country parameters, fees and the event-code
// catalog from the cache.  Everything else goes straight to the wrapped
// repository.
type CachedRepository struct {
	docket.Repository
	cache   Cache
	ttl     time.Duration
	metrics *metrics.DocketMetrics
	log     logging.Logger
}

var _ docket.Repository = (*CachedRepository)(nil)

// NewCachedRepository wraps inner.  A zero ttl uses ten minutes.
func NewCachedRepository(inner docket.Repository, cache Cache, ttl time.Duration, m *metrics.DocketMetrics, log logging.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = defaultReferenceTTL
	}
	if m == nil {
		m = metrics.NewNoopDocketMetrics()
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CachedRepository{Repository: inner, cache: cache, ttl: ttl, metrics: m, log: log}
}

func (r *CachedRepository) Countries() docket.CountryRepository {
	return &cachedCountries{r: r, inner: r.Repository.Countries()}
}

func (r *CachedRepository) Fees() docket.FeeRepository {
	return &cachedFees{r: r, inner: r.Repository.Fees()}
}

func (r *CachedRepository) EventNames() docket.EventNameRepository {
	return &cachedEventNames{r: r, inner: r.Repository.EventNames()}
}

// WithTx keeps reference reads cached inside the unit of work.
func (r *CachedRepository) WithTx(ctx context.Context, fn func(tx docket.Repository) error) error {
	return r.Repository.WithTx(ctx, func(tx docket.Repository) error {
		scoped := *r
		scoped.Repository = tx
		return fn(&scoped)
	})
}

// Invalidate drops every cached reference entry and returns how many keys
// were removed.
func (r *CachedRepository) Invalidate(ctx context.Context) (int64, error) {
	var total int64
	for _, prefix := range []string{countryCachePrefix, feeCachePrefix, eventNameCacheKey} {
		n, err := r.cache.DeleteByPrefix(ctx, prefix)
		total += n
		if err != nil {
			return total, err
		}
	}
	r.log.Info("reference cache invalidated", logging.Int64("keys", total))
	return total, nil
}

// lookup runs GetOrSet and records hit/miss.  found is false when the loader
// (now or earlier) produced nothing.
func (r *CachedRepository) lookup(ctx context.Context, name, key string, dest interface{}, loader func(ctx context.Context) (interface{}, error)) (bool, error) {
	loaded := false
	err := r.cache.GetOrSet(ctx, key, dest, r.ttl, func(ctx context.Context) (interface{}, error) {
		loaded = true
		return loader(ctx)
	})
	result := "hit"
	if loaded {
		result = "miss"
	}
	switch {
	case err == ErrCacheMiss:
		r.metrics.CacheRequestsTotal.WithLabelValues(name, result).Inc()
		return false, nil
	case err != nil:
		r.metrics.CacheRequestsTotal.WithLabelValues(name, "error").Inc()
		return false, err
	}
	r.metrics.CacheRequestsTotal.WithLabelValues(name, result).Inc()
	return true, nil
}

type cachedCountries struct {
	r     *CachedRepository
	inner docket.CountryRepository
}

func (c *cachedCountries) GetRenewal(ctx context.Context, country string) (*docket.CountryRenewal, error) {
	var out docket.CountryRenewal
	found, err := c.r.lookup(ctx, "country", countryCachePrefix+strings.ToUpper(country), &out, func(ctx context.Context) (interface{}, error) {
		return c.inner.GetRenewal(ctx, country)
	})
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

type cachedFees struct {
	r     *CachedRepository
	inner docket.FeeRepository
}

func (c *cachedFees) Find(ctx context.Context, country string, category docket.Category, origin string, year int) (*docket.FeeSchedule, error) {
	key := fmt.Sprintf("%s%s:%s:%s:%d", feeCachePrefix, strings.ToUpper(country), category, origin, year)
	var out docket.FeeSchedule
	found, err := c.r.lookup(ctx, "fee", key, &out, func(ctx context.Context) (interface{}, error) {
		return c.inner.Find(ctx, country, category, origin, year)
	})
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

type cachedEventNames struct {
	r     *CachedRepository
	inner docket.EventNameRepository
}

func (c *cachedEventNames) Codes(ctx context.Context) (map[string]bool, error) {
	var out map[string]bool
	found, err := c.r.lookup(ctx, "event_name", eventNameCacheKey, &out, func(ctx context.Context) (interface{}, error) {
		codes, err := c.inner.Codes(ctx)
		if err != nil || len(codes) == 0 {
			return nil, err
		}
		return codes, nil
	})
	if err != nil || !found {
		return nil, err
	}
	return out, nil
}

//Personal.AI order the ending
