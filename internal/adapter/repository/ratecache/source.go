// Package ratecache decorates an exchange-rate source with an in-process cache
package ratecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/simaogato/wealthflow-analytics/internal/common"
	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

// entry is the cached lookup result; a nil rate records a known miss
type entry struct {
	rate *domain.ExchangeRate
}

// RateSource caches point lookups and range listings of another ExchangeRateSource.
// Missing rates are cached too, so repeated triangulation attempts stay cheap.
type RateSource struct {
	next   domain.ExchangeRateSource
	cache  *cache.Cache
	logger *common.Logger
}

// NewRateSource wraps next with a cache whose entries expire after ttl
func NewRateSource(next domain.ExchangeRateSource, ttl, cleanupInterval time.Duration, logger *common.Logger) *RateSource {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &RateSource{
		next:   next,
		cache:  cache.New(ttl, cleanupInterval),
		logger: logger,
	}
}

// pointKey keys a lookup by its exact instant. The answer is the latest rate at
// or before at, so two instants only share it when no rate lies between them.
// Entry count is bounded by the TTL and the cleanup interval instead.
func pointKey(from, to string, at time.Time) string {
	return fmt.Sprintf("rate-%s-%s-%s", from, to, at.UTC().Format(time.RFC3339Nano))
}

func rangeKey(from, to string, r domain.DateRange) string {
	return fmt.Sprintf("rates-%s-%s-%s-%s", from, to, r.From.Format(time.RFC3339Nano), r.To.Format(time.RFC3339Nano))
}

// GetAt returns the cached rate or asks the wrapped source
func (s *RateSource) GetAt(ctx context.Context, from, to string, at time.Time) (*domain.ExchangeRate, error) {
	key := pointKey(from, to, at)

	if cached, found := s.cache.Get(key); found {
		e := cached.(entry)
		if e.rate == nil {
			return nil, fmt.Errorf("rate %s->%s at %s: %w", from, to, at.Format(time.RFC3339), domain.ErrNotFound)
		}
		rate := *e.rate
		return &rate, nil
	}

	rate, err := s.next.GetAt(ctx, from, to, at)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.cache.Set(key, entry{}, cache.DefaultExpiration)
		}
		return nil, err
	}

	stored := *rate
	s.cache.Set(key, entry{rate: &stored}, cache.DefaultExpiration)
	s.logger.Debug().Str("key", key).Msg("Exchange rate cached")

	return rate, nil
}

// ListInRange returns the cached series or asks the wrapped source
func (s *RateSource) ListInRange(ctx context.Context, from, to string, r domain.DateRange) ([]domain.ExchangeRate, error) {
	key := rangeKey(from, to, r)

	if cached, found := s.cache.Get(key); found {
		series := cached.([]domain.ExchangeRate)
		out := make([]domain.ExchangeRate, len(series))
		copy(out, series)
		return out, nil
	}

	series, err := s.next.ListInRange(ctx, from, to, r)
	if err != nil {
		return nil, err
	}

	stored := make([]domain.ExchangeRate, len(series))
	copy(stored, series)
	s.cache.Set(key, stored, cache.DefaultExpiration)

	return series, nil
}

// Flush drops every cached entry, e.g. after new rates were imported
func (s *RateSource) Flush() {
	s.cache.Flush()
}

// ItemCount returns the number of cached entries, expired ones included until cleanup
func (s *RateSource) ItemCount() int {
	return s.cache.ItemCount()
}
