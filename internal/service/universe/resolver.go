// Package universe resolves the top instruments of the exchange by traded
// volume, with short-lived caching so repeated scans and the market
// snapshot do not hammer the ticker endpoints.
package universe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"TemaScan/internal/domain/models"
	"TemaScan/pkg/cache"
	"TemaScan/pkg/logger"
)

// ErrResolution marks a universe that could not be resolved at all. A scan
// cannot start without a universe, so callers map this to a hard failure.
var ErrResolution = errors.New("universe resolution failed")

// TickerSource lists all USDT instruments of one market, volume-sorted.
type TickerSource interface {
	Tickers(ctx context.Context, market models.Market) ([]models.Instrument, error)
}

const defaultCacheTTL = 5 * time.Minute

// Resolver implements repository.InstrumentUniverse on top of a ticker
// source and a cache.
type Resolver struct {
	source TickerSource
	cache  cache.Service
	ttl    time.Duration
	log    *logger.Logger
}

// NewResolver creates a resolver. A nil cache disables caching; a
// non-positive ttl falls back to five minutes.
func NewResolver(source TickerSource, c cache.Service, ttl time.Duration, log *logger.Logger) *Resolver {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Resolver{source: source, cache: c, ttl: ttl, log: log}
}

// TopInstruments returns the count highest-volume instruments of the
// requested market. For the combined market the spot and perpetual lists
// are merged with perpetual contracts winning symbol collisions.
func (r *Resolver) TopInstruments(ctx context.Context, count int, market models.Market) ([]models.Instrument, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: non-positive count %d", ErrResolution, count)
	}

	list, err := r.allInstruments(ctx, market)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: no instruments for market %q", ErrResolution, market)
	}
	if count < len(list) {
		list = list[:count]
	}
	return list, nil
}

func (r *Resolver) allInstruments(ctx context.Context, market models.Market) ([]models.Instrument, error) {
	if market != models.MarketBoth {
		return r.marketInstruments(ctx, market)
	}

	perp, perpErr := r.marketInstruments(ctx, models.MarketPerp)
	spot, spotErr := r.marketInstruments(ctx, models.MarketSpot)
	if perpErr != nil && spotErr != nil {
		return nil, fmt.Errorf("%w: perp: %v, spot: %v", ErrResolution, perpErr, spotErr)
	}
	if perpErr != nil {
		r.log.Warn("perp universe unavailable, spot only", logger.Error(perpErr))
	}
	if spotErr != nil {
		r.log.Warn("spot universe unavailable, perp only", logger.Error(spotErr))
	}
	return mergeMarkets(perp, spot), nil
}

func (r *Resolver) marketInstruments(ctx context.Context, market models.Market) ([]models.Instrument, error) {
	key := cache.GenerateKey("universe", string(market))
	if list, ok := r.cached(ctx, key); ok {
		return list, nil
	}

	list, err := r.source.Tickers(ctx, market)
	if err != nil {
		return nil, fmt.Errorf("%w: %s tickers: %v", ErrResolution, market, err)
	}
	r.store(ctx, key, list)
	return list, nil
}

// mergeMarkets combines the two lists, keeping the perpetual contract when
// the same symbol trades on both markets, and re-sorts by quote volume.
func mergeMarkets(perp, spot []models.Instrument) []models.Instrument {
	seen := make(map[string]bool, len(perp))
	out := make([]models.Instrument, 0, len(perp)+len(spot))
	for _, in := range perp {
		seen[in.Symbol] = true
		out = append(out, in)
	}
	for _, in := range spot {
		if seen[in.Symbol] {
			continue
		}
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QuoteVolume > out[j].QuoteVolume
	})
	return out
}

func (r *Resolver) cached(ctx context.Context, key string) ([]models.Instrument, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var list []models.Instrument
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, false
	}
	return list, true
}

func (r *Resolver) store(ctx context.Context, key string, list []models.Instrument) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, string(raw), r.ttl); err != nil {
		r.log.Warn("universe cache write failed", logger.Error(err))
	}
}
