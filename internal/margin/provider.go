package margin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/metrics"
	"github.com/wonny/stratfolio/pkg/logger"
)

// CachedProvider resolves rates through cache -> source -> stale cache -> static fallback
// Resolved tables are always merged over the fallback so common symbols never read 0.
type CachedProvider struct {
	source RateSource
	store  RateStore
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time

	// 동시에 만료된 요청들은 한 번의 fetch 를 공유
	inflight singleflight.Group
}

// NewCachedProvider creates a provider; source or store may be nil
func NewCachedProvider(source RateSource, store RateStore, ttl time.Duration, log *logger.Logger) *CachedProvider {
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedProvider{
		source: source,
		store:  store,
		ttl:    ttl,
		logger: log,
		now:    time.Now,
	}
}

// Rates implements RateProvider; it never returns an error
func (p *CachedProvider) Rates(ctx context.Context, marginType contracts.MarginType) (RateTable, error) {
	fallback := Fallback(marginType)

	// 1. Cache
	cached, cacheErr := p.store.Load(ctx, marginType)
	hasCached := cacheErr == nil
	if cacheErr != nil && !errors.Is(cacheErr, ErrNoSnapshot) {
		p.logger.WithError(cacheErr).Warn("Margin rate store load failed")
	}
	if hasCached && cached.Fresh(p.ttl, p.now()) {
		p.record(marginType, metrics.TierCache)
		return Merge(fallback, cached.Rates), nil
	}

	// 2. Source
	snap, err := p.sharedRefresh(ctx, marginType)
	if err == nil {
		p.record(marginType, metrics.TierSource)
		return Merge(fallback, snap.Rates), nil
	}

	p.logger.WithFields(map[string]interface{}{
		"margin_type": string(marginType),
		"stale_cache": hasCached,
		"error":       err.Error(),
	}).Warn("Margin rate fetch failed, degrading")

	// 3. Stale cache
	if hasCached {
		p.record(marginType, metrics.TierStale)
		return Merge(fallback, cached.Rates), nil
	}

	// 4. Static table
	p.record(marginType, metrics.TierFallback)
	return fallback, nil
}

// Refresh fetches from the source and stores the snapshot
func (p *CachedProvider) Refresh(ctx context.Context, marginType contracts.MarginType) (Snapshot, error) {
	if p.source == nil {
		return Snapshot{}, fmt.Errorf("%w: no source configured", ErrSourceUnavailable)
	}

	rates, err := p.source.Fetch(ctx, marginType)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		MarginType: marginType,
		Source:     p.source.Name(),
		Rates:      rates,
		FetchedAt:  p.now(),
	}
	if err := p.store.Save(ctx, snap); err != nil {
		// 저장 실패는 치명적이지 않음
		p.logger.WithError(err).Warn("Failed to persist margin rate snapshot")
	}
	return snap, nil
}

func (p *CachedProvider) sharedRefresh(ctx context.Context, marginType contracts.MarginType) (Snapshot, error) {
	v, err, shared := p.inflight.Do(string(marginType), func() (interface{}, error) {
		return p.Refresh(ctx, marginType)
	})
	if shared {
		p.logger.WithField("margin_type", string(marginType)).Debug("Joined in-flight margin fetch")
	}
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

func (p *CachedProvider) record(marginType contracts.MarginType, tier string) {
	metrics.MarginRateLookups.WithLabelValues(string(marginType), tier).Inc()
	p.logger.WithFields(map[string]interface{}{
		"margin_type": string(marginType),
		"tier":        tier,
	}).Debug("Margin rates resolved")
}
