package pricefeed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/B0TMirage/cryptopulse/pkg/models"
)

// SnapshotCache remembers the last good snapshots so a throttled provider
// can be answered with stale data instead of an error page.
type SnapshotCache interface {
	PutSnapshots(ctx context.Context, snapshots []models.MarketSnapshot) error
	// Snapshots returns the cached entries for ids in the order given.
	// Missing ids are skipped.
	Snapshots(ctx context.Context, ids []string) ([]models.MarketSnapshot, error)
	PutListing(ctx context.Context, page, perPage int, snapshots []models.MarketSnapshot) error
	// Listing returns nil when the page was never cached.
	Listing(ctx context.Context, page, perPage int) ([]models.MarketSnapshot, error)
}

var _ SnapshotCache = (*MemoryCache)(nil)

type listingKey struct {
	page, perPage int
}

type MemoryCache struct {
	mu        sync.RWMutex
	snapshots map[string]models.MarketSnapshot
	listings  map[listingKey][]models.MarketSnapshot
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		snapshots: make(map[string]models.MarketSnapshot),
		listings:  make(map[listingKey][]models.MarketSnapshot),
	}
}

func (c *MemoryCache) PutSnapshots(_ context.Context, snapshots []models.MarketSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range snapshots {
		c.snapshots[s.ID] = s
	}
	return nil
}

func (c *MemoryCache) Snapshots(_ context.Context, ids []string) ([]models.MarketSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.MarketSnapshot, 0, len(ids))
	for _, id := range ids {
		if s, ok := c.snapshots[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *MemoryCache) PutListing(_ context.Context, page, perPage int, snapshots []models.MarketSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings[listingKey{page, perPage}] = append([]models.MarketSnapshot(nil), snapshots...)
	return nil
}

func (c *MemoryCache) Listing(_ context.Context, page, perPage int) ([]models.MarketSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	listing, ok := c.listings[listingKey{page, perPage}]
	if !ok {
		return nil, nil
	}
	return append([]models.MarketSnapshot(nil), listing...), nil
}

type writeThrough struct {
	Feed
	cache  SnapshotCache
	logger *slog.Logger
}

// WriteThrough wraps feed so every successful fetch also lands in cache.
// Cache failures are logged and never fail the fetch.
func WriteThrough(feed Feed, cache SnapshotCache, logger *slog.Logger) Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &writeThrough{Feed: feed, cache: cache, logger: logger}
}

func (w *writeThrough) FetchByIDs(ctx context.Context, ids models.CoinSet) ([]models.MarketSnapshot, error) {
	snapshots, err := w.Feed.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(snapshots) > 0 {
		if err := w.cache.PutSnapshots(ctx, snapshots); err != nil {
			w.logger.Warn("failed to cache snapshots", slog.Any("error", err))
		}
	}
	return snapshots, nil
}

func (w *writeThrough) FetchAll(ctx context.Context, page, perPage int) ([]models.MarketSnapshot, error) {
	snapshots, err := w.Feed.FetchAll(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	if err := w.cache.PutListing(ctx, page, perPage, snapshots); err != nil {
		w.logger.Warn("failed to cache listing", slog.Int("page", page), slog.Any("error", err))
	}
	if err := w.cache.PutSnapshots(ctx, snapshots); err != nil {
		w.logger.Warn("failed to cache snapshots", slog.Any("error", err))
	}
	return snapshots, nil
}
