// Package watchlist persists the set of coins each user tracks. Every backend
// has the same contract: reads never report "not found" and writes replace
// the whole set for the user.
package watchlist

import (
	"context"
	"sync"
	"time"

	"github.com/B0TMirage/cryptopulse/pkg/models"
)

type Store interface {
	// Get returns the user's record, or an empty one if nothing was stored.
	Get(ctx context.Context, userID string) (models.WatchlistRecord, error)
	// Set upserts the full coin set and returns the record as persisted.
	Set(ctx context.Context, userID string, coins models.CoinSet) (models.WatchlistRecord, error)
}

var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.WatchlistRecord
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]models.WatchlistRecord),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (models.WatchlistRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return models.EmptyWatchlist(userID), nil
	}
	rec.Coins = rec.Coins.Clone()
	return rec, nil
}

func (s *MemoryStore) Set(_ context.Context, userID string, coins models.CoinSet) (models.WatchlistRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := models.WatchlistRecord{
		UserID:    userID,
		Coins:     coins.Clone(),
		UpdatedAt: s.now().UTC(),
	}
	s.records[userID] = rec

	rec.Coins = rec.Coins.Clone()
	return rec, nil
}
