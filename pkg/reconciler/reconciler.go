// Package reconciler keeps the starred-coin state shown to a user consistent
// with the persisted watchlist while live prices are merged in.
//
// Mutations are applied optimistically and persisted in FIFO order per user.
// Each write applies its change to the last confirmed set, so two toggles
// issued back to back both end up in the store.
package reconciler

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/B0TMirage/cryptopulse/pkg/models"
	"github.com/B0TMirage/cryptopulse/pkg/pricefeed"
	"github.com/B0TMirage/cryptopulse/pkg/watchlist"
)

const (
	DefaultWriteTimeout = 10 * time.Second
	DefaultSessionIdle  = 30 * time.Minute
)

type Options struct {
	// Cache backs the stale view when the feed is throttled. Optional.
	Cache        pricefeed.SnapshotCache
	Logger       *slog.Logger
	WriteTimeout time.Duration
	// SessionIdle is how long an unused session with no writes in flight is
	// kept before it is dropped.
	SessionIdle time.Duration
}

type Reconciler struct {
	store        watchlist.Store
	feed         pricefeed.Feed
	cache        pricefeed.SnapshotCache
	logger       *slog.Logger
	writeTimeout time.Duration
	sessionIdle  time.Duration
	now          func() time.Time

	mu        sync.RWMutex
	sessions  map[string]*session
	lastSweep time.Time
}

func New(store watchlist.Store, feed pricefeed.Feed, opts Options) *Reconciler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.SessionIdle <= 0 {
		opts.SessionIdle = DefaultSessionIdle
	}
	return &Reconciler{
		store:        store,
		feed:         feed,
		cache:        opts.Cache,
		logger:       opts.Logger,
		writeTimeout: opts.WriteTimeout,
		sessionIdle:  opts.SessionIdle,
		now:          time.Now,
		sessions:     make(map[string]*session),
	}
}

// session is the per-user partition. Nothing in it is shared across users.
type session struct {
	mu sync.Mutex

	loaded    bool
	confirmed models.CoinSet
	// version counts successful writes so a slow Load cannot overwrite a
	// newer confirmed set.
	version uint64
	pending []*Mutation
	// tail is closed when the last queued write finishes.
	tail chan struct{}

	issuedSeq  uint64
	appliedSeq uint64
	lastRows   []models.WatchlistViewRow

	lastUsed time.Time
}

func (s *session) optimisticLocked() models.CoinSet {
	set := s.confirmed.Clone()
	for _, m := range s.pending {
		set = m.apply(set)
	}
	return set
}

func (s *session) dropPendingLocked(m *Mutation) {
	s.pending = slices.DeleteFunc(s.pending, func(p *Mutation) bool { return p == m })
}

func (r *Reconciler) session(userID string) *session {
	now := r.now()

	r.mu.RLock()
	s, ok := r.sessions[userID]
	r.mu.RUnlock()
	if !ok {
		r.mu.Lock()
		if s, ok = r.sessions[userID]; !ok {
			if now.Sub(r.lastSweep) >= r.sessionIdle {
				r.sweepLocked(now)
			}
			s = &session{confirmed: models.NewCoinSet()}
			r.sessions[userID] = s
		}
		r.mu.Unlock()
	}

	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
	return s
}

// sweepLocked drops sessions that were idle for sessionIdle and have no
// write queued. A dropped user starts over from the store on the next call.
func (r *Reconciler) sweepLocked(now time.Time) {
	r.lastSweep = now
	for userID, s := range r.sessions {
		s.mu.Lock()
		idle := len(s.pending) == 0 && s.tail == nil && now.Sub(s.lastUsed) >= r.sessionIdle
		s.mu.Unlock()
		if idle {
			delete(r.sessions, userID)
		}
	}
}

// Load reads the persisted watchlist. When no write is in flight the user's
// confirmed state is refreshed from it.
func (r *Reconciler) Load(ctx context.Context, userID string) (models.CoinSet, error) {
	s := r.session(userID)

	s.mu.Lock()
	version := s.version
	s.mu.Unlock()

	rec, err := r.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if len(s.pending) == 0 && s.version == version {
		s.confirmed = rec.Coins.Clone()
		s.loaded = true
	}
	s.mu.Unlock()

	return rec.Coins.Clone(), nil
}

// Starred returns the user's optimistic set. The persisted watchlist is read
// on every call so changes written by other processes show up; pending local
// writes still take precedence.
func (r *Reconciler) Starred(ctx context.Context, userID string) (models.CoinSet, error) {
	if _, err := r.Load(ctx, userID); err != nil {
		return nil, err
	}

	s := r.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.optimisticLocked(), nil
}

func (r *Reconciler) ensureLoaded(ctx context.Context, userID string, s *session) error {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}
	_, err := r.Load(ctx, userID)
	return err
}

// Toggle removes coinID from set if present and adds it otherwise. The input
// is not modified.
func Toggle(set models.CoinSet, coinID string) models.CoinSet {
	next := set.Clone()
	if next.Has(coinID) {
		delete(next, coinID)
	} else {
		next[coinID] = struct{}{}
	}
	return next
}
