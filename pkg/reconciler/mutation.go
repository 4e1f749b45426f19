package reconciler

import (
	"context"
	"log/slog"

	"github.com/B0TMirage/cryptopulse/pkg/models"
)

// Mutation is a queued change to one user's watchlist.
type Mutation struct {
	// Optimistic is the set the user should see right away: the confirmed
	// set with every pending change, this one included, applied in order.
	Optimistic models.CoinSet

	kind    string
	session *session
	apply   func(models.CoinSet) models.CoinSet
	done   chan struct{}
	result ToggleResult
}

// ToggleResult is the outcome of a persisted mutation. Confirmed is the last
// set known to be stored; on failure the caller reverts to it.
type ToggleResult struct {
	Confirmed models.CoinSet
	Err       error
}

// Done is closed once the write has finished, successfully or not.
func (m *Mutation) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the write finishes or ctx ends. When ctx ends first the
// write keeps going; the result carries ctx's error and the set confirmed so
// far.
func (m *Mutation) Wait(ctx context.Context) ToggleResult {
	select {
	case <-m.done:
		return m.result
	case <-ctx.Done():
		m.session.mu.Lock()
		defer m.session.mu.Unlock()
		return ToggleResult{Confirmed: m.session.confirmed.Clone(), Err: ctx.Err()}
	}
}

// ApplyToggle flips coinID in the user's watchlist.
func (r *Reconciler) ApplyToggle(ctx context.Context, userID, coinID string) (*Mutation, error) {
	if err := models.ValidateCoinID(coinID); err != nil {
		return nil, err
	}
	return r.enqueue(ctx, userID, "toggle", func(set models.CoinSet) models.CoinSet {
		return Toggle(set, coinID)
	})
}

// Remove drops coinID if it is tracked and is a no-op otherwise. It is a
// convenience over the full-replace write, not a separate store operation.
func (r *Reconciler) Remove(ctx context.Context, userID, coinID string) (*Mutation, error) {
	if err := models.ValidateCoinID(coinID); err != nil {
		return nil, err
	}
	return r.enqueue(ctx, userID, "remove", func(set models.CoinSet) models.CoinSet {
		next := set.Clone()
		delete(next, coinID)
		return next
	})
}

// Replace sets the user's watchlist to exactly coins.
func (r *Reconciler) Replace(ctx context.Context, userID string, coins models.CoinSet) (*Mutation, error) {
	if err := coins.Validate(); err != nil {
		return nil, err
	}
	coins = coins.Clone()
	return r.enqueue(ctx, userID, "replace", func(models.CoinSet) models.CoinSet {
		return coins.Clone()
	})
}

func (r *Reconciler) enqueue(ctx context.Context, userID, kind string, apply func(models.CoinSet) models.CoinSet) (*Mutation, error) {
	s := r.session(userID)
	if err := r.ensureLoaded(ctx, userID, s); err != nil {
		return nil, err
	}

	m := &Mutation{kind: kind, session: s, apply: apply, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.tail
	s.tail = m.done
	s.pending = append(s.pending, m)
	m.Optimistic = s.optimisticLocked()
	s.mu.Unlock()

	go r.persist(context.WithoutCancel(ctx), userID, s, m, prev)

	return m, nil
}

// persist waits for the previous write of the same user, then stores the
// confirmed set with m applied.
func (r *Reconciler) persist(ctx context.Context, userID string, s *session, m *Mutation, prev <-chan struct{}) {
	defer close(m.done)
	if prev != nil {
		<-prev
	}

	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	s.mu.Lock()
	next := m.apply(s.confirmed)
	s.mu.Unlock()

	rec, err := r.store.Set(ctx, userID, next)

	s.mu.Lock()
	s.dropPendingLocked(m)
	if err == nil {
		s.confirmed = rec.Coins.Clone()
		s.version++
	}
	if s.tail == m.done {
		s.tail = nil
	}
	m.result = ToggleResult{Confirmed: s.confirmed.Clone(), Err: err}
	s.mu.Unlock()

	if err != nil {
		r.logger.Error("failed to persist watchlist change",
			slog.String("user_id", userID),
			slog.String("kind", m.kind),
			slog.Any("error", err),
		)
		return
	}
	r.logger.Debug("watchlist change persisted",
		slog.String("user_id", userID),
		slog.String("kind", m.kind),
		slog.Int("coins", rec.Coins.Len()),
	)
}
