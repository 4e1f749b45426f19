package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
	"github.com/B0TMirage/cryptopulse/pkg/models"
	"github.com/B0TMirage/cryptopulse/pkg/pricefeed"
)

// BuildView fetches snapshots for exactly coinIDs and joins them into rows
// in the order the feed returned them. Snapshots for other coins are
// ignored and coins without a snapshot are left out.
func (r *Reconciler) BuildView(ctx context.Context, coinIDs models.CoinSet) ([]models.WatchlistViewRow, error) {
	snapshots, err := r.feed.FetchByIDs(ctx, coinIDs)
	if err != nil {
		return nil, err
	}
	return joinRows(coinIDs, snapshots), nil
}

func joinRows(coinIDs models.CoinSet, snapshots []models.MarketSnapshot) []models.WatchlistViewRow {
	rows := make([]models.WatchlistViewRow, 0, len(snapshots))
	seen := make(map[string]bool, len(snapshots))
	for _, snap := range snapshots {
		if !coinIDs.Has(snap.ID) || seen[snap.ID] {
			continue
		}
		seen[snap.ID] = true
		rows = append(rows, models.WatchlistViewRow{CoinID: snap.ID, Snapshot: snap})
	}
	return rows
}

// BuildWatchlistView loads the user's watchlist and joins it with live
// prices. A response that arrives after a newer one was applied is
// discarded in favour of the newer rows. When the feed is throttled the
// previous rows are kept, coins missing from them are filled from the
// snapshot cache, and the view is marked stale.
func (r *Reconciler) BuildWatchlistView(ctx context.Context, userID string) (models.WatchlistView, error) {
	coins, err := r.Starred(ctx, userID)
	if err != nil {
		return models.WatchlistView{}, err
	}

	s := r.session(userID)
	s.mu.Lock()
	s.issuedSeq++
	seq := s.issuedSeq
	s.mu.Unlock()

	rows, err := r.BuildView(ctx, coins)

	view := models.WatchlistView{UserID: userID, FetchedAt: r.now().UTC()}
	switch {
	case err == nil:
		s.mu.Lock()
		if seq < s.appliedSeq {
			r.logger.Debug("discarding superseded watchlist view",
				slog.String("user_id", userID), slog.Uint64("seq", seq), slog.Uint64("applied", s.appliedSeq))
			view.Rows = filterRows(s.lastRows, coins)
		} else {
			s.appliedSeq = seq
			s.lastRows = rows
			view.Rows = rows
		}
		s.mu.Unlock()
		return view, nil

	case errors.Is(err, apperr.ErrRateLimited):
		view.Stale = true
		view.Notice = rateLimitNotice(err)

		s.mu.Lock()
		view.Rows = filterRows(s.lastRows, coins)
		s.mu.Unlock()

		missing := coins.Clone()
		for _, row := range view.Rows {
			delete(missing, row.CoinID)
		}
		if missing.Len() > 0 {
			view.Rows = append(view.Rows, r.cachedRows(ctx, missing)...)
		}
		return view, nil

	default:
		return models.WatchlistView{}, err
	}
}

// cachedRows joins coins with whatever the snapshot cache still holds.
func (r *Reconciler) cachedRows(ctx context.Context, coins models.CoinSet) []models.WatchlistViewRow {
	if r.cache == nil {
		return []models.WatchlistViewRow{}
	}
	snapshots, err := r.cache.Snapshots(ctx, coins.Slice())
	if err != nil {
		r.logger.Warn("snapshot cache lookup failed", slog.Any("error", err))
		return []models.WatchlistViewRow{}
	}
	return joinRows(coins, snapshots)
}

// filterRows keeps rows whose coin is still tracked.
func filterRows(rows []models.WatchlistViewRow, coins models.CoinSet) []models.WatchlistViewRow {
	out := make([]models.WatchlistViewRow, 0, len(rows))
	for _, row := range rows {
		if coins.Has(row.CoinID) {
			out = append(out, row)
		}
	}
	return out
}

func rateLimitNotice(err error) string {
	var rl *pricefeed.RateLimitedError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return fmt.Sprintf("market data is rate limited, showing last known prices; retry in %s", rl.RetryAfter)
	}
	return "market data is rate limited, showing last known prices"
}
