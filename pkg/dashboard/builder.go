// Package dashboard builds the market table shown on the main page: the
// provider listing with the user's stars merged in, filtered, sorted and
// trimmed to the requested display count.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
	"github.com/B0TMirage/cryptopulse/pkg/models"
	"github.com/B0TMirage/cryptopulse/pkg/pricefeed"
)

const (
	NoticeRateLimited = "Failed to fetch market data. CoinGecko API may have rate limiting in effect."
	NoticeStale       = "Showing cached market data. CoinGecko API may have rate limiting in effect."
	NoticeUnavailable = "Failed to fetch market data. Please try again."
	NoticeNoWatchlist = "Your watchlist could not be loaded, stars are hidden."
)

// StarredSource reports which coins a user tracks.
type StarredSource interface {
	Starred(ctx context.Context, userID string) (models.CoinSet, error)
}

type Table struct {
	Rows []models.DashboardRow `json:"rows"`
	// Total counts the rows that matched the search before Limit was applied.
	Total     int                `json:"total"`
	Stats     models.MarketStats `json:"stats"`
	Sort      SortState          `json:"sort"`
	Query     Query              `json:"query"`
	Stale     bool               `json:"stale"`
	Retry     bool               `json:"retry"`
	Notice    string             `json:"notice,omitempty"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

type Builder struct {
	feed    pricefeed.Feed
	cache   pricefeed.SnapshotCache
	starred StarredSource
	logger  *slog.Logger
	now     func() time.Time
}

// NewBuilder wires the table sources. cache may be nil, in which case a
// throttled provider always yields an empty table.
func NewBuilder(feed pricefeed.Feed, cache pricefeed.SnapshotCache, starred StarredSource, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{feed: feed, cache: cache, starred: starred, logger: logger, now: time.Now}
}

// Build never fails. Provider and watchlist problems turn into a notice on
// the returned table.
func (b *Builder) Build(ctx context.Context, userID string, q Query) Table {
	t := Table{
		Rows:      []models.DashboardRow{},
		Sort:      q.Sort,
		Query:     q,
		FetchedAt: b.now().UTC(),
	}

	listing, err := b.feed.FetchAll(ctx, q.Page, q.PerPage)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrRateLimited):
		listing = b.cachedListing(ctx, q)
		if listing == nil {
			b.logger.Warn("market listing rate limited, nothing cached", slog.Int("page", q.Page))
			t.Retry = true
			t.Notice = NoticeRateLimited
			return t
		}
		t.Stale = true
		t.Notice = NoticeStale
	default:
		b.logger.Error("failed to fetch market listing", slog.Int("page", q.Page), slog.Any("error", err))
		t.Retry = true
		t.Notice = NoticeUnavailable
		return t
	}

	starred, err := b.starred.Starred(ctx, userID)
	if err != nil {
		b.logger.Warn("failed to load watchlist for dashboard",
			slog.String("user_id", userID), slog.Any("error", err))
		starred = models.NewCoinSet()
		t.Notice = joinNotice(t.Notice, NoticeNoWatchlist)
	}

	t.Stats = ComputeStats(listing)

	rows := make([]models.DashboardRow, 0, len(listing))
	for _, s := range listing {
		rows = append(rows, models.DashboardRow{MarketSnapshot: s, Starred: starred.Has(s.ID)})
	}
	rows = Filter(rows, q.Search)
	Sort(rows, q.Sort)

	t.Total = len(rows)
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	t.Rows = rows
	return t
}

func (b *Builder) cachedListing(ctx context.Context, q Query) []models.MarketSnapshot {
	if b.cache == nil {
		return nil
	}
	listing, err := b.cache.Listing(ctx, q.Page, q.PerPage)
	if err != nil {
		b.logger.Warn("listing cache lookup failed", slog.Any("error", err))
		return nil
	}
	return listing
}

func joinNotice(notices ...string) string {
	parts := make([]string, 0, len(notices))
	for _, n := range notices {
		if n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, " ")
}
