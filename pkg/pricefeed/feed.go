// Package pricefeed fetches market snapshots from a CoinGecko compatible
// provider and keeps the last good results for stale fallbacks.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
	"github.com/B0TMirage/cryptopulse/pkg/models"
)

const (
	DefaultBaseURL    = "https://api.coingecko.com/api/v3"
	DefaultVsCurrency = "usd"
	DefaultTimeout    = 10 * time.Second

	// MaxPerPage is the largest page the provider serves; id lookups are
	// split into batches of this size.
	MaxPerPage = 250

	userAgent = "cryptopulse/1.0"
)

type Feed interface {
	FetchByIDs(ctx context.Context, ids models.CoinSet) ([]models.MarketSnapshot, error)
	FetchAll(ctx context.Context, page, perPage int) ([]models.MarketSnapshot, error)
}

var _ Feed = (*Client)(nil)

type Options struct {
	BaseURL    string
	VsCurrency string
	Timeout    time.Duration
	// RatePerMinute spaces outgoing requests; zero disables pacing.
	RatePerMinute int
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

type Client struct {
	baseURL    string
	vsCurrency string
	http       *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	throttled  atomic.Int32
	now        func() time.Time
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.VsCurrency == "" {
		opts.VsCurrency = DefaultVsCurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limit := rate.Inf
	if opts.RatePerMinute > 0 {
		limit = rate.Limit(float64(opts.RatePerMinute) / 60)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		vsCurrency: opts.VsCurrency,
		http:       opts.HTTPClient,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// FetchByIDs returns snapshots for the given coins in provider order. Ids
// the provider does not know are omitted. An empty set never reaches the
// network: the provider answers an empty ids filter with every coin.
func (c *Client) FetchByIDs(ctx context.Context, ids models.CoinSet) ([]models.MarketSnapshot, error) {
	if ids.Len() == 0 {
		return []models.MarketSnapshot{}, nil
	}
	if err := ids.Validate(); err != nil {
		return nil, err
	}

	all := ids.Slice()
	snapshots := make([]models.MarketSnapshot, 0, len(all))
	for start := 0; start < len(all); start += MaxPerPage {
		batch := all[start:min(start+MaxPerPage, len(all))]

		params := url.Values{}
		params.Set("ids", strings.Join(batch, ","))
		params.Set("per_page", strconv.Itoa(len(batch)))
		params.Set("page", "1")

		got, err := c.markets(ctx, params)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, got...)
	}

	return snapshots, nil
}

// FetchAll returns one page of the market listing ordered by market cap.
func (c *Client) FetchAll(ctx context.Context, page, perPage int) ([]models.MarketSnapshot, error) {
	if page < 1 {
		return nil, apperr.Validation("page must be at least 1, got %d", page)
	}
	if perPage < 1 || perPage > MaxPerPage {
		return nil, apperr.Validation("per_page must be between 1 and %d, got %d", MaxPerPage, perPage)
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	return c.markets(ctx, params)
}

func (c *Client) markets(ctx context.Context, params url.Values) ([]models.MarketSnapshot, error) {
	params.Set("vs_currency", c.vsCurrency)
	params.Set("order", "market_cap_desc")
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "24h")
	addr := c.baseURL + "/coins/markets?" + params.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperr.FeedUnavailable("wait for request slot", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, apperr.FeedUnavailable("build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("price feed request failed", slog.String("url", addr), slog.Any("error", err))
		return nil, apperr.FeedUnavailable("GET coins/markets", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("price feed response", slog.String("url", addr), slog.Int("status", resp.StatusCode))

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		n := int(c.throttled.Add(1)) - 1
		retryAfter, ok := parseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		if !ok {
			retryAfter = backoff(n)
		}
		c.logger.Warn("price feed rate limited", slog.Duration("retry_after", retryAfter))
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, apperr.FeedUnavailable("GET coins/markets", fmt.Errorf("unexpected status %s", resp.Status))
	}

	snapshots := []models.MarketSnapshot{}
	if err := json.NewDecoder(resp.Body).Decode(&snapshots); err != nil {
		return nil, apperr.FeedUnavailable("decode coins/markets", err)
	}
	if snapshots == nil {
		snapshots = []models.MarketSnapshot{}
	}
	c.throttled.Store(0)

	return snapshots, nil
}
