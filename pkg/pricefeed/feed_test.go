package pricefeed_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
	"github.com/B0TMirage/cryptopulse/pkg/models"
	"github.com/B0TMirage/cryptopulse/pkg/pricefeed"
)

const marketsBody = `[
	{"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"https://img/btc.png","current_price":67000.5,
	 "market_cap":1320000000000,"market_cap_rank":1,"total_volume":35000000000,"price_change_percentage_24h":2.5},
	{"id":"ethereum","symbol":"eth","name":"Ethereum","image":"https://img/eth.png","current_price":3500,
	 "market_cap":420000000000,"market_cap_rank":null,"total_volume":null,"price_change_percentage_24h":null}
]`

type recordingServer struct {
	*httptest.Server
	hits    atomic.Int32
	lastReq atomic.Pointer[http.Request]
}

func newServer(t *testing.T, handler http.HandlerFunc) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.hits.Add(1)
		rs.lastReq.Store(r)
		handler(w, r)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(marketsBody))
}

func newClient(url string) *pricefeed.Client {
	return pricefeed.NewClient(pricefeed.Options{BaseURL: url, Timeout: 2 * time.Second})
}

func TestFetchByIDsEmptySkipsNetwork(t *testing.T) {
	srv := newServer(t, okHandler)
	client := newClient(srv.URL)

	got, err := client.FetchByIDs(context.Background(), models.NewCoinSet())

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, int32(0), srv.hits.Load(), "empty id set must not reach the provider")
}

func TestFetchByIDs(t *testing.T) {
	srv := newServer(t, okHandler)
	client := newClient(srv.URL)

	got, err := client.FetchByIDs(context.Background(), models.NewCoinSet("ethereum", "bitcoin"))
	require.NoError(t, err)

	req := srv.lastReq.Load()
	require.NotNil(t, req)
	assert.Equal(t, "/coins/markets", req.URL.Path)
	assert.Equal(t, "bitcoin,ethereum", req.URL.Query().Get("ids"))
	assert.Equal(t, "usd", req.URL.Query().Get("vs_currency"))
	assert.Equal(t, "market_cap_desc", req.URL.Query().Get("order"))

	require.Len(t, got, 2)
	assert.Equal(t, "bitcoin", got[0].ID)
	assert.True(t, decimal.RequireFromString("67000.5").Equal(got[0].CurrentPrice))
	require.NotNil(t, got[0].PriceChangePercentage24h)
	assert.InDelta(t, 2.5, *got[0].PriceChangePercentage24h, 1e-9)
	assert.Equal(t, 1, got[0].MarketCapRank)

	assert.Nil(t, got[1].PriceChangePercentage24h)
	assert.Equal(t, 0, got[1].MarketCapRank)
	assert.True(t, got[1].TotalVolume.IsZero())
}

func TestFetchByIDsRejectsMalformedIDs(t *testing.T) {
	srv := newServer(t, okHandler)
	client := newClient(srv.URL)

	_, err := client.FetchByIDs(context.Background(), models.NewCoinSet("bitcoin,ethereum"))

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, int32(0), srv.hits.Load())
}

func TestFetchAll(t *testing.T) {
	srv := newServer(t, okHandler)
	client := newClient(srv.URL)

	got, err := client.FetchAll(context.Background(), 2, 50)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	q := srv.lastReq.Load().URL.Query()
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "50", q.Get("per_page"))
	assert.Empty(t, q.Get("ids"))
}

func TestFetchAllValidation(t *testing.T) {
	client := newClient("http://127.0.0.1:0")
	tests := []struct {
		name          string
		page, perPage int
	}{
		{name: "Zero page", page: 0, perPage: 10},
		{name: "Zero per page", page: 1, perPage: 0},
		{name: "Per page too large", page: 1, perPage: 251},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.FetchAll(context.Background(), tt.page, tt.perPage)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestRateLimitedIsDistinct(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	client := newClient(srv.URL)

	_, err := client.FetchAll(context.Background(), 1, 100)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrRateLimited)
	assert.NotErrorIs(t, err, apperr.ErrFeedUnavailable)

	var rl *pricefeed.RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
}

func TestRateLimitedBacksOffWithoutHeader(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	client := newClient(srv.URL)

	var rl *pricefeed.RateLimitedError
	for _, want := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		_, err := client.FetchAll(context.Background(), 1, 100)
		require.True(t, errors.As(err, &rl))
		assert.Equal(t, want, rl.RetryAfter)
	}
}

func TestFeedUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "Server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "Not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "Malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"status":`))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.handler)
			client := newClient(srv.URL)

			_, err := client.FetchByIDs(context.Background(), models.NewCoinSet("bitcoin"))

			assert.ErrorIs(t, err, apperr.ErrFeedUnavailable)
			assert.NotErrorIs(t, err, apperr.ErrRateLimited)
		})
	}
}

func TestFeedUnavailableOnTransportError(t *testing.T) {
	srv := newServer(t, okHandler)
	url := srv.URL
	srv.Close()

	_, err := newClient(url).FetchAll(context.Background(), 1, 10)

	assert.ErrorIs(t, err, apperr.ErrFeedUnavailable)
}
