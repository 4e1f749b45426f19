package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
	"github.com/B0TMirage/cryptopulse/pkg/dashboard"
	"github.com/B0TMirage/cryptopulse/pkg/handlers"
	"github.com/B0TMirage/cryptopulse/pkg/models"
	"github.com/B0TMirage/cryptopulse/pkg/reconciler"
	"github.com/B0TMirage/cryptopulse/pkg/routes"
	"github.com/B0TMirage/cryptopulse/pkg/users"
	"github.com/B0TMirage/cryptopulse/pkg/watchlist"
)

const secret = "handlers-secret"

type stubFeed struct {
	mu      sync.Mutex
	listing []models.MarketSnapshot
	err     error
}

func (f *stubFeed) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *stubFeed) answer() ([]models.MarketSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.listing, nil
}

func (f *stubFeed) FetchByIDs(context.Context, models.CoinSet) ([]models.MarketSnapshot, error) {
	return f.answer()
}

func (f *stubFeed) FetchAll(context.Context, int, int) ([]models.MarketSnapshot, error) {
	return f.answer()
}

type flakyStore struct {
	*watchlist.MemoryStore
	fail atomic.Bool
}

func (s *flakyStore) Set(ctx context.Context, userID string, coins models.CoinSet) (models.WatchlistRecord, error) {
	if s.fail.Load() {
		return models.WatchlistRecord{}, apperr.Storage("watchlist set", errors.New("connection refused"))
	}
	return s.MemoryStore.Set(ctx, userID, coins)
}

type testEnv struct {
	url     string
	store   *flakyStore
	feed    *stubFeed
	healthy atomic.Bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store: &flakyStore{MemoryStore: watchlist.NewMemoryStore()},
		feed: &stubFeed{listing: []models.MarketSnapshot{
			{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc", MarketCapRank: 1, MarketCap: decimal.NewFromInt(600)},
			{ID: "dogecoin", Name: "Dogecoin", Symbol: "doge", MarketCapRank: 8, MarketCap: decimal.NewFromInt(20)},
		}},
	}
	env.healthy.Store(true)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recon := reconciler.New(env.store, env.feed, reconciler.Options{Logger: logger})
	h := handlers.New(
		users.NewService(users.NewMemoryStore(), secret, time.Hour, logger),
		recon,
		dashboard.NewBuilder(env.feed, nil, recon, logger),
		map[string]handlers.HealthCheck{"storage": func(context.Context) error {
			if env.healthy.Load() {
				return nil
			}
			return errors.New("down")
		}},
		logger,
	)

	srv := httptest.NewServer(routes.SetupRoutes(http.NewServeMux(), h, secret, logger))
	t.Cleanup(srv.Close)
	env.url = srv.URL
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.url+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) signup(t *testing.T, email string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "tester", "email": email, "password": "tester",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var auth models.AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&auth))
	require.NotEmpty(t, auth.Token)
	return auth.Token
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
