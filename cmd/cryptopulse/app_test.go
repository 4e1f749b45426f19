package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B0TMirage/cryptopulse/pkg/config"
)

func TestDependencyOptions(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{LogLvl: config.EnvDev},
		Storage: config.StorageConfig{Kind: config.StorageSQLite, Watchlists: config.BackendMongo},
		Redis:   config.Redis{Addr: "localhost:6379"},
	}

	// logger, sqlite, mongo, redis
	assert.Len(t, dependencyOptions(cfg), 4)

	cfg.Storage = config.StorageConfig{Kind: config.StorageMemory, Watchlists: config.BackendSQL}
	cfg.Redis.Addr = ""
	assert.Len(t, dependencyOptions(cfg), 1)
}

func TestBuildHandlerSQLite(t *testing.T) {
	ctx := context.Background()
	t.Setenv("JWT_SECRET", "app-secret")
	t.Setenv("STORAGE", config.StorageSQLite)
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "app.db"))
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("WATCHLIST_BACKEND", config.BackendSQL)

	cfg, err := config.Load("")
	require.NoError(t, err)
	deps, err := config.NewDependencies(ctx, dependencyOptions(cfg)...)
	require.NoError(t, err)
	t.Cleanup(deps.Close)
	require.NoError(t, migrate(ctx, deps))

	handler, err := buildHandler(cfg, deps)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := json.Marshal(map[string]string{"username": "app", "email": "app@example.com", "password": "secret"})
	require.NoError(t, err)
	resp, err = http.Post(srv.URL+"/api/auth/signup", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&auth))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/watchlist", bytes.NewReader([]byte(`{"coins":["bitcoin"]}`)))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
