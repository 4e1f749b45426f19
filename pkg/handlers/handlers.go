package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/B0TMirage/cryptopulse/pkg/dashboard"
	"github.com/B0TMirage/cryptopulse/pkg/errttp"
	"github.com/B0TMirage/cryptopulse/pkg/middleware"
	"github.com/B0TMirage/cryptopulse/pkg/models"
	"github.com/B0TMirage/cryptopulse/pkg/reconciler"
	"github.com/B0TMirage/cryptopulse/pkg/users"
)

type AuthService interface {
	Signup(ctx context.Context, req users.SignupRequest) (models.AuthResponse, error)
	Login(ctx context.Context, req users.LoginRequest) (models.AuthResponse, error)
}

type Watchlists interface {
	Load(ctx context.Context, userID string) (models.CoinSet, error)
	ApplyToggle(ctx context.Context, userID, coinID string) (*reconciler.Mutation, error)
	Remove(ctx context.Context, userID, coinID string) (*reconciler.Mutation, error)
	Replace(ctx context.Context, userID string, coins models.CoinSet) (*reconciler.Mutation, error)
	BuildWatchlistView(ctx context.Context, userID string) (models.WatchlistView, error)
}

type Dashboards interface {
	Build(ctx context.Context, userID string, q dashboard.Query) dashboard.Table
}

// HealthCheck reports whether one backend is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	auth       AuthService
	watchlists Watchlists
	dashboards Dashboards
	checks     map[string]HealthCheck
	logger     *slog.Logger
}

func New(auth AuthService, watchlists Watchlists, dashboards Dashboards, checks map[string]HealthCheck, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		auth:       auth,
		watchlists: watchlists,
		dashboards: dashboards,
		checks:     checks,
		logger:     logger,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

// sendError answers with err's mapped status. The client only sees a fixed
// message for backend failures, so the cause is logged here.
func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, err error) {
	if status := errttp.Status(err); status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.RequestID(r.Context())),
			slog.Int("status", status),
			slog.Any("error", err),
		)
	}
	errttp.FromError(w, err)
}
