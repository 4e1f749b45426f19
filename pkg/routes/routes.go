package routes

import (
	"log/slog"
	"net/http"

	"github.com/B0TMirage/cryptopulse/pkg/handlers"
	"github.com/B0TMirage/cryptopulse/pkg/middleware"
)

// SetupRoutes registers the API on mux and returns it wrapped in the
// request id, logging and CORS middleware.
func SetupRoutes(mux *http.ServeMux, h *handlers.Handler, secret string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	auth := middleware.AuthMiddleware(secret)

	mux.HandleFunc("GET /api/health", h.HealthHandler)
	mux.HandleFunc("POST /api/auth/signup", h.SignupHandler)
	mux.HandleFunc("POST /api/auth/login", h.LoginHandler)

	mux.HandleFunc("GET /api/watchlist", auth(h.GetWatchlistHandler))
	mux.HandleFunc("PUT /api/watchlist", auth(h.ReplaceWatchlistHandler))
	mux.HandleFunc("GET /api/watchlist/view", auth(h.WatchlistViewHandler))
	mux.HandleFunc("POST /api/watchlist/{coinId}/toggle", auth(h.ToggleHandler))
	mux.HandleFunc("DELETE /api/watchlist/{coinId}", auth(h.RemoveHandler))
	mux.HandleFunc("GET /api/dashboard", auth(h.DashboardHandler))

	return middleware.RequestIDMiddleware(middleware.LoggingMiddleware(logger)(middleware.CORSMiddleware(mux)))
}
