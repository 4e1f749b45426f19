package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/B0TMirage/cryptopulse/pkg/errttp"
	"github.com/B0TMirage/cryptopulse/pkg/middleware"
	"github.com/B0TMirage/cryptopulse/pkg/models"
	"github.com/B0TMirage/cryptopulse/pkg/reconciler"
)

type watchlistResponse struct {
	UserID string         `json:"userId"`
	Coins  models.CoinSet `json:"coins"`
}

type toggleResponse struct {
	Coins   models.CoinSet `json:"coins"`
	Starred bool           `json:"starred"`
}

// mutationError carries the confirmed set so the client can revert its
// optimistic state.
type mutationError struct {
	Errors string         `json:"errors"`
	Coins  models.CoinSet `json:"coins"`
}

func (h *Handler) GetWatchlistHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	coins, err := h.watchlists.Load(r.Context(), userID)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	errttp.SendJSON(w, http.StatusOK, watchlistResponse{UserID: userID, Coins: coins})
}

func (h *Handler) ReplaceWatchlistHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var body struct {
		Coins *models.CoinSet `json:"coins"`
	}
	if err := decodeJSON(w, r, &body); err != nil || body.Coins == nil {
		errttp.SendError(w, http.StatusBadRequest, "body must be {\"coins\": [...]}")
		return
	}

	m, err := h.watchlists.Replace(r.Context(), userID, *body.Coins)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	res, ok := h.await(w, r, userID, m)
	if !ok {
		return
	}
	errttp.SendJSON(w, http.StatusOK, watchlistResponse{UserID: userID, Coins: res.Confirmed})
}

func (h *Handler) ToggleHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	coinID := r.PathValue("coinId")

	m, err := h.watchlists.ApplyToggle(r.Context(), userID, coinID)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	res, ok := h.await(w, r, userID, m)
	if !ok {
		return
	}
	errttp.SendJSON(w, http.StatusOK, toggleResponse{Coins: res.Confirmed, Starred: res.Confirmed.Has(coinID)})
}

func (h *Handler) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	coinID := r.PathValue("coinId")

	m, err := h.watchlists.Remove(r.Context(), userID, coinID)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	res, ok := h.await(w, r, userID, m)
	if !ok {
		return
	}
	errttp.SendJSON(w, http.StatusOK, watchlistResponse{UserID: userID, Coins: res.Confirmed})
}

// await blocks until the write lands. On failure it answers with the
// confirmed set and reports false.
func (h *Handler) await(w http.ResponseWriter, r *http.Request, userID string, m *reconciler.Mutation) (reconciler.ToggleResult, bool) {
	res := m.Wait(r.Context())
	if res.Err == nil {
		return res, true
	}

	if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
		// the write keeps running and may still land
		h.logger.Info("request ended before watchlist change finished",
			slog.String("user_id", userID),
			slog.String("request_id", middleware.RequestID(r.Context())),
		)
		errttp.SendJSON(w, http.StatusServiceUnavailable, mutationError{Errors: "watchlist change still pending", Coins: res.Confirmed})
		return res, false
	}

	h.logger.Warn("watchlist change rejected",
		slog.String("user_id", userID),
		slog.String("request_id", middleware.RequestID(r.Context())),
		slog.Any("error", res.Err),
	)
	if res.Confirmed == nil {
		errttp.FromError(w, res.Err)
		return res, false
	}
	errttp.SendJSON(w, errttp.Status(res.Err), mutationError{Errors: errttp.Message(res.Err), Coins: res.Confirmed})
	return res, false
}

func (h *Handler) WatchlistViewHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.watchlists.BuildWatchlistView(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	errttp.SendJSON(w, http.StatusOK, view)
}
