package handlers

import (
	"log/slog"
	"net/http"

	"github.com/B0TMirage/cryptopulse/pkg/errttp"
	"github.com/B0TMirage/cryptopulse/pkg/users"
)

func (h *Handler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req users.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errttp.SendError(w, http.StatusBadRequest, "all fields required")
		return
	}

	resp, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		h.logger.Warn("signup failed", slog.String("email", req.Email), slog.Any("error", err))
		h.sendError(w, r, err)
		return
	}

	errttp.SendJSON(w, http.StatusCreated, resp)
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req users.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errttp.SendError(w, http.StatusBadRequest, "invalid credentials")
		return
	}

	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	errttp.SendJSON(w, http.StatusOK, resp)
}
