package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/B0TMirage/cryptopulse/pkg/dashboard"
	"github.com/B0TMirage/cryptopulse/pkg/errttp"
	"github.com/B0TMirage/cryptopulse/pkg/middleware"
)

func (h *Handler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	q, err := dashboard.ParseQuery(r.URL.Query())
	if err != nil {
		errttp.FromError(w, err)
		return
	}

	table := h.dashboards.Build(r.Context(), middleware.UserID(r.Context()), q)
	errttp.SendJSON(w, http.StatusOK, table)
}

const healthTimeout = 2 * time.Second

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Error("health check failed", slog.String("check", name), slog.Any("error", err))
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	errttp.SendJSON(w, status, map[string]any{"status": state, "checks": checks})
}
