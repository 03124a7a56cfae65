package handler

import (
	"net/http"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
)

// ============================================================
// Admin session
// ============================================================

func loginHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /admin/login")
		defer span.End()

		if d.Sessions == nil {
			writeError(w, http.StatusServiceUnavailable, "sessions not configured")
			return
		}
		var req domain.LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		resp, err := d.Sessions.Login(ctx, req)
		if err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func logoutHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /admin/logout")
		defer span.End()

		d.Sessions.Logout(ctx, SessionIDFromContext(ctx))
		w.WriteHeader(http.StatusNoContent)
	}
}

func sessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, GateFromContext(r.Context()).View())
	}
}

func statsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := d.Metrics.GetAdminStats()
		if d.Sessions != nil {
			stats.ActiveSessions = d.Sessions.Count()
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
