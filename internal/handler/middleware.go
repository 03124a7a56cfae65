package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const (
	gateKey      contextKey = "sessionGate"
	sessionIDKey contextKey = "sessionID"
)

// SessionMiddleware validates the Bearer session token and injects the
// session's gate into the context.
func SessionMiddleware(sessions *service.SessionRegistry, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Anmeldung erforderlich")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Ungültiges Token-Format")
				return
			}

			gate, sid, err := sessions.Authenticate(r.Context(), parts[1])
			if err != nil {
				logger.Warn("auth: session rejected",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				handleServiceError(w, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), gateKey, gate)
			ctx = context.WithValue(ctx, sessionIDKey, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthorized rejects sessions whose gate is not AUTHORIZED. It must
// run after SessionMiddleware.
func RequireAuthorized(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gate := GateFromContext(r.Context())
			if gate == nil || gate.State() != domain.SessionAuthorized {
				handleServiceError(w, &domain.ErrForbidden{Action: r.Method + " " + r.URL.Path}, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GateFromContext returns the session gate injected by SessionMiddleware.
func GateFromContext(ctx context.Context) *service.SessionGate {
	g, _ := ctx.Value(gateKey).(*service.SessionGate)
	return g
}

// SessionIDFromContext returns the session id injected by SessionMiddleware.
func SessionIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}
