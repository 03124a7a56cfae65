package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/observability"
	"github.com/boddenberg/phuket-immo-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// HealthProbe checks one backing component for /healthz.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the services the router exposes. Nil services leave their routes
// answering 503.
type Deps struct {
	Mode      string
	Sessions  *service.SessionRegistry
	Catalog   service.Catalog
	Editor    *service.PropertyEditor
	Leads     *service.LeadIntake
	Projector *service.Projector
	Probes    []HealthProbe
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d))
	r.Get("/readyz", readyzHandler(d))
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Landing page: catalog
		r.Get("/properties", listPropertiesHandler(d))
		r.Get("/properties/grouped", groupedPropertiesHandler(d))
		r.Get("/properties/{id}", getPropertyHandler(d))
		r.Get("/properties/{id}/inquiry-link", inquiryLinkHandler(d))

		// Landing page: calculator
		r.Post("/projection", projectionHandler(d))
		r.Get("/projection/defaults", projectionDefaultsHandler())

		// Landing page: contact
		r.Post("/leads", submitLeadHandler(d))
		r.Post("/leads/validate", validateLeadHandler(d))
		r.Get("/contact/whatsapp", whatsAppHandler(d))

		// Admin
		r.Post("/admin/login", loginHandler(d))

		r.Group(func(r chi.Router) {
			if d.Sessions == nil {
				r.Use(unavailable("sessions"))
			} else {
				r.Use(SessionMiddleware(d.Sessions, logger))
			}

			r.Post("/admin/logout", logoutHandler(d))
			r.Get("/admin/session", sessionHandler())

			r.Group(func(r chi.Router) {
				r.Use(RequireAuthorized(logger))

				r.Get("/admin/properties", adminListPropertiesHandler(d))
				r.Post("/admin/properties", createPropertyHandler(d))
				r.Patch("/admin/properties/{id}", updatePropertyHandler(d))
				r.Delete("/admin/properties/{id}", deletePropertyHandler(d))
				r.Post("/admin/properties/{id}/publish", togglePublishHandler(d))
				r.Put("/admin/categories/{category}/order", reorderHandler(d))

				r.Get("/admin/leads", listLeadsHandler(d))
				r.Get("/admin/stats", statsHandler(d))
			})
		})
	})

	return r
}

func unavailable(component string) func(http.Handler) http.Handler {
	return func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusServiceUnavailable, component+" not configured")
		})
	}
}

// ============================================================
// Health
// ============================================================

func healthzHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LastChecked: now},
		}

		if d.Sessions != nil {
			snap := d.Sessions.Public().Store().Snapshot()
			h := domain.ServiceHealth{Name: "catalog", Status: "healthy", LastChecked: now, Detail: "source=" + string(snap.Source)}
			if snap.Error != "" {
				h.Status = "degraded"
				h.Detail = snap.Error
			}
			services = append(services, h)
		}

		for _, p := range d.Probes {
			h := domain.ServiceHealth{Name: p.Name, Status: "healthy", LastChecked: now}
			if err := p.Check(ctx); err != nil {
				h.Status = "degraded"
				h.Detail = err.Error()
			}
			services = append(services, h)
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Mode:     d.Mode,
			Services: services,
		})
	}
}

func readyzHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Sessions != nil && d.Sessions.Public().Store().Snapshot().Loading {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
