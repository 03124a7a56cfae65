package observability

import (
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	externalErrors     *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	snapshotsApplied   *prometheus.CounterVec
	subscriptionErrors *prometheus.CounterVec
	leadsTotal         *prometheus.CounterVec
	loginsTotal        *prometheus.CounterVec
	activeSessions     prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "immo_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "immo_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "immo_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "immo_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		snapshotsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "immo_catalog_snapshots_total",
				Help: "Catalog snapshots applied, by source.",
			},
			[]string{"source"},
		),
		subscriptionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "immo_subscription_errors_total",
				Help: "Errors reported by live subscriptions, by collection.",
			},
			[]string{"collection"},
		),
		leadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "immo_leads_total",
				Help: "Lead submissions by outcome.",
			},
			[]string{"outcome"},
		),
		loginsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "immo_admin_logins_total",
				Help: "Admin login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "immo_admin_sessions_active",
				Help: "Signed-in admin sessions currently held.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrSnapshot counts a catalog snapshot applied from source.
func (m *Metrics) IncrSnapshot(source domain.SnapshotSource) {
	m.snapshotsApplied.WithLabelValues(string(source)).Inc()
}

// IncrSubscriptionError counts a subscription failure on collection.
func (m *Metrics) IncrSubscriptionError(collection string) {
	m.subscriptionErrors.WithLabelValues(collection).Inc()
}

// IncrLead counts a lead submission with outcome "submitted", "rejected" or "failed".
func (m *Metrics) IncrLead(outcome string) {
	m.leadsTotal.WithLabelValues(outcome).Inc()
}

// IncrLogin counts a login attempt with outcome "success", "denied" or "error".
func (m *Metrics) IncrLogin(outcome string) {
	m.loginsTotal.WithLabelValues(outcome).Inc()
}

// SetActiveSessions publishes the number of held admin sessions.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// GetAdminStats returns a snapshot of the counters shown on the admin
// dashboard (GET /v1/admin/stats). Counters are cumulative since start.
func (m *Metrics) GetAdminStats() *domain.AdminStats {
	bySource := make(map[string]int64, 3)
	for _, s := range []domain.SnapshotSource{domain.SourceRemote, domain.SourceSeed, domain.SourceLocal} {
		bySource[string(s)] = int64(getCounterValue(m.snapshotsApplied, string(s)))
	}

	hits := getCounterValue(m.cacheHits, "projection")
	misses := getCounterValue(m.cacheMisses, "projection")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	subErrors := getCounterValue(m.subscriptionErrors, "properties") +
		getCounterValue(m.subscriptionErrors, "leads")

	return &domain.AdminStats{
		LeadsSubmitted:     int64(getCounterValue(m.leadsTotal, "submitted")),
		LeadsRejected:      int64(getCounterValue(m.leadsTotal, "rejected")),
		SnapshotsBySource:  bySource,
		SubscriptionErrors: int64(subErrors),
		ActiveSessions:     int(getGaugeValue(m.activeSessions)),
		ProjectionHitRate:  hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	if m.Gauge != nil && m.Gauge.Value != nil {
		return *m.Gauge.Value
	}
	return 0
}
