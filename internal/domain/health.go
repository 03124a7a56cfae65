package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded
	Mode     string          `json:"mode"`   // local, supabase, mongo
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual component.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Detail      string `json:"detail,omitempty"`
	LastChecked string `json:"lastChecked"`
}

// AdminStats is returned by GET /v1/admin/stats.
type AdminStats struct {
	LeadsSubmitted     int64            `json:"leadsSubmitted"`
	LeadsRejected      int64            `json:"leadsRejected"`
	SnapshotsBySource  map[string]int64 `json:"snapshotsBySource"`
	SubscriptionErrors int64            `json:"subscriptionErrors"`
	ActiveSessions     int              `json:"activeSessions"`
	ProjectionHitRate  float64          `json:"projectionHitRate"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T    `json:"data"`
	Total int    `json:"total"`
	Error string `json:"error,omitempty"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
