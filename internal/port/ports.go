// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from the concrete document stores, identity providers and caches.
package port

import (
	"context"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
)

// CancelFunc stops a live subscription. It is safe to call more than once.
type CancelFunc func()

// PropertyQuery describes a property subscription: an optional equality
// filter on isPublished, always ordered by (statusCategory, order) ascending.
type PropertyQuery struct {
	PublishedOnly bool
}

// PropertySnapshotFunc receives the full result set of a query every time it changes.
type PropertySnapshotFunc func([]domain.Property)

// LeadSnapshotFunc receives the full lead list, newest first, every time it changes.
type LeadSnapshotFunc func([]domain.Lead)

// ErrorFunc receives transport errors of a live subscription.
type ErrorFunc func(error)

// PropertyStore is the remote property collection.
// Implemented by the Supabase and MongoDB adapters.
type PropertyStore interface {
	WatchProperties(ctx context.Context, q PropertyQuery, onSnapshot PropertySnapshotFunc, onError ErrorFunc) (CancelFunc, error)
	CreateProperty(ctx context.Context, p *domain.Property) (string, error)
	UpdateProperty(ctx context.Context, id string, patch *domain.PropertyPatch) error
	DeleteProperty(ctx context.Context, id string) error
	// ReorderProperties sets order = index for every id in a single atomic batch.
	ReorderProperties(ctx context.Context, orderedIDs []string) error
}

// LeadStore persists contact submissions.
type LeadStore interface {
	CreateLead(ctx context.Context, lead *domain.Lead) error
}

// LeadFeed is the admin-only live view of the lead collection.
type LeadFeed interface {
	WatchLeads(ctx context.Context, onSnapshot LeadSnapshotFunc, onError ErrorFunc) (CancelFunc, error)
}

// RoleStore reads the authorization record keyed by identity id.
// A missing record is reported as (nil, nil).
type RoleStore interface {
	GetRole(ctx context.Context, uid string) (*domain.RoleRecord, error)
}

// IdentityProvider authenticates administrators.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*domain.Identity, error)
	SignOut(ctx context.Context, uid string) error
	// Lookup re-reads the identity behind a uid, e.g. when resuming a session.
	// It returns (nil, nil) when the identity no longer exists.
	Lookup(ctx context.Context, uid string) (*domain.Identity, error)
}

// KeyValueStore is the local durable cache used in self-contained mode.
// Get reports found=false for missing keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// LeadNotifier announces persisted leads to downstream consumers.
type LeadNotifier interface {
	PublishLeadSubmitted(ctx context.Context, event domain.LeadSubmittedEvent) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
