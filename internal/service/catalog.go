package service

import (
	"context"
	"sort"
	"sync"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/observability"
	"github.com/boddenberg/phuket-immo-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var catalogTracer = otel.Tracer("service/catalog")

// Catalog is the capability a CatalogStore subscribes to. Two implementations
// exist: the self-contained LocalCatalog and the RemoteCatalog over a
// PropertyStore. Both deliver every state change through Subscribe.
type Catalog interface {
	Subscribe(ctx context.Context, scope domain.Scope, onSnapshot func(domain.CatalogSnapshot)) (port.CancelFunc, error)
	AddProperty(ctx context.Context, p domain.Property) (string, error)
	UpdateProperty(ctx context.Context, id string, patch *domain.PropertyPatch) error
	DeleteProperty(ctx context.Context, id string) error
	Reorder(ctx context.Context, category domain.Category, orderedIDs []string) error
	Mode() string
}

// ============================================================
// CatalogStore: the property list visible to one scope
// ============================================================

// CatalogStore holds the latest snapshot of one catalog subscription.
// Every notification replaces the whole snapshot; the grouping view is
// derived on read.
type CatalogStore struct {
	catalog Catalog
	metrics *observability.Metrics
	logger  *zap.Logger

	// base outlives the requests that switch scopes.
	base     context.Context
	stopBase context.CancelFunc

	scopeMu sync.Mutex // serializes SetScope and Stop

	mu       sync.RWMutex
	snapshot domain.CatalogSnapshot
	cancel   port.CancelFunc
	gen      uint64
	stopped  bool
}

// NewCatalogStore creates a store with no subscription. It stays in the
// loading state until SetScope is called.
func NewCatalogStore(catalog Catalog, metrics *observability.Metrics, logger *zap.Logger) *CatalogStore {
	base, stop := context.WithCancel(context.Background())
	return &CatalogStore{
		catalog:  catalog,
		metrics:  metrics,
		logger:   logger,
		base:     base,
		stopBase: stop,
		snapshot: domain.CatalogSnapshot{
			Source:  domain.SourceNone,
			Scope:   domain.ScopeNone,
			Loading: true,
		},
	}
}

// SetScope switches the subscription to scope. The previous subscription is
// cancelled before the new one is established. ScopeNone leaves the store
// without a subscription.
func (s *CatalogStore) SetScope(scope domain.Scope) error {
	s.scopeMu.Lock()
	defer s.scopeMu.Unlock()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	if s.snapshot.Scope == scope && (s.cancel != nil || scope == domain.ScopeNone) {
		s.mu.Unlock()
		return nil
	}
	prev := s.cancel
	s.cancel = nil
	s.gen++
	gen := s.gen
	s.snapshot = domain.CatalogSnapshot{
		Properties: s.snapshot.Properties,
		Source:     s.snapshot.Source,
		Scope:      scope,
		Loading:    true,
	}
	if scope == domain.ScopeNone {
		s.snapshot.Properties = nil
		s.snapshot.Source = domain.SourceNone
	}
	s.mu.Unlock()

	if prev != nil {
		prev()
	}
	if scope == domain.ScopeNone {
		return nil
	}

	s.logger.Info("catalog: subscribing", zap.String("scope", string(scope)), zap.String("mode", s.catalog.Mode()))

	cancel, err := s.catalog.Subscribe(s.base, scope, func(snap domain.CatalogSnapshot) {
		s.apply(gen, snap)
	})
	if err != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.snapshot.Loading = false
			s.snapshot.Error = err.Error()
		}
		s.mu.Unlock()
		s.metrics.IncrSubscriptionError("properties")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.stopped {
		// Superseded while subscribing.
		go cancel()
		return nil
	}
	s.cancel = cancel
	return nil
}

// apply replaces the held snapshot if it belongs to the current subscription.
func (s *CatalogStore) apply(gen uint64, snap domain.CatalogSnapshot) {
	s.mu.Lock()
	if s.gen != gen || s.stopped {
		s.mu.Unlock()
		return
	}
	snap.Scope = s.snapshot.Scope
	snap.Loading = false
	if snap.Properties == nil {
		snap.Properties = []domain.Property{}
	}
	s.snapshot = snap
	s.mu.Unlock()

	s.metrics.IncrSnapshot(snap.Source)
	if snap.Error != "" {
		s.metrics.IncrSubscriptionError("properties")
		s.logger.Warn("catalog: subscription error, showing fallback",
			zap.String("error", snap.Error),
			zap.String("source", string(snap.Source)),
			zap.Int("count", len(snap.Properties)),
		)
	}
}

// Snapshot returns the current state. The property slice is shared and must
// not be modified.
func (s *CatalogStore) Snapshot() domain.CatalogSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Scope returns the scope of the current subscription.
func (s *CatalogStore) Scope() domain.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Scope
}

// Properties returns the visible properties ordered by category and order.
func (s *CatalogStore) Properties() []domain.Property {
	return s.Snapshot().Properties
}

// Get returns the visible property with id.
func (s *CatalogStore) Get(id string) (domain.Property, bool) {
	for _, p := range s.Properties() {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Property{}, false
}

// Grouped derives the per-category view of the current snapshot.
func (s *CatalogStore) Grouped() domain.GroupedProperties {
	return GroupProperties(s.Properties())
}

// Stop cancels the subscription. It is idempotent.
func (s *CatalogStore) Stop() {
	s.scopeMu.Lock()
	defer s.scopeMu.Unlock()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	prev := s.cancel
	s.cancel = nil
	s.gen++
	s.mu.Unlock()

	if prev != nil {
		prev()
	}
	s.stopBase()
}

// GroupProperties splits props into the three category buckets, each sorted
// by ascending order. Records with an unknown category are left out.
func GroupProperties(props []domain.Property) domain.GroupedProperties {
	g := domain.GroupedProperties{
		Ready: []domain.Property{},
		Y2026: []domain.Property{},
		Y2027: []domain.Property{},
	}
	for _, p := range props {
		switch p.StatusCategory {
		case domain.CategoryReady:
			g.Ready = append(g.Ready, p)
		case domain.Category2026:
			g.Y2026 = append(g.Y2026, p)
		case domain.Category2027:
			g.Y2027 = append(g.Y2027, p)
		}
	}
	for _, bucket := range [][]domain.Property{g.Ready, g.Y2026, g.Y2027} {
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].Order < bucket[j].Order })
	}
	return g
}

// filterScope returns the records of props visible to scope, ordered by
// (statusCategory, order) like the remote query.
func filterScope(props []domain.Property, scope domain.Scope) []domain.Property {
	out := make([]domain.Property, 0, len(props))
	for _, p := range props {
		if scope != domain.ScopeAuthorized && !p.IsPublished {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StatusCategory != out[j].StatusCategory {
			return out[i].StatusCategory < out[j].StatusCategory
		}
		return out[i].Order < out[j].Order
	})
	return out
}
