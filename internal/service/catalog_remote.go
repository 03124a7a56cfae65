package service

import (
	"context"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/port"

	"go.uber.org/zap"
)

// RemoteCatalog forwards to an external PropertyStore. Writes become visible
// only when the subscription echoes them.
type RemoteCatalog struct {
	store  port.PropertyStore
	mode   string
	logger *zap.Logger
	now    func() time.Time
}

// NewRemoteCatalog wraps store. mode names the backend ("supabase", "mongo").
func NewRemoteCatalog(store port.PropertyStore, mode string, logger *zap.Logger) *RemoteCatalog {
	return &RemoteCatalog{store: store, mode: mode, logger: logger, now: time.Now}
}

// Mode implements Catalog.
func (c *RemoteCatalog) Mode() string { return c.mode }

// Subscribe implements Catalog with the fallback policy: an empty public
// result shows the published seed, a transport error shows the published
// seed together with the error. An empty authorized result stays empty.
func (c *RemoteCatalog) Subscribe(ctx context.Context, scope domain.Scope, onSnapshot func(domain.CatalogSnapshot)) (port.CancelFunc, error) {
	q := port.PropertyQuery{PublishedOnly: scope != domain.ScopeAuthorized}

	return c.store.WatchProperties(ctx, q,
		func(props []domain.Property) {
			if len(props) == 0 && scope == domain.ScopePublic {
				c.logger.Info("catalog: remote returned no published properties, showing seed")
				onSnapshot(domain.CatalogSnapshot{
					Properties: domain.PublishedSeed(),
					Source:     domain.SourceSeed,
					Scope:      scope,
				})
				return
			}
			if q.PublishedOnly {
				props = filterScope(props, scope)
			}
			onSnapshot(domain.CatalogSnapshot{
				Properties: props,
				Source:     domain.SourceRemote,
				Scope:      scope,
			})
		},
		func(err error) {
			onSnapshot(domain.CatalogSnapshot{
				Properties: domain.PublishedSeed(),
				Source:     domain.SourceSeed,
				Scope:      scope,
				Error:      err.Error(),
			})
		},
	)
}

// AddProperty implements Catalog.
func (c *RemoteCatalog) AddProperty(ctx context.Context, p domain.Property) (string, error) {
	ctx, span := catalogTracer.Start(ctx, "RemoteCatalog.AddProperty")
	defer span.End()

	if err := p.Validate(); err != nil {
		return "", err
	}
	now := c.now()
	p.ID = ""
	p.CreatedAt = now
	p.UpdatedAt = now
	return c.store.CreateProperty(ctx, &p)
}

// UpdateProperty implements Catalog.
func (c *RemoteCatalog) UpdateProperty(ctx context.Context, id string, patch *domain.PropertyPatch) error {
	ctx, span := catalogTracer.Start(ctx, "RemoteCatalog.UpdateProperty")
	defer span.End()
	return c.store.UpdateProperty(ctx, id, patch)
}

// DeleteProperty implements Catalog.
func (c *RemoteCatalog) DeleteProperty(ctx context.Context, id string) error {
	ctx, span := catalogTracer.Start(ctx, "RemoteCatalog.DeleteProperty")
	defer span.End()
	return c.store.DeleteProperty(ctx, id)
}

// Reorder implements Catalog as one atomic batch.
func (c *RemoteCatalog) Reorder(ctx context.Context, category domain.Category, orderedIDs []string) error {
	ctx, span := catalogTracer.Start(ctx, "RemoteCatalog.Reorder")
	defer span.End()

	c.logger.Info("catalog: reorder", zap.String("category", string(category)), zap.Int("count", len(orderedIDs)))
	return c.store.ReorderProperties(ctx, orderedIDs)
}
