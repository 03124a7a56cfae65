package service

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PropertiesKey is the cache key of the persisted property set.
const PropertiesKey = "phuket-properties"

// PropertiesBackupKey receives a persisted set that could not be decoded.
const PropertiesBackupKey = "phuket-properties.corrupt"

// LocalCatalog is the self-contained catalog: the seed dataset, edited in
// memory and persisted to the key-value cache. Mutations notify every
// subscriber synchronously through the same callback remote updates use.
type LocalCatalog struct {
	kv     port.KeyValueStore
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	loaded    bool
	persisted bool
	props     []domain.Property
	subs      map[int]localSub
	nextSub   int
}

type localSub struct {
	scope domain.Scope
	fn    func(domain.CatalogSnapshot)
}

// NewLocalCatalog creates a local catalog. kv may be nil, in which case
// changes live only as long as the process.
func NewLocalCatalog(kv port.KeyValueStore, logger *zap.Logger) *LocalCatalog {
	return &LocalCatalog{
		kv:     kv,
		logger: logger,
		now:    time.Now,
		subs:   make(map[int]localSub),
	}
}

// Mode implements Catalog.
func (c *LocalCatalog) Mode() string { return "local" }

// loadLocked reads the persisted set once. A missing set starts from the
// seed. A failed read leaves the catalog unloaded so that nothing is written
// over data that could not be read.
func (c *LocalCatalog) loadLocked(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	if c.kv == nil {
		c.props = domain.SeedProperties()
		c.loaded = true
		return nil
	}

	raw, found, err := c.kv.Get(ctx, PropertiesKey)
	if err != nil {
		c.logger.Warn("local catalog: cache read failed", zap.Error(err))
		return &domain.ErrExternalService{Service: "kv", Err: err}
	}
	if !found {
		c.props = domain.SeedProperties()
		c.loaded = true
		return nil
	}

	var stored []domain.Property
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		// Keep the unreadable set before the seed can replace it.
		if setErr := c.kv.Set(ctx, PropertiesBackupKey, raw); setErr != nil {
			return &domain.ErrExternalService{Service: "kv", Err: setErr}
		}
		c.logger.Error("local catalog: cache corrupt, starting from seed",
			zap.String("backup_key", PropertiesBackupKey), zap.Error(err))
		c.props = domain.SeedProperties()
		c.loaded = true
		return nil
	}
	c.props = stored
	c.persisted = true
	c.loaded = true
	c.logger.Info("local catalog: restored from cache", zap.Int("count", len(stored)))
	return nil
}

// commitLocked persists the current set. On failure the in-memory set is
// reset to prev so memory never runs ahead of the cache.
func (c *LocalCatalog) commitLocked(ctx context.Context, prev []domain.Property) error {
	if c.kv == nil {
		return nil
	}
	raw, err := json.Marshal(c.props)
	if err == nil {
		err = c.kv.Set(ctx, PropertiesKey, string(raw))
	}
	if err != nil {
		c.props = prev
		c.logger.Warn("local catalog: persist failed, change rolled back", zap.Error(err))
		return &domain.ErrExternalService{Service: "kv", Err: err}
	}
	c.persisted = true
	return nil
}

func (c *LocalCatalog) snapshotLocked(scope domain.Scope) domain.CatalogSnapshot {
	source := domain.SourceSeed
	if c.persisted {
		source = domain.SourceLocal
	}
	return domain.CatalogSnapshot{
		Properties: filterScope(c.props, scope),
		Source:     source,
		Scope:      scope,
	}
}

func (c *LocalCatalog) notifyLocked() {
	for _, sub := range c.subs {
		sub.fn(c.snapshotLocked(sub.scope))
	}
}

// Subscribe implements Catalog. The first snapshot is delivered before
// Subscribe returns.
func (c *LocalCatalog) Subscribe(ctx context.Context, scope domain.Scope, onSnapshot func(domain.CatalogSnapshot)) (port.CancelFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = localSub{scope: scope, fn: onSnapshot}

	wasLoaded := c.loaded
	switch err := c.loadLocked(ctx); {
	case err != nil:
		onSnapshot(domain.CatalogSnapshot{
			Properties: domain.PublishedSeed(),
			Source:     domain.SourceSeed,
			Scope:      scope,
			Error:      err.Error(),
		})
	case !wasLoaded:
		// Earlier subscribers only saw the fallback.
		c.notifyLocked()
	default:
		onSnapshot(c.snapshotLocked(scope))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}, nil
}

// AddProperty implements Catalog.
func (c *LocalCatalog) AddProperty(ctx context.Context, p domain.Property) (string, error) {
	_, span := catalogTracer.Start(ctx, "LocalCatalog.AddProperty")
	defer span.End()

	if err := p.Validate(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(ctx); err != nil {
		return "", err
	}

	now := c.now()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	prev := slices.Clone(c.props)
	c.props = append(c.props, p.Clone())

	if err := c.commitLocked(ctx, prev); err != nil {
		return "", err
	}
	c.notifyLocked()
	return p.ID, nil
}

// UpdateProperty implements Catalog.
func (c *LocalCatalog) UpdateProperty(ctx context.Context, id string, patch *domain.PropertyPatch) error {
	_, span := catalogTracer.Start(ctx, "LocalCatalog.UpdateProperty")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(ctx); err != nil {
		return err
	}

	idx := c.indexLocked(id)
	if idx < 0 {
		return &domain.ErrNotFound{Resource: "property", ID: id}
	}
	updated := c.props[idx].Clone()
	patch.Apply(&updated)
	if err := updated.Validate(); err != nil {
		return err
	}
	updated.UpdatedAt = c.now()
	prev := slices.Clone(c.props)
	c.props[idx] = updated

	if err := c.commitLocked(ctx, prev); err != nil {
		return err
	}
	c.notifyLocked()
	return nil
}

// DeleteProperty implements Catalog. Deleting a missing id is not an error.
func (c *LocalCatalog) DeleteProperty(ctx context.Context, id string) error {
	_, span := catalogTracer.Start(ctx, "LocalCatalog.DeleteProperty")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(ctx); err != nil {
		return err
	}

	idx := c.indexLocked(id)
	if idx < 0 {
		return nil
	}
	prev := slices.Clone(c.props)
	c.props = slices.Delete(c.props, idx, idx+1)

	if err := c.commitLocked(ctx, prev); err != nil {
		return err
	}
	c.notifyLocked()
	return nil
}

// Reorder implements Catalog: order = index for every id. Unknown ids fail
// the whole call before anything changes.
func (c *LocalCatalog) Reorder(ctx context.Context, category domain.Category, orderedIDs []string) error {
	_, span := catalogTracer.Start(ctx, "LocalCatalog.Reorder")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(ctx); err != nil {
		return err
	}

	indexes := make([]int, len(orderedIDs))
	for i, id := range orderedIDs {
		idx := c.indexLocked(id)
		if idx < 0 {
			return &domain.ErrNotFound{Resource: "property", ID: id}
		}
		indexes[i] = idx
	}

	now := c.now()
	prev := slices.Clone(c.props)
	for order, idx := range indexes {
		c.props[idx].Order = order
		c.props[idx].UpdatedAt = now
	}

	if err := c.commitLocked(ctx, prev); err != nil {
		return err
	}
	c.logger.Info("local catalog: reordered", zap.String("category", string(category)), zap.Int("count", len(orderedIDs)))
	c.notifyLocked()
	return nil
}

func (c *LocalCatalog) indexLocked(id string) int {
	for i := range c.props {
		if c.props[i].ID == id {
			return i
		}
	}
	return -1
}
