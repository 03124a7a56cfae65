package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/local"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/observability"
	"github.com/boddenberg/phuket-immo-bfa/internal/service"

	"go.uber.org/zap"
)

func newLocalStore(t *testing.T, kv *local.MemoryKV) (*service.LocalCatalog, *service.CatalogStore) {
	t.Helper()
	cat := service.NewLocalCatalog(kv, zap.NewNop())
	store := service.NewCatalogStore(cat, observability.NewMetrics(), zap.NewNop())
	t.Cleanup(store.Stop)
	return cat, store
}

func TestGroupProperties(t *testing.T) {
	props := []domain.Property{
		testProperty("b", domain.Category2026, 2, true),
		testProperty("a", domain.Category2026, 1, true),
		testProperty("r", domain.CategoryReady, 0, true),
		testProperty("x", domain.Category("2030"), 0, true),
	}

	g := service.GroupProperties(props)

	if len(g.Ready) != 1 || len(g.Y2026) != 2 {
		t.Fatalf("unexpected buckets: ready=%d 2026=%d", len(g.Ready), len(g.Y2026))
	}
	if g.Y2026[0].ProjectName != "a" || g.Y2026[1].ProjectName != "b" {
		t.Errorf("2026 bucket not sorted by order: %s, %s", g.Y2026[0].ProjectName, g.Y2026[1].ProjectName)
	}
	if g.Y2027 == nil || len(g.Y2027) != 0 {
		t.Errorf("expected empty non-nil 2027 bucket, got %v", g.Y2027)
	}
}

func TestCatalogStore_LoadingUntilScoped(t *testing.T) {
	_, store := newLocalStore(t, local.NewMemoryKV())

	snap := store.Snapshot()
	if !snap.Loading || snap.Scope != domain.ScopeNone || snap.Source != domain.SourceNone {
		t.Fatalf("expected unscoped loading snapshot, got %+v", snap)
	}
}

func TestCatalogStore_LocalScopeVisibility(t *testing.T) {
	cat, store := newLocalStore(t, local.NewMemoryKV())
	ctx := context.Background()

	if err := store.SetScope(domain.ScopePublic); err != nil {
		t.Fatal(err)
	}
	snap := store.Snapshot()
	if snap.Loading || snap.Source != domain.SourceSeed {
		t.Fatalf("expected loaded seed snapshot, got loading=%v source=%s", snap.Loading, snap.Source)
	}
	seedCount := len(snap.Properties)

	if _, err := cat.AddProperty(ctx, testProperty("Draft", domain.CategoryReady, 5, false)); err != nil {
		t.Fatal(err)
	}

	snap = store.Snapshot()
	if len(snap.Properties) != seedCount {
		t.Errorf("public scope must not show unpublished records: got %d, want %d", len(snap.Properties), seedCount)
	}
	if snap.Source != domain.SourceLocal {
		t.Errorf("expected source local after persisting, got %s", snap.Source)
	}
	for _, p := range snap.Properties {
		if !p.IsPublished {
			t.Errorf("unpublished %q visible in public scope", p.ProjectName)
		}
	}

	if err := store.SetScope(domain.ScopeAuthorized); err != nil {
		t.Fatal(err)
	}
	if got := len(store.Properties()); got != seedCount+1 {
		t.Errorf("authorized scope: got %d properties, want %d", got, seedCount+1)
	}
}

func TestLocalCatalog_PersistsAcrossInstances(t *testing.T) {
	kv := local.NewMemoryKV()
	cat, _ := newLocalStore(t, kv)
	ctx := context.Background()

	id, err := cat.AddProperty(ctx, testProperty("Persisted", domain.Category2027, 9, true))
	if err != nil {
		t.Fatal(err)
	}

	_, store := newLocalStore(t, kv)
	if err := store.SetScope(domain.ScopePublic); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get(id); !ok {
		t.Error("expected persisted property after reload")
	}
	if store.Snapshot().Source != domain.SourceLocal {
		t.Errorf("expected source local, got %s", store.Snapshot().Source)
	}
}

func TestLocalCatalog_Reorder(t *testing.T) {
	cat, store := newLocalStore(t, local.NewMemoryKV())
	ctx := context.Background()
	if err := store.SetScope(domain.ScopeAuthorized); err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, p := range store.Grouped().Y2026 {
		ids = append(ids, p.ID)
	}
	if len(ids) < 2 {
		t.Fatalf("seed needs at least two 2026 entries, got %d", len(ids))
	}
	reversed := make([]string, len(ids))
	for i, id := range ids {
		reversed[len(ids)-1-i] = id
	}

	if err := cat.Reorder(ctx, domain.Category2026, reversed); err != nil {
		t.Fatal(err)
	}
	for i, p := range store.Grouped().Y2026 {
		if p.ID != reversed[i] || p.Order != i {
			t.Errorf("position %d: got %s/order %d, want %s/order %d", i, p.ID, p.Order, reversed[i], i)
		}
	}

	err := cat.Reorder(ctx, domain.Category2026, []string{reversed[0], "missing"})
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if store.Grouped().Y2026[0].ID != reversed[0] {
		t.Error("failed reorder must not change anything")
	}
}

func TestLocalCatalog_UpdateAndDelete(t *testing.T) {
	cat, store := newLocalStore(t, local.NewMemoryKV())
	ctx := context.Background()
	if err := store.SetScope(domain.ScopeAuthorized); err != nil {
		t.Fatal(err)
	}

	id, err := cat.AddProperty(ctx, testProperty("Edit me", domain.CategoryReady, 3, false))
	if err != nil {
		t.Fatal(err)
	}

	published := true
	if err := cat.UpdateProperty(ctx, id, &domain.PropertyPatch{IsPublished: &published}); err != nil {
		t.Fatal(err)
	}
	p, ok := store.Get(id)
	if !ok || !p.IsPublished {
		t.Fatalf("expected published property, got %+v (found=%v)", p, ok)
	}

	var nf *domain.ErrNotFound
	if err := cat.UpdateProperty(ctx, "missing", &domain.PropertyPatch{IsPublished: &published}); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := cat.DeleteProperty(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get(id); ok {
		t.Error("expected property to be gone")
	}
	if err := cat.DeleteProperty(ctx, id); err != nil {
		t.Errorf("deleting a missing id should succeed, got %v", err)
	}
}

func TestCatalogStore_SwitchCancelsPrevious(t *testing.T) {
	ms := &mockPropertyStore{}
	store := service.NewCatalogStore(service.NewRemoteCatalog(ms, "supabase", zap.NewNop()), observability.NewMetrics(), zap.NewNop())
	defer store.Stop()

	if err := store.SetScope(domain.ScopePublic); err != nil {
		t.Fatal(err)
	}
	first := ms.last()
	if !first.query.PublishedOnly {
		t.Error("public scope must filter on isPublished")
	}

	if err := store.SetScope(domain.ScopeAuthorized); err != nil {
		t.Fatal(err)
	}
	second := ms.last()
	if !first.cancelled {
		t.Error("previous subscription was not cancelled")
	}
	if second.query.PublishedOnly {
		t.Error("authorized scope must not filter")
	}

	// Late delivery from the old subscription is ignored.
	first.onSnap([]domain.Property{testProperty("stale", domain.CategoryReady, 0, true)})
	if !store.Snapshot().Loading {
		t.Error("stale snapshot must not be applied")
	}

	second.onSnap([]domain.Property{testProperty("draft", domain.CategoryReady, 0, false)})
	if got := store.Properties(); len(got) != 1 || got[0].ProjectName != "draft" {
		t.Errorf("unexpected authorized snapshot: %+v", got)
	}
}

func TestRemoteCatalog_Fallback(t *testing.T) {
	published := len(domain.PublishedSeed())

	t.Run("public empty shows seed", func(t *testing.T) {
		ms := &mockPropertyStore{}
		store := service.NewCatalogStore(service.NewRemoteCatalog(ms, "supabase", zap.NewNop()), observability.NewMetrics(), zap.NewNop())
		defer store.Stop()
		_ = store.SetScope(domain.ScopePublic)

		ms.last().onSnap(nil)

		snap := store.Snapshot()
		if snap.Source != domain.SourceSeed || len(snap.Properties) != published || snap.Error != "" {
			t.Errorf("got source=%s count=%d err=%q", snap.Source, len(snap.Properties), snap.Error)
		}
	})

	t.Run("authorized empty stays empty", func(t *testing.T) {
		ms := &mockPropertyStore{}
		store := service.NewCatalogStore(service.NewRemoteCatalog(ms, "supabase", zap.NewNop()), observability.NewMetrics(), zap.NewNop())
		defer store.Stop()
		_ = store.SetScope(domain.ScopeAuthorized)

		ms.last().onSnap([]domain.Property{})

		snap := store.Snapshot()
		if snap.Source != domain.SourceRemote || len(snap.Properties) != 0 {
			t.Errorf("got source=%s count=%d", snap.Source, len(snap.Properties))
		}
	})

	t.Run("transport error shows seed and error", func(t *testing.T) {
		ms := &mockPropertyStore{}
		metrics := observability.NewMetrics()
		store := service.NewCatalogStore(service.NewRemoteCatalog(ms, "supabase", zap.NewNop()), metrics, zap.NewNop())
		defer store.Stop()
		_ = store.SetScope(domain.ScopeAuthorized)

		ms.last().onErr(errors.New("permission denied"))

		snap := store.Snapshot()
		if snap.Source != domain.SourceSeed || len(snap.Properties) != published {
			t.Errorf("got source=%s count=%d", snap.Source, len(snap.Properties))
		}
		if snap.Error != "permission denied" {
			t.Errorf("expected error to be surfaced, got %q", snap.Error)
		}
		if metrics.GetAdminStats().SubscriptionErrors != 1 {
			t.Error("expected one subscription error to be counted")
		}
	})

	t.Run("remote published records replace seed", func(t *testing.T) {
		ms := &mockPropertyStore{}
		store := service.NewCatalogStore(service.NewRemoteCatalog(ms, "supabase", zap.NewNop()), observability.NewMetrics(), zap.NewNop())
		defer store.Stop()
		_ = store.SetScope(domain.ScopePublic)

		ms.last().onSnap([]domain.Property{
			testProperty("live", domain.Category2027, 1, true),
			testProperty("leaked draft", domain.Category2027, 2, false),
		})

		got := store.Properties()
		if len(got) != 1 || got[0].ProjectName != "live" {
			t.Errorf("expected only the published remote record, got %+v", got)
		}
	})
}

func TestRemoteCatalog_Reorder(t *testing.T) {
	ms := &mockPropertyStore{}
	cat := service.NewRemoteCatalog(ms, "mongo", zap.NewNop())

	if err := cat.Reorder(context.Background(), domain.CategoryReady, []string{"b", "a"}); err != nil {
		t.Fatal(err)
	}
	if len(ms.reorders) != 1 || ms.reorders[0][0] != "b" {
		t.Errorf("expected one atomic batch, got %v", ms.reorders)
	}
}

// operatorKV holds a persisted catalog with a single operator record.
func operatorKV(t *testing.T) *local.MemoryKV {
	t.Helper()
	p := testProperty("Operator only", domain.CategoryReady, 0, true)
	p.ID = "operator-1"
	raw, err := json.Marshal([]domain.Property{p})
	if err != nil {
		t.Fatal(err)
	}
	kv := local.NewMemoryKV()
	if err := kv.Set(context.Background(), service.PropertiesKey, string(raw)); err != nil {
		t.Fatal(err)
	}
	return kv
}

func storedIDs(t *testing.T, kv *local.MemoryKV) map[string]bool {
	t.Helper()
	raw, found, err := kv.Get(context.Background(), service.PropertiesKey)
	if err != nil || !found {
		t.Fatalf("stored catalog missing: found=%v err=%v", found, err)
	}
	var props []domain.Property
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		t.Fatal(err)
	}
	ids := make(map[string]bool, len(props))
	for _, p := range props {
		ids[p.ID] = true
	}
	return ids
}

func TestLocalCatalog_ReadFailureKeepsStoredSet(t *testing.T) {
	inner := operatorKV(t)
	kv := newFlakyKV(inner)
	kv.failGets = 1

	cat := service.NewLocalCatalog(kv, zap.NewNop())
	store := service.NewCatalogStore(cat, observability.NewMetrics(), zap.NewNop())
	t.Cleanup(store.Stop)
	ctx := context.Background()

	if err := store.SetScope(domain.ScopeAuthorized); err != nil {
		t.Fatal(err)
	}
	snap := store.Snapshot()
	if snap.Error == "" || snap.Source != domain.SourceSeed {
		t.Fatalf("expected seed fallback with error, got source=%s error=%q", snap.Source, snap.Error)
	}
	for _, p := range snap.Properties {
		if !p.IsPublished {
			t.Errorf("fallback must only show published records, got %q", p.ProjectName)
		}
	}

	id, err := cat.AddProperty(ctx, testProperty("New", domain.Category2026, 1, true))
	if err != nil {
		t.Fatal(err)
	}

	ids := storedIDs(t, inner)
	if len(ids) != 2 || !ids["operator-1"] || !ids[id] {
		t.Errorf("expected operator record plus the new one, got %v", ids)
	}
	if _, ok := store.Get("operator-1"); !ok {
		t.Error("subscriber should see the stored set once it could be read")
	}
	if store.Snapshot().Error != "" {
		t.Errorf("error should clear after a successful read, got %q", store.Snapshot().Error)
	}
}

func TestLocalCatalog_MutationFailsWhileUnreadable(t *testing.T) {
	inner := operatorKV(t)
	kv := newFlakyKV(inner)
	kv.failGets = 1

	cat := service.NewLocalCatalog(kv, zap.NewNop())
	_, err := cat.AddProperty(context.Background(), testProperty("New", domain.Category2026, 1, true))

	var extErr *domain.ErrExternalService
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if ids := storedIDs(t, inner); len(ids) != 1 || !ids["operator-1"] {
		t.Errorf("stored set must be untouched, got %v", ids)
	}
}

func TestLocalCatalog_PersistFailureRollsBack(t *testing.T) {
	kv := newFlakyKV(local.NewMemoryKV())
	cat := service.NewLocalCatalog(kv, zap.NewNop())
	store := service.NewCatalogStore(cat, observability.NewMetrics(), zap.NewNop())
	t.Cleanup(store.Stop)
	ctx := context.Background()

	if err := store.SetScope(domain.ScopeAuthorized); err != nil {
		t.Fatal(err)
	}
	before := store.Properties()
	target := before[0]

	kv.setFailure(errors.New("disk full"))
	var extErr *domain.ErrExternalService

	if _, err := cat.AddProperty(ctx, testProperty("Lost", domain.Category2026, 1, true)); !errors.As(err, &extErr) {
		t.Errorf("add: expected ErrExternalService, got %v", err)
	}
	name := "Renamed"
	if err := cat.UpdateProperty(ctx, target.ID, &domain.PropertyPatch{ProjectName: &name}); !errors.As(err, &extErr) {
		t.Errorf("update: expected ErrExternalService, got %v", err)
	}
	if err := cat.DeleteProperty(ctx, target.ID); !errors.As(err, &extErr) {
		t.Errorf("delete: expected ErrExternalService, got %v", err)
	}

	kv.setFailure(nil)

	// A fresh subscriber sees the in-memory set, which must match the
	// state before the failed writes.
	fresh := service.NewCatalogStore(cat, observability.NewMetrics(), zap.NewNop())
	t.Cleanup(fresh.Stop)
	if err := fresh.SetScope(domain.ScopeAuthorized); err != nil {
		t.Fatal(err)
	}
	after := fresh.Properties()
	if len(after) != len(before) {
		t.Fatalf("expected %d properties after rollback, got %d", len(before), len(after))
	}
	got, ok := fresh.Get(target.ID)
	if !ok || got.ProjectName != target.ProjectName {
		t.Errorf("update must be rolled back, got %+v ok=%v", got.ProjectName, ok)
	}
}

func TestLocalCatalog_CorruptSetIsBackedUp(t *testing.T) {
	kv := local.NewMemoryKV()
	ctx := context.Background()
	if err := kv.Set(ctx, service.PropertiesKey, "{not json"); err != nil {
		t.Fatal(err)
	}

	_, store := newLocalStore(t, kv)
	if err := store.SetScope(domain.ScopePublic); err != nil {
		t.Fatal(err)
	}
	if store.Snapshot().Source != domain.SourceSeed {
		t.Errorf("expected seed, got %s", store.Snapshot().Source)
	}
	raw, found, _ := kv.Get(ctx, service.PropertiesBackupKey)
	if !found || raw != "{not json" {
		t.Errorf("expected unreadable set under backup key, got %q found=%v", raw, found)
	}
}
