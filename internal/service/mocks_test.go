package service_test

import (
	"context"
	"errors"
	"sync"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/local"
	"github.com/boddenberg/phuket-immo-bfa/internal/port"
)

// ============================================================
// Flaky key-value store
// ============================================================

// flakyKV wraps a MemoryKV. The next failGets reads fail, and every write
// fails while setErr is set.
type flakyKV struct {
	*local.MemoryKV

	mu       sync.Mutex
	failGets int
	setErr   error
}

func newFlakyKV(inner *local.MemoryKV) *flakyKV {
	return &flakyKV{MemoryKV: inner}
}

func (f *flakyKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	if f.failGets > 0 {
		f.failGets--
		f.mu.Unlock()
		return "", false, errors.New("cache unavailable")
	}
	f.mu.Unlock()
	return f.MemoryKV.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	err := f.setErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryKV.Set(ctx, key, value)
}

func (f *flakyKV) setFailure(err error) {
	f.mu.Lock()
	f.setErr = err
	f.mu.Unlock()
}

// ============================================================
// Mock PropertyStore
// ============================================================

type watch struct {
	query     port.PropertyQuery
	onSnap    port.PropertySnapshotFunc
	onErr     port.ErrorFunc
	cancelled bool
}

type mockPropertyStore struct {
	mu       sync.Mutex
	watches  []*watch
	watchErr error
	reorders [][]string
	created  []domain.Property
}

func (m *mockPropertyStore) WatchProperties(_ context.Context, q port.PropertyQuery, onSnap port.PropertySnapshotFunc, onErr port.ErrorFunc) (port.CancelFunc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	w := &watch{query: q, onSnap: onSnap, onErr: onErr}
	m.watches = append(m.watches, w)
	return func() {
		m.mu.Lock()
		w.cancelled = true
		m.mu.Unlock()
	}, nil
}

func (m *mockPropertyStore) last() *watch {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.watches) == 0 {
		return nil
	}
	return m.watches[len(m.watches)-1]
}

func (m *mockPropertyStore) CreateProperty(_ context.Context, p *domain.Property) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, *p)
	return "remote-1", nil
}

func (m *mockPropertyStore) UpdateProperty(context.Context, string, *domain.PropertyPatch) error {
	return nil
}

func (m *mockPropertyStore) DeleteProperty(context.Context, string) error { return nil }

func (m *mockPropertyStore) ReorderProperties(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reorders = append(m.reorders, ids)
	return nil
}

// ============================================================
// Mock identity provider and role store
// ============================================================

type mockIdentity struct {
	mu        sync.Mutex
	users     map[string]*domain.Identity // email -> identity
	password  string
	signInErr error
	signedOut []string
}

func (m *mockIdentity) SignIn(_ context.Context, email, password string) (*domain.Identity, error) {
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	id, ok := m.users[email]
	if !ok || password != m.password {
		return nil, &domain.ErrUnauthorized{Message: "E-Mail oder Passwort ist falsch"}
	}
	cp := *id
	return &cp, nil
}

func (m *mockIdentity) SignOut(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signedOut = append(m.signedOut, uid)
	return nil
}

func (m *mockIdentity) Lookup(_ context.Context, uid string) (*domain.Identity, error) {
	for _, id := range m.users {
		if id.UID == uid {
			cp := *id
			return &cp, nil
		}
	}
	return nil, nil
}

type mockRoles struct {
	records map[string]string
	err     error
}

func (m *mockRoles) GetRole(_ context.Context, uid string) (*domain.RoleRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	role, ok := m.records[uid]
	if !ok {
		return nil, nil
	}
	return &domain.RoleRecord{UID: uid, Role: role}, nil
}

// ============================================================
// Mock lead store and notifier
// ============================================================

type mockLeadStore struct {
	mu    sync.Mutex
	leads []domain.Lead
	err   error
}

func (m *mockLeadStore) CreateLead(_ context.Context, lead *domain.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	lead.ID = "lead-1"
	m.leads = append(m.leads, *lead)
	return nil
}

type mockNotifier struct {
	events []domain.LeadSubmittedEvent
	err    error
}

func (m *mockNotifier) PublishLeadSubmitted(_ context.Context, e domain.LeadSubmittedEvent) error {
	m.events = append(m.events, e)
	return m.err
}

// ============================================================
// Fixtures
// ============================================================

func testProperty(name string, cat domain.Category, order int, published bool) domain.Property {
	return domain.Property{
		StatusCategory: cat,
		ProjectName:    name,
		Area:           "Rawai",
		PropertyType:   domain.PropertyTypeCondo,
		Ownership:      domain.OwnershipLeasehold,
		UnitTypes:      []domain.UnitType{},
		SizeSqmFrom:    30,
		SizeSqmTo:      60,
		PriceFromTHB:   3500000,
		PriceFromEUR:   97000,
		Highlights:     []string{},
		Docs:           []domain.DocRef{},
		Images:         []string{"https://example.com/a.jpg"},
		IsPublished:    published,
		Order:          order,
	}
}
