package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/local"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/observability"
	"github.com/boddenberg/phuket-immo-bfa/internal/port"
	"github.com/boddenberg/phuket-immo-bfa/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type gateFixture struct {
	identity *mockIdentity
	roles    *mockRoles
	kv       *local.MemoryKV
	catalog  *service.LocalCatalog
	leads    *service.LocalLeadLog
	metrics  *observability.Metrics
}

func newGateFixture() *gateFixture {
	kv := local.NewMemoryKV()
	return &gateFixture{
		identity: &mockIdentity{
			password: "secret",
			users: map[string]*domain.Identity{
				"admin@example.com":  {UID: "u-admin", Email: "admin@example.com", DisplayName: "Admin"},
				"editor@example.com": {UID: "u-editor", Email: "editor@example.com"},
				"guest@example.com":  {UID: "u-guest", Email: "guest@example.com"},
			},
		},
		roles: &mockRoles{records: map[string]string{
			"u-admin":  "admin",
			"u-editor": "moderator",
		}},
		kv:      kv,
		catalog: service.NewLocalCatalog(kv, zap.NewNop()),
		leads:   service.NewLocalLeadLog(kv, zap.NewNop()),
		metrics: observability.NewMetrics(),
	}
}

func (f *gateFixture) newGate() *service.SessionGate {
	return service.NewSessionGate(service.GateDeps{
		Identity: f.identity,
		Roles:    f.roles,
		KV:       f.kv,
		Store:    service.NewCatalogStore(f.catalog, f.metrics, zap.NewNop()),
		Inbox:    service.NewLeadInbox(f.leads, f.metrics, zap.NewNop()),
		Metrics:  f.metrics,
		Logger:   zap.NewNop(),
	})
}

func TestSessionGate_StartsUnresolved(t *testing.T) {
	gate := newGateFixture().newGate()
	defer gate.Close()

	if gate.State() != domain.SessionUnresolved {
		t.Errorf("expected UNRESOLVED, got %s", gate.State())
	}
	if gate.Store().Scope() != domain.ScopeNone {
		t.Errorf("expected no subscription, got scope %q", gate.Store().Scope())
	}
}

func TestSessionGate_Transitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		identity  *domain.Identity
		roleErr   error
		wantState domain.SessionState
		wantScope domain.Scope
		wantRole  domain.Role
		wantErr   bool
	}{
		{name: "signed out", identity: nil, wantState: domain.SessionAnonymous, wantScope: domain.ScopePublic},
		{name: "no record", identity: &domain.Identity{UID: "u-guest"}, wantState: domain.SessionAuthenticatedUnauthorized, wantScope: domain.ScopePublic},
		{name: "admin", identity: &domain.Identity{UID: "u-admin"}, wantState: domain.SessionAuthorized, wantScope: domain.ScopeAuthorized, wantRole: domain.RoleAdmin},
		{name: "unknown role", identity: &domain.Identity{UID: "u-editor"}, wantState: domain.SessionAuthorized, wantScope: domain.ScopeAuthorized, wantRole: domain.RoleEditor},
		{name: "lookup failure", identity: &domain.Identity{UID: "u-admin"}, roleErr: errors.New("permission denied"), wantState: domain.SessionAnonymous, wantScope: domain.ScopePublic, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGateFixture()
			f.roles.err = tt.roleErr
			gate := f.newGate()
			defer gate.Close()

			gate.OnIdentity(ctx, tt.identity)

			if gate.State() != tt.wantState {
				t.Errorf("state: got %s, want %s", gate.State(), tt.wantState)
			}
			if gate.Store().Scope() != tt.wantScope {
				t.Errorf("scope: got %s, want %s", gate.Store().Scope(), tt.wantScope)
			}
			if (gate.Err() != "") != tt.wantErr {
				t.Errorf("err: got %q", gate.Err())
			}
			p := gate.Principal()
			if tt.wantRole == "" {
				if p != nil {
					t.Errorf("expected no principal, got %+v", p)
				}
				if gate.Inbox().Snapshot().Active {
					t.Error("lead inbox must be inactive")
				}
				return
			}
			if p == nil || p.Role != tt.wantRole {
				t.Fatalf("principal: got %+v, want role %s", p, tt.wantRole)
			}
			if !gate.Inbox().Snapshot().Active {
				t.Error("lead inbox must be active for authorized sessions")
			}
		})
	}
}

func TestSessionGate_LoginWithoutRecord(t *testing.T) {
	f := newGateFixture()
	gate := f.newGate()
	defer gate.Close()

	_, err := gate.Login(context.Background(), "guest@example.com", "secret")

	var noAccess *domain.ErrNoAdminAccess
	if !errors.As(err, &noAccess) {
		t.Fatalf("expected ErrNoAdminAccess, got %v", err)
	}
	if gate.State() != domain.SessionAnonymous {
		t.Errorf("expected ANONYMOUS, got %s", gate.State())
	}
	if len(f.identity.signedOut) != 1 || f.identity.signedOut[0] != "u-guest" {
		t.Errorf("expected identity to be signed out, got %v", f.identity.signedOut)
	}
}

func TestSessionGate_LoginWrongPassword(t *testing.T) {
	gate := newGateFixture().newGate()
	defer gate.Close()

	_, err := gate.Login(context.Background(), "admin@example.com", "nope")

	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if gate.State() != domain.SessionUnresolved {
		t.Errorf("failed sign-in must not change state, got %s", gate.State())
	}
}

func TestSessionGate_LoginLogout(t *testing.T) {
	f := newGateFixture()
	gate := f.newGate()
	defer gate.Close()
	ctx := context.Background()

	p, err := gate.Login(ctx, "admin@example.com", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if p.Role != domain.RoleAdmin || !gate.View().IsAdmin {
		t.Errorf("expected admin principal, got %+v", p)
	}
	if _, found, _ := f.kv.Get(ctx, service.UserKey); !found {
		t.Error("expected principal to be persisted")
	}

	gate.Logout(ctx)

	if gate.State() != domain.SessionAnonymous || gate.Store().Scope() != domain.ScopePublic {
		t.Errorf("expected anonymous public view, got %s/%s", gate.State(), gate.Store().Scope())
	}
	if gate.Inbox().Snapshot().Active {
		t.Error("lead inbox must stop on logout")
	}
	if _, found, _ := f.kv.Get(ctx, service.UserKey); found {
		t.Error("expected persisted principal to be cleared")
	}
}

const testSecret = "test-secret-0123456789abcdef-0123"

func newRegistry(t *testing.T, f *gateFixture, identity port.IdentityProvider) *service.SessionRegistry {
	t.Helper()
	r := service.NewSessionRegistry(context.Background(), service.RegistryDeps{
		NewGate:  f.newGate,
		Identity: identity,
		Records:  f.kv,
		Secret:   []byte(testSecret),
		TTL:      time.Hour,
		Metrics:  f.metrics,
		Logger:   zap.NewNop(),
	})
	t.Cleanup(func() { _ = r.StopAll() })
	return r
}

func TestSessionRegistry_LoginAndAuthenticate(t *testing.T) {
	f := newGateFixture()
	r := newRegistry(t, f, f.identity)
	ctx := context.Background()

	if r.Public().State() != domain.SessionAnonymous {
		t.Fatalf("public gate should be anonymous, got %s", r.Public().State())
	}

	resp, err := r.Login(ctx, domain.LoginRequest{Email: "admin@example.com", Password: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.SessionToken == "" || resp.ExpiresIn != 3600 {
		t.Errorf("unexpected response %+v", resp)
	}
	if r.Count() != 1 || f.metrics.GetAdminStats().ActiveSessions != 1 {
		t.Errorf("expected one active session")
	}

	gate, sid, err := r.Authenticate(ctx, resp.SessionToken)
	if err != nil {
		t.Fatal(err)
	}
	if gate.State() != domain.SessionAuthorized || sid == "" {
		t.Errorf("expected authorized gate, got %s", gate.State())
	}

	r.Logout(ctx, sid)
	if r.Count() != 0 {
		t.Error("expected session to be removed")
	}
}

func TestSessionRegistry_ResumesAfterRestart(t *testing.T) {
	f := newGateFixture()
	ctx := context.Background()

	first := newRegistry(t, f, f.identity)
	resp, err := first.Login(ctx, domain.LoginRequest{Email: "admin@example.com", Password: "secret"})
	if err != nil {
		t.Fatal(err)
	}

	// Role revoked while the process was down.
	delete(f.roles.records, "u-admin")
	second := newRegistry(t, f, f.identity)

	gate, _, err := second.Authenticate(ctx, resp.SessionToken)
	if err != nil {
		t.Fatal(err)
	}
	if gate.State() != domain.SessionAuthenticatedUnauthorized {
		t.Errorf("role must be re-resolved on resume, got %s", gate.State())
	}
}

func TestSessionRegistry_RejectsBadTokens(t *testing.T) {
	f := newGateFixture()
	r := newRegistry(t, f, f.identity)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, _, err := r.Authenticate(context.Background(), token)
		var unauth *domain.ErrUnauthorized
		if !errors.As(err, &unauth) {
			t.Errorf("token %q: expected ErrUnauthorized, got %v", token, err)
		}
	}
}

func TestSessionRegistry_LoginValidation(t *testing.T) {
	f := newGateFixture()
	r := newRegistry(t, f, f.identity)

	_, err := r.Login(context.Background(), domain.LoginRequest{Email: "admin@example.com"})
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSessionRegistry_LogoutRevokesToken(t *testing.T) {
	f := newGateFixture()
	r := newRegistry(t, f, f.identity)
	ctx := context.Background()

	resp, err := r.Login(ctx, domain.LoginRequest{Email: "admin@example.com", Password: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	_, sid, err := r.Authenticate(ctx, resp.SessionToken)
	if err != nil {
		t.Fatal(err)
	}

	r.Logout(ctx, sid)

	_, _, err = r.Authenticate(ctx, resp.SessionToken)
	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Errorf("expected revoked token to be rejected, got %v", err)
	}
}

func TestSessionRegistry_RejectsUnissuedSession(t *testing.T) {
	f := newGateFixture()
	r := newRegistry(t, f, f.identity)

	// Correctly signed, but no Login ever issued this session id.
	claims := jwt.MapClaims{
		"sid": "never-issued",
		"sub": "u-admin",
		"iss": "phuket-immo-bfa",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = r.Authenticate(context.Background(), token)
	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if r.Count() != 0 {
		t.Error("no session may be opened for an unissued token")
	}
}

func TestSessionRegistry_LogoutSurvivesRestart(t *testing.T) {
	f := newGateFixture()
	ctx := context.Background()

	first := newRegistry(t, f, f.identity)
	resp, err := first.Login(ctx, domain.LoginRequest{Email: "admin@example.com", Password: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	_, sid, err := first.Authenticate(ctx, resp.SessionToken)
	if err != nil {
		t.Fatal(err)
	}
	first.Logout(ctx, sid)

	second := newRegistry(t, f, f.identity)
	_, _, err = second.Authenticate(ctx, resp.SessionToken)
	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("logged-out token must stay rejected after restart, got %v", err)
	}
}

func TestSessionRegistry_ResumeRetriesAfterRoleLookupFailure(t *testing.T) {
	f := newGateFixture()
	ctx := context.Background()

	first := newRegistry(t, f, f.identity)
	resp, err := first.Login(ctx, domain.LoginRequest{Email: "admin@example.com", Password: "secret"})
	if err != nil {
		t.Fatal(err)
	}

	second := newRegistry(t, f, f.identity)
	f.roles.err = errors.New("role store down")

	_, _, err = second.Authenticate(ctx, resp.SessionToken)
	var extErr *domain.ErrExternalService
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if second.Count() != 0 {
		t.Fatal("a gate without a resolved role must not be cached")
	}

	f.roles.err = nil
	gate, _, err := second.Authenticate(ctx, resp.SessionToken)
	if err != nil {
		t.Fatal(err)
	}
	if gate.State() != domain.SessionAuthorized {
		t.Errorf("expected AUTHORIZED once the role store recovers, got %s", gate.State())
	}
}

func TestSessionRegistry_LoginFailsWhenSessionCannotBeRecorded(t *testing.T) {
	f := newGateFixture()
	records := newFlakyKV(local.NewMemoryKV())
	records.setFailure(errors.New("disk full"))

	r := service.NewSessionRegistry(context.Background(), service.RegistryDeps{
		NewGate:  f.newGate,
		Identity: f.identity,
		Records:  records,
		Secret:   []byte(testSecret),
		TTL:      time.Hour,
		Metrics:  f.metrics,
		Logger:   zap.NewNop(),
	})
	t.Cleanup(func() { _ = r.StopAll() })

	_, err := r.Login(context.Background(), domain.LoginRequest{Email: "admin@example.com", Password: "secret"})
	var extErr *domain.ErrExternalService
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if r.Count() != 0 {
		t.Error("expected no open session")
	}
}
