package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/observability"
	"github.com/boddenberg/phuket-immo-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var sessionTracer = otel.Tracer("service/session")

// UserKey is the cache key of the last-known principal in self-contained mode.
const UserKey = "phuket-user"

// SessionGate resolves an identity to an authorization state and drives the
// scope of its CatalogStore and the lead inbox accordingly.
//
//	UNRESOLVED -> ANONYMOUS                   (no identity, or role lookup failed)
//	UNRESOLVED -> AUTHENTICATED_UNAUTHORIZED  (identity without role record)
//	UNRESOLVED -> AUTHORIZED                  (identity with role record)
//
// Any state moves again on the next identity change.
type SessionGate struct {
	identity port.IdentityProvider
	roles    port.RoleStore
	kv       port.KeyValueStore
	store    *CatalogStore
	inbox    *LeadInbox
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time

	opMu sync.Mutex // serializes identity changes

	mu        sync.RWMutex
	state     domain.SessionState
	principal *domain.Principal
	err       string
}

// GateDeps are the collaborators of a SessionGate. KV is set only in
// self-contained mode.
type GateDeps struct {
	Identity port.IdentityProvider
	Roles    port.RoleStore
	KV       port.KeyValueStore
	Store    *CatalogStore
	Inbox    *LeadInbox
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewSessionGate creates an UNRESOLVED gate. The store has no subscription
// until the first identity change.
func NewSessionGate(d GateDeps) *SessionGate {
	return &SessionGate{
		identity: d.Identity,
		roles:    d.Roles,
		kv:       d.KV,
		store:    d.Store,
		inbox:    d.Inbox,
		metrics:  d.Metrics,
		logger:   d.Logger,
		now:      time.Now,
		state:    domain.SessionUnresolved,
	}
}

// OnIdentity handles an identity change. A nil identity means signed out.
func (g *SessionGate) OnIdentity(ctx context.Context, id *domain.Identity) {
	ctx, span := sessionTracer.Start(ctx, "SessionGate.OnIdentity")
	defer span.End()

	g.opMu.Lock()
	defer g.opMu.Unlock()

	if id == nil {
		g.becomeAnonymous(ctx, "")
		return
	}

	rec, err := g.roles.GetRole(ctx, id.UID)
	switch {
	case err != nil:
		g.logger.Warn("session: role lookup failed", zap.String("uid", id.UID), zap.Error(err))
		g.becomeAnonymous(ctx, err.Error())
	case rec == nil:
		g.becomeUnauthorized(id)
	default:
		g.becomeAuthorized(ctx, id, rec)
	}
}

// Login signs in with the identity provider and resolves the role record.
// An identity without a record is signed out again and ErrNoAdminAccess
// is returned.
func (g *SessionGate) Login(ctx context.Context, email, password string) (*domain.Principal, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionGate.Login")
	defer span.End()

	g.opMu.Lock()
	defer g.opMu.Unlock()

	id, err := g.identity.SignIn(ctx, email, password)
	if err != nil {
		var unauth *domain.ErrUnauthorized
		if errors.As(err, &unauth) {
			g.metrics.IncrLogin("denied")
		} else {
			g.metrics.IncrLogin("error")
		}
		return nil, err
	}

	rec, err := g.roles.GetRole(ctx, id.UID)
	if err != nil {
		g.metrics.IncrLogin("error")
		g.signOut(ctx, id.UID)
		g.becomeAnonymous(ctx, err.Error())
		return nil, fmt.Errorf("resolve role: %w", err)
	}
	if rec == nil {
		g.metrics.IncrLogin("denied")
		g.logger.Warn("session: identity has no admin record", zap.String("uid", id.UID))
		g.signOut(ctx, id.UID)
		g.becomeAnonymous(ctx, "")
		return nil, &domain.ErrNoAdminAccess{UID: id.UID}
	}

	g.metrics.IncrLogin("success")
	return g.becomeAuthorized(ctx, id, rec), nil
}

// Logout signs out and reverts to the public view.
func (g *SessionGate) Logout(ctx context.Context) {
	ctx, span := sessionTracer.Start(ctx, "SessionGate.Logout")
	defer span.End()

	g.opMu.Lock()
	defer g.opMu.Unlock()

	g.mu.RLock()
	var uid string
	if g.principal != nil {
		uid = g.principal.UID
	}
	g.mu.RUnlock()

	if uid != "" {
		g.signOut(ctx, uid)
	}
	g.becomeAnonymous(ctx, "")
}

func (g *SessionGate) signOut(ctx context.Context, uid string) {
	if err := g.identity.SignOut(ctx, uid); err != nil {
		g.logger.Warn("session: sign-out failed", zap.String("uid", uid), zap.Error(err))
	}
}

func (g *SessionGate) becomeAnonymous(ctx context.Context, errMsg string) {
	g.mu.Lock()
	hadPrincipal := g.principal != nil
	g.state = domain.SessionAnonymous
	g.principal = nil
	g.err = errMsg
	g.mu.Unlock()

	g.inbox.Stop()
	g.applyScope(domain.ScopePublic)
	if hadPrincipal && g.kv != nil {
		if err := g.kv.Delete(ctx, UserKey); err != nil {
			g.logger.Warn("session: clearing persisted user failed", zap.Error(err))
		}
	}
	g.logger.Info("session: anonymous", zap.Bool("lookup_error", errMsg != ""))
}

func (g *SessionGate) becomeUnauthorized(id *domain.Identity) {
	g.mu.Lock()
	g.state = domain.SessionAuthenticatedUnauthorized
	g.principal = nil
	g.err = ""
	g.mu.Unlock()

	g.inbox.Stop()
	g.applyScope(domain.ScopePublic)
	g.logger.Info("session: authenticated without admin record", zap.String("uid", id.UID))
}

func (g *SessionGate) becomeAuthorized(ctx context.Context, id *domain.Identity, rec *domain.RoleRecord) *domain.Principal {
	p := &domain.Principal{
		UID:         id.UID,
		Email:       id.Email,
		Role:        domain.NormalizeRole(rec.Role),
		DisplayName: id.DisplayName,
		ResolvedAt:  g.now().UTC(),
	}

	g.mu.Lock()
	g.state = domain.SessionAuthorized
	g.principal = p
	g.err = ""
	g.mu.Unlock()

	g.applyScope(domain.ScopeAuthorized)
	if err := g.inbox.Start(ctx); err != nil {
		g.logger.Warn("session: lead inbox unavailable", zap.Error(err))
	}
	g.persist(ctx, p)

	g.logger.Info("session: authorized", zap.String("uid", p.UID), zap.String("role", string(p.Role)))
	cp := *p
	return &cp
}

func (g *SessionGate) applyScope(scope domain.Scope) {
	if err := g.store.SetScope(scope); err != nil {
		g.logger.Warn("session: catalog subscription failed", zap.String("scope", string(scope)), zap.Error(err))
	}
}

func (g *SessionGate) persist(ctx context.Context, p *domain.Principal) {
	if g.kv == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := g.kv.Set(ctx, UserKey, string(raw)); err != nil {
		g.logger.Warn("session: persisting user failed", zap.Error(err))
	}
}

// State returns the current gate state.
func (g *SessionGate) State() domain.SessionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Principal returns a copy of the authorized principal, or nil.
func (g *SessionGate) Principal() *domain.Principal {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.principal == nil {
		return nil
	}
	cp := *g.principal
	return &cp
}

// Err returns the last role lookup error, if any.
func (g *SessionGate) Err() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.err
}

// View summarizes the gate for the session endpoint.
func (g *SessionGate) View() domain.SessionView {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v := domain.SessionView{
		State: g.state,
		Scope: g.store.Scope(),
		Error: g.err,
	}
	if g.principal != nil {
		cp := *g.principal
		v.User = &cp
		v.IsAdmin = cp.Role == domain.RoleAdmin
	}
	return v
}

// Store returns the catalog store driven by the gate.
func (g *SessionGate) Store() *CatalogStore { return g.store }

// Inbox returns the lead inbox driven by the gate.
func (g *SessionGate) Inbox() *LeadInbox { return g.inbox }

// Close releases the subscriptions of the gate.
func (g *SessionGate) Close() {
	g.inbox.Stop()
	g.store.Stop()
}

// persistedIdentity returns the last-known principal stored for uid.
func persistedIdentity(ctx context.Context, kv port.KeyValueStore, uid string) (*domain.Identity, bool) {
	if kv == nil {
		return nil, false
	}
	raw, found, err := kv.Get(ctx, UserKey)
	if err != nil || !found {
		return nil, false
	}
	var p domain.Principal
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.UID != uid {
		return nil, false
	}
	return &domain.Identity{UID: p.UID, Email: p.Email, DisplayName: p.DisplayName}, true
}
