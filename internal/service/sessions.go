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

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const sessionIssuer = "phuket-immo-bfa"

// sessionKeyPrefix prefixes the cache key of an issued session record.
const sessionKeyPrefix = "phuket-session:"

// sessionRecord is stored for every issued session id. Only sessions with a
// record can be resumed from a token.
type sessionRecord struct {
	UID       string    `json:"uid"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionClaims are the claims of an admin session token.
type SessionClaims struct {
	SessionID string `json:"sid"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type adminSession struct {
	gate    *SessionGate
	expires time.Time
}

// SessionRegistry keeps one SessionGate per signed-in admin session and a
// shared anonymous gate for public traffic.
type SessionRegistry struct {
	newGate  func() *SessionGate
	identity port.IdentityProvider
	kv       port.KeyValueStore
	records  port.KeyValueStore
	secret   []byte
	ttl      time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time

	public *SessionGate

	mu       sync.Mutex
	sessions map[string]*adminSession
	revoked  map[string]time.Time // sid -> token expiry
}

// RegistryDeps are the collaborators of a SessionRegistry. KV is set only in
// self-contained mode. Records holds issued session ids; without it sessions
// do not survive a restart.
type RegistryDeps struct {
	NewGate  func() *SessionGate
	Identity port.IdentityProvider
	KV       port.KeyValueStore
	Records  port.KeyValueStore
	Secret   []byte
	TTL      time.Duration
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewSessionRegistry creates the registry and resolves the public gate as
// signed out, which starts the public catalog subscription.
func NewSessionRegistry(ctx context.Context, d RegistryDeps) *SessionRegistry {
	r := &SessionRegistry{
		newGate:  d.NewGate,
		identity: d.Identity,
		kv:       d.KV,
		records:  d.Records,
		secret:   d.Secret,
		ttl:      d.TTL,
		metrics:  d.Metrics,
		logger:   d.Logger,
		now:      time.Now,
		public:   d.NewGate(),
		sessions: make(map[string]*adminSession),
		revoked:  make(map[string]time.Time),
	}
	r.public.OnIdentity(ctx, nil)
	return r
}

// Public returns the shared anonymous gate.
func (r *SessionRegistry) Public() *SessionGate { return r.public }

// Login authenticates an admin and opens a session with its own gate.
func (r *SessionRegistry) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "E-Mail und Passwort sind erforderlich"}
	}

	gate := r.newGate()
	principal, err := gate.Login(ctx, req.Email, req.Password)
	if err != nil {
		gate.Close()
		return nil, err
	}

	sid := uuid.NewString()
	expires := r.now().Add(r.ttl)
	token, err := r.sign(sid, principal, expires)
	if err != nil {
		gate.Close()
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	if err := r.saveRecord(ctx, sid, sessionRecord{UID: principal.UID, ExpiresAt: expires}); err != nil {
		gate.Close()
		return nil, err
	}

	r.mu.Lock()
	r.sessions[sid] = &adminSession{gate: gate, expires: expires}
	n := len(r.sessions)
	r.mu.Unlock()
	r.metrics.SetActiveSessions(n)

	r.logger.Info("admin session opened", zap.String("uid", principal.UID), zap.String("sid", sid))
	return &domain.LoginResponse{
		SessionToken: token,
		ExpiresIn:    int(r.ttl.Seconds()),
		User:         principal,
	}, nil
}

func (r *SessionRegistry) sign(sid string, p *domain.Principal, expires time.Time) (string, error) {
	now := r.now()
	claims := SessionClaims{
		SessionID: sid,
		Email:     p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    sessionIssuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// ParseToken validates a session token and returns its claims.
func (r *SessionRegistry) ParseToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithTimeFunc(r.now))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Sitzung ungültig oder abgelaufen"}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" || claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "Sitzung ungültig"}
	}
	return claims, nil
}

// Authenticate returns the gate of the session behind tokenString. A valid
// token whose session is not in memory (e.g. after a restart) is resumed only
// if Login issued its session id: the identity is re-read and the role
// re-resolved from the role store.
func (r *SessionRegistry) Authenticate(ctx context.Context, tokenString string) (*SessionGate, string, error) {
	claims, err := r.ParseToken(tokenString)
	if err != nil {
		return nil, "", err
	}
	sid := claims.SessionID

	r.mu.Lock()
	s, ok := r.sessions[sid]
	_, revoked := r.revoked[sid]
	r.mu.Unlock()
	if revoked {
		return nil, "", &domain.ErrUnauthorized{Message: "Sitzung beendet"}
	}
	if ok {
		return s.gate, sid, nil
	}

	rec, err := r.loadRecord(ctx, sid)
	if err != nil {
		return nil, "", err
	}
	if rec == nil || rec.UID != claims.Subject || r.now().After(rec.ExpiresAt) {
		r.logger.Warn("session token without issued session rejected", zap.String("sid", sid))
		return nil, "", &domain.ErrUnauthorized{Message: "Sitzung ungültig"}
	}

	id, err := r.lookup(ctx, claims.Subject)
	if err != nil {
		return nil, "", err
	}
	if id == nil {
		return nil, "", &domain.ErrUnauthorized{Message: "Sitzung ungültig"}
	}

	gate := r.newGate()
	gate.OnIdentity(ctx, id)
	if lookupErr := gate.Err(); lookupErr != "" {
		// Not cached: the next request resolves the role again.
		gate.Close()
		return nil, "", &domain.ErrExternalService{Service: "roles", Err: errors.New(lookupErr)}
	}

	r.mu.Lock()
	if existing, ok := r.sessions[sid]; ok {
		r.mu.Unlock()
		gate.Close()
		return existing.gate, sid, nil
	}
	r.sessions[sid] = &adminSession{gate: gate, expires: rec.ExpiresAt}
	n := len(r.sessions)
	r.mu.Unlock()
	r.metrics.SetActiveSessions(n)

	r.logger.Info("admin session resumed", zap.String("uid", id.UID), zap.String("sid", sid), zap.String("state", string(gate.State())))
	return gate, sid, nil
}

func (r *SessionRegistry) lookup(ctx context.Context, uid string) (*domain.Identity, error) {
	if id, ok := persistedIdentity(ctx, r.kv, uid); ok {
		return id, nil
	}
	id, err := r.identity.Lookup(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("resume session: %w", err)
	}
	return id, nil
}

func (r *SessionRegistry) recordKey(sid string) string {
	return sessionKeyPrefix + sid
}

func (r *SessionRegistry) saveRecord(ctx context.Context, sid string, rec sessionRecord) error {
	if r.records == nil {
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := r.records.Set(ctx, r.recordKey(sid), string(raw)); err != nil {
		return &domain.ErrExternalService{Service: "sessions", Err: err}
	}
	return nil
}

// loadRecord returns the issued session record of sid, or nil when there is
// none.
func (r *SessionRegistry) loadRecord(ctx context.Context, sid string) (*sessionRecord, error) {
	if r.records == nil {
		return nil, nil
	}
	raw, found, err := r.records.Get(ctx, r.recordKey(sid))
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "sessions", Err: err}
	}
	if !found {
		return nil, nil
	}
	var rec sessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		r.logger.Warn("session record corrupt", zap.String("sid", sid), zap.Error(err))
		return nil, nil
	}
	return &rec, nil
}

func (r *SessionRegistry) deleteRecord(ctx context.Context, sid string) {
	if r.records == nil {
		return
	}
	if err := r.records.Delete(ctx, r.recordKey(sid)); err != nil {
		r.logger.Warn("deleting session record failed", zap.String("sid", sid), zap.Error(err))
	}
}

// Logout ends the session sid. Its token is rejected until it expires.
// Unknown sessions are ignored.
func (r *SessionRegistry) Logout(ctx context.Context, sid string) {
	r.mu.Lock()
	s, ok := r.sessions[sid]
	delete(r.sessions, sid)
	if ok {
		r.revoked[sid] = s.expires
	}
	n := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return
	}
	r.deleteRecord(ctx, sid)
	r.metrics.SetActiveSessions(n)

	s.gate.Logout(ctx)
	s.gate.Close()
	r.logger.Info("admin session closed", zap.String("sid", sid))
}

// Count returns the number of open admin sessions.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes expired sessions and returns how many were removed.
func (r *SessionRegistry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	var expired []*adminSession
	var expiredIDs []string
	for sid, s := range r.sessions {
		if now.After(s.expires) {
			expired = append(expired, s)
			expiredIDs = append(expiredIDs, sid)
			delete(r.sessions, sid)
		}
	}
	for sid, exp := range r.revoked {
		if now.After(exp) {
			delete(r.revoked, sid)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range expired {
		s.gate.Close()
	}
	for _, sid := range expiredIDs {
		r.deleteRecord(context.Background(), sid)
	}
	if len(expired) > 0 {
		r.metrics.SetActiveSessions(n)
		r.logger.Info("expired admin sessions swept", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (r *SessionRegistry) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// StopAll closes every gate, the public one included.
func (r *SessionRegistry) StopAll() error {
	r.mu.Lock()
	gates := make([]*SessionGate, 0, len(r.sessions)+1)
	for _, s := range r.sessions {
		gates = append(gates, s.gate)
	}
	r.sessions = make(map[string]*adminSession)
	r.mu.Unlock()
	gates = append(gates, r.public)

	var g errgroup.Group
	for _, gate := range gates {
		g.Go(func() error {
			gate.Close()
			return nil
		})
	}
	err := g.Wait()
	r.metrics.SetActiveSessions(0)
	return err
}
