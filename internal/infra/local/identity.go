// Package local holds the self-contained collaborators used when no external
// document store is configured: a bcrypt account list as identity provider
// and a role store kept in the durable key-value cache.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/port"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"
)

// Account is a local administrator login.
type Account struct {
	Email        string
	PasswordHash string
	DisplayName  string
}

// UIDFor derives the stable identity id of an email address.
func UIDFor(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(strings.TrimSpace(email)))).String()
}

// IdentityProvider authenticates against a fixed account list.
type IdentityProvider struct {
	mu       sync.RWMutex
	accounts map[string]Account // lower-cased email -> account
	logger   *zap.Logger
}

// NewIdentityProvider creates a provider for accounts. Accounts without a
// bcrypt hash are skipped.
func NewIdentityProvider(accounts []Account, logger *zap.Logger) *IdentityProvider {
	p := &IdentityProvider{accounts: make(map[string]Account), logger: logger}
	for _, a := range accounts {
		if a.Email == "" || a.PasswordHash == "" {
			continue
		}
		p.accounts[strings.ToLower(strings.TrimSpace(a.Email))] = a
	}
	return p
}

// SignIn checks the password hash of email.
func (p *IdentityProvider) SignIn(ctx context.Context, email, password string) (*domain.Identity, error) {
	p.mu.RLock()
	acc, ok := p.accounts[strings.ToLower(strings.TrimSpace(email))]
	p.mu.RUnlock()

	if !ok {
		// Compare against a dummy hash so unknown emails take as long as wrong passwords.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, &domain.ErrUnauthorized{Message: "E-Mail oder Passwort ist falsch"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		p.logger.Info("local: sign-in rejected", zap.String("email", acc.Email))
		return nil, &domain.ErrUnauthorized{Message: "E-Mail oder Passwort ist falsch"}
	}
	return identityOf(acc), nil
}

// SignOut is a no-op, local accounts hold no server-side session.
func (p *IdentityProvider) SignOut(ctx context.Context, uid string) error {
	return nil
}

// Lookup finds the account behind uid.
func (p *IdentityProvider) Lookup(ctx context.Context, uid string) (*domain.Identity, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, acc := range p.accounts {
		if UIDFor(acc.Email) == uid {
			return identityOf(acc), nil
		}
	}
	return nil, nil
}

func identityOf(acc Account) *domain.Identity {
	return &domain.Identity{
		UID:         UIDFor(acc.Email),
		Email:       acc.Email,
		DisplayName: acc.DisplayName,
	}
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("phuket-dummy-password"), bcrypt.MinCost)

// ============================================================
// RoleStore: admins map in the key-value cache
// ============================================================

// AdminsKey is the cache key of the uid -> role map.
const AdminsKey = "phuket-admins"

// RoleStore keeps authorization records in the key-value cache.
type RoleStore struct {
	kv port.KeyValueStore
	mu sync.Mutex
}

// NewRoleStore creates a role store on kv.
func NewRoleStore(kv port.KeyValueStore) *RoleStore {
	return &RoleStore{kv: kv}
}

func (s *RoleStore) load(ctx context.Context) (map[string]string, error) {
	raw, found, err := s.kv.Get(ctx, AdminsKey)
	if err != nil {
		return nil, err
	}
	roles := make(map[string]string)
	if !found || raw == "" {
		return roles, nil
	}
	if err := json.Unmarshal([]byte(raw), &roles); err != nil {
		return nil, fmt.Errorf("decode %s: %w", AdminsKey, err)
	}
	return roles, nil
}

// GetRole returns the record for uid, or (nil, nil) when there is none.
func (s *RoleStore) GetRole(ctx context.Context, uid string) (*domain.RoleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roles, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	role, ok := roles[uid]
	if !ok {
		return nil, nil
	}
	return &domain.RoleRecord{UID: uid, Role: role}, nil
}

// SetRole creates or replaces the record for uid.
func (s *RoleStore) SetRole(ctx context.Context, uid, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roles, err := s.load(ctx)
	if err != nil {
		return err
	}
	roles[uid] = role
	raw, err := json.Marshal(roles)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, AdminsKey, string(raw))
}

// RemoveRole deletes the record for uid.
func (s *RoleStore) RemoveRole(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roles, err := s.load(ctx)
	if err != nil {
		return err
	}
	delete(roles, uid)
	raw, err := json.Marshal(roles)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, AdminsKey, string(raw))
}
