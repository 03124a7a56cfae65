package local_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/local"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newProvider(t *testing.T) *local.IdentityProvider {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("strandhaus"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return local.NewIdentityProvider([]local.Account{
		{Email: "Admin@Phuket-Immo.de", PasswordHash: string(hash), DisplayName: "Admin"},
		{Email: "nohash@phuket-immo.de"},
	}, zap.NewNop())
}

func TestIdentityProvider_SignIn(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	id, err := p.SignIn(ctx, "admin@phuket-immo.de", "strandhaus")
	if err != nil {
		t.Fatalf("expected sign-in, got %v", err)
	}
	if id.UID != local.UIDFor("admin@phuket-immo.de") {
		t.Errorf("expected stable uid, got %s", id.UID)
	}

	for _, tc := range []struct{ email, password string }{
		{"admin@phuket-immo.de", "falsch"},
		{"unknown@phuket-immo.de", "strandhaus"},
		{"nohash@phuket-immo.de", ""},
	} {
		_, err := p.SignIn(ctx, tc.email, tc.password)
		var unauth *domain.ErrUnauthorized
		if !errors.As(err, &unauth) {
			t.Errorf("%s: expected ErrUnauthorized, got %v", tc.email, err)
		}
	}
}

func TestIdentityProvider_Lookup(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	id, err := p.Lookup(ctx, local.UIDFor("ADMIN@phuket-immo.de "))
	if err != nil || id == nil || id.DisplayName != "Admin" {
		t.Fatalf("expected lookup to find the admin, got %+v, %v", id, err)
	}

	missing, err := p.Lookup(ctx, "nobody")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil), got %+v, %v", missing, err)
	}
}

func TestRoleStore(t *testing.T) {
	s := local.NewRoleStore(local.NewMemoryKV())
	ctx := context.Background()

	rec, err := s.GetRole(ctx, "u1")
	if err != nil || rec != nil {
		t.Fatalf("expected no record, got %+v, %v", rec, err)
	}

	if err := s.SetRole(ctx, "u1", "admin"); err != nil {
		t.Fatal(err)
	}
	rec, err = s.GetRole(ctx, "u1")
	if err != nil || rec == nil || rec.Role != "admin" {
		t.Fatalf("expected admin record, got %+v, %v", rec, err)
	}

	if err := s.RemoveRole(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if rec, _ := s.GetRole(ctx, "u1"); rec != nil {
		t.Errorf("expected record to be removed, got %+v", rec)
	}
}
