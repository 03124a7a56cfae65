package format_test

import (
	"strings"
	"testing"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/format"
)

func TestCurrency(t *testing.T) {
	if got := format.Currency(139000); got != "139.000 €" {
		t.Errorf("expected '139.000 €', got '%s'", got)
	}
	if got := format.Currency(500); got != "500 €" {
		t.Errorf("expected '500 €', got '%s'", got)
	}
	if got := format.CurrencyFloat(194947.4); got != "194.947 €" {
		t.Errorf("expected '194.947 €', got '%s'", got)
	}
}

func TestPercent(t *testing.T) {
	if got := format.Percent(7.5); got != "7,5 %" {
		t.Errorf("expected '7,5 %%', got '%s'", got)
	}
}

func TestIsValidPhone(t *testing.T) {
	valid := []string{"+43 699 17738276", "0171 1234567", "+49 (30) 123-4567", "030/1234567"}
	for _, p := range valid {
		if !format.IsValidPhone(p) {
			t.Errorf("expected %q to be valid", p)
		}
	}

	invalid := []string{"", "   ", "12345", "abc1234567", "43+6991773", "+1234567890123456"}
	for _, p := range invalid {
		if format.IsValidPhone(p) {
			t.Errorf("expected %q to be invalid", p)
		}
	}
}

func TestWhatsAppLink(t *testing.T) {
	link := format.WhatsAppLink("+43 699 17738276", "Hallo, ich interessiere mich")
	if !strings.HasPrefix(link, "https://wa.me/4369917738276?text=") {
		t.Fatalf("unexpected link prefix: %s", link)
	}
	if strings.Contains(link, " ") {
		t.Errorf("expected text to be escaped, got %s", link)
	}

	if got := format.WhatsAppLink("4369917738276", ""); got != "https://wa.me/4369917738276" {
		t.Errorf("expected bare link, got %s", got)
	}
}

func TestCompletion(t *testing.T) {
	if got := format.Completion(nil); got != "Fertiggestellt" {
		t.Errorf("expected 'Fertiggestellt', got '%s'", got)
	}
	c := "2026-12"
	if got := format.Completion(&c); got != "Dezember 2026" {
		t.Errorf("expected 'Dezember 2026', got '%s'", got)
	}
	bad := "Q4 2026"
	if got := format.Completion(&bad); got != bad {
		t.Errorf("expected verbatim value, got '%s'", got)
	}
}

func TestCategoryLabel(t *testing.T) {
	if got := format.CategoryLabel(domain.CategoryReady); got != "Sofort verfügbar" {
		t.Errorf("unexpected label: %s", got)
	}
	if got := format.CategoryLabel(domain.Category2027); got != "Fertigstellung 2027" {
		t.Errorf("unexpected label: %s", got)
	}
}

func TestNiceEUR(t *testing.T) {
	cases := []struct {
		thb  int64
		want int64
	}{
		{3946800, 109000},   // 109,028 € -> nearest thousand
		{1810000, 50000},    // 50,000 € -> nearest 500
		{1828100, 50500},    // 50,500 €
		{45000000, 1200000}, // 1.24 M € -> one decimal million
	}
	for _, c := range cases {
		if got := format.NiceEUR(c.thb, 36.2); got != c.want {
			t.Errorf("NiceEUR(%d): expected %d, got %d", c.thb, c.want, got)
		}
	}
}
