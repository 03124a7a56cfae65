// Package format holds the display helpers shared by the catalog, the
// calculator and the contact endpoints. All output targets a German-speaking
// audience.
package format

import (
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.German)

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// Currency renders a whole-euro amount, e.g. 139000 -> "139.000 €".
func Currency(eur int64) string {
	return printer.Sprintf("%d", eur) + " €"
}

// CurrencyFloat rounds v to whole euros before rendering it.
func CurrencyFloat(v float64) string {
	return Currency(int64(math.Round(v)))
}

// Percent renders a percentage with one decimal, e.g. 7.5 -> "7,5 %".
func Percent(v float64) string {
	return printer.Sprintf("%.1f", v) + " %"
}

// IsValidPhone accepts international and national numbers written with the
// usual separators. A '+' is only allowed as the first character and the
// number must carry between 7 and 15 digits.
func IsValidPhone(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+':
			if i != 0 {
				return false
			}
		case r == ' ', r == '-', r == '(', r == ')', r == '.', r == '/':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

// DigitsOnly strips everything but 0-9 from s.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// WhatsAppLink builds a wa.me deep link that opens a chat with text prefilled.
func WhatsAppLink(phoneE164, text string) string {
	link := "https://wa.me/" + DigitsOnly(phoneE164)
	if text == "" {
		return link
	}
	return link + "?text=" + url.QueryEscape(text)
}

// Completion renders a "YYYY-MM" completion date as "Dezember 2026".
// A nil or empty value means the project is already finished.
func Completion(c *string) string {
	if c == nil || strings.TrimSpace(*c) == "" {
		return "Fertiggestellt"
	}
	t, err := time.Parse("2006-01", *c)
	if err != nil {
		return *c
	}
	return germanMonths[t.Month()-1] + " " + t.Format("2006")
}

// CategoryLabel returns the tab label of a category.
func CategoryLabel(c domain.Category) string {
	switch c {
	case domain.CategoryReady:
		return "Sofort verfügbar"
	case domain.Category2026:
		return "Fertigstellung 2026"
	case domain.Category2027:
		return "Fertigstellung 2027"
	}
	return string(c)
}

// THBToEUR converts a baht amount with the configured rate (THB per EUR).
func THBToEUR(thb float64, thbPerEUR float64) float64 {
	if thbPerEUR <= 0 {
		return 0
	}
	return thb / thbPerEUR
}

// NiceEUR derives the rounded display price stored next to the THB price:
// millions round to one decimal million, six-figure amounts to the nearest
// thousand, anything below to the nearest 500.
func NiceEUR(thb int64, thbPerEUR float64) int64 {
	eur := THBToEUR(float64(thb), thbPerEUR)
	switch {
	case eur >= 1_000_000:
		return int64(math.Round(eur/100_000)) * 100_000
	case eur >= 100_000:
		return int64(math.Round(eur/1_000)) * 1_000
	default:
		return int64(math.Round(eur/500)) * 500
	}
}

// EURFromTHBFee renders a small baht fee in euros with cents, e.g. "≈ 1,80 €".
func EURFromTHBFee(thb float64, thbPerEUR float64) string {
	return "≈ " + printer.Sprintf("%.2f", THBToEUR(thb, thbPerEUR)) + " €"
}
